package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/rentacar/internal/model"
	"github.com/jmoiron/sqlx"
)

// supportMessageRow はsupport_messagesテーブルの1行。
type supportMessageRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Sender    string    `db:"sender"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}

// supportThreadRow はスレッド一覧クエリの1行。
type supportThreadRow struct {
	UserID        string    `db:"user_id"`
	UserName      string    `db:"full_name"`
	UserEmail     string    `db:"email"`
	LastMessage   string    `db:"body"`
	LastSender    string    `db:"sender"`
	LastMessageAt time.Time `db:"created_at"`
	MessageCount  int       `db:"message_count"`
}

// PostgresSupportMessageRepo はPostgreSQLを使用したサポートメッセージリポジトリ。
type PostgresSupportMessageRepo struct {
	db *sqlx.DB
}

// NewPostgresSupportMessageRepo はPostgresSupportMessageRepoを生成する。
func NewPostgresSupportMessageRepo(db *sqlx.DB) *PostgresSupportMessageRepo {
	return &PostgresSupportMessageRepo{db: db}
}

// Create はメッセージを作成する。IDとCreatedAtはストア側で設定する。
func (r *PostgresSupportMessageRepo) Create(ctx context.Context, msg *model.SupportMessage) error {
	return insertSupportMessage(ctx, r.db, msg)
}

func insertSupportMessage(ctx context.Context, q sqlx.QueryerContext, msg *model.SupportMessage) error {
	var row supportMessageRow
	err := sqlx.GetContext(ctx, q, &row,
		`INSERT INTO support_messages (user_id, sender, body)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, sender, body, created_at`,
		msg.UserID, string(msg.Sender), msg.Body,
	)
	if err != nil {
		return fmt.Errorf("failed to insert support message: %w", err)
	}

	msg.ID = row.ID
	msg.CreatedAt = row.CreatedAt
	return nil
}

// ListByUserID は指定ユーザーのスレッドを古い順に返す。
func (r *PostgresSupportMessageRepo) ListByUserID(ctx context.Context, userID string) ([]*model.SupportMessage, error) {
	var rows []supportMessageRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, sender, body, created_at
		 FROM support_messages
		 WHERE user_id = $1
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list support messages: %w", err)
	}

	msgs := make([]*model.SupportMessage, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, &model.SupportMessage{
			ID:        row.ID,
			UserID:    row.UserID,
			Sender:    model.MessageSender(row.Sender),
			Body:      row.Body,
			CreatedAt: row.CreatedAt,
		})
	}
	return msgs, nil
}

// CreateUserMessage は利用者のメッセージを作成し、スレッドの最初のメッセージであればreplyも作成する。
//
// ユーザー行をFOR UPDATEでロックしてから件数を数えるため、同じ利用者の同時送信でもreplyは1回だけ作成される。
func (r *PostgresSupportMessageRepo) CreateUserMessage(ctx context.Context, msg, reply *model.SupportMessage) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID string
	if err := tx.GetContext(ctx, &lockedID,
		`SELECT id FROM users WHERE id = $1 FOR UPDATE`,
		msg.UserID,
	); err != nil {
		return false, fmt.Errorf("failed to lock user: %w", err)
	}

	var count int
	if err := tx.GetContext(ctx, &count,
		`SELECT count(*) FROM support_messages WHERE user_id = $1`,
		msg.UserID,
	); err != nil {
		return false, fmt.Errorf("failed to count support messages: %w", err)
	}

	if err := insertSupportMessage(ctx, tx, msg); err != nil {
		return false, err
	}
	first := count == 0
	if first {
		if err := insertSupportMessage(ctx, tx, reply); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return first, nil
}

// ListThreads はユーザーごとの最新メッセージを新しい順に返す。
func (r *PostgresSupportMessageRepo) ListThreads(ctx context.Context) ([]*model.SupportThread, error) {
	var rows []supportThreadRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT latest.user_id, u.full_name, u.email, latest.body, latest.sender, latest.created_at, counts.message_count
		 FROM (
		     SELECT DISTINCT ON (user_id) user_id, body, sender, created_at
		     FROM support_messages
		     ORDER BY user_id, created_at DESC, id DESC
		 ) latest
		 JOIN (
		     SELECT user_id, count(*) AS message_count
		     FROM support_messages
		     GROUP BY user_id
		 ) counts ON counts.user_id = latest.user_id
		 JOIN users u ON u.id = latest.user_id
		 ORDER BY latest.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list support threads: %w", err)
	}

	threads := make([]*model.SupportThread, 0, len(rows))
	for _, row := range rows {
		threads = append(threads, &model.SupportThread{
			UserID:        row.UserID,
			UserName:      row.UserName,
			UserEmail:     row.UserEmail,
			LastMessage:   row.LastMessage,
			LastSender:    model.MessageSender(row.LastSender),
			LastMessageAt: row.LastMessageAt,
			MessageCount:  row.MessageCount,
		})
	}
	return threads, nil
}

// compile-time interface check
var _ SupportMessageRepository = (*PostgresSupportMessageRepo)(nil)

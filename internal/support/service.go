// Package support は利用者とサポートのメッセージスレッドを提供する。
//
// スレッドは利用者ごとに1つで、利用者の最初のメッセージには自動応答を返す。
package support

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/hitoshi/rentacar/internal/model"
	"github.com/hitoshi/rentacar/internal/repository"
	"github.com/hitoshi/rentacar/internal/security"
)

const (
	// MaxMessageLength はメッセージ本文の最大文字数。
	MaxMessageLength = 2000
	// AutoReply はスレッドの最初のメッセージに返す自動応答。
	AutoReply = "Thanks for your message! I'll get back to you shortly."
)

// Service はサポートメッセージのサービス層。
type Service struct {
	messageRepo repository.SupportMessageRepository
	userRepo    repository.UserRepository
	sanitizer   security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	messageRepo repository.SupportMessageRepository,
	userRepo repository.UserRepository,
	sanitizer security.TextSanitizer,
) *Service {
	return &Service{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
	}
}

// SendMessage は利用者のメッセージをスレッドに追加する。
// スレッドの最初のメッセージであれば自動応答も追加し、作成したメッセージを古い順に返す。
func (s *Service) SendMessage(ctx context.Context, userID, body string) ([]*model.SupportMessage, error) {
	body, err := s.normalizeBody(body)
	if err != nil {
		return nil, err
	}

	msg := &model.SupportMessage{UserID: userID, Sender: model.SenderUser, Body: body}
	ack := &model.SupportMessage{UserID: userID, Sender: model.SenderSupport, Body: AutoReply}
	first, err := s.messageRepo.CreateUserMessage(ctx, msg, ack)
	if err != nil {
		return nil, fmt.Errorf("failed to save support message: %w", err)
	}
	created := []*model.SupportMessage{msg}
	if first {
		created = append(created, ack)
	}

	slog.Info("support message received",
		slog.String("user_id", userID),
		slog.Bool("first_message", first),
	)
	return created, nil
}

// ListThread は利用者自身のスレッドを古い順に返す。
func (s *Service) ListThread(ctx context.Context, userID string) ([]*model.SupportMessage, error) {
	msgs, err := s.messageRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list support messages: %w", err)
	}
	return msgs, nil
}

// ListThreads は全スレッドを最新メッセージの新しい順に返す（管理画面用）。
func (s *Service) ListThreads(ctx context.Context) ([]*model.SupportThread, error) {
	threads, err := s.messageRepo.ListThreads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list support threads: %w", err)
	}
	return threads, nil
}

// GetThread は指定利用者のスレッドを返す（管理画面用）。
func (s *Service) GetThread(ctx context.Context, userID string) ([]*model.SupportMessage, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.ListThread(ctx, userID)
}

// Reply は指定利用者のスレッドにサポートとして返信する。
func (s *Service) Reply(ctx context.Context, userID, body string) (*model.SupportMessage, error) {
	body, err := s.normalizeBody(body)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	msg := &model.SupportMessage{UserID: userID, Sender: model.SenderSupport, Body: body}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save support reply: %w", err)
	}

	slog.Info("support reply sent", slog.String("user_id", userID))
	return msg, nil
}

func (s *Service) ensureUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}
	return nil
}

// normalizeBody はタグを除去し、1〜MaxMessageLength文字であることを検証する。
func (s *Service) normalizeBody(body string) (string, error) {
	body = s.sanitizer.Sanitize(body)
	if body == "" || utf8.RuneCountInString(body) > MaxMessageLength {
		return "", model.NewInvalidMessageError(MaxMessageLength)
	}
	return body, nil
}

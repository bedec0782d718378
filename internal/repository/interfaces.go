// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/rentacar/internal/model"
)

var (
	// ErrDuplicateEmail はメールアドレスが既に登録されている場合に返る。
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrCarNotFound は予約対象の車両が存在しない場合に返る。
	ErrCarNotFound = errors.New("car not found")
	// ErrRentalConflict は予約期間が同じ車両の既存予約と重なる場合に返る。
	ErrRentalConflict = errors.New("rental period overlaps an existing rental")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。メールアドレスが重複する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// UpdateFullName は氏名を更新し、更新後のユーザーを返す。見つからない場合はnilを返す。
	UpdateFullName(ctx context.Context, id, fullName string) (*model.User, error)

	// List は全ユーザーを登録日時の新しい順に返す。
	List(ctx context.Context) ([]*model.User, error)

	// Count はユーザー数を返す。
	Count(ctx context.Context) (int, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// CarRepository は車両カタログの永続化インターフェース。
// 返却するmodel.CarのRentalsは空であり、予約サマリの射影は呼び出し側で行う。
type CarRepository interface {
	// Create は車両を作成する。IDはストア側で採番しcarに設定する。
	Create(ctx context.Context, car *model.Car) error

	// FindByID は指定IDの車両を取得する（画像本体は含まない）。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Car, error)

	// List は全車両を登録順（created_at, id）で返す。
	List(ctx context.Context) ([]*model.Car, error)

	// ListByIDs は指定IDの車両を返す。存在しないIDは無視する。
	ListByIDs(ctx context.Context, ids []string) ([]*model.Car, error)

	// Search は管理画面の検索条件に一致する車両を登録順で返す。
	Search(ctx context.Context, filter model.CarFilter) ([]*model.Car, error)

	// Update はメーカー・モデル・色を更新する。見つからない場合はnilを返す。
	Update(ctx context.Context, id string, input model.CarInput) (*model.Car, error)

	// Delete は車両を削除する。削除した場合はtrueを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// Count は車両数を返す。
	Count(ctx context.Context) (int, error)

	// UpdateImage は画像の取得元URLと画像本体を更新する。
	// dataがnilの場合は外部ストアに保存したものとしてimage_dataをNULLにする。
	UpdateImage(ctx context.Context, id, sourceURL string, data []byte, mime string) error

	// FindImage は画像本体とMIMEタイプを返す。未登録の場合はnil, "", nilを返す。
	FindImage(ctx context.Context, id string) ([]byte, string, error)
}

// RentalRepository はレンタル台帳の永続化インターフェース。
type RentalRepository interface {
	// CreateIfAvailable は車両の存在確認と期間重複チェックを行ったうえで予約を台帳に追加する。
	// 車両が存在しない場合はErrCarNotFound、期間が重なる予約がある場合はErrRentalConflictを返す。
	// 成功時はrentalのIDとCreatedAtを設定する。
	CreateIfAvailable(ctx context.Context, rental *model.Rental) error

	// ListByCarIDs は指定車両群の予約を車両ID・貸出日順に返す。
	ListByCarIDs(ctx context.Context, carIDs []string) ([]*model.Rental, error)

	// ListByUserID は指定ユーザーの予約を返す（並び順は保証しない）。
	ListByUserID(ctx context.Context, userID string) ([]*model.Rental, error)

	// ListAll は全予約を貸出日の新しい順に返す。
	ListAll(ctx context.Context) ([]*model.Rental, error)

	// CountActiveOn は指定日を期間に含む予約の件数を返す。
	CountActiveOn(ctx context.Context, date model.Date) (int, error)
}

// SupportMessageRepository はサポートメッセージの永続化インターフェース。
type SupportMessageRepository interface {
	// Create はメッセージを作成する。IDとCreatedAtはストア側で設定する。
	Create(ctx context.Context, msg *model.SupportMessage) error

	// ListByUserID は指定ユーザーのスレッドを古い順に返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.SupportMessage, error)

	// CreateUserMessage は利用者のメッセージを作成し、スレッドの最初のメッセージであれば
	// 同じトランザクションでreplyも作成する。replyを作成した場合はtrueを返す。
	CreateUserMessage(ctx context.Context, msg, reply *model.SupportMessage) (bool, error)

	// ListThreads はユーザーごとの最新メッセージを新しい順に返す。
	ListThreads(ctx context.Context) ([]*model.SupportThread, error)
}

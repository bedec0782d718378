// Package user はユーザープロフィールのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/rentacar/internal/auth"
	"github.com/hitoshi/rentacar/internal/model"
	"github.com/hitoshi/rentacar/internal/repository"
)

// Service はユーザープロフィールのサービス層。
// ユーザーはアプリ内から削除しないため、退会処理は持たない。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// GetProfile は指定ユーザーのプロフィールを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile は氏名を更新する。
// 既存の予約に記録された氏名は予約時点のまま変更しない。
func (s *Service) UpdateProfile(ctx context.Context, userID, fullName string) (*model.User, error) {
	name, err := auth.NormalizeName(fullName)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.UpdateFullName(ctx, userID, name)
	if err != nil {
		return nil, fmt.Errorf("氏名の更新に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("profile updated", slog.String("user_id", userID))
	return user, nil
}

// ListUsers は全ユーザーを登録日時の新しい順に返す（管理画面用）。
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Package admin は管理画面向けの集計と予約一覧を提供する。
package admin

import (
	"context"
	"fmt"

	"github.com/hitoshi/rentacar/internal/model"
	"github.com/hitoshi/rentacar/internal/repository"
	"golang.org/x/sync/errgroup"
)

// CarAttacher は予約に車両情報を結合するインターフェース。
type CarAttacher interface {
	AttachCars(ctx context.Context, rentals []*model.Rental) error
}

// Service は管理画面のサービス層。
type Service struct {
	userRepo   repository.UserRepository
	carRepo    repository.CarRepository
	rentalRepo repository.RentalRepository
	attacher   CarAttacher
	today      func() model.Date
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	carRepo repository.CarRepository,
	rentalRepo repository.RentalRepository,
	attacher CarAttacher,
) *Service {
	return &Service{
		userRepo:   userRepo,
		carRepo:    carRepo,
		rentalRepo: rentalRepo,
		attacher:   attacher,
		today:      model.Today,
	}
}

// Stats はユーザー数・車両数・本日貸出中の予約数を返す。
// 本日貸出中は貸出日から返却日までの両端を含む期間に本日が含まれる予約。
func (s *Service) Stats(ctx context.Context) (*model.DashboardStats, error) {
	var stats model.DashboardStats
	today := s.today()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.userRepo.Count(gctx)
		if err != nil {
			return fmt.Errorf("ユーザー数の取得に失敗しました: %w", err)
		}
		stats.TotalUsers = n
		return nil
	})
	g.Go(func() error {
		n, err := s.carRepo.Count(gctx)
		if err != nil {
			return fmt.Errorf("車両数の取得に失敗しました: %w", err)
		}
		stats.TotalCars = n
		return nil
	})
	g.Go(func() error {
		n, err := s.rentalRepo.CountActiveOn(gctx, today)
		if err != nil {
			return fmt.Errorf("貸出中の予約数の取得に失敗しました: %w", err)
		}
		stats.ActiveRentals = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListBookings は全予約を車両情報付きで貸出日の新しい順に返す。
func (s *Service) ListBookings(ctx context.Context) ([]*model.Rental, error) {
	rentals, err := s.rentalRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}
	if err := s.attacher.AttachCars(ctx, rentals); err != nil {
		return nil, err
	}
	return rentals, nil
}

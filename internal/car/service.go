// Package car は車両カタログのドメインロジックを提供する。
package car

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/rentacar/internal/model"
	"github.com/hitoshi/rentacar/internal/rental"
	"github.com/hitoshi/rentacar/internal/repository"
	"github.com/hitoshi/rentacar/internal/security"
)

// MaxFieldLength はメーカー名・モデル名・色の最大文字数。
const MaxFieldLength = 64

// Service は車両カタログのサービス層。
// 車両の取得・検索と、管理者による作成・更新・削除・初期投入を提供する。
type Service struct {
	carRepo    repository.CarRepository
	rentalRepo repository.RentalRepository
	sanitizer  security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	carRepo repository.CarRepository,
	rentalRepo repository.RentalRepository,
	sanitizer security.TextSanitizer,
) *Service {
	return &Service{
		carRepo:    carRepo,
		rentalRepo: rentalRepo,
		sanitizer:  sanitizer,
	}
}

// GetCar は車両を台帳の予約を射影した状態で返す。
func (s *Service) GetCar(ctx context.Context, id string) (*model.Car, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewCarNotFoundError(id)
	}

	car, err := s.carRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("車両の取得に失敗しました: %w", err)
	}
	if car == nil {
		return nil, model.NewCarNotFoundError(id)
	}

	rentals, err := s.rentalRepo.ListByCarIDs(ctx, []string{car.ID})
	if err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}
	rental.ProjectRentals([]*model.Car{car}, rentals)
	return car, nil
}

// Search は検索条件に一致する車両を登録順で返す。条件が空の場合は全車両を返す。
func (s *Service) Search(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
	cars, err := s.carRepo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("車両の検索に失敗しました: %w", err)
	}
	return cars, nil
}

// CreateCar は車両を作成する。
func (s *Service) CreateCar(ctx context.Context, input model.CarInput) (*model.Car, error) {
	normalized, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	car := &model.Car{
		Make:    normalized.Make,
		Model:   normalized.Model,
		Color:   normalized.Color,
		Rentals: []model.CarRental{},
	}
	if err := s.carRepo.Create(ctx, car); err != nil {
		return nil, fmt.Errorf("車両の作成に失敗しました: %w", err)
	}

	slog.Info("car created",
		slog.String("car_id", car.ID),
		slog.String("make", car.Make),
		slog.String("model", car.Model),
	)
	return car, nil
}

// UpdateCar は車両のメーカー・モデル・色を更新する。
func (s *Service) UpdateCar(ctx context.Context, id string, input model.CarInput) (*model.Car, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewCarNotFoundError(id)
	}
	normalized, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	car, err := s.carRepo.Update(ctx, id, normalized)
	if err != nil {
		return nil, fmt.Errorf("車両の更新に失敗しました: %w", err)
	}
	if car == nil {
		return nil, model.NewCarNotFoundError(id)
	}
	return car, nil
}

// DeleteCar は車両を削除する。予約は台帳に残り、一覧ではCarがnilとなる。
func (s *Service) DeleteCar(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.NewCarNotFoundError(id)
	}

	deleted, err := s.carRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("車両の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewCarNotFoundError(id)
	}

	slog.Info("car deleted", slog.String("car_id", id))
	return nil
}

// Seed はカタログが空の場合のみinputsの車両を投入し、投入件数を返す。
func (s *Service) Seed(ctx context.Context, inputs []model.CarInput) (int, error) {
	count, err := s.carRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("車両数の取得に失敗しました: %w", err)
	}
	if count > 0 {
		slog.Info("car catalog already populated, skipping seed", slog.Int("count", count))
		return 0, nil
	}

	created := 0
	for _, input := range inputs {
		if _, err := s.CreateCar(ctx, input); err != nil {
			return created, err
		}
		created++
	}

	slog.Info("car catalog seeded", slog.Int("count", created))
	return created, nil
}

// normalize は入力値をサニタイズし、必須・文字数を検証する。
func (s *Service) normalize(input model.CarInput) (model.CarInput, error) {
	fields := []struct {
		name  string
		value *string
	}{
		{"make", &input.Make},
		{"model", &input.Model},
		{"color", &input.Color},
	}

	for _, f := range fields {
		v := strings.TrimSpace(*f.value)
		if s.sanitizer != nil {
			v = s.sanitizer.Sanitize(v)
		}
		if v == "" {
			return model.CarInput{}, model.NewInvalidCarError(f.name + " is required")
		}
		if utf8.RuneCountInString(v) > MaxFieldLength {
			return model.CarInput{}, model.NewInvalidCarError(fmt.Sprintf("%s must be at most %d characters", f.name, MaxFieldLength))
		}
		*f.value = v
	}
	return input, nil
}

package carimage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hitoshi/rentacar/internal/model"
	"github.com/hitoshi/rentacar/internal/repository"
)

// ImageFetcher は画像取得のインターフェース。
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Image, error)
}

// Service は車両画像のサービス層。
type Service struct {
	fetcher ImageFetcher
	store   ImageStore
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(fetcher ImageFetcher, store ImageStore) *Service {
	return &Service{fetcher: fetcher, store: store}
}

// SetImage はURLから画像を取得して車両に登録し、保存した画像の取得元URLを返す。
func (s *Service) SetImage(ctx context.Context, carID, rawURL string) (string, error) {
	if _, err := uuid.Parse(carID); err != nil {
		return "", model.NewCarNotFoundError(carID)
	}

	img, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	err = s.store.Save(ctx, carID, img)
	if errors.Is(err, repository.ErrCarNotFound) {
		return "", model.NewCarNotFoundError(carID)
	}
	if err != nil {
		return "", fmt.Errorf("車両画像の保存に失敗しました: %w", err)
	}

	slog.Info("car image updated",
		slog.String("car_id", carID),
		slog.String("source_url", img.SourceURL),
		slog.String("mime", img.Mime),
		slog.Int("size", len(img.Data)),
	)
	return img.SourceURL, nil
}

// GetImage は車両画像を返す。未登録の場合はIMAGE_NOT_FOUNDを返す。
func (s *Service) GetImage(ctx context.Context, carID string) (*StoredImage, error) {
	if _, err := uuid.Parse(carID); err != nil {
		return nil, model.NewImageNotFoundError(carID)
	}

	img, err := s.store.Load(ctx, carID)
	if err != nil {
		return nil, fmt.Errorf("車両画像の取得に失敗しました: %w", err)
	}
	if img == nil {
		return nil, model.NewImageNotFoundError(carID)
	}
	return img, nil
}

// RemoveImage は削除済み車両の画像を破棄する。失敗はログに記録するのみ。
func (s *Service) RemoveImage(ctx context.Context, carID string) {
	if err := s.store.Remove(ctx, carID); err != nil {
		slog.Warn("failed to remove car image",
			slog.String("car_id", carID),
			slog.String("error", err.Error()),
		)
	}
}

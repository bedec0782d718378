package rental

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/rentacar/internal/metrics"
	"github.com/hitoshi/rentacar/internal/model"
	"github.com/hitoshi/rentacar/internal/repository"
)

const (
	// MinDurationDays は予約日数の下限。
	MinDurationDays = 1
	// MaxDurationDays は予約日数の上限。
	MaxDurationDays = 3
)

// Principal は予約を行うユーザー。リクエストのセッションから渡す。
type Principal struct {
	ID   string
	Name string
}

// BookingRequest は予約作成の入力値。
// 返却日はRentDate + DurationDaysで決まる。
type BookingRequest struct {
	CarID        string
	User         Principal
	RentDate     model.Date
	DurationDays int
}

// Service はレンタルのサービス層。
// 空き車両検索、予約作成、ユーザーの予約一覧のビジネスロジックを提供する。
type Service struct {
	carRepo    repository.CarRepository
	rentalRepo repository.RentalRepository
	guard      BookingGuard
	window     CampaignWindow
	metrics    metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// guardがnilの場合はプロセス内のMemoryBookingGuard、mcがnilの場合は記録なしとなる。
func NewService(
	carRepo repository.CarRepository,
	rentalRepo repository.RentalRepository,
	guard BookingGuard,
	window CampaignWindow,
	mc metrics.MetricsCollector,
) *Service {
	if guard == nil {
		guard = NewMemoryBookingGuard()
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Service{
		carRepo:    carRepo,
		rentalRepo: rentalRepo,
		guard:      guard,
		window:     window,
		metrics:    mc,
	}
}

// Window は予約受付期間を返す。
func (s *Service) Window() CampaignWindow {
	return s.window
}

// AvailableCars は日付dに空いている車両を登録順で返す。
// 取得に失敗した場合は部分的な結果を返さずエラーを返す。
func (s *Service) AvailableCars(ctx context.Context, d model.Date) ([]*model.Car, error) {
	if d.IsZero() {
		return nil, model.NewInvalidDateError("")
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordAvailabilityQuery(time.Since(start))
	}()

	cars, err := s.LoadCarsWithRentals(ctx)
	if err != nil {
		return nil, err
	}
	return FilterAvailable(cars, d), nil
}

// LoadCarsWithRentals は全車両を台帳の予約を射影した状態で返す。
func (s *Service) LoadCarsWithRentals(ctx context.Context) ([]*model.Car, error) {
	cars, err := s.carRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("車両一覧の取得に失敗しました: %w", err)
	}

	ids := make([]string, len(cars))
	for i, car := range cars {
		ids[i] = car.ID
	}
	rentals, err := s.rentalRepo.ListByCarIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}

	ProjectRentals(cars, rentals)
	return cars, nil
}

// Book は予約を作成する。
//
// 入力検証はストアへのアクセス前に行う。車両の存在確認と期間重複チェックは
// リポジトリの1トランザクション内で行うため、重複する予約が同時に作成されることはない。
func (s *Service) Book(ctx context.Context, req BookingRequest) (*model.Rental, error) {
	rental, err := s.validate(req)
	if err != nil {
		s.metrics.RecordBooking(bookingResult(err))
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, GuardKey(req.User.ID, req.CarID))
	if errors.Is(err, ErrBookingInProgress) {
		s.metrics.RecordBooking(metrics.BookingInProgress)
		return nil, model.NewBookingInProgressError()
	}
	if err != nil {
		s.metrics.RecordBooking(metrics.BookingError)
		return nil, fmt.Errorf("予約の排他制御に失敗しました: %w", err)
	}
	defer release()

	err = s.rentalRepo.CreateIfAvailable(ctx, rental)
	switch {
	case errors.Is(err, repository.ErrCarNotFound):
		err = model.NewCarNotFoundError(req.CarID)
	case errors.Is(err, repository.ErrRentalConflict):
		err = model.NewRentalConflictError(req.CarID, rental.RentDate, rental.ReturnDate)
	case err != nil:
		err = fmt.Errorf("予約の作成に失敗しました: %w", err)
	}
	s.metrics.RecordBooking(bookingResult(err))
	if err != nil {
		return nil, err
	}

	slog.Info("rental booked",
		slog.String("rental_id", rental.ID),
		slog.String("car_id", rental.CarID),
		slog.String("user_id", rental.UserID),
		slog.String("rent_date", rental.RentDate.String()),
		slog.String("return_date", rental.ReturnDate.String()),
	)
	return rental, nil
}

// validate は予約リクエストを検証し、台帳に追加する予約を組み立てる。
func (s *Service) validate(req BookingRequest) (*model.Rental, error) {
	if strings.TrimSpace(req.User.ID) == "" {
		return nil, model.NewUnauthorizedError()
	}
	carID := strings.TrimSpace(req.CarID)
	if carID == "" {
		return nil, model.NewInvalidRequestError()
	}
	// UUID形式でないIDはストアに存在しえないため、問い合わせずに未検出とする
	if _, err := uuid.Parse(carID); err != nil {
		return nil, model.NewCarNotFoundError(carID)
	}
	if req.RentDate.IsZero() {
		return nil, model.NewInvalidDateError("")
	}
	if req.DurationDays < MinDurationDays || req.DurationDays > MaxDurationDays {
		return nil, model.NewInvalidDurationError(req.DurationDays, MinDurationDays, MaxDurationDays)
	}

	// 受付期間の判定は貸出日のみ。返却日は期間外でもよい
	if !s.window.Contains(req.RentDate) {
		return nil, model.NewOutsideCampaignWindowError(s.window.Start, s.window.End)
	}
	returnDate := req.RentDate.AddDays(req.DurationDays)

	return &model.Rental{
		CarID:      carID,
		UserID:     req.User.ID,
		UserName:   req.User.Name,
		RentDate:   req.RentDate,
		ReturnDate: returnDate,
	}, nil
}

// ListUserRentals はユーザーの予約を車両情報付きで返す。
// 削除済みの車両の予約はCarがnilとなる。貸出日の新しい順、同日は作成日時の新しい順に並べる。
func (s *Service) ListUserRentals(ctx context.Context, userID string) ([]*model.Rental, error) {
	rentals, err := s.rentalRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}
	if err := s.AttachCars(ctx, rentals); err != nil {
		return nil, err
	}
	SortByRentDateDesc(rentals)
	return rentals, nil
}

// AttachCars は予約に車両情報を1回の問い合わせで結合する。
func (s *Service) AttachCars(ctx context.Context, rentals []*model.Rental) error {
	if len(rentals) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(rentals))
	ids := make([]string, 0, len(rentals))
	for _, r := range rentals {
		if _, ok := seen[r.CarID]; ok {
			continue
		}
		seen[r.CarID] = struct{}{}
		ids = append(ids, r.CarID)
	}

	cars, err := s.carRepo.ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("車両情報の取得に失敗しました: %w", err)
	}
	byID := make(map[string]*model.Car, len(cars))
	for _, car := range cars {
		byID[car.ID] = car
	}
	for _, r := range rentals {
		r.Car = byID[r.CarID]
	}
	return nil
}

// SortByRentDateDesc は予約を貸出日の新しい順、同日は作成日時の新しい順に並べる。
func SortByRentDateDesc(rentals []*model.Rental) {
	sort.SliceStable(rentals, func(i, j int) bool {
		if c := rentals[i].RentDate.Compare(rentals[j].RentDate); c != 0 {
			return c > 0
		}
		return rentals[i].CreatedAt.After(rentals[j].CreatedAt)
	})
}

func bookingResult(err error) string {
	if err == nil {
		return metrics.BookingCreated
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return metrics.BookingError
	}
	switch apiErr.Code {
	case model.ErrCodeCarNotFound:
		return metrics.BookingNotFound
	case model.ErrCodeRentalConflict:
		return metrics.BookingConflict
	case model.ErrCodeBookingInProgress:
		return metrics.BookingInProgress
	default:
		return metrics.BookingInvalid
	}
}

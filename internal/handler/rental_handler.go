package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/rentacar/internal/model"
	"github.com/hitoshi/rentacar/internal/rental"
)

// RentalServiceInterface は予約ハンドラーが必要とするサービスインターフェース。
type RentalServiceInterface interface {
	Book(ctx context.Context, req rental.BookingRequest) (*model.Rental, error)
	ListUserRentals(ctx context.Context, userID string) ([]*model.Rental, error)
	Window() rental.CampaignWindow
}

// RentalHandler は予約関連のHTTPハンドラー。
type RentalHandler struct {
	service RentalServiceInterface
}

// NewRentalHandler はRentalHandlerを生成する。
func NewRentalHandler(service RentalServiceInterface) *RentalHandler {
	return &RentalHandler{service: service}
}

// bookRequest は予約作成リクエストのボディ。
type bookRequest struct {
	CarID        string `json:"car_id"`
	RentDate     string `json:"rent_date"`
	DurationDays int    `json:"duration_days"`
}

// campaignResponse は予約受付期間のレスポンス。期間が設定されていない場合start/endはnullとなる。
type campaignResponse struct {
	Open            bool        `json:"open"`
	Start           *model.Date `json:"start"`
	End             *model.Date `json:"end"`
	MinDurationDays int         `json:"min_duration_days"`
	MaxDurationDays int         `json:"max_duration_days"`
}

// Book はログインユーザーとして予約を作成する。
// POST /api/rentals
func (h *RentalHandler) Book(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rentDate, err := model.ParseDate(strings.TrimSpace(req.RentDate))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(req.RentDate))
		return
	}

	created, err := h.service.Book(r.Context(), rental.BookingRequest{
		CarID:        strings.TrimSpace(req.CarID),
		User:         rental.Principal{ID: p.UserID, Name: p.UserName},
		RentDate:     rentDate,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRentalResponse(created))
}

// ListMine はログインユーザーの予約一覧を返す。
// GET /api/rentals
func (h *RentalHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	rentals, err := h.service.ListUserRentals(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRentalResponses(rentals))
}

// Campaign は予約受付期間と予約日数の範囲を返す。
// GET /api/campaign
func (h *RentalHandler) Campaign(w http.ResponseWriter, r *http.Request) {
	window := h.service.Window()
	resp := campaignResponse{
		Open:            window.IsOpen(),
		MinDurationDays: rental.MinDurationDays,
		MaxDurationDays: rental.MaxDurationDays,
	}
	if !window.Start.IsZero() {
		start := window.Start
		resp.Start = &start
	}
	if !window.End.IsZero() {
		end := window.End
		resp.End = &end
	}

	writeJSON(w, http.StatusOK, resp)
}

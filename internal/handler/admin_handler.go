package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/rentacar/internal/model"
)

// AdminServiceInterface は管理ダッシュボードのハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	Stats(ctx context.Context) (*model.DashboardStats, error)
	ListBookings(ctx context.Context) ([]*model.Rental, error)
}

// AdminHandler は管理ダッシュボードのHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// statsResponse はダッシュボードの集計値。
type statsResponse struct {
	TotalUsers    int `json:"total_users"`
	TotalCars     int `json:"total_cars"`
	ActiveRentals int `json:"active_rentals"`
}

// Stats はユーザー数・車両数・本日貸出中の予約数を返す。
// GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalUsers:    stats.TotalUsers,
		TotalCars:     stats.TotalCars,
		ActiveRentals: stats.ActiveRentals,
	})
}

// ListRentals は全予約を車両情報付きで返す。
// GET /api/admin/rentals
func (h *AdminHandler) ListRentals(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.service.ListBookings(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRentalResponses(rentals))
}

package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/rentacar/internal/carimage"
	"github.com/hitoshi/rentacar/internal/model"
)

// AvailabilityServiceInterface は空き車両検索に必要なサービスインターフェース。
type AvailabilityServiceInterface interface {
	AvailableCars(ctx context.Context, d model.Date) ([]*model.Car, error)
}

// CarServiceInterface は車両カタログの操作に必要なサービスインターフェース。
type CarServiceInterface interface {
	GetCar(ctx context.Context, id string) (*model.Car, error)
	Search(ctx context.Context, filter model.CarFilter) ([]*model.Car, error)
	CreateCar(ctx context.Context, input model.CarInput) (*model.Car, error)
	UpdateCar(ctx context.Context, id string, input model.CarInput) (*model.Car, error)
	DeleteCar(ctx context.Context, id string) error
}

// CarImageServiceInterface は車両画像の操作に必要なサービスインターフェース。
type CarImageServiceInterface interface {
	SetImage(ctx context.Context, carID, rawURL string) (string, error)
	GetImage(ctx context.Context, carID string) (*carimage.StoredImage, error)
	RemoveImage(ctx context.Context, carID string)
}

// CarHandler は車両関連のHTTPハンドラー。
type CarHandler struct {
	availability AvailabilityServiceInterface
	cars         CarServiceInterface
	images       CarImageServiceInterface
	today        func() model.Date
}

// NewCarHandler はCarHandlerを生成する。
func NewCarHandler(availability AvailabilityServiceInterface, cars CarServiceInterface, images CarImageServiceInterface) *CarHandler {
	return &CarHandler{
		availability: availability,
		cars:         cars,
		images:       images,
		today:        model.Today,
	}
}

// carRequest は車両の作成・更新リクエストのボディ。
type carRequest struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Color string `json:"color"`
}

// setImageRequest は車両画像登録リクエストのボディ。
type setImageRequest struct {
	URL string `json:"url"`
}

// setImageResponse は車両画像登録のレスポンス。
type setImageResponse struct {
	SourceImageURL string `json:"source_image_url"`
	ImageURL       string `json:"image_url"`
}

// ListAvailable は指定日に空いている車両の一覧を返す。dateが省略された場合は当日を対象とする。
// GET /api/cars?date=YYYY-MM-DD
func (h *CarHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	d := h.today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := model.ParseDate(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(raw))
			return
		}
		d = parsed
	}

	cars, err := h.availability.AvailableCars(r.Context(), d)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCarResponses(cars))
}

// Get は車両の詳細を予約期間付きで返す。
// GET /api/cars/{id}
func (h *CarHandler) Get(w http.ResponseWriter, r *http.Request) {
	car, err := h.cars.GetCar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCarResponse(car))
}

// GetImage は車両画像を返す。外部ストレージに保存されている場合はリダイレクトする。
// GET /api/cars/{id}/image
func (h *CarHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.images.GetImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if img.RedirectURL != "" {
		http.Redirect(w, r, img.RedirectURL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", img.Mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// Search は管理画面向けに車両を検索する。
// GET /api/admin/cars?q=&color=
func (h *CarHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cars, err := h.cars.Search(r.Context(), model.CarFilter{
		Query: q.Get("q"),
		Color: q.Get("color"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCarResponses(cars))
}

// Create は車両を登録する。
// POST /api/admin/cars
func (h *CarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req carRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	car, err := h.cars.CreateCar(r.Context(), model.CarInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCarResponse(car))
}

// Update は車両のメーカー・モデル・色を更新する。
// PUT /api/admin/cars/{id}
func (h *CarHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req carRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	car, err := h.cars.UpdateCar(r.Context(), chi.URLParam(r, "id"), model.CarInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCarResponse(car))
}

// Delete は車両を削除し、保存済みの画像を破棄する。
// DELETE /api/admin/cars/{id}
func (h *CarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.cars.DeleteCar(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	h.images.RemoveImage(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// SetImage はURLから画像を取得して車両に登録する。
// PUT /api/admin/cars/{id}/image
func (h *CarHandler) SetImage(w http.ResponseWriter, r *http.Request) {
	var req setImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	sourceURL, err := h.images.SetImage(r.Context(), id, req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, setImageResponse{
		SourceImageURL: sourceURL,
		ImageURL:       "/api/cars/" + id + "/image",
	})
}

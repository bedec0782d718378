package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/rentacar/internal/carimage"
	"github.com/hitoshi/rentacar/internal/middleware"
	"github.com/hitoshi/rentacar/internal/model"
	"github.com/hitoshi/rentacar/internal/rental"
)

// --- モック定義 ---

type mockAuthService struct {
	signUpFn      func(ctx context.Context, email, password, fullName string) (*model.User, *model.Session, error)
	signInFn      func(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	signOutFn     func(ctx context.Context, sessionID string) error
	currentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) SignUp(ctx context.Context, email, password, fullName string) (*model.User, *model.Session, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, email, password, fullName)
	}
	return nil, nil, model.NewInternalError()
}

func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) SignOut(ctx context.Context, sessionID string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, sessionID)
	}
	return nil, model.NewUnauthorizedError()
}

type mockAvailabilityService struct {
	availableCarsFn func(ctx context.Context, d model.Date) ([]*model.Car, error)
}

func (m *mockAvailabilityService) AvailableCars(ctx context.Context, d model.Date) ([]*model.Car, error) {
	if m.availableCarsFn != nil {
		return m.availableCarsFn(ctx, d)
	}
	return []*model.Car{}, nil
}

type mockCarService struct {
	getCarFn    func(ctx context.Context, id string) (*model.Car, error)
	searchFn    func(ctx context.Context, filter model.CarFilter) ([]*model.Car, error)
	createCarFn func(ctx context.Context, input model.CarInput) (*model.Car, error)
	updateCarFn func(ctx context.Context, id string, input model.CarInput) (*model.Car, error)
	deleteCarFn func(ctx context.Context, id string) error
}

func (m *mockCarService) GetCar(ctx context.Context, id string) (*model.Car, error) {
	if m.getCarFn != nil {
		return m.getCarFn(ctx, id)
	}
	return nil, model.NewCarNotFoundError(id)
}

func (m *mockCarService) Search(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, filter)
	}
	return []*model.Car{}, nil
}

func (m *mockCarService) CreateCar(ctx context.Context, input model.CarInput) (*model.Car, error) {
	if m.createCarFn != nil {
		return m.createCarFn(ctx, input)
	}
	return nil, model.NewInternalError()
}

func (m *mockCarService) UpdateCar(ctx context.Context, id string, input model.CarInput) (*model.Car, error) {
	if m.updateCarFn != nil {
		return m.updateCarFn(ctx, id, input)
	}
	return nil, model.NewCarNotFoundError(id)
}

func (m *mockCarService) DeleteCar(ctx context.Context, id string) error {
	if m.deleteCarFn != nil {
		return m.deleteCarFn(ctx, id)
	}
	return nil
}

type mockCarImageService struct {
	setImageFn    func(ctx context.Context, carID, rawURL string) (string, error)
	getImageFn    func(ctx context.Context, carID string) (*carimage.StoredImage, error)
	removedCarIDs []string
}

func (m *mockCarImageService) SetImage(ctx context.Context, carID, rawURL string) (string, error) {
	if m.setImageFn != nil {
		return m.setImageFn(ctx, carID, rawURL)
	}
	return rawURL, nil
}

func (m *mockCarImageService) GetImage(ctx context.Context, carID string) (*carimage.StoredImage, error) {
	if m.getImageFn != nil {
		return m.getImageFn(ctx, carID)
	}
	return nil, model.NewImageNotFoundError(carID)
}

func (m *mockCarImageService) RemoveImage(ctx context.Context, carID string) {
	m.removedCarIDs = append(m.removedCarIDs, carID)
}

type mockRentalService struct {
	bookFn            func(ctx context.Context, req rental.BookingRequest) (*model.Rental, error)
	listUserRentalsFn func(ctx context.Context, userID string) ([]*model.Rental, error)
	window            rental.CampaignWindow
}

func (m *mockRentalService) Book(ctx context.Context, req rental.BookingRequest) (*model.Rental, error) {
	if m.bookFn != nil {
		return m.bookFn(ctx, req)
	}
	return nil, model.NewInternalError()
}

func (m *mockRentalService) ListUserRentals(ctx context.Context, userID string) ([]*model.Rental, error) {
	if m.listUserRentalsFn != nil {
		return m.listUserRentalsFn(ctx, userID)
	}
	return []*model.Rental{}, nil
}

func (m *mockRentalService) Window() rental.CampaignWindow {
	return m.window
}

type mockUserService struct {
	getProfileFn    func(ctx context.Context, userID string) (*model.User, error)
	updateProfileFn func(ctx context.Context, userID, fullName string) (*model.User, error)
	listUsersFn     func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, userID)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID, fullName string) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, fullName)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockUserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return []*model.User{}, nil
}

type mockSupportService struct {
	sendMessageFn func(ctx context.Context, userID, body string) ([]*model.SupportMessage, error)
	listThreadFn  func(ctx context.Context, userID string) ([]*model.SupportMessage, error)
	listThreadsFn func(ctx context.Context) ([]*model.SupportThread, error)
	getThreadFn   func(ctx context.Context, userID string) ([]*model.SupportMessage, error)
	replyFn       func(ctx context.Context, userID, body string) (*model.SupportMessage, error)
}

func (m *mockSupportService) SendMessage(ctx context.Context, userID, body string) ([]*model.SupportMessage, error) {
	if m.sendMessageFn != nil {
		return m.sendMessageFn(ctx, userID, body)
	}
	return []*model.SupportMessage{}, nil
}

func (m *mockSupportService) ListThread(ctx context.Context, userID string) ([]*model.SupportMessage, error) {
	if m.listThreadFn != nil {
		return m.listThreadFn(ctx, userID)
	}
	return []*model.SupportMessage{}, nil
}

func (m *mockSupportService) ListThreads(ctx context.Context) ([]*model.SupportThread, error) {
	if m.listThreadsFn != nil {
		return m.listThreadsFn(ctx)
	}
	return []*model.SupportThread{}, nil
}

func (m *mockSupportService) GetThread(ctx context.Context, userID string) ([]*model.SupportMessage, error) {
	if m.getThreadFn != nil {
		return m.getThreadFn(ctx, userID)
	}
	return []*model.SupportMessage{}, nil
}

func (m *mockSupportService) Reply(ctx context.Context, userID, body string) (*model.SupportMessage, error) {
	if m.replyFn != nil {
		return m.replyFn(ctx, userID, body)
	}
	return nil, model.NewUserNotFoundError()
}

type mockAdminService struct {
	statsFn        func(ctx context.Context) (*model.DashboardStats, error)
	listBookingsFn func(ctx context.Context) ([]*model.Rental, error)
}

func (m *mockAdminService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &model.DashboardStats{}, nil
}

func (m *mockAdminService) ListBookings(ctx context.Context) ([]*model.Rental, error) {
	if m.listBookingsFn != nil {
		return m.listBookingsFn(ctx)
	}
	return []*model.Rental{}, nil
}

// --- テストヘルパー ---

// withPrincipal はテスト用にリクエストコンテキストに認証済みユーザーを注入するヘルパー。
func withPrincipal(r *http.Request, userID, userName string, role model.Role) *http.Request {
	ctx := middleware.ContextWithPrincipal(r.Context(), middleware.Principal{
		UserID:   userID,
		UserName: userName,
		Role:     role,
	})
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// decodeBody はレスポンスボディをvにデコードするヘルパー。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

// compile-time interface checks
var (
	_ AuthServiceInterface         = (*mockAuthService)(nil)
	_ AvailabilityServiceInterface = (*mockAvailabilityService)(nil)
	_ CarServiceInterface          = (*mockCarService)(nil)
	_ CarImageServiceInterface     = (*mockCarImageService)(nil)
	_ RentalServiceInterface       = (*mockRentalService)(nil)
	_ UserServiceInterface         = (*mockUserService)(nil)
	_ SupportServiceInterface      = (*mockSupportService)(nil)
	_ AdminServiceInterface        = (*mockAdminService)(nil)
)

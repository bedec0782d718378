package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/rentacar/internal/metrics"
	"github.com/hitoshi/rentacar/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 車両
	AvailabilityService AvailabilityServiceInterface
	CarService          CarServiceInterface
	CarImageService     CarImageServiceInterface

	// 予約
	RentalService RentalServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// サポート
	SupportService SupportServiceInterface

	// 管理
	AdminService AdminServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → Metrics → CORS → CSRF → Session → RateLimit(General)
//
// ヘルスチェックとメトリクスはCSRF以降のチェーンの外に配置する。
// サインアップとログインはセッション確立前のためCSRF検証の対象外とする。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.Nop{}
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.CookieSecure))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(mc))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	carHandler := NewCarHandler(deps.AvailabilityService, deps.CarService, deps.CarImageService)
	rentalHandler := NewRentalHandler(deps.RentalService)
	userHandler := NewUserHandler(deps.UserService)
	supportHandler := NewSupportHandler(deps.SupportService)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	csrfConfig := deps.CSRFConfig
	csrfConfig.ExemptPaths = append(csrfConfig.ExemptPaths, "/auth/signup", "/auth/login")

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))

		// --- 認証不要のルート ---
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.SignUp)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: Session → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			// 車両
			r.Route("/api/cars", func(r chi.Router) {
				r.Get("/", carHandler.ListAvailable)
				r.Get("/{id}", carHandler.Get)
				r.Get("/{id}/image", carHandler.GetImage)
			})

			// 予約
			r.Route("/api/rentals", func(r chi.Router) {
				// POST /api/rentals - 予約作成（予約専用レート制限を追加）
				r.With(deps.RateLimiter.BookingMiddleware()).Post("/", rentalHandler.Book)
				r.Get("/", rentalHandler.ListMine)
			})
			r.Get("/api/campaign", rentalHandler.Campaign)

			// ユーザー
			r.Route("/api/users", func(r chi.Router) {
				r.Get("/me", userHandler.GetMe)
				r.Put("/me", userHandler.UpdateMe)
			})

			// サポート
			r.Route("/api/support", func(r chi.Router) {
				r.Get("/messages", supportHandler.ListMine)
				r.Post("/messages", supportHandler.Send)
			})

			// --- 管理者のみのルート ---
			r.Route("/api/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Get("/stats", adminHandler.Stats)
				r.Get("/rentals", adminHandler.ListRentals)
				r.Get("/users", userHandler.List)

				r.Route("/cars", func(r chi.Router) {
					r.Get("/", carHandler.Search)
					r.Post("/", carHandler.Create)
					r.Put("/{id}", carHandler.Update)
					r.Delete("/{id}", carHandler.Delete)
					r.Put("/{id}/image", carHandler.SetImage)
				})

				r.Route("/support/threads", func(r chi.Router) {
					r.Get("/", supportHandler.ListThreads)
					r.Get("/{userID}", supportHandler.GetThread)
					r.Post("/{userID}/messages", supportHandler.Reply)
				})
			})
		})
	})

	return r
}

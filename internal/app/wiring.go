package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/rentacar/internal/admin"
	"github.com/hitoshi/rentacar/internal/auth"
	"github.com/hitoshi/rentacar/internal/car"
	"github.com/hitoshi/rentacar/internal/carimage"
	"github.com/hitoshi/rentacar/internal/config"
	"github.com/hitoshi/rentacar/internal/handler"
	"github.com/hitoshi/rentacar/internal/metrics"
	"github.com/hitoshi/rentacar/internal/middleware"
	"github.com/hitoshi/rentacar/internal/rental"
	"github.com/hitoshi/rentacar/internal/repository"
	"github.com/hitoshi/rentacar/internal/security"
	"github.com/hitoshi/rentacar/internal/support"
	"github.com/hitoshi/rentacar/internal/user"
	"github.com/hitoshi/rentacar/internal/worker/cleanup"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

// bookingGuardPrefix はRedis上の予約ガードキーの接頭辞。
const bookingGuardPrefix = "rentacar:booking"

// newRouterDeps はリポジトリ・サービス・ミドルウェアを組み立ててルーターの依存関係を返す。
// 戻り値の関数は外部接続（Redis）とレートリミッターを解放する。
func newRouterDeps(ctx context.Context, cfg *config.Config, db *sqlx.DB, reg *prometheus.Registry) (*handler.RouterDeps, func(), error) {
	// 1. リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	carRepo := repository.NewPostgresCarRepo(db)
	rentalRepo := repository.NewPostgresRentalRepo(db)
	messageRepo := repository.NewPostgresSupportMessageRepo(db)

	// 2. 共通コンポーネント
	mc := metrics.NewCollector(reg)
	sanitizer := security.NewTextSanitizer()

	guard, closeGuard, err := newBookingGuard(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	imageStore, err := newImageStore(ctx, cfg, carRepo)
	if err != nil {
		closeGuard()
		return nil, nil, err
	}

	// 3. サービス
	var window rental.CampaignWindow
	if cfg.HasCampaignWindow() {
		window = rental.NewCampaignWindow(cfg.CampaignStart, cfg.CampaignEnd)
		slog.Info("campaign window configured",
			slog.String("start", cfg.CampaignStart.String()),
			slog.String("end", cfg.CampaignEnd.String()),
		)
	}

	authService := auth.NewService(userRepo, sessionRepo, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
		AdminEmails:   cfg.AdminEmails,
	})
	rentalService := rental.NewService(carRepo, rentalRepo, guard, window, mc)
	carService := car.NewService(carRepo, rentalRepo, sanitizer)
	fetcher := carimage.NewFetcher(security.NewSSRFGuard(), cfg.ImageFetchTimeout, cfg.ImageMaxSize)
	carImageService := carimage.NewService(fetcher, imageStore)
	userService := user.NewService(userRepo)
	supportService := support.NewService(messageRepo, userRepo, sanitizer)
	adminService := admin.NewService(userRepo, carRepo, rentalRepo, rentalService)

	// 4. ミドルウェア
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitBooking),
	)

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:    rateLimiter,
		Metrics:        mc,
		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		AvailabilityService: rentalService,
		CarService:          carService,
		CarImageService:     carImageService,
		RentalService:       rentalService,
		UserService:         userService,
		SupportService:      supportService,
		AdminService:        adminService,
	}

	closeAll := func() {
		rateLimiter.Stop()
		closeGuard()
	}
	return deps, closeAll, nil
}

// newBookingGuard は予約ガードを生成する。
// REDIS_ADDRが設定されていればRedisを使用し、未設定ならプロセス内ガードを使用する。
func newBookingGuard(ctx context.Context, cfg *config.Config) (rental.BookingGuard, func(), error) {
	if cfg.RedisAddr == "" {
		slog.Info("using in-process booking guard")
		return rental.NewMemoryBookingGuard(), func() {}, nil
	}

	guard, err := rental.NewRedisBookingGuard(cfg.RedisAddr, cfg.RedisPassword, bookingGuardPrefix, cfg.BookingGuardTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create booking guard: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := guard.Ping(pingCtx); err != nil {
		guard.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("using redis booking guard",
		slog.String("addr", cfg.RedisAddr),
	)
	return guard, func() {
		if err := guard.Close(); err != nil {
			slog.Warn("failed to close booking guard",
				slog.String("error", err.Error()),
			)
		}
	}, nil
}

// newImageStore は車両画像の保存先を生成する。
// IMAGE_STORE=minio の場合はオブジェクトストレージ、それ以外はcarsテーブルに保存する。
func newImageStore(ctx context.Context, cfg *config.Config, carRepo repository.CarRepository) (carimage.ImageStore, error) {
	if cfg.ImageStore != "minio" {
		return carimage.NewPostgresImageStore(carRepo), nil
	}

	objects, err := carimage.NewMinioStore(ctx,
		cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create image store: %w", err)
	}

	slog.Info("using object storage for car images",
		slog.String("endpoint", cfg.MinioEndpoint),
		slog.String("bucket", cfg.MinioBucket),
	)
	return carimage.NewObjectImageStore(carRepo, objects), nil
}

// compile-time interface checks
var (
	_ handler.AuthServiceInterface         = (*auth.Service)(nil)
	_ handler.AvailabilityServiceInterface = (*rental.Service)(nil)
	_ handler.RentalServiceInterface       = (*rental.Service)(nil)
	_ handler.CarServiceInterface          = (*car.Service)(nil)
	_ handler.CarImageServiceInterface     = (*carimage.Service)(nil)
	_ handler.UserServiceInterface         = (*user.Service)(nil)
	_ handler.SupportServiceInterface      = (*support.Service)(nil)
	_ handler.AdminServiceInterface        = (*admin.Service)(nil)
	_ handler.HealthChecker                = (*sqlx.DB)(nil)
	_ admin.CarAttacher                    = (*rental.Service)(nil)
	_ middleware.SessionFinder             = (*repository.PostgresSessionRepo)(nil)
	_ cleanup.SessionDeleter               = (*repository.PostgresSessionRepo)(nil)
)

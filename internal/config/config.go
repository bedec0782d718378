package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/rentacar/internal/model"
	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionMaxAge int

	// Rental
	CampaignStart   model.Date
	CampaignEnd     model.Date
	BookingGuardTTL time.Duration

	// Redis（空の場合はプロセス内ガードを使用）
	RedisAddr     string
	RedisPassword string

	// Car image
	ImageFetchTimeout time.Duration
	ImageMaxSize      int64
	ImageStore        string

	// MinIO
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Rate Limit
	RateLimitGeneral int
	RateLimitBooking int

	// Worker
	SessionCleanupSchedule string

	// Admin
	AdminEmails []string

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// ENV_FILE（デフォルト .env）が存在すれば先に読み込むが、既に設定済みの環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := loadEnvFile(getEnvString("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Campaign window（両方指定された場合のみ有効）
	start, err := getEnvDate("CAMPAIGN_START")
	if err != nil {
		return nil, err
	}
	end, err := getEnvDate("CAMPAIGN_END")
	if err != nil {
		return nil, err
	}
	if start.IsZero() != end.IsZero() {
		return nil, fmt.Errorf("CAMPAIGN_START and CAMPAIGN_END must be set together")
	}
	if !start.IsZero() && end.Before(start) {
		return nil, fmt.Errorf("CAMPAIGN_END (%s) is before CAMPAIGN_START (%s)", end, start)
	}
	cfg.CampaignStart = start
	cfg.CampaignEnd = end

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.BookingGuardTTL = getEnvDuration("BOOKING_GUARD_TTL", 30*time.Second)
	cfg.RedisAddr = getEnvString("REDIS_ADDR", "")
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.ImageFetchTimeout = getEnvDuration("IMAGE_FETCH_TIMEOUT", 10*time.Second)
	cfg.ImageMaxSize = getEnvInt64("IMAGE_MAX_SIZE", 5242880)
	cfg.ImageStore = getEnvString("IMAGE_STORE", "postgres")
	cfg.MinioEndpoint = getEnvString("MINIO_ENDPOINT", "")
	cfg.MinioAccessKey = getEnvString("MINIO_ACCESS_KEY", "")
	cfg.MinioSecretKey = getEnvString("MINIO_SECRET_KEY", "")
	cfg.MinioBucket = getEnvString("MINIO_BUCKET", "car-images")
	cfg.MinioUseSSL = getEnvBool("MINIO_USE_SSL", false)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitBooking = getEnvInt("RATE_LIMIT_BOOKING", 10)
	cfg.SessionCleanupSchedule = getEnvString("SESSION_CLEANUP_SCHEDULE", "@hourly")
	cfg.AdminEmails = getEnvList("ADMIN_EMAILS")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.ImageStore != "postgres" && cfg.ImageStore != "minio" {
		return nil, fmt.Errorf("IMAGE_STORE must be postgres or minio: %q", cfg.ImageStore)
	}
	if cfg.ImageStore == "minio" && cfg.MinioEndpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT is required when IMAGE_STORE=minio")
	}

	return cfg, nil
}

// HasCampaignWindow はキャンペーン期間が設定されているかどうかを返す。
func (c *Config) HasCampaignWindow() bool {
	return !c.CampaignStart.IsZero() && !c.CampaignEnd.IsZero()
}

// loadEnvFile は.envファイルを読み込む。ファイルが存在しない場合は何もしない。
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvDate は YYYY-MM-DD 形式の日付を読み込む。
// 他の項目と異なり、不正値はデフォルトに倒さずエラーとする。
func getEnvDate(key string) (model.Date, error) {
	v := os.Getenv(key)
	if v == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return model.Date{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(strings.ToLower(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

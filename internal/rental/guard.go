package rental

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBookingInProgress は同じユーザー・車両の予約処理が実行中であることを示す。
var ErrBookingInProgress = errors.New("booking already in progress")

// BookingGuard は同一キーの予約処理の同時実行を防ぐ。
// Acquireに成功した場合は、処理完了後に返されたrelease関数を呼び出すこと。
type BookingGuard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// GuardKey はユーザーと車両の組から排他キーを生成する。
func GuardKey(userID, carID string) string {
	return userID + ":" + carID
}

// MemoryBookingGuard はプロセス内で排他するBookingGuard。
type MemoryBookingGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewMemoryBookingGuard はMemoryBookingGuardを生成する。
func NewMemoryBookingGuard() *MemoryBookingGuard {
	return &MemoryBookingGuard{inFlight: make(map[string]struct{})}
}

// Acquire はキーを確保する。既に確保済みの場合はErrBookingInProgressを返す。
func (g *MemoryBookingGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.inFlight[key]; ok {
		return nil, ErrBookingInProgress
	}
	g.inFlight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, key)
			g.mu.Unlock()
		})
	}, nil
}

// releaseScript は自分が確保したキーのみを削除する。
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisBookingGuard はRedisを使って複数プロセス間で排他するBookingGuard。
// キーはTTL付きで確保するため、解放前にプロセスが停止してもTTL経過後に再び予約できる。
type RedisBookingGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBookingGuard はRedisBookingGuardを生成する。
func NewRedisBookingGuard(addr, password, prefix string, ttl time.Duration) (*RedisBookingGuard, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("booking guard redis addr is required")
	}
	if ttl <= 0 {
		return nil, errors.New("booking guard ttl must be positive")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "rentacar:booking"
	}
	return &RedisBookingGuard{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

// Ping はRedisへの疎通を確認する。
func (g *RedisBookingGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Close はRedisクライアントを閉じる。
func (g *RedisBookingGuard) Close() error {
	return g.client.Close()
}

// Acquire はSET NX PXでキーを確保する。既に確保済みの場合はErrBookingInProgressを返す。
func (g *RedisBookingGuard) Acquire(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	redisKey := g.prefix + ":" + key
	ok, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire booking guard: %w", err)
	}
	if !ok {
		return nil, ErrBookingInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// リクエストのコンテキストがキャンセル済みでも解放できるよう独立したコンテキストを使う
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, g.client, []string{redisKey}, token).Err(); err != nil {
				slog.Warn("failed to release booking guard",
					slog.String("key", redisKey),
					slog.String("error", err.Error()),
				)
			}
		})
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate guard token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var (
	_ BookingGuard = (*MemoryBookingGuard)(nil)
	_ BookingGuard = (*RedisBookingGuard)(nil)
)

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/rentacar/internal/metrics"
)

// RequestIDHeader はリクエストIDを受け渡すヘッダー。
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength はクライアントから受け取るリクエストIDの最大長。
const maxRequestIDLength = 64

// requestLogKey はリクエストログの付加情報を格納するためのキー。
var requestLogKey = contextKey("request_log")

// requestLog は内側のミドルウェアからリクエストログに付加する情報。
// セッションミドルウェアは新しいコンテキストを作るため、ポインタを共有して書き戻す。
type requestLog struct {
	requestID string
	userID    string
}

// annotateRequestLog はリクエストログに認証済みユーザーIDを記録する。
func annotateRequestLog(ctx context.Context, userID string) {
	if rl, ok := ctx.Value(requestLogKey).(*requestLog); ok {
		rl.userID = userID
	}
}

// RequestIDFromContext はロギングミドルウェアが採番したリクエストIDを返す。なければ空文字。
func RequestIDFromContext(ctx context.Context) string {
	if rl, ok := ctx.Value(requestLogKey).(*requestLog); ok {
		return rl.requestID
	}
	return ""
}

// statusRecorder はステータスコードと書き込みバイト数を記録するResponseWriter。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
	written    bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.written = true
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// Unwrap はhttp.ResponseControllerが元のResponseWriterに到達できるようにする。
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// NewLoggingMiddleware はリクエストごとにJSON構造化ログを1行出力するミドルウェアを返す。
// リクエストIDを採番してX-Request-IDレスポンスヘッダーに設定する。
// クライアントが妥当なX-Request-IDを送った場合はそれを引き継ぐ。
// ログレベルはステータスが5xxならError、4xxならWarn、それ以外はInfo。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			info := &requestLog{requestID: requestIDFrom(r)}
			w.Header().Set(RequestIDHeader, info.requestID)
			r = r.WithContext(context.WithValue(r.Context(), requestLogKey, info))

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			attrs := []any{
				slog.String("request_id", info.requestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Int("bytes", rec.bytes),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			}
			if info.userID != "" {
				attrs = append(attrs, slog.String("user_id", info.userID))
			}

			level := slog.LevelInfo
			switch {
			case rec.statusCode >= 500:
				level = slog.LevelError
			case rec.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", attrs...)
		})
	}
}

// requestIDFrom はクライアント指定のリクエストIDを検証して返す。不正または未指定なら新規に採番する。
func requestIDFrom(r *http.Request) string {
	id := r.Header.Get(RequestIDHeader)
	if id == "" || len(id) > maxRequestIDLength {
		return uuid.NewString()
	}
	for _, c := range id {
		if !(c == '-' || c == '_' || c == '.' ||
			('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')) {
			return uuid.NewString()
		}
	}
	return id
}

// NewMetricsMiddleware はレスポンスのステータスコードを記録するミドルウェアを返す。
func NewMetricsMiddleware(mc metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			mc.RecordHTTPStatus(rec.statusCode)
		})
	}
}

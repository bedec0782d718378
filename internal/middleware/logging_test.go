package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/rentacar/internal/metrics"
	"github.com/hitoshi/rentacar/internal/model"
)

// newTestLogger はJSONログをbufに書き出すロガーを返す。
func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// decodeLogEntry は1行のJSONログを解析する。
func decodeLogEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	handler := NewLoggingMiddleware(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cars":[]}`))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cars/available?date=2025-06-10", nil))

	entry := decodeLogEntry(t, &buf)
	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", entry["msg"])
	}
	if entry["method"] != "GET" {
		t.Errorf("method = %v, want GET", entry["method"])
	}
	if entry["path"] != "/api/cars/available" {
		t.Errorf("path = %v, want /api/cars/available", entry["path"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if entry["bytes"] != float64(len(`{"cars":[]}`)) {
		t.Errorf("bytes = %v, want %d", entry["bytes"], len(`{"cars":[]}`))
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected duration_ms field")
	}
	if _, ok := entry["user_id"]; ok {
		t.Error("user_id should be omitted for unauthenticated requests")
	}
}

func TestLoggingMiddleware_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusCreated, "INFO"},
		{http.StatusConflict, "WARN"},
		{http.StatusTooManyRequests, "WARN"},
		{http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			handler := NewLoggingMiddleware(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/rentals", nil))

			entry := decodeLogEntry(t, &buf)
			if entry["level"] != tt.want {
				t.Errorf("level = %v, want %s", entry["level"], tt.want)
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
		})
	}
}

func TestLoggingMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	handler := NewLoggingMiddleware(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rentals", nil))

	got := w.Header().Get(RequestIDHeader)
	if got == "" {
		t.Fatal("expected X-Request-ID response header")
	}
	if seen != got {
		t.Errorf("request ID in context = %q, header = %q", seen, got)
	}
	if entry := decodeLogEntry(t, &buf); entry["request_id"] != got {
		t.Errorf("request_id = %v, want %q", entry["request_id"], got)
	}
}

func TestLoggingMiddleware_RequestIDFromClient(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"valid id is kept", "req-123.abc_DEF", true},
		{"invalid characters are replaced", "bad id<script>", false},
		{"too long is replaced", strings.Repeat("a", maxRequestIDLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := NewLoggingMiddleware(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set(RequestIDHeader, tt.incoming)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if (got == tt.incoming) != tt.keep {
				t.Errorf("X-Request-ID = %q, incoming %q, keep = %v", got, tt.incoming, tt.keep)
			}
			if got == "" {
				t.Error("expected non-empty X-Request-ID")
			}
		})
	}
}

// TestLoggingMiddleware_UserIDFromSessionMiddleware は内側のセッションミドルウェアで
// 認証したユーザーIDがログに含まれることを検証する。
func TestLoggingMiddleware_UserIDFromSessionMiddleware(t *testing.T) {
	var buf bytes.Buffer
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "user-inner", Role: model.RoleUser}, nil
		},
	}
	handler := NewLoggingMiddleware(newTestLogger(&buf))(NewSessionMiddleware(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/rentals", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "s"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if entry := decodeLogEntry(t, &buf); entry["user_id"] != "user-inner" {
		t.Errorf("user_id = %v, want %q", entry["user_id"], "user-inner")
	}
}

func TestStatusRecorder_FirstWriteHeaderWins(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusInternalServerError)
	rec.Write([]byte("abc"))

	if rec.statusCode != http.StatusAccepted {
		t.Errorf("statusCode = %d, want %d", rec.statusCode, http.StatusAccepted)
	}
	if rec.bytes != 3 {
		t.Errorf("bytes = %d, want 3", rec.bytes)
	}
	if rec.Unwrap() == nil {
		t.Error("Unwrap should return the underlying writer")
	}
}

type recordingCollector struct {
	metrics.Nop
	statuses []int
}

func (c *recordingCollector) RecordHTTPStatus(code int) {
	c.statuses = append(c.statuses, code)
}

func TestMetricsMiddleware_RecordsStatus(t *testing.T) {
	mc := &recordingCollector{}
	handler := NewMetricsMiddleware(mc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	if len(mc.statuses) != 2 || mc.statuses[0] != 404 || mc.statuses[1] != 200 {
		t.Errorf("recorded statuses = %v, want [404 200]", mc.statuses)
	}
}

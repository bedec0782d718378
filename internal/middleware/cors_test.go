package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const testAllowedOrigins = "http://localhost:3000, https://rent.example.com/"

func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	for _, origin := range []string{"http://localhost:3000", "https://rent.example.com"} {
		t.Run(origin, func(t *testing.T) {
			handler := NewCORSMiddleware(testAllowedOrigins)(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/api/rentals", nil)
			req.Header.Set("Origin", origin)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			for header, want := range map[string]string{
				"Access-Control-Allow-Origin":      origin,
				"Access-Control-Allow-Credentials": "true",
				"Access-Control-Allow-Headers":     "Content-Type, X-CSRF-Token",
				"Vary":                             "Origin",
			} {
				if got := w.Header().Get(header); got != want {
					t.Errorf("%s = %q, want %q", header, got, want)
				}
			}
		})
	}
}

func TestCORSMiddleware_UnknownOrigin_NoAllowHeaders(t *testing.T) {
	handler := NewCORSMiddleware(testAllowedOrigins)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/cars/available", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want empty", got)
	}
}

func TestCORSMiddleware_Preflight_Returns204WithoutCallingHandler(t *testing.T) {
	called := false
	handler := NewCORSMiddleware(testAllowedOrigins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/rentals", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if called {
		t.Error("preflight should not reach the handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, PATCH, DELETE, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "86400" {
		t.Errorf("Access-Control-Max-Age = %q, want 86400", got)
	}
}

func TestCORSMiddleware_PlainOptions_PassesThrough(t *testing.T) {
	handler := NewCORSMiddleware(testAllowedOrigins)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/rentals", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d (non-preflight OPTIONS reaches handler)", w.Code, http.StatusOK)
	}
}

package carimage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/rentacar/internal/model"
	"github.com/hitoshi/rentacar/internal/security"
)

// mockSSRFGuard はhttptestサーバー（ループバック）へ接続できるSSRFValidator。
type mockSSRFGuard struct {
	blockAll   bool
	invalidAll bool
}

func (m *mockSSRFGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (m *mockSSRFGuard) ValidateURL(rawURL string) error {
	if m.blockAll {
		return fmt.Errorf("%w: test", security.ErrBlockedURL)
	}
	if m.invalidAll {
		return errors.New("invalid URL")
	}
	return nil
}

var pngData = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

func TestFetcher_Fetch_DirectImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngData)
	}))
	defer server.Close()

	fetcher := NewFetcher(&mockSSRFGuard{}, 5*time.Second, 1024)

	img, err := fetcher.Fetch(context.Background(), server.URL+"/camry.png")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if img.Mime != "image/png" || len(img.Data) != len(pngData) {
		t.Errorf("unexpected image: mime=%q size=%d", img.Mime, len(img.Data))
	}
	if img.SourceURL != server.URL+"/camry.png" {
		t.Errorf("SourceURL = %q", img.SourceURL)
	}
}

// TestFetcher_Fetch_FollowsOGImage はHTMLページのog:imageをたどって画像を取得することを検証する。
func TestFetcher_Fetch_FollowsOGImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><meta property="og:image" content="/img/car.jpg"></head><body></body></html>`)
	})
	mux.HandleFunc("/img/car.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xFF, 0xD8, 0xFF})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := NewFetcher(&mockSSRFGuard{}, 5*time.Second, 1024)

	img, err := fetcher.Fetch(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if img.Mime != "image/jpeg" {
		t.Errorf("Mime = %q, want image/jpeg", img.Mime)
	}
	if img.SourceURL != server.URL+"/img/car.jpg" {
		t.Errorf("SourceURL = %q", img.SourceURL)
	}
}

// TestFetcher_Fetch_OGImageFollowedOnce はog:imageの先がHTMLの場合にさらにたどらないことを検証する。
func TestFetcher_Fetch_OGImageFollowedOnce(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<head><meta property="og:image" content="%s/next"></head>`, server.URL)
	}))
	defer server.Close()

	fetcher := NewFetcher(&mockSSRFGuard{}, 5*time.Second, 1024)

	_, err := fetcher.Fetch(context.Background(), server.URL+"/start")
	assertAPIErrorCode(t, err, model.ErrCodeImageFetchFailed)
}

func TestFetcher_Fetch_Errors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("/svg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		fmt.Fprint(w, `<svg></svg>`)
	})
	mux.HandleFunc("/large", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte(strings.Repeat("x", 2048)))
	})
	mux.HandleFunc("/no-og", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Car</title></head><body><meta property="og:image" content="/late.png"></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := NewFetcher(&mockSSRFGuard{}, 5*time.Second, 1024)

	for _, path := range []string{"/missing", "/json", "/svg", "/large", "/no-og"} {
		t.Run(path, func(t *testing.T) {
			_, err := fetcher.Fetch(context.Background(), server.URL+path)
			assertAPIErrorCode(t, err, model.ErrCodeImageFetchFailed)
		})
	}
}

func TestFetcher_Fetch_SSRFBlocked(t *testing.T) {
	fetcher := NewFetcher(&mockSSRFGuard{blockAll: true}, 5*time.Second, 1024)

	_, err := fetcher.Fetch(context.Background(), "http://169.254.169.254/")
	assertAPIErrorCode(t, err, model.ErrCodeSSRFBlocked)
}

func TestFetcher_Fetch_InvalidURL(t *testing.T) {
	fetcher := NewFetcher(&mockSSRFGuard{invalidAll: true}, 5*time.Second, 1024)

	_, err := fetcher.Fetch(context.Background(), "ftp://example.com/a.png")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidImageURL)
}

// TestFetcher_Fetch_RealGuardBlocksLoopback は実際のSSRFガードでループバックが拒否されることを検証する。
func TestFetcher_Fetch_RealGuardBlocksLoopback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngData)
	}))
	defer server.Close()

	fetcher := NewFetcher(security.NewSSRFGuard(), 5*time.Second, 1024)

	_, err := fetcher.Fetch(context.Background(), server.URL+"/car.png")
	assertAPIErrorCode(t, err, model.ErrCodeSSRFBlocked)
}

func TestParseOGImage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "絶対URL",
			html: `<html><head><meta property="og:image" content="https://cdn.example.com/a.jpg"></head></html>`,
			want: "https://cdn.example.com/a.jpg",
		},
		{
			name: "相対URLを解決",
			html: `<head><meta property="og:image" content="../img/b.png" /></head>`,
			want: "https://example.com/img/b.png",
		},
		{
			name: "og:image:url",
			html: `<head><meta property="og:image:url" content="https://cdn.example.com/c.jpg"></head>`,
			want: "https://cdn.example.com/c.jpg",
		},
		{
			name: "name属性",
			html: `<head><meta name="OG:IMAGE" content="https://cdn.example.com/d.jpg"></head>`,
			want: "https://cdn.example.com/d.jpg",
		},
		{
			name: "最初の1件",
			html: `<head><meta property="og:image" content="https://a.example.com/1.jpg"><meta property="og:image" content="https://a.example.com/2.jpg"></head>`,
			want: "https://a.example.com/1.jpg",
		},
		{
			name: "contentが空",
			html: `<head><meta property="og:image" content=""></head>`,
			want: "",
		},
		{
			name: "og:imageなし",
			html: `<head><meta property="og:title" content="Car"></head>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseOGImage([]byte(tt.html), "https://example.com/cars/page.html")
			if got != tt.want {
				t.Errorf("ParseOGImage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsImageMime(t *testing.T) {
	for mime, want := range map[string]bool{
		"image/png":     true,
		"image/jpeg":    true,
		"image/webp":    true,
		"image/svg+xml": false,
		"text/html":     false,
		"":              false,
	} {
		if got := isImageMime(mime); got != want {
			t.Errorf("isImageMime(%q) = %v, want %v", mime, got, want)
		}
	}
}

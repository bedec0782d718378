package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/rentacar/internal/model"
)

const (
	// CSRFCookieName はCSRFトークンを保持するCookieの名前。
	// SPAがJavaScriptで読み取ってヘッダーに載せるため、HttpOnlyにしない。
	CSRFCookieName = "csrf_token"

	// CSRFHeaderName は状態変更リクエストでトークンを送るヘッダー名。
	CSRFHeaderName = "X-CSRF-Token"

	csrfCookieMaxAge = 86400
	csrfTokenBytes   = 32
)

// CSRFConfig はCSRFミドルウェアの設定。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
	// ExemptPaths はトークン検証を行わないパス（サインアップ・ログインなどセッション確立前の操作）。
	ExemptPaths []string
}

type csrfTokenKey struct{}

// csrfTokenResponse はCSRFトークン取得エンドポイントのレスポンス。
type csrfTokenResponse struct {
	Token string `json:"token"`
}

// NewCSRFMiddleware はダブルサブミットCookie方式のCSRF対策ミドルウェアを返す。
// GET・HEAD・OPTIONSはトークンCookieがなければ発行して通す。
// それ以外のメソッドはCookieとX-CSRF-Tokenヘッダーの一致を要求し、不一致なら403を返す。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	exempt := make(map[string]struct{}, len(config.ExemptPaths))
	for _, p := range config.ExemptPaths {
		exempt[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if csrfCookieValue(r) == "" {
					token, err := issueCSRFCookie(w, config)
					if err != nil {
						slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
					} else {
						r = r.WithContext(context.WithValue(r.Context(), csrfTokenKey{}, token))
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := exempt[r.URL.Path]; !ok {
				if reason := checkCSRFToken(r); reason != "" {
					slog.Warn("CSRF validation failed",
						slog.String("reason", reason),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)
					WriteError(w, model.NewCSRFTokenInvalidError())
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkCSRFToken はCookieとヘッダーのトークンを照合し、失敗理由を返す。一致すれば空文字。
func checkCSRFToken(r *http.Request) string {
	cookieToken := csrfCookieValue(r)
	if cookieToken == "" {
		return "missing cookie token"
	}
	headerToken := r.Header.Get(CSRFHeaderName)
	if headerToken == "" {
		return "missing header token"
	}
	if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
		return "token mismatch"
	}
	return ""
}

// NewCSRFTokenHandler はCSRFトークンを返すハンドラー。
// GET /api/csrf-token
// Cookieに既存のトークンがあればそれを返す。同じリクエストでミドルウェアが発行済みならそのトークンを返し、
// どちらもなければ発行する。
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := csrfCookieValue(r)
		if token == "" {
			token = issuedCSRFToken(r.Context())
		}
		if token == "" {
			var err error
			token, err = issueCSRFCookie(w, config)
			if err != nil {
				slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
				WriteInternalServerError(w)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		json.NewEncoder(w).Encode(csrfTokenResponse{Token: token})
	})
}

// csrfCookieValue はリクエストのCSRFトークンCookieの値を返す。なければ空文字。
func csrfCookieValue(r *http.Request) string {
	c, err := r.Cookie(CSRFCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// issuedCSRFToken はこのリクエストでミドルウェアが発行したトークンを返す。なければ空文字。
func issuedCSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(csrfTokenKey{}).(string)
	return token
}

// issueCSRFCookie はトークンを生成してCookieに設定し、生成したトークンを返す。
func issueCSRFCookie(w http.ResponseWriter, config CSRFConfig) (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   csrfCookieMaxAge,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

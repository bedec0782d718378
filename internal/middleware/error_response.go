package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/rentacar/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// ハンドラー層のエラーレスポンスと同じ形をとる。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// errorStatus はミドルウェアが返すエラーコードとHTTPステータスの対応。
var errorStatus = map[string]int{
	model.ErrCodeUnauthorized:       http.StatusUnauthorized,
	model.ErrCodeForbidden:          http.StatusForbidden,
	model.ErrCodeCSRFTokenInvalid:   http.StatusForbidden,
	model.ErrCodeRateLimitExceeded:  http.StatusTooManyRequests,
	model.ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
}

// StatusForError はエラーコードに対応するHTTPステータスを返す。未知のコードは500。
func StatusForError(apiErr *model.APIError) int {
	if status, ok := errorStatus[apiErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteError はエラーコードから決まるステータスでapiErrを書き込む。
func WriteError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForError(apiErr), apiErr)
}

// WriteErrorResponse は指定したステータスでapiErrを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	body := ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write error response",
			slog.String("code", apiErr.Code),
			slog.String("error", err.Error()),
		)
	}
}

// WriteInternalServerError は500の統一レスポンスを書き込む。詳細はログにのみ残す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/rentacar/internal/model"
)

// SupportServiceInterface はサポートチャットのハンドラーが必要とするサービスインターフェース。
type SupportServiceInterface interface {
	SendMessage(ctx context.Context, userID, body string) ([]*model.SupportMessage, error)
	ListThread(ctx context.Context, userID string) ([]*model.SupportMessage, error)
	ListThreads(ctx context.Context) ([]*model.SupportThread, error)
	GetThread(ctx context.Context, userID string) ([]*model.SupportMessage, error)
	Reply(ctx context.Context, userID, body string) (*model.SupportMessage, error)
}

// SupportHandler はサポートチャットのHTTPハンドラー。
type SupportHandler struct {
	service SupportServiceInterface
}

// NewSupportHandler はSupportHandlerを生成する。
func NewSupportHandler(service SupportServiceInterface) *SupportHandler {
	return &SupportHandler{service: service}
}

// messageRequest はメッセージ送信リクエストのボディ。
type messageRequest struct {
	Body string `json:"body"`
}

// supportMessageResponse はサポートメッセージのAPIレスポンス。
type supportMessageResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// supportThreadResponse は管理画面のスレッド一覧の1件。
type supportThreadResponse struct {
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	UserEmail     string    `json:"user_email"`
	LastMessage   string    `json:"last_message"`
	LastSender    string    `json:"last_sender"`
	LastMessageAt time.Time `json:"last_message_at"`
	MessageCount  int       `json:"message_count"`
}

// ListMine はログインユーザーのスレッドを返す。
// GET /api/support/messages
func (h *SupportHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	msgs, err := h.service.ListThread(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSupportMessageResponses(msgs))
}

// Send はログインユーザーとしてメッセージを送信し、作成されたメッセージを返す。
// 最初のメッセージには自動応答が続く。
// POST /api/support/messages
func (h *SupportHandler) Send(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msgs, err := h.service.SendMessage(r.Context(), p.UserID, req.Body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSupportMessageResponses(msgs))
}

// ListThreads はユーザーごとのスレッド一覧を返す。
// GET /api/admin/support/threads
func (h *SupportHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.service.ListThreads(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]supportThreadResponse, 0, len(threads))
	for _, t := range threads {
		resp = append(resp, supportThreadResponse{
			UserID:        t.UserID,
			UserName:      t.UserName,
			UserEmail:     t.UserEmail,
			LastMessage:   t.LastMessage,
			LastSender:    string(t.LastSender),
			LastMessageAt: t.LastMessageAt,
			MessageCount:  t.MessageCount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetThread は指定ユーザーのスレッドを返す。
// GET /api/admin/support/threads/{userID}
func (h *SupportHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.service.GetThread(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSupportMessageResponses(msgs))
}

// Reply はサポート担当として指定ユーザーのスレッドに返信する。
// POST /api/admin/support/threads/{userID}/messages
func (h *SupportHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.service.Reply(r.Context(), chi.URLParam(r, "userID"), req.Body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSupportMessageResponse(msg))
}

func toSupportMessageResponse(m *model.SupportMessage) supportMessageResponse {
	return supportMessageResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		Sender:    string(m.Sender),
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

func toSupportMessageResponses(msgs []*model.SupportMessage) []supportMessageResponse {
	resp := make([]supportMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, toSupportMessageResponse(m))
	}
	return resp
}

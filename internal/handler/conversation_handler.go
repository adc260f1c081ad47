package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/carmart/internal/middleware"
	"github.com/hitoshi/carmart/internal/model"
)

// ConversationServiceInterface は会話ハンドラーが必要とするサービスインターフェース。
type ConversationServiceInterface interface {
	GetOrCreate(ctx context.Context, listingID string, requester *model.User) (string, error)
	SendMessage(ctx context.Context, conversationID, senderID, content string) (*messageResponse, error)
	ListForUser(ctx context.Context, userID string) ([]conversationSummaryResponse, error)
	GetThread(ctx context.Context, conversationID, userID string) (*threadResponse, error)
}

// ConversationHandler は出品者への問い合わせとメッセージのHTTPハンドラー。
type ConversationHandler struct {
	service ConversationServiceInterface
	users   CurrentUserResolver
}

// NewConversationHandler はConversationHandlerを生成する。
func NewConversationHandler(service ConversationServiceInterface, users CurrentUserResolver) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		users:   users,
	}
}

// sendMessageRequest はメッセージ送信リクエストのボディ。
type sendMessageRequest struct {
	Content string `json:"content"`
}

// Contact は出品者への問い合わせを開始し、会話画面へリダイレクトする。
// 未ログインならログイン後にこのURLへ戻る。ドメインエラーは出品ページへ戻して通知する。
// GET /{locale}/listings/{id}/contact
func (h *ConversationHandler) Contact(w http.ResponseWriter, r *http.Request) {
	loc := chi.URLParam(r, "locale")
	listingID := chi.URLParam(r, "id")

	user, ok := requirePageUser(w, r, h.users)
	if !ok {
		return
	}

	convID, err := h.service.GetOrCreate(r.Context(), listingID, user)
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		target := "/" + loc + "/listings/" + url.PathEscape(listingID) + "?notice=" + url.QueryEscape(apiErr.Code)
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		return
	}
	if err != nil {
		slog.Error("failed to open conversation",
			slog.String("listing_id", listingID),
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	http.Redirect(w, r, "/"+loc+"/messages/"+url.PathEscape(convID), http.StatusTemporaryRedirect)
}

// List は会話一覧ページを返す。
// GET /{locale}/messages
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := requirePageUser(w, r, h.users)
	if !ok {
		return
	}

	summaries, err := h.service.ListForUser(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writePage(w, r, user, summaries)
}

// Thread は会話画面を返す。
// GET /{locale}/messages/{id}
func (h *ConversationHandler) Thread(w http.ResponseWriter, r *http.Request) {
	user, ok := requirePageUser(w, r, h.users)
	if !ok {
		return
	}

	thread, err := h.service.GetThread(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writePage(w, r, user, thread)
}

// SendMessage は会話にメッセージを送信する。
// POST /api/conversations/{id}/messages
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := requireAPIUser(w, r, h.users)
	if !ok {
		return
	}

	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.service.SendMessage(r.Context(), chi.URLParam(r, "id"), user.ID, req.Content)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

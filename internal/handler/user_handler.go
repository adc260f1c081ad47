package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/carmart/internal/middleware"
	"github.com/hitoshi/carmart/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 64 << 10

// CurrentUserResolver はIdPのユーザー情報からアプリケーションのユーザーを解決する。
type CurrentUserResolver interface {
	GetCurrentUser(ctx context.Context, identity *model.Identity) (*model.User, error)
}

// UserHandler はログインユーザー情報のHTTPハンドラー。
type UserHandler struct {
	users CurrentUserResolver
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(users CurrentUserResolver) *UserHandler {
	return &UserHandler{users: users}
}

// Me は現在のログインユーザー情報を返す。
// GET /api/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := requireAPIUser(w, r, h.users)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// pageResponse はロケール付きページのビューモデル。
type pageResponse struct {
	Locale string        `json:"locale"`
	User   *userResponse `json:"user"`
	Notice string        `json:"notice,omitempty"`
	Data   any           `json:"data"`
}

// writePage はページのビューモデルを書き込む。userはnilでもよい。
func writePage(w http.ResponseWriter, r *http.Request, user *model.User, data any) {
	resp := pageResponse{
		Locale: middleware.LocaleFromContext(r.Context()),
		Notice: r.URL.Query().Get("notice"),
		Data:   data,
	}
	if user != nil {
		u := toUserResponse(user)
		resp.User = &u
	}
	writeJSON(w, http.StatusOK, resp)
}

// optionalUser はログインしていればユーザーを返す。未ログインなら(nil, true)。
// 解決に失敗した場合はエラーレスポンスを書き込みfalseを返す。
func optionalUser(w http.ResponseWriter, r *http.Request, users CurrentUserResolver) (*model.User, bool) {
	user, err := users.GetCurrentUser(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return nil, false
	}
	return user, true
}

// requirePageUser は未ログインの場合に現在のパスへ戻るログインURLへリダイレクトする。
func requirePageUser(w http.ResponseWriter, r *http.Request, users CurrentUserResolver) (*model.User, bool) {
	user, ok := optionalUser(w, r, users)
	if !ok {
		return nil, false
	}
	if user == nil {
		http.Redirect(w, r, loginRedirectURL(r.URL.RequestURI()), http.StatusTemporaryRedirect)
		return nil, false
	}
	return user, true
}

// requireAPIUser は未ログインの場合に401を返す。
func requireAPIUser(w http.ResponseWriter, r *http.Request, users CurrentUserResolver) (*model.User, bool) {
	user, ok := optionalUser(w, r, users)
	if !ok {
		return nil, false
	}
	if user == nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return nil, false
	}
	return user, true
}

// decodeJSON はリクエストボディをvに読み込む。失敗した場合は400を返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidParameterError("body"))
		return false
	}
	return true
}

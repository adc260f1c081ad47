// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/carmart/internal/auth"
)

// stateCookieMaxAge はOAuth state Cookieの有効期間（秒）。
const stateCookieMaxAge = 600

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	LoginURL(next string) (loginURL, nonce string, err error)
	HandleCallback(ctx context.Context, code, state, nonce string) (*auth.Tokens, string, error)
	Logout(ctx context.Context, accessToken, refreshToken string)
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	cookies auth.CookieOptions
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, cookies auth.CookieOptions) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookies: cookies,
	}
}

// Login はIdPの認可フローを開始する。
// GET /auth/login?next=/ja/listings/{id}/contact
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	next := auth.SafeNext(r.URL.Query().Get("next"))

	loginURL, nonce, err := h.service.LoginURL(next)
	if err != nil {
		slog.Error("failed to start oauth flow", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// nonceをCookieに保存（CSRF対策）。stateの署名と合わせて検証する
	http.SetCookie(w, h.stateCookie(nonce, stateCookieMaxAge))
	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// stateクッキーは成否にかかわらず削除する
	nonce := ""
	if c, err := r.Cookie(auth.StateCookie); err == nil {
		nonce = c.Value
	}
	http.SetCookie(w, h.stateCookie("", -1))

	if idpErr := q.Get("error"); idpErr != "" {
		slog.Info("oauth authorization denied", slog.String("error", idpErr))
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	tokens, next, err := h.service.HandleCallback(r.Context(), q.Get("code"), q.Get("state"), nonce)
	if errors.Is(err, auth.ErrInvalidState) {
		slog.Warn("oauth state verification failed", slog.String("error", err.Error()))
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	for _, c := range h.cookies.SessionCookies(tokens) {
		http.SetCookie(w, c)
	}
	http.Redirect(w, r, next, http.StatusTemporaryRedirect)
}

// Logout はトークンを失効させ、セッションCookieを削除する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokens := auth.SessionTokens(r.Cookies())
	h.service.Logout(r.Context(), tokens.AccessToken, tokens.RefreshToken)

	for _, c := range h.cookies.ClearSessionCookies() {
		http.SetCookie(w, c)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.StateCookie,
		Value:    value,
		Path:     "/auth/",
		Domain:   h.cookies.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// loginRedirectURL はログイン後にnextへ戻るログインURLを返す。
func loginRedirectURL(next string) string {
	return "/auth/login?next=" + url.QueryEscape(next)
}

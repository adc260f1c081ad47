package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/carmart/internal/auth"
)

// --- モック定義 ---

type mockAuthService struct {
	loginURLFn       func(next string) (string, string, error)
	handleCallbackFn func(ctx context.Context, code, state, nonce string) (*auth.Tokens, string, error)
	logoutFn         func(ctx context.Context, accessToken, refreshToken string)
}

func (m *mockAuthService) LoginURL(next string) (string, string, error) {
	if m.loginURLFn != nil {
		return m.loginURLFn(next)
	}
	return "https://idp.example/authorize", "nonce", nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code, state, nonce string) (*auth.Tokens, string, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code, state, nonce)
	}
	return nil, "", errors.New("not configured")
}

func (m *mockAuthService) Logout(ctx context.Context, accessToken, refreshToken string) {
	if m.logoutFn != nil {
		m.logoutFn(ctx, accessToken, refreshToken)
	}
}

// --- ヘルパー ---

func responseCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- テスト ---

func TestAuthHandler_Login_RedirectsAndSetsStateCookie(t *testing.T) {
	var gotNext string
	svc := &mockAuthService{
		loginURLFn: func(next string) (string, string, error) {
			gotNext = next
			return "https://idp.example/authorize?state=signed", "nonce-1", nil
		},
	}
	h := NewAuthHandler(svc, auth.CookieOptions{})

	req := httptest.NewRequest(http.MethodGet, "/auth/login?next=%2Fja%2Flistings%2Fabc%2Fcontact", nil)
	w := httptest.NewRecorder()
	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); loc != "https://idp.example/authorize?state=signed" {
		t.Errorf("Location = %q", loc)
	}
	if gotNext != "/ja/listings/abc/contact" {
		t.Errorf("next = %q, want %q", gotNext, "/ja/listings/abc/contact")
	}

	c := responseCookie(resp, auth.StateCookie)
	if c == nil {
		t.Fatal("expected state cookie")
	}
	if c.Value != "nonce-1" || !c.HttpOnly || c.MaxAge != stateCookieMaxAge {
		t.Errorf("state cookie = %+v", c)
	}
}

func TestAuthHandler_Login_ExternalNextIsReplaced(t *testing.T) {
	var gotNext string
	svc := &mockAuthService{
		loginURLFn: func(next string) (string, string, error) {
			gotNext = next
			return "https://idp.example/authorize", "n", nil
		},
	}
	h := NewAuthHandler(svc, auth.CookieOptions{})

	req := httptest.NewRequest(http.MethodGet, "/auth/login?next=https%3A%2F%2Fevil.example%2F", nil)
	h.Login(httptest.NewRecorder(), req)

	if gotNext != "/" {
		t.Errorf("next = %q, want %q", gotNext, "/")
	}
}

func TestAuthHandler_Login_ServiceError_Returns500(t *testing.T) {
	svc := &mockAuthService{
		loginURLFn: func(string) (string, string, error) {
			return "", "", errors.New("entropy exhausted")
		},
	}
	h := NewAuthHandler(svc, auth.CookieOptions{})

	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestAuthHandler_Callback_Success_SetsSessionCookiesAndRedirects(t *testing.T) {
	var gotCode, gotState, gotNonce string
	svc := &mockAuthService{
		handleCallbackFn: func(_ context.Context, code, state, nonce string) (*auth.Tokens, string, error) {
			gotCode, gotState, gotNonce = code, state, nonce
			return &auth.Tokens{
				AccessToken:  "at",
				RefreshToken: "rt",
				Expiry:       time.Unix(1_900_000_000, 0),
			}, "/ja/listings/abc/contact", nil
		},
	}
	h := NewAuthHandler(svc, auth.CookieOptions{Secure: true})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=c1&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: auth.StateCookie, Value: "nonce-1"})
	w := httptest.NewRecorder()
	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); loc != "/ja/listings/abc/contact" {
		t.Errorf("Location = %q", loc)
	}
	if gotCode != "c1" || gotState != "s1" || gotNonce != "nonce-1" {
		t.Errorf("callback args = (%q, %q, %q)", gotCode, gotState, gotNonce)
	}

	access := responseCookie(resp, auth.AccessTokenCookie)
	if access == nil || access.Value != "at" || !access.Secure || !access.HttpOnly {
		t.Errorf("access cookie = %+v", access)
	}
	if c := responseCookie(resp, auth.RefreshTokenCookie); c == nil || c.Value != "rt" {
		t.Errorf("refresh cookie = %+v", c)
	}
	if c := responseCookie(resp, auth.TokenExpiryCookie); c == nil || c.Value != "1900000000" {
		t.Errorf("expiry cookie = %+v", c)
	}
	if c := responseCookie(resp, auth.StateCookie); c == nil || c.MaxAge >= 0 {
		t.Errorf("state cookie should be cleared, got %+v", c)
	}
}

func TestAuthHandler_Callback_InvalidState_Returns400(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(context.Context, string, string, string) (*auth.Tokens, string, error) {
			return nil, "", fmt.Errorf("%w: nonce mismatch", auth.ErrInvalidState)
		},
	}
	h := NewAuthHandler(svc, auth.CookieOptions{})

	w := httptest.NewRecorder()
	h.Callback(w, httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state=s", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if c := responseCookie(w.Result(), auth.AccessTokenCookie); c != nil {
		t.Error("session cookies must not be set on failure")
	}
}

func TestAuthHandler_Callback_ExchangeError_Returns502(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(context.Context, string, string, string) (*auth.Tokens, string, error) {
			return nil, "", errors.New("idp unavailable")
		},
	}
	h := NewAuthHandler(svc, auth.CookieOptions{})

	w := httptest.NewRecorder()
	h.Callback(w, httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state=s", nil))

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

func TestAuthHandler_Callback_AuthorizationDenied_RedirectsHome(t *testing.T) {
	called := false
	svc := &mockAuthService{
		handleCallbackFn: func(context.Context, string, string, string) (*auth.Tokens, string, error) {
			called = true
			return nil, "", nil
		},
	}
	h := NewAuthHandler(svc, auth.CookieOptions{})

	w := httptest.NewRecorder()
	h.Callback(w, httptest.NewRequest(http.MethodGet, "/auth/callback?error=access_denied", nil))

	if w.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want %q", loc, "/")
	}
	if called {
		t.Error("HandleCallback should not be called when the provider reports an error")
	}
}

func TestAuthHandler_Logout_RevokesAndClearsCookies(t *testing.T) {
	var gotAccess, gotRefresh string
	svc := &mockAuthService{
		logoutFn: func(_ context.Context, accessToken, refreshToken string) {
			gotAccess, gotRefresh = accessToken, refreshToken
		},
	}
	h := NewAuthHandler(svc, auth.CookieOptions{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: "at"})
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: "rt"})
	w := httptest.NewRecorder()
	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if gotAccess != "at" || gotRefresh != "rt" {
		t.Errorf("revoked tokens = (%q, %q)", gotAccess, gotRefresh)
	}
	for _, name := range []string{auth.AccessTokenCookie, auth.RefreshTokenCookie, auth.TokenExpiryCookie} {
		c := responseCookie(resp, name)
		if c == nil || c.MaxAge >= 0 {
			t.Errorf("cookie %s should be cleared, got %+v", name, c)
		}
	}
}

func TestLoginRedirectURL_EscapesNext(t *testing.T) {
	got := loginRedirectURL("/ja/listings/abc/contact?x=1")
	if !strings.HasPrefix(got, "/auth/login?next=") {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(strings.TrimPrefix(got, "/auth/login?next="), "?") {
		t.Errorf("next should be query-escaped: %q", got)
	}
}

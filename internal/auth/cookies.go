package auth

import (
	"net/http"
	"strconv"
	"time"
)

// セッションCookie名
const (
	AccessTokenCookie  = "cm_access_token"
	RefreshTokenCookie = "cm_refresh_token"
	TokenExpiryCookie  = "cm_token_expiry"
)

// SessionCookieMaxAge はセッションCookieの有効期間。
// アクセストークンの有効期限はcm_token_expiryで別途管理する。
const SessionCookieMaxAge = 30 * 24 * time.Hour

// CookieOptions はセッションCookieの属性設定。
type CookieOptions struct {
	Secure bool
	Domain string
}

// SessionCookies はトークンの組から3つのセッションCookieを生成する。
func (o CookieOptions) SessionCookies(t *Tokens) []*http.Cookie {
	expiry := ""
	if !t.Expiry.IsZero() {
		expiry = strconv.FormatInt(t.Expiry.Unix(), 10)
	}
	maxAge := int(SessionCookieMaxAge.Seconds())
	return []*http.Cookie{
		o.cookie(AccessTokenCookie, t.AccessToken, maxAge),
		o.cookie(RefreshTokenCookie, t.RefreshToken, maxAge),
		o.cookie(TokenExpiryCookie, expiry, maxAge),
	}
}

// ClearSessionCookies は3つのセッションCookieを削除するCookieを生成する。
func (o CookieOptions) ClearSessionCookies() []*http.Cookie {
	return []*http.Cookie{
		o.cookie(AccessTokenCookie, "", -1),
		o.cookie(RefreshTokenCookie, "", -1),
		o.cookie(TokenExpiryCookie, "", -1),
	}
}

func (o CookieOptions) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   o.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionTokens はリクエストCookieからトークンを読み出す。ログアウト時の失効対象の取得にも使う。
// 有効期限が読み取れない場合はゼロ値となる。
func SessionTokens(cookies []*http.Cookie) Tokens {
	var t Tokens
	for _, c := range cookies {
		switch c.Name {
		case AccessTokenCookie:
			t.AccessToken = c.Value
		case RefreshTokenCookie:
			t.RefreshToken = c.Value
		case TokenExpiryCookie:
			if sec, err := strconv.ParseInt(c.Value, 10, 64); err == nil {
				t.Expiry = time.Unix(sec, 0)
			}
		}
	}
	return t
}

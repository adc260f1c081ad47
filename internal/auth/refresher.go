package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/carmart/internal/model"
)

// expirySkew はアクセストークンの有効期限判定に持たせる余裕。
const expirySkew = 10 * time.Second

// RefreshOutcome はセッション更新の結果種別。メトリクスのラベルに使う。
type RefreshOutcome string

const (
	OutcomeAnonymous RefreshOutcome = "anonymous"
	OutcomeValid     RefreshOutcome = "valid"
	OutcomeRefreshed RefreshOutcome = "refreshed"
	OutcomeRejected  RefreshOutcome = "rejected"
	OutcomeError     RefreshOutcome = "error"
)

// RefreshResult はセッション更新の結果。
// Identityがnilの場合は未認証として扱う。Cookiesはレスポンスにそのまま書き込む。
type RefreshResult struct {
	Identity *model.Identity
	Cookies  []*http.Cookie
	Outcome  RefreshOutcome
}

// Refresher はリクエストCookieのセッションをIdPで検証し、必要に応じて更新する。
// IdPへの問い合わせはリクエストごとにリトライせず、各呼び出しにタイムアウトを設定する。
type Refresher struct {
	provider IdentityProvider
	timeout  time.Duration
	cookies  CookieOptions
	now      func() time.Time
}

// NewRefresher はRefresherを生成する。
func NewRefresher(provider IdentityProvider, timeout time.Duration, cookies CookieOptions) *Refresher {
	return &Refresher{
		provider: provider,
		timeout:  timeout,
		cookies:  cookies,
		now:      time.Now,
	}
}

// Refresh はリクエストCookieからセッションを検証・更新する。
// IdPの失敗はエラーとして返さず、未認証の結果として扱う。
func (r *Refresher) Refresh(ctx context.Context, cookies []*http.Cookie) RefreshResult {
	current := SessionTokens(cookies)
	if current.AccessToken == "" && current.RefreshToken == "" {
		return RefreshResult{Outcome: OutcomeAnonymous}
	}

	if current.AccessToken != "" && !r.expired(current.Expiry) {
		identity, err := r.getUser(ctx, current.AccessToken)
		if err == nil {
			return RefreshResult{Identity: identity, Outcome: OutcomeValid}
		}
		if !errors.Is(err, ErrUnauthenticated) {
			slog.Warn("identity provider user lookup failed", slog.String("error", err.Error()))
			return RefreshResult{Outcome: OutcomeError}
		}
	}

	if current.RefreshToken == "" {
		return RefreshResult{Cookies: r.cookies.ClearSessionCookies(), Outcome: OutcomeRejected}
	}

	tokens, err := r.refresh(ctx, current.RefreshToken)
	if errors.Is(err, ErrInvalidGrant) {
		slog.Info("session refresh rejected by identity provider")
		return RefreshResult{Cookies: r.cookies.ClearSessionCookies(), Outcome: OutcomeRejected}
	}
	if err != nil {
		slog.Warn("session refresh failed", slog.String("error", err.Error()))
		return RefreshResult{Outcome: OutcomeError}
	}

	newCookies := r.cookies.SessionCookies(tokens)
	identity, err := r.getUser(ctx, tokens.AccessToken)
	if err != nil {
		slog.Warn("identity provider user lookup failed after refresh", slog.String("error", err.Error()))
		return RefreshResult{Cookies: newCookies, Outcome: OutcomeError}
	}
	return RefreshResult{Identity: identity, Cookies: newCookies, Outcome: OutcomeRefreshed}
}

// expired は有効期限が過ぎている（または間もなく過ぎる）場合にtrueを返す。
// 有効期限が不明な場合はIdPの判断に委ねるためfalseを返す。
func (r *Refresher) expired(expiry time.Time) bool {
	if expiry.IsZero() {
		return false
	}
	return !r.now().Add(expirySkew).Before(expiry)
}

func (r *Refresher) getUser(ctx context.Context, accessToken string) (*model.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.provider.GetUser(ctx, accessToken)
}

func (r *Refresher) refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.provider.Refresh(ctx, refreshToken)
}

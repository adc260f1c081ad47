package middleware

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/hitoshi/carmart/internal/auth"
	"github.com/hitoshi/carmart/internal/locale"
	"github.com/hitoshi/carmart/internal/metrics"
	"github.com/hitoshi/carmart/internal/model"
)

// reservedRoots はロケール処理とセッション更新の対象外とするルートセグメント。
// ルート自身とその配下のパスが対象になる。
var reservedRoots = []string{"/api", "/auth", "/static", "/metrics", "/health"}

// SessionRefresher はリクエストCookieからセッションを検証・更新する。
type SessionRefresher interface {
	Refresh(ctx context.Context, cookies []*http.Cookie) auth.RefreshResult
}

// StepResult はパイプラインの各段の結果。
// Redirectが空でなければそのURLへリダイレクトして処理を打ち切る。
type StepResult struct {
	Redirect string
	Locale   string
	Cookies  []*http.Cookie
}

// IsRedirect はリダイレクトで打ち切る結果であればtrueを返す。
func (s StepResult) IsRedirect() bool {
	return s.Redirect != ""
}

// IsAssetPath は静的ファイルや内部パスであればtrueを返す。
// 判定は構文のみで行う。最終セグメントに"."を含むパスは静的ファイルとみなすため、
// ドットを含むページルートも対象外になる。
func IsAssetPath(p string) bool {
	for _, root := range reservedRoots {
		if p == root || strings.HasPrefix(p, root+"/") {
			return true
		}
	}
	return strings.Contains(path.Base(p), ".")
}

// NewLocaleSessionMiddleware はロケール決定とセッション更新を行うミドルウェアを返す。
//  1. 静的ファイル・内部パスはそのまま通す
//  2. パス先頭のロケールを判定し、なければロケール付きURLへリダイレクトする
//  3. リダイレクトの場合はセッション更新を行わずに返す
//  4. セッションを更新し、ロケールCookieとセッションCookieをまとめて書き込む
//  5. 後続のハンドラーを呼び出す
func NewLocaleSessionMiddleware(
	resolver *locale.Resolver,
	refresher SessionRefresher,
	cookies auth.CookieOptions,
	collector metrics.MetricsCollector,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsAssetPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			step := decideLocale(resolver, cookies, r)
			if step.IsRedirect() {
				if collector != nil {
					collector.RecordLocaleRedirect(step.Locale)
				}
				writeCookies(w, step.Cookies)
				http.Redirect(w, r, step.Redirect, http.StatusTemporaryRedirect)
				return
			}

			annotateLog(r.Context(), func(f *logFields) { f.locale = step.Locale })
			ctx := ContextWithLocale(r.Context(), step.Locale)
			r = applySession(w, r.WithContext(ctx), refresher, collector, step.Cookies)
			next.ServeHTTP(w, r)
		})
	}
}

// NewIdentityMiddleware はセッション更新のみを行うミドルウェアを返す。
// ロケールを持たない/api配下で使う。未認証でもリクエストは通す。
func NewIdentityMiddleware(refresher SessionRefresher, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, applySession(w, r, refresher, collector, nil))
		})
	}
}

// NewRequireIdentityMiddleware は未認証リクエストに401を返すミドルウェアを返す。
// NewIdentityMiddlewareより内側で使う。
func NewRequireIdentityMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IdentityFromContext(r.Context()) == nil {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// decideLocale はパス先頭のロケールを判定する。
// ロケールがなければCookie、Accept-Language、デフォルトの順に決めてリダイレクト先を返す。
func decideLocale(resolver *locale.Resolver, opts auth.CookieOptions, r *http.Request) StepResult {
	current := ""
	if c, err := r.Cookie(locale.CookieName); err == nil {
		current = c.Value
	}

	if loc, ok := resolver.FromPath(r.URL.Path); ok {
		step := StepResult{Locale: loc}
		if current != loc {
			step.Cookies = []*http.Cookie{localeCookie(opts, loc)}
		}
		return step
	}

	loc := current
	if !resolver.IsSupported(loc) {
		loc = resolver.Detect(r.Header.Get("Accept-Language"))
	}
	loc = resolver.Resolve(loc)

	target := "/" + loc
	if p := r.URL.EscapedPath(); p != "/" && p != "" {
		target += p
	}
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return StepResult{
		Redirect: target,
		Locale:   loc,
		Cookies:  []*http.Cookie{localeCookie(opts, loc)},
	}
}

// applySession はセッションを更新し、extraとセッションCookieを名前で統合して書き込む。
// 同名のCookieはセッション側を優先する。IdPのユーザー情報をコンテキストに注入したリクエストを返す。
func applySession(w http.ResponseWriter, r *http.Request, refresher SessionRefresher, collector metrics.MetricsCollector, extra []*http.Cookie) *http.Request {
	result := refresher.Refresh(r.Context(), r.Cookies())
	if collector != nil {
		collector.RecordSessionRefresh(string(result.Outcome))
	}

	writeCookies(w, mergeCookies(extra, result.Cookies))

	if result.Identity == nil {
		return r
	}
	annotateLog(r.Context(), func(f *logFields) { f.subject = result.Identity.ExternalID })
	return r.WithContext(ContextWithIdentity(r.Context(), result.Identity))
}

// mergeCookies はCookieを名前で統合する。後に渡した側が優先され、順序は初出順を保つ。
func mergeCookies(groups ...[]*http.Cookie) []*http.Cookie {
	var merged []*http.Cookie
	index := map[string]int{}
	for _, group := range groups {
		for _, c := range group {
			if i, ok := index[c.Name]; ok {
				merged[i] = c
				continue
			}
			index[c.Name] = len(merged)
			merged = append(merged, c)
		}
	}
	return merged
}

func writeCookies(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}

func localeCookie(opts auth.CookieOptions, loc string) *http.Cookie {
	return &http.Cookie{
		Name:     locale.CookieName,
		Value:    loc,
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   int(locale.CookieMaxAge.Seconds()),
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

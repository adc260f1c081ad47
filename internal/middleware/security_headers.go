package middleware

import (
	"net/http"
	"strings"
)

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// imageOriginが空でなければ車両画像の配信元としてCSPのimg-srcに加える。
func NewSecurityHeadersMiddleware(imageOrigin string) func(next http.Handler) http.Handler {
	csp := contentSecurityPolicy(imageOrigin)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			w.Header().Set("Content-Security-Policy", csp)
			next.ServeHTTP(w, r)
		})
	}
}

func contentSecurityPolicy(imageOrigin string) string {
	imgSrc := []string{"'self'", "data:"}
	if origin := strings.TrimSuffix(strings.TrimSpace(imageOrigin), "/"); origin != "" {
		imgSrc = append(imgSrc, origin)
	}
	return strings.Join([]string{
		"default-src 'self'",
		"img-src " + strings.Join(imgSrc, " "),
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}, "; ")
}

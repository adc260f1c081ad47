// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"

	"github.com/hitoshi/carmart/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	identityContextKey = contextKey("identity")
	localeContextKey   = contextKey("locale")
	logFieldsKey       = contextKey("log_fields")
)

// IdentityFromContext はリクエストコンテキストからIdPのユーザー情報を取得する。
// 未認証の場合はnilを返す。
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(identityContextKey).(*model.Identity)
	return identity
}

// ContextWithIdentity はコンテキストにIdPのユーザー情報を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// LocaleFromContext はパイプラインが決定したロケールを返す。未設定なら空文字列。
func LocaleFromContext(ctx context.Context) string {
	loc, _ := ctx.Value(localeContextKey).(string)
	return loc
}

// ContextWithLocale はコンテキストにロケールを注入する。
func ContextWithLocale(ctx context.Context, loc string) context.Context {
	return context.WithValue(ctx, localeContextKey, loc)
}

// logFields はアクセスログに後から追記する項目。
// ロギングミドルウェアが生成し、内側のミドルウェアが値を埋める。
type logFields struct {
	subject string
	locale  string
}

func withLogFields(ctx context.Context) (context.Context, *logFields) {
	f := &logFields{}
	return context.WithValue(ctx, logFieldsKey, f), f
}

func annotateLog(ctx context.Context, fn func(f *logFields)) {
	if f, ok := ctx.Value(logFieldsKey).(*logFields); ok {
		fn(f)
	}
}

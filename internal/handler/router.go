package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/carmart/internal/auth"
	"github.com/hitoshi/carmart/internal/locale"
	"github.com/hitoshi/carmart/internal/metrics"
	"github.com/hitoshi/carmart/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger         *slog.Logger
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler
	Resolver       *locale.Resolver
	Refresher      middleware.SessionRefresher
	CookieOptions  auth.CookieOptions
	ImageCDNOrigin string
	CSRFConfig     middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface

	// ユーザー
	Users CurrentUserResolver

	// 出品・会話
	Listings      ListingServiceInterface
	Conversations ConversationServiceInterface

	// ヘルスチェック
	DB Pinger
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → LocaleSession
//
// LocaleSessionは/api、/auth、/health、/metrics配下を素通しする。
// /api配下はIdentity → CSRFを適用し、状態変更ルートは認証を必須とする。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.ImageCDNOrigin))
	r.Use(middleware.NewLocaleSessionMiddleware(deps.Resolver, deps.Refresher, deps.CookieOptions, deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.CookieOptions)
	userHandler := NewUserHandler(deps.Users)
	listingHandler := NewListingHandler(deps.Listings, deps.Users)
	convHandler := NewConversationHandler(deps.Conversations, deps.Users)

	// --- 内部エンドポイント ---
	if deps.DB != nil {
		r.Method(http.MethodGet, "/health", NewHealthHandler(deps.DB))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証ルート（OAuthフロー） ---
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
	})

	// --- JSON API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewIdentityMiddleware(deps.Refresher, deps.Metrics))

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
			r.Use(middleware.NewRequireIdentityMiddleware())

			r.Get("/me", userHandler.Me)
			r.Post("/listings", listingHandler.Create)
			r.Put("/listings/{id}/save", listingHandler.Save)
			r.Delete("/listings/{id}/save", listingHandler.Unsave)
			r.Post("/conversations/{id}/messages", convHandler.SendMessage)
		})
	})

	// --- ロケール付きページ ---
	// LocaleSessionミドルウェアを通過した時点でパス先頭は対応ロケールである。
	r.Route("/{locale}", func(r chi.Router) {
		r.Get("/", listingHandler.Browse)
		r.Get("/listings", listingHandler.Browse)
		r.Get("/listings/{id}", listingHandler.Detail)
		r.Get("/listings/{id}/contact", convHandler.Contact)
		r.Get("/saved", listingHandler.Saved)
		r.Get("/messages", convHandler.List)
		r.Get("/messages/{id}", convHandler.Thread)
	})

	return r
}

// Package app はアプリケーションの初期化と起動モードの切り替えを提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/carmart/internal/auth"
	"github.com/hitoshi/carmart/internal/config"
	"github.com/hitoshi/carmart/internal/conversation"
	"github.com/hitoshi/carmart/internal/database"
	"github.com/hitoshi/carmart/internal/handler"
	"github.com/hitoshi/carmart/internal/listing"
	"github.com/hitoshi/carmart/internal/locale"
	"github.com/hitoshi/carmart/internal/logger"
	"github.com/hitoshi/carmart/internal/metrics"
	"github.com/hitoshi/carmart/internal/middleware"
	"github.com/hitoshi/carmart/internal/repository"
	"github.com/hitoshi/carmart/internal/security"
	"github.com/hitoshi/carmart/internal/user"
)

const (
	shutdownTimeout = 30 * time.Second
	dbPingTimeout   = 5 * time.Second
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数のConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでログを再設定する（.envのLOG_LEVELを反映する）
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// runServe はHTTPサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Ping(context.Background(), db, dbPingTimeout); err != nil {
		return err
	}
	slog.Info("database connection established")

	router, err := buildRouter(cfg, db, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-stop:
	}
	slog.Info("shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully")
	return nil
}

// buildRouter はリポジトリ、IdP、サービス、ハンドラーを組み立ててルーターを返す。
// メトリクスはregに登録する。
func buildRouter(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (http.Handler, error) {
	resolver, err := locale.NewResolver(cfg.SupportedLocales, cfg.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale configuration: %w", err)
	}

	// 1. メトリクス
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 2. リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	listingRepo := repository.NewPostgresListingRepo(db)
	savedRepo := repository.NewPostgresSavedListingRepo(db)
	convRepo := repository.NewPostgresConversationRepo(db)
	msgRepo := repository.NewPostgresMessageRepo(db)

	// 3. IdPとセッション
	cookies := auth.CookieOptions{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	}
	provider := auth.NewGoogleProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		HTTPClient:   &http.Client{Timeout: cfg.ProviderTimeout},
	})
	refresher := auth.NewRefresher(provider, cfg.ProviderTimeout, cookies)
	authService := auth.NewService(provider, auth.NewStateSigner(cfg.SessionSecret), cfg.ProviderTimeout)

	// 4. ドメインサービス
	sanitizer := security.NewTextSanitizer()
	userService := user.NewService(userRepo)
	listingService := listing.NewService(listingRepo, savedRepo, sanitizer, collector)
	convService := conversation.NewService(convRepo, msgRepo, listingRepo, collector, cfg.MessageMaxLength)

	// 5. ルーター
	return handler.NewRouter(&handler.RouterDeps{
		Logger:         slog.Default(),
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
		Resolver:       resolver,
		Refresher:      refresher,
		CookieOptions:  cookies,
		ImageCDNOrigin: cfg.ImageCDNOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		AuthService:   authService,
		Users:         userService,
		Listings:      handler.NewListingServiceAdapter(listingService),
		Conversations: handler.NewConversationServiceAdapter(convService),
		DB:            db,
	}), nil
}

// runMigrate はデータベースマイグレーションを実行する。
// 引数が"down"の場合は最新のマイグレーションを1つ巻き戻し、それ以外はすべて適用する。
func runMigrate(cfg *config.Config, args []string) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if len(args) > 0 && args[0] == "down" {
		if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
	} else if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}

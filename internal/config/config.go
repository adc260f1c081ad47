// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// OAuth（IdP）
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID,required,notEmpty"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET,required,notEmpty"`
	GoogleRedirectURL  string        `env:"GOOGLE_REDIRECT_URL,required,notEmpty"`
	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"5s"`

	// Session
	SessionSecret string `env:"SESSION_SECRET,required,notEmpty"`

	// Locale
	SupportedLocales []string `env:"SUPPORTED_LOCALES" envDefault:"ja,en" envSeparator:","`
	DefaultLocale    string   `env:"DEFAULT_LOCALE" envDefault:"ja"`

	// Messaging
	MessageMaxLength int `env:"MESSAGE_MAX_LENGTH" envDefault:"2000"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL,required,notEmpty"`

	// Cookie
	CookieSecure bool
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// 画像CDN（CSPのimg-srcに追加する）
	ImageCDNOrigin string `env:"IMAGE_CDN_ORIGIN"`
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既存の環境変数が優先される。
// 必須環境変数が未設定の場合はまとめてエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment variables: %w", err)
	}

	cfg.SupportedLocales = normalizeLocales(cfg.SupportedLocales)
	cfg.DefaultLocale = strings.TrimSpace(cfg.DefaultLocale)
	if len(cfg.SupportedLocales) == 0 {
		return nil, fmt.Errorf("SUPPORTED_LOCALES must not be empty")
	}
	if !slices.Contains(cfg.SupportedLocales, cfg.DefaultLocale) {
		return nil, fmt.Errorf("DEFAULT_LOCALE %q is not in SUPPORTED_LOCALES %v", cfg.DefaultLocale, cfg.SupportedLocales)
	}
	if cfg.ProviderTimeout <= 0 {
		return nil, fmt.Errorf("PROVIDER_TIMEOUT must be positive: %s", cfg.ProviderTimeout)
	}
	if cfg.MessageMaxLength <= 0 {
		return nil, fmt.Errorf("MESSAGE_MAX_LENGTH must be positive: %d", cfg.MessageMaxLength)
	}

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}

// normalizeLocales は空要素と前後の空白を取り除き、重複を除去する。
func normalizeLocales(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = strings.TrimSpace(l)
		if l == "" || slices.Contains(out, l) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Package auth は外部IdPとのOAuthフロー、セッションCookieの検証・更新を提供する。
// トークンの中身は解釈せず、検証と更新はすべてIdPに委ねる。
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/carmart/internal/model"
)

var (
	// ErrUnauthenticated はIdPがアクセストークンを拒否したことを表す。
	ErrUnauthenticated = errors.New("auth: access token rejected by provider")
	// ErrInvalidGrant はIdPがリフレッシュトークンを拒否したことを表す。
	ErrInvalidGrant = errors.New("auth: refresh token rejected by provider")
)

// Tokens はIdPが発行したトークンの組を表す。
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// IdentityProvider は外部IdPへの操作を抽象化する。
type IdentityProvider interface {
	// AuthCodeURL は認可画面へのURLを生成する。
	AuthCodeURL(state string) string
	// ExchangeCode は認可コードをトークンに交換する。
	ExchangeCode(ctx context.Context, code string) (*Tokens, error)
	// Refresh はリフレッシュトークンで新しいトークンを取得する。
	// リフレッシュトークンが拒否された場合はErrInvalidGrantを返す。
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	// GetUser はアクセストークンに紐づくユーザー情報を取得する。
	// トークンが拒否された場合はErrUnauthenticatedを返す。
	GetUser(ctx context.Context, accessToken string) (*model.Identity, error)
	// Revoke はトークンを失効させる。
	Revoke(ctx context.Context, token string) error
}

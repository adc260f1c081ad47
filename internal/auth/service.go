package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Service はログイン、コールバック、ログアウトのフローを提供する。
// ユーザーレコードの作成はここでは行わず、最初の認証済みリクエストで行う。
type Service struct {
	provider IdentityProvider
	state    *StateSigner
	timeout  time.Duration
}

// NewService はServiceを生成する。
func NewService(provider IdentityProvider, state *StateSigner, timeout time.Duration) *Service {
	return &Service{
		provider: provider,
		state:    state,
		timeout:  timeout,
	}
}

// LoginURL はIdPの認可URLと、stateCookieに保存するnonceを返す。
func (s *Service) LoginURL(next string) (loginURL, nonce string, err error) {
	state, nonce, err := s.state.Issue(next)
	if err != nil {
		return "", "", err
	}
	return s.provider.AuthCodeURL(state), nonce, nil
}

// HandleCallback はstateを検証し、認可コードをトークンに交換する。
// 戻り値のnextはログイン前に要求されたサイト内パス。
func (s *Service) HandleCallback(ctx context.Context, code, state, nonce string) (*Tokens, string, error) {
	next, err := s.state.Verify(state, nonce)
	if err != nil {
		return nil, "", err
	}
	if code == "" {
		return nil, "", fmt.Errorf("authorization code is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tokens, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	slog.Info("user signed in", slog.String("next", next))
	return tokens, next, nil
}

// Logout はトークンを失効させる。失効に失敗してもエラーにはせず警告ログのみ出力する。
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) {
	for _, token := range []string{refreshToken, accessToken} {
		if token == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.provider.Revoke(ctx, token)
		cancel()
		if err != nil {
			slog.Warn("token revoke failed", slog.String("error", err.Error()))
			continue
		}
		// リフレッシュトークンの失効で関連するアクセストークンも失効する
		break
	}
	slog.Info("user signed out")
}

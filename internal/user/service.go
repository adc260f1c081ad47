// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/carmart/internal/model"
	"github.com/hitoshi/carmart/internal/repository"
)

// Service はユーザー管理のサービス層。
// IdPのユーザー情報をアプリケーションのユーザーレコードに対応づける。
type Service struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{
		userRepo: userRepo,
		now:      time.Now,
	}
}

// GetCurrentUser はIdPのユーザー情報に対応するユーザーを返す。
// identityがnilの場合は未ログインとして(nil, nil)を返す。
// 未登録なら作成し、登録済みでIdPの表示名・アバターが変わっていれば更新する。
// 変更がない場合は書き込みを行わない。
func (s *Service) GetCurrentUser(ctx context.Context, identity *model.Identity) (*model.User, error) {
	if identity == nil {
		return nil, nil
	}

	existing, err := s.userRepo.FindByExternalID(ctx, identity.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return s.create(ctx, identity)
	}
	return s.sync(ctx, existing, identity)
}

// create はユーザーを作成する。同時リクエストで先に作成されていた場合は既存ユーザーを読み直す。
func (s *Service) create(ctx context.Context, identity *model.Identity) (*model.User, error) {
	now := s.now()
	u := &model.User{
		ID:         uuid.New().String(),
		ExternalID: identity.ExternalID,
		Email:      identity.Email,
		Name:       identity.Name,
		AvatarURL:  identity.AvatarURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.userRepo.Create(ctx, u)
	if errors.Is(err, repository.ErrConflict) {
		existing, err := s.userRepo.FindByExternalID(ctx, identity.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("ユーザーの再取得に失敗しました: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("ユーザーが競合後に見つかりません: %s", identity.ExternalID)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザーを作成しました",
		slog.String("user_id", u.ID),
		slog.String("external_id", u.ExternalID),
	)
	return u, nil
}

// sync はIdPが返した表示名・アバターが保存値と異なる場合のみ更新する。
// IdPが値を返さなかった項目は保存値を維持する。
func (s *Service) sync(ctx context.Context, existing *model.User, identity *model.Identity) (*model.User, error) {
	changed := false
	updated := *existing

	if identity.Name != nil && !equalPtr(existing.Name, identity.Name) {
		updated.Name = identity.Name
		changed = true
	}
	if identity.AvatarURL != nil && !equalPtr(existing.AvatarURL, identity.AvatarURL) {
		updated.AvatarURL = identity.AvatarURL
		changed = true
	}
	if !changed {
		return existing, nil
	}

	updated.UpdatedAt = s.now()
	if err := s.userRepo.UpdateProfile(ctx, &updated); err != nil {
		return nil, fmt.Errorf("ユーザー情報の更新に失敗しました: %w", err)
	}

	slog.Info("ユーザー情報を同期しました", slog.String("user_id", updated.ID))
	return &updated, nil
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

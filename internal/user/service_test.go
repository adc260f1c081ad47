package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/carmart/internal/model"
	"github.com/hitoshi/carmart/internal/repository"
)

// --- モック ---

// memoryUserRepo は書き込み回数を数えるインメモリのUserRepository。
type memoryUserRepo struct {
	byExternal map[string]*model.User

	createCalls int
	updateCalls int

	createFn func(ctx context.Context, user *model.User) error
	findErr  error
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{byExternal: map[string]*model.User{}}
}

func (m *memoryUserRepo) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.byExternal[externalID]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (m *memoryUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	for _, u := range m.byExternal {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryUserRepo) Create(ctx context.Context, user *model.User) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	if _, ok := m.byExternal[user.ExternalID]; ok {
		return repository.ErrConflict
	}
	c := *user
	m.byExternal[user.ExternalID] = &c
	return nil
}

func (m *memoryUserRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	m.updateCalls++
	c := *user
	m.byExternal[user.ExternalID] = &c
	return nil
}

func (m *memoryUserRepo) writes() int { return m.createCalls + m.updateCalls }

func strPtr(s string) *string { return &s }

// --- テスト ---

func TestGetCurrentUser_NilIdentity_ReturnsNil(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	u, err := svc.GetCurrentUser(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}
	if repo.writes() != 0 {
		t.Errorf("writes = %d, want 0", repo.writes())
	}
}

func TestGetCurrentUser_FirstSight_CreatesUser(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	u, err := svc.GetCurrentUser(context.Background(), &model.Identity{
		ExternalID: "ext-1",
		Name:       strPtr("Hanako"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || u.ID == "" {
		t.Fatalf("expected created user with ID, got %+v", u)
	}
	if u.Email != "" {
		t.Errorf("Email = %q, want empty string when provider omits it", u.Email)
	}
	if u.Name == nil || *u.Name != "Hanako" {
		t.Errorf("Name = %v, want Hanako", u.Name)
	}
	if u.AvatarURL != nil {
		t.Errorf("AvatarURL = %v, want nil", *u.AvatarURL)
	}
	if repo.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", repo.createCalls)
	}
}

// 同じIdentityで2回呼ぶと、書き込みは1回目の作成のみ。
func TestGetCurrentUser_RepeatedIdenticalIdentity_WritesOnce(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)
	identity := &model.Identity{
		ExternalID: "ext-1",
		Email:      "hanako@example.com",
		Name:       strPtr("Hanako"),
		AvatarURL:  strPtr("https://cdn.example.com/h.png"),
	}

	first, err := svc.GetCurrentUser(context.Background(), identity)
	if err != nil {
		t.Fatalf("first call error: %v", err)
	}
	if repo.writes() != 1 {
		t.Fatalf("writes after first call = %d, want 1", repo.writes())
	}

	second, err := svc.GetCurrentUser(context.Background(), identity)
	if err != nil {
		t.Fatalf("second call error: %v", err)
	}
	if repo.writes() != 1 {
		t.Errorf("writes after second call = %d, want 1", repo.writes())
	}
	if first.ID != second.ID {
		t.Errorf("user ID changed between calls: %s != %s", first.ID, second.ID)
	}
}

func TestGetCurrentUser_ChangedProfile_Syncs(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.GetCurrentUser(ctx, &model.Identity{ExternalID: "ext-1", Name: strPtr("Old"), AvatarURL: strPtr("https://a/old.png")}); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	u, err := svc.GetCurrentUser(ctx, &model.Identity{ExternalID: "ext-1", Name: strPtr("New")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.updateCalls != 1 {
		t.Errorf("updateCalls = %d, want 1", repo.updateCalls)
	}
	if u.Name == nil || *u.Name != "New" {
		t.Errorf("Name = %v, want New", u.Name)
	}
	// IdPがアバターを返さなかった場合は保存値を維持する
	if u.AvatarURL == nil || *u.AvatarURL != "https://a/old.png" {
		t.Errorf("AvatarURL = %v, want stored value kept", u.AvatarURL)
	}
}

func TestGetCurrentUser_AbsentProfileFields_NoWrite(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.GetCurrentUser(ctx, &model.Identity{ExternalID: "ext-1", Name: strPtr("Keep")}); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	u, err := svc.GetCurrentUser(ctx, &model.Identity{ExternalID: "ext-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.updateCalls != 0 {
		t.Errorf("updateCalls = %d, want 0", repo.updateCalls)
	}
	if u.Name == nil || *u.Name != "Keep" {
		t.Errorf("Name = %v, want Keep", u.Name)
	}
}

// 作成時に一意制約違反となった場合は既存ユーザーを読み直して返す。
func TestGetCurrentUser_CreateConflict_RereadsExisting(t *testing.T) {
	repo := newMemoryUserRepo()
	winner := &model.User{ID: "winner-id", ExternalID: "ext-1"}
	repo.createFn = func(ctx context.Context, user *model.User) error {
		repo.byExternal["ext-1"] = winner
		return repository.ErrConflict
	}
	svc := NewService(repo)

	u, err := svc.GetCurrentUser(context.Background(), &model.Identity{ExternalID: "ext-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "winner-id" {
		t.Errorf("ID = %q, want winner-id", u.ID)
	}
}

func TestGetCurrentUser_RepositoryError_Propagates(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.findErr = errors.New("db down")
	svc := NewService(repo)

	if _, err := svc.GetCurrentUser(context.Background(), &model.Identity{ExternalID: "ext-1"}); err == nil {
		t.Fatal("expected error")
	}
}

// Package listing は出品とお気に入りのドメインロジックを提供する。
package listing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/carmart/internal/metrics"
	"github.com/hitoshi/carmart/internal/model"
	"github.com/hitoshi/carmart/internal/repository"
	"github.com/hitoshi/carmart/internal/security"
)

const (
	// DefaultPageSize は一覧取得の既定件数。
	DefaultPageSize = 20
	// MaxPageSize は一覧取得の上限件数。
	MaxPageSize = 100

	minYear        = 1900
	maxTitleLength = 120
)

// CreateInput は出品作成の入力値。
type CreateInput struct {
	Title       string
	Description string
	Make        string
	Model       string
	Year        int
	MileageKm   int
	PriceYen    int64
}

// Page は出品一覧の1ページ分を表す。
// NextBefore が非nilの場合、NextBeforeIDと組で次ページ取得時のカーソルとして使う。
type Page struct {
	Listings     []*model.Listing
	NextBefore   *time.Time
	NextBeforeID string
}

// Service は出品のサービス層。
type Service struct {
	listingRepo repository.ListingRepository
	savedRepo   repository.SavedListingRepository
	sanitizer   security.TextSanitizer
	metrics     metrics.MetricsCollector
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorはnilでもよい。
func NewService(
	listingRepo repository.ListingRepository,
	savedRepo repository.SavedListingRepository,
	sanitizer security.TextSanitizer,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		listingRepo: listingRepo,
		savedRepo:   savedRepo,
		sanitizer:   sanitizer,
		metrics:     collector,
		now:         time.Now,
	}
}

// Create は出品を作成する。入力が不正な場合はINVALID_LISTINGエラーを返す。
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*model.Listing, error) {
	now := s.now()
	l := &model.Listing{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       s.sanitizer.Sanitize(in.Title),
		Description: s.sanitizer.Sanitize(in.Description),
		Make:        strings.TrimSpace(in.Make),
		Model:       strings.TrimSpace(in.Model),
		Year:        in.Year,
		MileageKm:   in.MileageKm,
		PriceYen:    in.PriceYen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validate(l, now); err != nil {
		return nil, err
	}

	if err := s.listingRepo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("出品の登録に失敗しました: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordListingCreated()
	}

	slog.Info("出品を作成しました",
		slog.String("listing_id", l.ID),
		slog.String("owner_id", l.OwnerID),
	)
	return l, nil
}

func validate(l *model.Listing, now time.Time) error {
	switch {
	case l.Title == "":
		return model.NewInvalidListingError("タイトルは必須です")
	case utf8.RuneCountInString(l.Title) > maxTitleLength:
		return model.NewInvalidListingError(fmt.Sprintf("タイトルは%d文字以内で入力してください", maxTitleLength))
	case l.Make == "":
		return model.NewInvalidListingError("メーカーは必須です")
	case l.Model == "":
		return model.NewInvalidListingError("車種は必須です")
	case l.Year < minYear || l.Year > now.Year()+1:
		return model.NewInvalidListingError(fmt.Sprintf("年式は%d年から%d年の範囲で入力してください", minYear, now.Year()+1))
	case l.PriceYen < 0:
		return model.NewInvalidListingError("価格は0以上で入力してください")
	case l.MileageKm < 0:
		return model.NewInvalidListingError("走行距離は0以上で入力してください")
	}
	return nil
}

// Get は指定IDの出品を返す。存在しない場合はLISTING_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Listing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewListingNotFoundError(id)
	}
	l, err := s.listingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("出品の取得に失敗しました: %w", err)
	}
	if l == nil {
		return nil, model.NewListingNotFoundError(id)
	}
	return l, nil
}

// Browse は出品を新しい順に返す。
// 1件多く取得して次ページの有無を判定する。
func (s *Service) Browse(ctx context.Context, filter model.ListingFilter) (*Page, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	filter.Make = strings.TrimSpace(filter.Make)
	filter.Limit = limit + 1

	listings, err := s.listingRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("出品一覧の取得に失敗しました: %w", err)
	}

	page := &Page{Listings: listings}
	if len(listings) > limit {
		page.Listings = listings[:limit]
		last := page.Listings[limit-1]
		next := last.CreatedAt
		page.NextBefore = &next
		page.NextBeforeID = last.ID
	}
	if page.Listings == nil {
		page.Listings = []*model.Listing{}
	}
	return page, nil
}

// Save は出品をお気に入りに追加する。追加済みの場合は何もしない。
func (s *Service) Save(ctx context.Context, userID, listingID string) error {
	if _, err := s.Get(ctx, listingID); err != nil {
		return err
	}
	if err := s.savedRepo.Save(ctx, userID, listingID); err != nil {
		return fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}
	return nil
}

// Unsave は出品をお気に入りから外す。未登録の場合は何もしない。
func (s *Service) Unsave(ctx context.Context, userID, listingID string) error {
	if _, err := uuid.Parse(listingID); err != nil {
		return nil
	}
	if err := s.savedRepo.Delete(ctx, userID, listingID); err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return nil
}

// IsSaved はお気に入り登録済みかを返す。未ログイン(userIDが空)の場合はfalse。
func (s *Service) IsSaved(ctx context.Context, userID, listingID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	saved, err := s.savedRepo.Exists(ctx, userID, listingID)
	if err != nil {
		return false, fmt.Errorf("お気に入り状態の取得に失敗しました: %w", err)
	}
	return saved, nil
}

// ListSaved はユーザーのお気に入り出品を返す。
func (s *Service) ListSaved(ctx context.Context, userID string) ([]*model.Listing, error) {
	listings, err := s.savedRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	if listings == nil {
		listings = []*model.Listing{}
	}
	return listings, nil
}

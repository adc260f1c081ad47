package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/carmart/internal/model"
)

// PostgresSavedListingRepo はPostgreSQLを使用したお気に入り出品リポジトリ。
type PostgresSavedListingRepo struct {
	db *sql.DB
}

// NewPostgresSavedListingRepo はPostgresSavedListingRepoを生成する。
func NewPostgresSavedListingRepo(db *sql.DB) *PostgresSavedListingRepo {
	return &PostgresSavedListingRepo{db: db}
}

// Save はお気に入りに追加する。既に追加済みの場合は何もしない。
func (r *PostgresSavedListingRepo) Save(ctx context.Context, userID, listingID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO saved_listings (user_id, listing_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, listing_id) DO NOTHING`,
		userID, listingID,
	)
	if err != nil {
		return fmt.Errorf("failed to save listing: %w", err)
	}
	return nil
}

// Delete はお気に入りから削除する。存在しない場合は何もしない。
func (r *PostgresSavedListingRepo) Delete(ctx context.Context, userID, listingID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_listings WHERE user_id = $1 AND listing_id = $2`,
		userID, listingID,
	)
	if err != nil {
		return fmt.Errorf("failed to unsave listing: %w", err)
	}
	return nil
}

// Exists はお気に入り登録済みかを返す。
func (r *PostgresSavedListingRepo) Exists(ctx context.Context, userID, listingID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM saved_listings WHERE user_id = $1 AND listing_id = $2)`,
		userID, listingID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check saved listing: %w", err)
	}
	return exists, nil
}

// ListByUser はユーザーのお気に入り出品を登録日時の降順で返す。
func (r *PostgresSavedListingRepo) ListByUser(ctx context.Context, userID string) ([]*model.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+`
		 FROM saved_listings s
		 JOIN listings l ON l.id = s.listing_id
		 WHERE s.user_id = $1
		 ORDER BY s.created_at DESC, l.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved listings: %w", err)
	}
	defer rows.Close()

	var listings []*model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saved listings: %w", err)
	}
	return listings, nil
}

// compile-time interface check
var _ SavedListingRepository = (*PostgresSavedListingRepo)(nil)

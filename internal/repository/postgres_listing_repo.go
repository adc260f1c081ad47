package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/carmart/internal/model"
)

// PostgresListingRepo はPostgreSQLを使用した出品リポジトリ。
type PostgresListingRepo struct {
	db *sql.DB
}

// NewPostgresListingRepo はPostgresListingRepoを生成する。
func NewPostgresListingRepo(db *sql.DB) *PostgresListingRepo {
	return &PostgresListingRepo{db: db}
}

const listingColumns = `l.id, l.owner_id, l.title, l.description, l.make, l.model, l.year, l.mileage_km, l.price_yen, l.created_at, l.updated_at`

func scanListing(row interface{ Scan(...any) error }) (*model.Listing, error) {
	l := &model.Listing{}
	err := row.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Make, &l.Model,
		&l.Year, &l.MileageKm, &l.PriceYen, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// FindByID は指定IDの出品を取得する。見つからない場合はnilを返す。
func (r *PostgresListingRepo) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings l WHERE l.id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("出品の取得に失敗しました: %w", err)
	}
	return l, nil
}

// Create は出品を作成する。
func (r *PostgresListingRepo) Create(ctx context.Context, l *model.Listing) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO listings (id, owner_id, title, description, make, model, year, mileage_km, price_yen, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		l.ID, l.OwnerID, l.Title, l.Description, l.Make, l.Model, l.Year, l.MileageKm, l.PriceYen, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("出品の作成に失敗しました: %w", err)
	}
	return nil
}

// List は条件に合う出品をcreated_at降順で返す。
// filter.Before, filter.BeforeIDが指定された場合は(created_at, id)のキーセットで
// カーソルより後ろの出品のみを返す。並び順と同じキーで絞り込むため同時刻の出品も欠けない。
func (r *PostgresListingRepo) List(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings l WHERE 1 = 1`
	args := []any{}
	argIndex := 1

	if filter.Make != "" {
		query += fmt.Sprintf(" AND lower(l.make) = lower($%d)", argIndex)
		args = append(args, filter.Make)
		argIndex++
	}
	if filter.MaxPriceYen != nil {
		query += fmt.Sprintf(" AND l.price_yen <= $%d", argIndex)
		args = append(args, *filter.MaxPriceYen)
		argIndex++
	}
	switch {
	case filter.Before != nil && filter.BeforeID != "":
		query += fmt.Sprintf(" AND (l.created_at, l.id) < ($%d, $%d::uuid)", argIndex, argIndex+1)
		args = append(args, *filter.Before, filter.BeforeID)
		argIndex += 2
	case filter.Before != nil:
		query += fmt.Sprintf(" AND l.created_at < $%d", argIndex)
		args = append(args, *filter.Before)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY l.created_at DESC, l.id DESC LIMIT $%d", argIndex)
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("出品一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var listings []*model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("出品行の読み取りに失敗しました: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("出品一覧の走査に失敗しました: %w", err)
	}
	return listings, nil
}

// compile-time interface check
var _ ListingRepository = (*PostgresListingRepo)(nil)

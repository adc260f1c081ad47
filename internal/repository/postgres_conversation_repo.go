package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/carmart/internal/model"
)

// lastMessagePreviewLength は会話一覧に表示する最新メッセージの最大文字数。
const lastMessagePreviewLength = 140

// PostgresConversationRepo はPostgreSQLを使用した会話リポジトリ。
type PostgresConversationRepo struct {
	db *sql.DB
}

// NewPostgresConversationRepo はPostgresConversationRepoを生成する。
func NewPostgresConversationRepo(db *sql.DB) *PostgresConversationRepo {
	return &PostgresConversationRepo{db: db}
}

func scanConversation(row interface{ Scan(...any) error }) (*model.Conversation, error) {
	c := &model.Conversation{}
	if err := row.Scan(&c.ID, &c.ListingID, &c.BuyerID, &c.SellerID, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// FindByID は指定IDの会話を取得する。見つからない場合はnilを返す。
func (r *PostgresConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx,
		`SELECT id, listing_id, buyer_id, seller_id, created_at FROM conversations WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}
	return c, nil
}

// FindByListingAndBuyer は(出品, 購入希望者)の組で会話を取得する。見つからない場合はnilを返す。
func (r *PostgresConversationRepo) FindByListingAndBuyer(ctx context.Context, listingID, buyerID string) (*model.Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx,
		`SELECT id, listing_id, buyer_id, seller_id, created_at
		 FROM conversations WHERE listing_id = $1 AND buyer_id = $2`,
		listingID, buyerID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}
	return c, nil
}

// Create は会話を作成する。(listing_id, buyer_id)が重複した場合はErrConflictを返す。
func (r *PostgresConversationRepo) Create(ctx context.Context, c *model.Conversation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, listing_id, buyer_id, seller_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.ListingID, c.BuyerID, c.SellerID, c.CreatedAt,
	)
	if err != nil {
		if err := translateError(err); errors.Is(err, ErrConflict) {
			return err
		}
		return fmt.Errorf("会話の作成に失敗しました: %w", err)
	}
	return nil
}

// ListSummariesForUser はuserIDが購入希望者または出品者である会話を
// 出品タイトル、相手方の表示名、最新メッセージ付きで1クエリで返す。
// 並び順は最新メッセージ日時（メッセージがなければ会話作成日時）の降順。
func (r *PostgresConversationRepo) ListSummariesForUser(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT
			c.id, c.listing_id, c.buyer_id, c.seller_id, c.created_at,
			l.title,
			COALESCE(NULLIF(o.name, ''), o.email),
			lm.content, lm.created_at
		 FROM conversations c
		 JOIN listings l ON l.id = c.listing_id
		 JOIN users o ON o.id = CASE WHEN c.buyer_id = $1 THEN c.seller_id ELSE c.buyer_id END
		 LEFT JOIN LATERAL (
		     SELECT LEFT(m.content, $2) AS content, m.created_at
		     FROM messages m
		     WHERE m.conversation_id = c.id
		     ORDER BY m.created_at DESC, m.id DESC
		     LIMIT 1
		 ) lm ON true
		 WHERE c.buyer_id = $1 OR c.seller_id = $1
		 ORDER BY COALESCE(lm.created_at, c.created_at) DESC, c.id DESC`,
		userID, lastMessagePreviewLength,
	)
	if err != nil {
		return nil, fmt.Errorf("会話一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []model.ConversationSummary
	for rows.Next() {
		var s model.ConversationSummary
		var lastContent sql.NullString
		var lastAt sql.NullTime
		if err := rows.Scan(
			&s.ID, &s.ListingID, &s.BuyerID, &s.SellerID, &s.CreatedAt,
			&s.ListingTitle, &s.OtherPartyName,
			&lastContent, &lastAt,
		); err != nil {
			return nil, fmt.Errorf("会話行の読み取りに失敗しました: %w", err)
		}
		if lastContent.Valid {
			s.LastMessage = &lastContent.String
		}
		if lastAt.Valid {
			s.LastMessageAt = &lastAt.Time
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("会話一覧の走査に失敗しました: %w", err)
	}
	return results, nil
}

// compile-time interface check
var _ ConversationRepository = (*PostgresConversationRepo)(nil)

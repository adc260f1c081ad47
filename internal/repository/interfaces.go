// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/carmart/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByExternalID は外部IdPのユーザーIDでユーザーを取得する。見つからない場合はnilを返す。
	FindByExternalID(ctx context.Context, externalID string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーを作成する。external_idが重複した場合はErrConflictを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile は表示名とアバターURLを更新する。
	UpdateProfile(ctx context.Context, user *model.User) error
}

// ListingRepository は出品データの永続化インターフェース。
type ListingRepository interface {
	// FindByID は指定IDの出品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Listing, error)

	// Create は出品を作成する。
	Create(ctx context.Context, listing *model.Listing) error

	// List は条件に合う出品をcreated_at降順で返す。
	List(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error)
}

// SavedListingRepository はお気に入り出品の永続化インターフェース。
type SavedListingRepository interface {
	// Save はお気に入りに追加する。既に追加済みの場合は何もしない。
	Save(ctx context.Context, userID, listingID string) error

	// Delete はお気に入りから削除する。存在しない場合は何もしない。
	Delete(ctx context.Context, userID, listingID string) error

	// Exists はお気に入り登録済みかを返す。
	Exists(ctx context.Context, userID, listingID string) (bool, error)

	// ListByUser はユーザーのお気に入り出品を登録日時の降順で返す。
	ListByUser(ctx context.Context, userID string) ([]*model.Listing, error)
}

// ConversationRepository は会話データの永続化インターフェース。
type ConversationRepository interface {
	// FindByID は指定IDの会話を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Conversation, error)

	// FindByListingAndBuyer は(出品, 購入希望者)の組で会話を取得する。見つからない場合はnilを返す。
	FindByListingAndBuyer(ctx context.Context, listingID, buyerID string) (*model.Conversation, error)

	// Create は会話を作成する。(listing_id, buyer_id)が重複した場合はErrConflictを返す。
	Create(ctx context.Context, conv *model.Conversation) error

	// ListSummariesForUser はuserIDが購入希望者または出品者である会話を
	// 最新メッセージ日時の降順で返す。メッセージのない会話は作成日時で並べる。
	ListSummariesForUser(ctx context.Context, userID string) ([]model.ConversationSummary, error)
}

// MessageRepository はメッセージデータの永続化インターフェース。
type MessageRepository interface {
	// Create はメッセージを1件追加する。
	Create(ctx context.Context, msg *model.Message) error

	// ListByConversation は会話内のメッセージを作成日時の昇順で返す。
	ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error)
}

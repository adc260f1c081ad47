package model

import "time"

// Conversation は出品1件に対する購入希望者と出品者のやり取りを表す。
// (ListingID, BuyerID) の組ごとに高々1件。
type Conversation struct {
	ID        string
	ListingID string
	BuyerID   string
	SellerID  string
	CreatedAt time.Time
}

// HasParticipant はuserIDが購入希望者または出品者であればtrueを返す。
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.BuyerID == userID || c.SellerID == userID)
}

// OtherParty はuserIDから見た相手方のユーザーIDを返す。
func (c *Conversation) OtherParty(userID string) string {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

// ConversationSummary は会話一覧の1行分を表す。
// 一覧描画に必要な情報を非正規化して保持する。
type ConversationSummary struct {
	Conversation
	ListingTitle   string
	OtherPartyName string
	LastMessage    *string
	LastMessageAt  *time.Time
}

// Message は会話内の1メッセージを表す。作成後は変更しない。
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	CreatedAt      time.Time
}

// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, listing, conversation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeListingNotFound        = "LISTING_NOT_FOUND"
	ErrCodeOwnerCannotContactSelf = "OWNER_CANNOT_CONTACT_SELF"
	ErrCodeEmptyContent           = "EMPTY_CONTENT"
	ErrCodeNotAParticipant        = "NOT_A_PARTICIPANT"
	ErrCodeConversationNotFound   = "CONVERSATION_NOT_FOUND"
	ErrCodeMessageTooLong         = "MESSAGE_TOO_LONG"
	ErrCodeInvalidListing         = "INVALID_LISTING"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeInvalidParameter       = "INVALID_PARAMETER"
)

// NewListingNotFoundError は出品未検出エラーを生成する。
func NewListingNotFoundError(listingID string) *APIError {
	return &APIError{
		Code:     ErrCodeListingNotFound,
		Message:  fmt.Sprintf("指定された出品が見つかりません: %s", listingID),
		Category: "listing",
		Action:   "出品一覧から車両を選び直してください。",
	}
}

// NewOwnerCannotContactSelfError は出品者が自身の出品に問い合わせようとした場合のエラーを生成する。
func NewOwnerCannotContactSelfError() *APIError {
	return &APIError{
		Code:     ErrCodeOwnerCannotContactSelf,
		Message:  "ご自身の出品には問い合わせできません。",
		Category: "conversation",
		Action:   "メッセージ一覧から購入希望者とのやり取りを確認してください。",
	}
}

// NewEmptyContentError は空メッセージ送信エラーを生成する。
func NewEmptyContentError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyContent,
		Message:  "メッセージが空です。",
		Category: "validation",
		Action:   "メッセージ本文を入力してください。",
	}
}

// NewMessageTooLongError はメッセージ長超過エラーを生成する。
func NewMessageTooLongError(max int) *APIError {
	return &APIError{
		Code:     ErrCodeMessageTooLong,
		Message:  fmt.Sprintf("メッセージが長すぎます（最大%d文字）。", max),
		Category: "validation",
		Action:   "メッセージを短くしてから再度送信してください。",
	}
}

// NewNotAParticipantError は会話の当事者でないユーザーによる操作のエラーを生成する。
func NewNotAParticipantError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAParticipant,
		Message:  "この会話に参加していません。",
		Category: "conversation",
		Action:   "メッセージ一覧から参加している会話を選んでください。",
	}
}

// NewConversationNotFoundError は会話未検出エラーを生成する。
func NewConversationNotFoundError(conversationID string) *APIError {
	return &APIError{
		Code:     ErrCodeConversationNotFound,
		Message:  fmt.Sprintf("指定された会話が見つかりません: %s", conversationID),
		Category: "conversation",
		Action:   "メッセージ一覧から会話を選び直してください。",
	}
}

// NewInvalidListingError は出品内容の検証エラーを生成する。
func NewInvalidListingError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidListing,
		Message:  fmt.Sprintf("出品内容が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidParameterError はリクエストパラメータの形式エラーを生成する。
func NewInvalidParameterError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidParameter,
		Message:  fmt.Sprintf("パラメータの形式が不正です: %s", name),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

package model

import "time"

// Listing は出品車両を表す。
type Listing struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Make        string
	Model       string
	Year        int
	MileageKm   int
	PriceYen    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListingFilter は出品一覧の絞り込み条件を表す。
// Before が非nilの場合、(created_at, id)の並びでカーソルより後ろの出品のみを返す。
// BeforeID が空の場合はBeforeの時刻より前に作成された出品のみを返す。
type ListingFilter struct {
	Make        string
	MaxPriceYen *int64
	Limit       int
	Before      *time.Time
	BeforeID    string
}

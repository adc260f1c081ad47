package handler

import (
	"context"
	"time"

	"github.com/hitoshi/carmart/internal/conversation"
	"github.com/hitoshi/carmart/internal/listing"
	"github.com/hitoshi/carmart/internal/model"
)

// --- レスポンス型 ---

type userResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Name        *string `json:"name"`
	AvatarURL   *string `json:"avatar_url"`
	DisplayName string  `json:"display_name"`
}

type listingResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	Year        int       `json:"year"`
	MileageKm   int       `json:"mileage_km"`
	PriceYen    int64     `json:"price_yen"`
	CreatedAt   time.Time `json:"created_at"`
}

type listingPageResponse struct {
	Listings     []listingResponse `json:"listings"`
	NextBefore   *time.Time        `json:"next_before,omitempty"`
	NextBeforeID string            `json:"next_before_id,omitempty"`
}

type conversationSummaryResponse struct {
	ID             string     `json:"id"`
	ListingID      string     `json:"listing_id"`
	ListingTitle   string     `json:"listing_title"`
	OtherPartyName string     `json:"other_party_name"`
	LastMessage    *string    `json:"last_message"`
	LastMessageAt  *time.Time `json:"last_message_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

type messageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type threadResponse struct {
	ID       string            `json:"id"`
	BuyerID  string            `json:"buyer_id"`
	SellerID string            `json:"seller_id"`
	Listing  *listingResponse  `json:"listing"`
	Messages []messageResponse `json:"messages"`
}

// ListingServiceAdapter は listing.Service を ListingServiceInterface に適合させるアダプタ。
type ListingServiceAdapter struct {
	svc *listing.Service
}

// NewListingServiceAdapter はListingServiceAdapterを生成する。
func NewListingServiceAdapter(svc *listing.Service) *ListingServiceAdapter {
	return &ListingServiceAdapter{svc: svc}
}

// Create は出品を作成しhandlerレスポンス型で返す。
func (a *ListingServiceAdapter) Create(ctx context.Context, ownerID string, req createListingRequest) (*listingResponse, error) {
	l, err := a.svc.Create(ctx, ownerID, listing.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		MileageKm:   req.MileageKm,
		PriceYen:    req.PriceYen,
	})
	if err != nil {
		return nil, err
	}
	resp := toListingResponse(l)
	return &resp, nil
}

// Get は出品詳細を返す。
func (a *ListingServiceAdapter) Get(ctx context.Context, id string) (*listingResponse, error) {
	l, err := a.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toListingResponse(l)
	return &resp, nil
}

// Browse は出品一覧の1ページ分を返す。
func (a *ListingServiceAdapter) Browse(ctx context.Context, filter model.ListingFilter) (*listingPageResponse, error) {
	page, err := a.svc.Browse(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &listingPageResponse{
		Listings:     toListingResponses(page.Listings),
		NextBefore:   page.NextBefore,
		NextBeforeID: page.NextBeforeID,
	}, nil
}

// Save は出品をお気に入りに追加する。
func (a *ListingServiceAdapter) Save(ctx context.Context, userID, listingID string) error {
	return a.svc.Save(ctx, userID, listingID)
}

// Unsave は出品をお気に入りから外す。
func (a *ListingServiceAdapter) Unsave(ctx context.Context, userID, listingID string) error {
	return a.svc.Unsave(ctx, userID, listingID)
}

// IsSaved はお気に入り登録済みかを返す。
func (a *ListingServiceAdapter) IsSaved(ctx context.Context, userID, listingID string) (bool, error) {
	return a.svc.IsSaved(ctx, userID, listingID)
}

// ListSaved はお気に入り出品の一覧を返す。
func (a *ListingServiceAdapter) ListSaved(ctx context.Context, userID string) ([]listingResponse, error) {
	listings, err := a.svc.ListSaved(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toListingResponses(listings), nil
}

// ConversationServiceAdapter は conversation.Service を ConversationServiceInterface に適合させるアダプタ。
type ConversationServiceAdapter struct {
	svc *conversation.Service
}

// NewConversationServiceAdapter はConversationServiceAdapterを生成する。
func NewConversationServiceAdapter(svc *conversation.Service) *ConversationServiceAdapter {
	return &ConversationServiceAdapter{svc: svc}
}

// GetOrCreate は出品に対する会話を取得または作成し、会話IDを返す。
func (a *ConversationServiceAdapter) GetOrCreate(ctx context.Context, listingID string, requester *model.User) (string, error) {
	conv, err := a.svc.GetOrCreate(ctx, listingID, requester)
	if err != nil {
		return "", err
	}
	return conv.ID, nil
}

// SendMessage はメッセージを送信しhandlerレスポンス型で返す。
func (a *ConversationServiceAdapter) SendMessage(ctx context.Context, conversationID, senderID, content string) (*messageResponse, error) {
	msg, err := a.svc.SendMessage(ctx, conversationID, senderID, content)
	if err != nil {
		return nil, err
	}
	resp := toMessageResponse(msg)
	return &resp, nil
}

// ListForUser は会話一覧を返す。
func (a *ConversationServiceAdapter) ListForUser(ctx context.Context, userID string) ([]conversationSummaryResponse, error) {
	summaries, err := a.svc.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	results := make([]conversationSummaryResponse, len(summaries))
	for i, s := range summaries {
		results[i] = conversationSummaryResponse{
			ID:             s.ID,
			ListingID:      s.ListingID,
			ListingTitle:   s.ListingTitle,
			OtherPartyName: s.OtherPartyName,
			LastMessage:    s.LastMessage,
			LastMessageAt:  s.LastMessageAt,
			CreatedAt:      s.CreatedAt,
		}
	}
	return results, nil
}

// GetThread は会話画面の情報を返す。
func (a *ConversationServiceAdapter) GetThread(ctx context.Context, conversationID, userID string) (*threadResponse, error) {
	thread, err := a.svc.GetThread(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	resp := &threadResponse{
		ID:       thread.Conversation.ID,
		BuyerID:  thread.Conversation.BuyerID,
		SellerID: thread.Conversation.SellerID,
		Messages: make([]messageResponse, len(thread.Messages)),
	}
	if thread.Listing != nil {
		l := toListingResponse(thread.Listing)
		resp.Listing = &l
	}
	for i, m := range thread.Messages {
		resp.Messages[i] = toMessageResponse(m)
	}
	return resp, nil
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		AvatarURL:   u.AvatarURL,
		DisplayName: u.DisplayName(),
	}
}

func toListingResponse(l *model.Listing) listingResponse {
	return listingResponse{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		Title:       l.Title,
		Description: l.Description,
		Make:        l.Make,
		Model:       l.Model,
		Year:        l.Year,
		MileageKm:   l.MileageKm,
		PriceYen:    l.PriceYen,
		CreatedAt:   l.CreatedAt,
	}
}

func toListingResponses(listings []*model.Listing) []listingResponse {
	results := make([]listingResponse, len(listings))
	for i, l := range listings {
		results[i] = toListingResponse(l)
	}
	return results
}

func toMessageResponse(m *model.Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

// --- compile-time interface checks ---

var _ ListingServiceInterface = (*ListingServiceAdapter)(nil)
var _ ConversationServiceInterface = (*ConversationServiceAdapter)(nil)

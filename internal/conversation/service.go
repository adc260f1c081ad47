// Package conversation は出品ごとの購入希望者と出品者の会話を扱うドメインロジックを提供する。
//
// 会話は(出品, 購入希望者)の組ごとに高々1件であり、この一意性は
// ストレージ層の一意制約で保証する。作成時の競合はErrConflictとして受け取り、
// 既存の会話を読み直して返す。
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/carmart/internal/metrics"
	"github.com/hitoshi/carmart/internal/model"
	"github.com/hitoshi/carmart/internal/repository"
)

// Thread は会話画面の表示に必要な情報をまとめたもの。
type Thread struct {
	Conversation *model.Conversation
	Listing      *model.Listing
	Messages     []*model.Message
}

// Service は会話のサービス層。
type Service struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	listingRepo repository.ListingRepository
	metrics     metrics.MetricsCollector
	maxLength   int
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// maxLengthはメッセージ本文の最大文字数（rune数）。collectorはnilでもよい。
func NewService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	listingRepo repository.ListingRepository,
	collector metrics.MetricsCollector,
	maxLength int,
) *Service {
	return &Service{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		listingRepo: listingRepo,
		metrics:     collector,
		maxLength:   maxLength,
		now:         time.Now,
	}
}

// GetOrCreate は出品に対するrequesterの会話を返す。なければ作成する。
// 出品が存在しない場合はLISTING_NOT_FOUND、requesterが出品者本人の場合は
// OWNER_CANNOT_CONTACT_SELFを返す。
func (s *Service) GetOrCreate(ctx context.Context, listingID string, requester *model.User) (*model.Conversation, error) {
	if requester == nil {
		return nil, model.NewUnauthorizedError()
	}
	if _, err := uuid.Parse(listingID); err != nil {
		return nil, model.NewListingNotFoundError(listingID)
	}

	listing, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("出品の取得に失敗しました: %w", err)
	}
	if listing == nil {
		return nil, model.NewListingNotFoundError(listingID)
	}
	if listing.OwnerID == requester.ID {
		return nil, model.NewOwnerCannotContactSelfError()
	}

	existing, err := s.convRepo.FindByListingAndBuyer(ctx, listingID, requester.ID)
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	conv := &model.Conversation{
		ID:        uuid.New().String(),
		ListingID: listingID,
		BuyerID:   requester.ID,
		SellerID:  listing.OwnerID,
		CreatedAt: s.now(),
	}
	err = s.convRepo.Create(ctx, conv)
	if errors.Is(err, repository.ErrConflict) {
		// 同時に作成された既存の会話を返す
		existing, err := s.convRepo.FindByListingAndBuyer(ctx, listingID, requester.ID)
		if err != nil {
			return nil, fmt.Errorf("会話の再取得に失敗しました: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("会話が競合後に見つかりません: listing=%s buyer=%s", listingID, requester.ID)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("会話の作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordConversationCreated()
	}
	slog.Info("会話を作成しました",
		slog.String("conversation_id", conv.ID),
		slog.String("listing_id", conv.ListingID),
		slog.String("buyer_id", conv.BuyerID),
	)
	return conv, nil
}

// SendMessage は会話にメッセージを追加する。
// 本文は前後の空白のみ取り除いてそのまま保存する。エスケープは表示側の責務。
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID, content string) (*model.Message, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, model.NewEmptyContentError()
	}
	if utf8.RuneCountInString(text) > s.maxLength {
		return nil, model.NewMessageTooLongError(s.maxLength)
	}

	conv, err := s.findConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, model.NewNotAParticipantError()
	}

	msg := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        text,
		CreatedAt:      s.now(),
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("メッセージの送信に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordMessageSent()
	}
	return msg, nil
}

// ListForUser はuserIDが購入希望者または出品者である会話の一覧を返す。
// 最新メッセージ日時の降順で並ぶ。
func (s *Service) ListForUser(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	summaries, err := s.convRepo.ListSummariesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("会話一覧の取得に失敗しました: %w", err)
	}
	if summaries == nil {
		summaries = []model.ConversationSummary{}
	}
	return summaries, nil
}

// GetThread は会話と出品、メッセージ（古い順）を返す。
// userIDが当事者でない場合はNOT_A_PARTICIPANTを返す。
func (s *Service) GetThread(ctx context.Context, conversationID, userID string) (*Thread, error) {
	conv, err := s.findConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, model.NewNotAParticipantError()
	}

	listing, err := s.listingRepo.FindByID(ctx, conv.ListingID)
	if err != nil {
		return nil, fmt.Errorf("出品の取得に失敗しました: %w", err)
	}
	messages, err := s.msgRepo.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("メッセージの取得に失敗しました: %w", err)
	}
	if messages == nil {
		messages = []*model.Message{}
	}

	return &Thread{
		Conversation: conv,
		Listing:      listing,
		Messages:     messages,
	}, nil
}

func (s *Service) findConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, model.NewConversationNotFoundError(conversationID)
	}
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}
	if conv == nil {
		return nil, model.NewConversationNotFoundError(conversationID)
	}
	return conv, nil
}

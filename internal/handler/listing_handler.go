package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/carmart/internal/middleware"
	"github.com/hitoshi/carmart/internal/model"
)

// ListingServiceInterface は出品ハンドラーが必要とするサービスインターフェース。
type ListingServiceInterface interface {
	Create(ctx context.Context, ownerID string, req createListingRequest) (*listingResponse, error)
	Get(ctx context.Context, id string) (*listingResponse, error)
	Browse(ctx context.Context, filter model.ListingFilter) (*listingPageResponse, error)
	Save(ctx context.Context, userID, listingID string) error
	Unsave(ctx context.Context, userID, listingID string) error
	IsSaved(ctx context.Context, userID, listingID string) (bool, error)
	ListSaved(ctx context.Context, userID string) ([]listingResponse, error)
}

// ListingHandler は出品とお気に入りのHTTPハンドラー。
type ListingHandler struct {
	service ListingServiceInterface
	users   CurrentUserResolver
}

// NewListingHandler はListingHandlerを生成する。
func NewListingHandler(service ListingServiceInterface, users CurrentUserResolver) *ListingHandler {
	return &ListingHandler{
		service: service,
		users:   users,
	}
}

// createListingRequest は出品作成リクエストのボディ。
type createListingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Year        int    `json:"year"`
	MileageKm   int    `json:"mileage_km"`
	PriceYen    int64  `json:"price_yen"`
}

type listingDetailResponse struct {
	Listing listingResponse `json:"listing"`
	Saved   bool            `json:"saved"`
}

// Browse は出品一覧ページを返す。
// GET /{locale}/listings?make=&max_price=&limit=&before=
func (h *ListingHandler) Browse(w http.ResponseWriter, r *http.Request) {
	filter, apiErr := parseListingFilter(r)
	if apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	user, ok := optionalUser(w, r, h.users)
	if !ok {
		return
	}

	page, err := h.service.Browse(r.Context(), filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writePage(w, r, user, page)
}

// Detail は出品詳細ページを返す。ログイン中はお気に入り状態を含む。
// GET /{locale}/listings/{id}
func (h *ListingHandler) Detail(w http.ResponseWriter, r *http.Request) {
	user, ok := optionalUser(w, r, h.users)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	l, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := listingDetailResponse{Listing: *l}
	if user != nil {
		resp.Saved, err = h.service.IsSaved(r.Context(), user.ID, id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
	}
	writePage(w, r, user, resp)
}

// Saved はお気に入り一覧ページを返す。
// GET /{locale}/saved
func (h *ListingHandler) Saved(w http.ResponseWriter, r *http.Request) {
	user, ok := requirePageUser(w, r, h.users)
	if !ok {
		return
	}

	listings, err := h.service.ListSaved(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writePage(w, r, user, listings)
}

// Create は出品を作成する。
// POST /api/listings
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := requireAPIUser(w, r, h.users)
	if !ok {
		return
	}

	var req createListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	l, err := h.service.Create(r.Context(), user.ID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// Save は出品をお気に入りに追加する。
// PUT /api/listings/{id}/save
func (h *ListingHandler) Save(w http.ResponseWriter, r *http.Request) {
	user, ok := requireAPIUser(w, r, h.users)
	if !ok {
		return
	}
	if err := h.service.Save(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unsave は出品をお気に入りから外す。
// DELETE /api/listings/{id}/save
func (h *ListingHandler) Unsave(w http.ResponseWriter, r *http.Request) {
	user, ok := requireAPIUser(w, r, h.users)
	if !ok {
		return
	}
	if err := h.service.Unsave(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseListingFilter はクエリパラメータから一覧の絞り込み条件を組み立てる。
func parseListingFilter(r *http.Request) (model.ListingFilter, *model.APIError) {
	q := r.URL.Query()
	filter := model.ListingFilter{Make: q.Get("make")}

	if v := q.Get("max_price"); v != "" {
		price, err := strconv.ParseInt(v, 10, 64)
		if err != nil || price < 0 {
			return filter, model.NewInvalidParameterError("max_price")
		}
		filter.MaxPriceYen = &price
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return filter, model.NewInvalidParameterError("limit")
		}
		filter.Limit = limit
	}
	if v := q.Get("before"); v != "" {
		before, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return filter, model.NewInvalidParameterError("before")
		}
		filter.Before = &before
	}
	if v := q.Get("before_id"); v != "" {
		if filter.Before == nil {
			return filter, model.NewInvalidParameterError("before_id")
		}
		if _, err := uuid.Parse(v); err != nil {
			return filter, model.NewInvalidParameterError("before_id")
		}
		filter.BeforeID = v
	}
	return filter, nil
}

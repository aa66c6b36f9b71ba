package http

import (
	"encoding/json"
	"net/http"

	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/Will-hxw/1688/internal/platform/metrics"
	"github.com/Will-hxw/1688/internal/service"
	"github.com/go-chi/chi/v5"
)

type ReviewHandler struct {
	reviews service.ReviewService
	log     logger.Logger
	metrics *metrics.Manager
}

func NewReviewHandler(reviews service.ReviewService, log logger.Logger, m *metrics.Manager) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, log: log, metrics: m}
}

type createReviewRequest struct {
	OrderID string `json:"order_id"`
	Rating  int    `json:"rating"`
	Content string `json:"content"`
}

type reviewResponse struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ListingID string `json:"listing_id"`
	BuyerID   string `json:"buyer_id"`
	SellerID  string `json:"seller_id"`
	Rating    int    `json:"rating"`
	Content   string `json:"content,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toReviewResponse(review *entity.Review) reviewResponse {
	return reviewResponse{
		ID:        review.ID,
		OrderID:   review.OrderID,
		ListingID: review.ListingID,
		BuyerID:   review.BuyerID,
		SellerID:  review.SellerID,
		Rating:    review.Rating,
		Content:   review.Content,
		Deleted:   review.Deleted,
		CreatedAt: review.CreatedAt.Format(timeFormat),
	}
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	review, err := h.reviews.Create(r.Context(), actor, req.OrderID, req.Rating, req.Content)
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusCreated, toReviewResponse(review))
}

func (h *ReviewHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	review, err := h.reviews.GetByID(r.Context(), chi.URLParam(r, "reviewID"))
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusOK, toReviewResponse(review))
}

type listReviewsResponse struct {
	Reviews    []reviewResponse `json:"reviews"`
	TotalCount int64            `json:"total_count"`
}

func (h *ReviewHandler) ListForListing(w http.ResponseWriter, r *http.Request) {
	result, err := h.reviews.ListForListing(r.Context(), chi.URLParam(r, "listingID"), queryInt(r, "page", 1), queryInt(r, "page_size", 20))
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	h.respondList(w, result.Reviews, result.TotalCount)
}

func (h *ReviewHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.reviews.ListForBuyer(r.Context(), actor, queryInt(r, "page", 1), queryInt(r, "page_size", 20))
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	h.respondList(w, result.Reviews, result.TotalCount)
}

// ListAll is the moderation view: every review, soft-deleted ones included.
func (h *ReviewHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	filter := entity.ReviewFilter{
		ListingID: r.URL.Query().Get("listing_id"),
		BuyerID:   r.URL.Query().Get("buyer_id"),
		Page:      queryInt(r, "page", 1),
		PageSize:  queryInt(r, "page_size", 20),
	}

	result, err := h.reviews.ListAll(r.Context(), actor, filter)
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	h.respondList(w, result.Reviews, result.TotalCount)
}

func (h *ReviewHandler) respondList(w http.ResponseWriter, reviews []entity.Review, total int64) {
	resp := listReviewsResponse{
		Reviews:    make([]reviewResponse, 0, len(reviews)),
		TotalCount: total,
	}
	for i := range reviews {
		resp.Reviews = append(resp.Reviews, toReviewResponse(&reviews[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.reviews.Delete(r.Context(), actor, chi.URLParam(r, "reviewID")); err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

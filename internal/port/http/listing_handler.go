package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/Will-hxw/1688/internal/platform/metrics"
	"github.com/Will-hxw/1688/internal/repository"
	"github.com/Will-hxw/1688/internal/service"
	"github.com/go-chi/chi/v5"
)

type ListingHandler struct {
	listings service.ListingService
	log      logger.Logger
	metrics  *metrics.Manager
}

func NewListingHandler(listings service.ListingService, log logger.Logger, m *metrics.Manager) *ListingHandler {
	return &ListingHandler{listings: listings, log: log, metrics: m}
}

type createListingRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	Price       float64 `json:"price"`
}

type listingResponse struct {
	ID          string               `json:"id"`
	SellerID    string               `json:"seller_id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Price       float64              `json:"price"`
	ImageURL    string               `json:"image_url,omitempty"`
	Status      entity.ListingStatus `json:"status"`
	CreatedAt   string               `json:"created_at"`
}

func toListingResponse(listing *entity.Listing) listingResponse {
	return listingResponse{
		ID:          listing.ID,
		SellerID:    listing.SellerID,
		Title:       listing.Title,
		Description: listing.Description,
		Price:       listing.Price,
		ImageURL:    listing.ImageURL,
		Status:      listing.Status,
		CreatedAt:   listing.CreatedAt.Format(timeFormat),
	}
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	listing, err := h.listings.Create(r.Context(), actor, service.CreateListingParams{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
	})
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusCreated, toListingResponse(listing))
}

func (h *ListingHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.GetByID(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusOK, toListingResponse(listing))
}

type searchListingsResponse struct {
	Listings   []listingResponse `json:"listings"`
	TotalCount int64             `json:"total_count"`
}

func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request) {
	result, err := h.listings.Search(r.Context(), listingFilterFromQuery(r))
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	h.respondList(w, result)
}

// AdminSearch is the moderation view: listings in any status, including
// REMOVED ones.
func (h *ListingHandler) AdminSearch(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.listings.AdminSearch(r.Context(), actor, listingFilterFromQuery(r))
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	h.respondList(w, result)
}

func listingFilterFromQuery(r *http.Request) entity.ListingFilter {
	query := r.URL.Query()
	filter := entity.ListingFilter{
		Query:    query.Get("q"),
		SellerID: query.Get("seller_id"),
		Status:   entity.ListingStatus(query.Get("status")),
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 20),
	}
	if minStr := query.Get("min_price"); minStr != "" {
		if v, err := strconv.ParseFloat(minStr, 64); err == nil {
			filter.MinPrice = v
		}
	}
	if maxStr := query.Get("max_price"); maxStr != "" {
		if v, err := strconv.ParseFloat(maxStr, 64); err == nil {
			filter.MaxPrice = v
		}
	}
	return filter
}

func (h *ListingHandler) respondList(w http.ResponseWriter, result *repository.ListListingsResult) {
	resp := searchListingsResponse{
		Listings:   make([]listingResponse, 0, len(result.Listings)),
		TotalCount: result.TotalCount,
	}
	for i := range result.Listings {
		resp.Listings = append(resp.Listings, toListingResponse(&result.Listings[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *ListingHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.listings.Remove(r.Context(), actor, chi.URLParam(r, "listingID")); err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

package http

import (
	"context"
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

type OrderHandler struct {
	purchase service.PurchaseService
	orders   service.OrderService
	log      logger.Logger
	metrics  *metrics.Manager
}

func NewOrderHandler(purchase service.PurchaseService, orders service.OrderService, log logger.Logger, m *metrics.Manager) *OrderHandler {
	return &OrderHandler{purchase: purchase, orders: orders, log: log, metrics: m}
}

type createOrderRequest struct {
	ListingID      string `json:"listing_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

type orderResponse struct {
	ID           string               `json:"id"`
	BuyerID      string               `json:"buyer_id"`
	SellerID     string               `json:"seller_id"`
	ListingID    string               `json:"listing_id"`
	Price        float64              `json:"price"`
	ProductTitle string               `json:"product_title"`
	ProductImage string               `json:"product_image,omitempty"`
	Status       entity.OrderStatus   `json:"status"`
	CanceledBy   entity.CanceledBy    `json:"canceled_by,omitempty"`
	CanceledAt   string               `json:"canceled_at,omitempty"`
	CreatedAt    string               `json:"created_at"`
	UpdatedAt    string               `json:"updated_at"`
	NextStatuses []entity.OrderStatus `json:"next_statuses,omitempty"`
}

func toOrderResponse(order *entity.Order, nextStatuses []entity.OrderStatus) orderResponse {
	resp := orderResponse{
		ID:           order.ID,
		BuyerID:      order.BuyerID,
		SellerID:     order.SellerID,
		ListingID:    order.ListingID,
		Price:        order.Price,
		ProductTitle: order.ProductTitle,
		ProductImage: order.ProductImage,
		Status:       order.Status,
		CanceledBy:   order.CanceledBy,
		CreatedAt:    order.CreatedAt.Format(timeFormat),
		UpdatedAt:    order.UpdatedAt.Format(timeFormat),
		NextStatuses: nextStatuses,
	}
	if order.CanceledAt != nil {
		resp.CanceledAt = order.CanceledAt.Format(timeFormat)
	}
	return resp
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Create places an order. The Idempotency-Key header takes precedence over the
// body field; retries with the same key return the same order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if headerKey := r.Header.Get("Idempotency-Key"); headerKey != "" {
		req.IdempotencyKey = headerKey
	}

	order, err := h.purchase.Purchase(r.Context(), actor, req.ListingID, req.IdempotencyKey)
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(order, order.LegalNextStatuses()))
}

func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	details, err := h.orders.GetByID(r.Context(), actor, chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(details.Order, details.NextStatuses))
}

func (h *OrderHandler) Ship(w http.ResponseWriter, r *http.Request) {
	h.doTransition(w, r, h.orders.Ship)
}

func (h *OrderHandler) Receive(w http.ResponseWriter, r *http.Request) {
	h.doTransition(w, r, h.orders.Receive)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.doTransition(w, r, h.orders.Cancel)
}

func (h *OrderHandler) doTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor entity.Actor, orderID string) (*entity.Order, error)) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	order, err := fn(r.Context(), actor, chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order, order.LegalNextStatuses()))
}

type forceStatusRequest struct {
	Status entity.OrderStatus `json:"status"`
}

func (h *OrderHandler) ForceStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req forceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.orders.ForceStatus(r.Context(), actor, chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order, order.LegalNextStatuses()))
}

type listOrdersResponse struct {
	Orders     []orderResponse `json:"orders"`
	TotalCount int64           `json:"total_count"`
}

func (h *OrderHandler) ListMineAsBuyer(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.orders.ListForBuyer)
}

func (h *OrderHandler) ListMineAsSeller(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.orders.ListForSeller)
}

func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.orders.ListAll)
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor entity.Actor, filter entity.OrderFilter) (*repository.ListOrdersResult, error)) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	filter := entity.OrderFilter{
		Status:   entity.OrderStatus(r.URL.Query().Get("status")),
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 20),
	}

	result, err := fn(r.Context(), actor, filter)
	if err != nil {
		respondError(w, r, err, h.log, h.metrics)
		return
	}

	resp := listOrdersResponse{
		Orders:     make([]orderResponse, 0, len(result.Orders)),
		TotalCount: result.TotalCount,
	}
	for i := range result.Orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&result.Orders[i], nil))
	}
	respondJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultValue
	}
	return val
}

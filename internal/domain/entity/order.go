package entity

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	StatusCreated  OrderStatus = "CREATED"
	StatusShipped  OrderStatus = "SHIPPED"
	StatusReceived OrderStatus = "RECEIVED"
	StatusReviewed OrderStatus = "REVIEWED"
	StatusCanceled OrderStatus = "CANCELED"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusCreated, StatusShipped, StatusReceived, StatusReviewed, StatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions exist from s.
func (s OrderStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// CanceledBy records which side canceled an order.
type CanceledBy string

const (
	CanceledByBuyer  CanceledBy = "BUYER"
	CanceledBySeller CanceledBy = "SELLER"
	CanceledByAdmin  CanceledBy = "ADMIN"
)

// validTransitions is the authoritative order state graph. Clients query
// LegalNextStatuses instead of keeping their own copy.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusCreated:  {StatusShipped, StatusCanceled},
	StatusShipped:  {StatusReceived, StatusCanceled},
	StatusReceived: {StatusReviewed},
	StatusReviewed: {},
	StatusCanceled: {},
}

// CanTransition reports whether from→to is an edge of the state graph.
// Actor restrictions are a separate concern (see service.ActorMayTransition);
// this is the graph alone, which even admin override cannot bypass.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is a single purchase transaction. Price, seller and the product
// snapshot fields are copied from the listing at creation time and never
// re-derived, so later listing edits cannot retroactively change an order.
type Order struct {
	ID        string  `bson:"_id"`
	BuyerID   string  `bson:"buyer_id"`
	SellerID  string  `bson:"seller_id"`
	ListingID string  `bson:"listing_id"`
	Price     float64 `bson:"price"`

	// Snapshot fields, denormalized to avoid cross-collection reads.
	ProductTitle string `bson:"product_title"`
	ProductImage string `bson:"product_image,omitempty"`

	Status         OrderStatus `bson:"status"`
	IdempotencyKey string      `bson:"idempotency_key"`

	CanceledBy CanceledBy `bson:"canceled_by,omitempty"`
	CanceledAt *time.Time `bson:"canceled_at,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewOrder builds a CREATED order from a buyer and the listing being purchased,
// snapshotting price and seller.
func NewOrder(buyerID, idempotencyKey string, listing *Listing) (*Order, error) {
	if buyerID == "" {
		return nil, errors.New("buyer ID cannot be empty")
	}
	if idempotencyKey == "" {
		return nil, errors.New("idempotency key cannot be empty")
	}
	if listing == nil {
		return nil, errors.New("listing cannot be nil")
	}
	now := time.Now().UTC()
	return &Order{
		BuyerID:        buyerID,
		SellerID:       listing.SellerID,
		ListingID:      listing.ID,
		Price:          listing.Price,
		ProductTitle:   listing.Title,
		ProductImage:   listing.ImageURL,
		Status:         StatusCreated,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// LegalNextStatuses returns the statuses reachable from the order's current
// status. The slice is a copy; callers may mutate it.
func (o *Order) LegalNextStatuses() []OrderStatus {
	next := validTransitions[o.Status]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// OrderFilter holds query parameters for listing orders.
type OrderFilter struct {
	BuyerID  string
	SellerID string
	Status   OrderStatus
	Page     int
	PageSize int
}

package entity

import (
	"errors"
	"time"
)

// Review is a buyer's review of a completed order. At most one review can ever
// exist per order; creation is gated on the order being in RECEIVED state and
// atomically advances the order to REVIEWED.
type Review struct {
	ID        string `bson:"_id"`
	OrderID   string `bson:"order_id"`
	ListingID string `bson:"listing_id"`
	BuyerID   string `bson:"buyer_id"`
	SellerID  string `bson:"seller_id"`

	Rating  int    `bson:"rating"`
	Content string `bson:"content,omitempty"`

	// Deleted marks an admin soft-delete; reviews are never hard-deleted so the
	// audit trail survives.
	Deleted   bool      `bson:"deleted"`
	CreatedAt time.Time `bson:"created_at"`
}

func NewReview(order *Order, rating int, content string) (*Review, error) {
	if order == nil {
		return nil, errors.New("order cannot be nil")
	}
	if rating < 1 || rating > 5 {
		return nil, errors.New("rating must be between 1 and 5")
	}
	return &Review{
		OrderID:   order.ID,
		ListingID: order.ListingID,
		BuyerID:   order.BuyerID,
		SellerID:  order.SellerID,
		Rating:    rating,
		Content:   content,
		Deleted:   false,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ReviewFilter holds query parameters for listing reviews.
type ReviewFilter struct {
	ListingID      string
	BuyerID        string
	IncludeDeleted bool
	Page           int
	PageSize       int
}

package entity

import (
	"errors"
	"strings"
	"time"
)

type ListingStatus string

const (
	ListingOnSale  ListingStatus = "ON_SALE"
	ListingSold    ListingStatus = "SOLD"
	ListingRemoved ListingStatus = "REMOVED"
)

func (s ListingStatus) IsValid() bool {
	switch s {
	case ListingOnSale, ListingSold, ListingRemoved:
		return true
	}
	return false
}

// Listing is a sellable item record. Its status field is the contended resource
// across concurrent purchase attempts; it is only flipped through the listing
// repository's atomic reserve/release operations.
type Listing struct {
	ID          string    `bson:"_id"`
	SellerID    string    `bson:"seller_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description,omitempty"`
	Price       float64   `bson:"price"`
	ImageURL    string    `bson:"image_url,omitempty"`

	Status    ListingStatus `bson:"status"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

func NewListing(sellerID, title, description, imageURL string, price float64) (*Listing, error) {
	if sellerID == "" {
		return nil, errors.New("seller ID cannot be empty")
	}
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("title cannot be empty")
	}
	if price < 0 {
		return nil, errors.New("price cannot be negative")
	}
	now := time.Now().UTC()
	return &Listing{
		SellerID:    sellerID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Price:       price,
		ImageURL:    imageURL,
		Status:      ListingOnSale,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ListingFilter holds search parameters for browsing listings.
type ListingFilter struct {
	Query    string
	MinPrice float64
	MaxPrice float64
	Status   ListingStatus
	SellerID string
	Page     int
	PageSize int
}

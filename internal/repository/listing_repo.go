package repository

import (
	"context"

	"github.com/Will-hxw/1688/internal/domain/entity"
)

type ListListingsResult struct {
	Listings   []entity.Listing
	TotalCount int64
}

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) error
	GetByID(ctx context.Context, listingID string) (*entity.Listing, error)
	// Reserve atomically flips ON_SALE→SOLD. Exactly one of any number of
	// concurrent reserves on the same listing succeeds; the rest get
	// ErrCASFailed. A missing listing yields ErrNotFound.
	Reserve(ctx context.Context, listingID string) error
	// Release atomically flips SOLD→ON_SALE (order cancellation). Releasing a
	// listing that is no longer SOLD (e.g. removed by an admin meanwhile) is a
	// no-op rather than an error.
	Release(ctx context.Context, listingID string) error
	// SoftRemove marks a listing REMOVED (admin moderation). Removed listings
	// cannot be reserved; existing orders are untouched.
	SoftRemove(ctx context.Context, listingID string) error
	Search(ctx context.Context, filter entity.ListingFilter) (*ListListingsResult, error)
}

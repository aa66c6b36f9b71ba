package service

import (
	"context"
	"testing"

	"github.com/Will-hxw/1688/internal/adapter/nats"
	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) listingService() ListingService {
	return NewListingService(f.listings, f.users, f.publisher, logger.NewNoOp())
}

func TestListingCreate(t *testing.T) {
	f := newFixture(t)
	svc := f.listingService()

	listing, err := svc.Create(context.Background(), f.seller, CreateListingParams{
		Title: "Bike", Price: 80,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ListingOnSale, listing.Status)
	assert.Equal(t, f.seller.ID, listing.SellerID)

	_, err = svc.Create(context.Background(), f.seller, CreateListingParams{Title: "", Price: 1})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.Create(context.Background(), f.disabled, CreateListingParams{Title: "X", Price: 1})
	assert.ErrorIs(t, err, entity.ErrUserDisabled)
}

func TestListingRemove_OwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	svc := f.listingService()

	err := svc.Remove(context.Background(), f.buyer, f.listing.ID)
	assert.ErrorIs(t, err, entity.ErrForbidden)

	require.NoError(t, svc.Remove(context.Background(), f.seller, f.listing.ID))

	listing, err := svc.GetByID(context.Background(), f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingRemoved, listing.Status)
	assert.Equal(t, 1, f.publisher.published(nats.SubjectListingRemoved))
}

func TestListingRemove_BlocksPurchase(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.listingService().Remove(context.Background(), f.admin, f.listing.ID))

	_, err := f.purchaseService().Purchase(context.Background(), f.buyer, f.listing.ID, "key-1")
	assert.ErrorIs(t, err, entity.ErrConflict)
}

func TestListingSearch_OnlyReturnsOnSale(t *testing.T) {
	f := newFixture(t)
	svc := f.listingService()

	sold, err := entity.NewListing(f.seller.ID, "Sold Chair", "", "", 5)
	require.NoError(t, err)
	sold.Status = entity.ListingSold
	require.NoError(t, f.listings.Create(context.Background(), sold))

	removed, err := entity.NewListing(f.seller.ID, "Removed Lamp", "", "", 9)
	require.NoError(t, err)
	removed.Status = entity.ListingRemoved
	require.NoError(t, f.listings.Create(context.Background(), removed))

	result, err := svc.Search(context.Background(), entity.ListingFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 1, result.TotalCount)
	assert.Equal(t, f.listing.ID, result.Listings[0].ID)

	// A caller-supplied status must not widen the public surface.
	result, err = svc.Search(context.Background(), entity.ListingFilter{Status: entity.ListingRemoved})
	require.NoError(t, err)
	require.EqualValues(t, 1, result.TotalCount)
	assert.Equal(t, f.listing.ID, result.Listings[0].ID)
}

func TestListingAdminSearch_SeesEveryStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.listingService()

	removed, err := entity.NewListing(f.seller.ID, "Removed Lamp", "", "", 9)
	require.NoError(t, err)
	removed.Status = entity.ListingRemoved
	require.NoError(t, f.listings.Create(context.Background(), removed))

	_, err = svc.AdminSearch(context.Background(), f.buyer, entity.ListingFilter{})
	assert.ErrorIs(t, err, entity.ErrForbidden)

	result, err := svc.AdminSearch(context.Background(), f.admin, entity.ListingFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.TotalCount)

	result, err = svc.AdminSearch(context.Background(), f.admin, entity.ListingFilter{Status: entity.ListingRemoved})
	require.NoError(t, err)
	require.EqualValues(t, 1, result.TotalCount)
	assert.Equal(t, removed.ID, result.Listings[0].ID)
}

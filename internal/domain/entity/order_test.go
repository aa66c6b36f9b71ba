package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{StatusCreated, StatusShipped}:   true,
		{StatusCreated, StatusCanceled}:  true,
		{StatusShipped, StatusReceived}:  true,
		{StatusShipped, StatusCanceled}:  true,
		{StatusReceived, StatusReviewed}: true,
	}

	all := []OrderStatus{StatusCreated, StatusShipped, StatusReceived, StatusReviewed, StatusCanceled}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]OrderStatus{from, to}], CanTransition(from, to),
				"%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusCreated.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
	assert.False(t, StatusReceived.IsTerminal())
	assert.True(t, StatusReviewed.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
}

func TestNewOrder_SnapshotsListing(t *testing.T) {
	listing, err := NewListing("seller-1", "Desk Lamp", "works fine", "http://img", 12.0)
	require.NoError(t, err)
	listing.ID = "listing-1"

	order, err := NewOrder("buyer-1", "key-1", listing)
	require.NoError(t, err)

	assert.Equal(t, StatusCreated, order.Status)
	assert.Equal(t, "buyer-1", order.BuyerID)
	assert.Equal(t, "seller-1", order.SellerID)
	assert.Equal(t, "listing-1", order.ListingID)
	assert.Equal(t, 12.0, order.Price)
	assert.Equal(t, "Desk Lamp", order.ProductTitle)
	assert.Equal(t, "http://img", order.ProductImage)

	// Snapshot fields must not track later listing edits.
	listing.Price = 99.0
	listing.Title = "changed"
	assert.Equal(t, 12.0, order.Price)
	assert.Equal(t, "Desk Lamp", order.ProductTitle)
}

func TestNewOrder_Validation(t *testing.T) {
	listing, err := NewListing("seller-1", "Desk Lamp", "", "", 12.0)
	require.NoError(t, err)

	_, err = NewOrder("", "key-1", listing)
	assert.Error(t, err)
	_, err = NewOrder("buyer-1", "", listing)
	assert.Error(t, err)
	_, err = NewOrder("buyer-1", "key-1", nil)
	assert.Error(t, err)
}

func TestLegalNextStatuses_ReturnsCopy(t *testing.T) {
	order := &Order{Status: StatusCreated}

	next := order.LegalNextStatuses()
	assert.ElementsMatch(t, []OrderStatus{StatusShipped, StatusCanceled}, next)

	next[0] = StatusReviewed
	assert.ElementsMatch(t, []OrderStatus{StatusShipped, StatusCanceled}, order.LegalNextStatuses())
}

func TestFailureKind_RoundTrip(t *testing.T) {
	assert.Equal(t, FailureConflict, KindOf(ErrConflict))
	assert.Equal(t, FailureNotFound, KindOf(ErrNotFound))
	assert.Equal(t, FailureNone, KindOf(ErrForbidden))
	assert.Equal(t, FailureNone, KindOf(nil))

	assert.ErrorIs(t, FailureConflict.Err(), ErrConflict)
	assert.ErrorIs(t, FailureNotFound.Err(), ErrNotFound)
	assert.NoError(t, FailureNone.Err())
}

package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Will-hxw/1688/internal/adapter/nats"
	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) orderService() OrderService {
	return NewOrderService(f.orders, f.listings, f.users, fakeTxnRunner{}, f.publisher, nil, logger.NewNoOp())
}

// placeOrder runs a purchase so transition tests start from a real CREATED
// order with the listing marked SOLD.
func (f *fixture) placeOrder(t *testing.T) *entity.Order {
	t.Helper()
	order, err := f.purchaseService().Purchase(context.Background(), f.buyer, f.listing.ID, "order-key")
	require.NoError(t, err)
	return order
}

func TestOrderShip_SellerOnly(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	_, err := svc.Ship(context.Background(), f.buyer, order.ID)
	assert.ErrorIs(t, err, entity.ErrForbidden)

	shipped, err := svc.Ship(context.Background(), f.seller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusShipped, shipped.Status)
	assert.Equal(t, 1, f.publisher.published(nats.SubjectOrderStatusUpdated))
}

func TestOrderReceive_BuyerOnly(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	_, err := svc.Ship(context.Background(), f.seller, order.ID)
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), f.seller, order.ID)
	assert.ErrorIs(t, err, entity.ErrForbidden)

	received, err := svc.Receive(context.Background(), f.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReceived, received.Status)
}

func TestOrderReceive_RequiresShipped(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	_, err := svc.Receive(context.Background(), f.buyer, order.ID)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestOrderCancel_ReleasesListing(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	canceled, err := svc.Cancel(context.Background(), f.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCanceled, canceled.Status)
	assert.Equal(t, entity.CanceledByBuyer, canceled.CanceledBy)
	require.NotNil(t, canceled.CanceledAt)

	listing, err := f.listings.GetByID(context.Background(), f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingOnSale, listing.Status)
}

func TestOrderCancel_SellerFromShipped(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	_, err := svc.Ship(context.Background(), f.seller, order.ID)
	require.NoError(t, err)

	canceled, err := svc.Cancel(context.Background(), f.seller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCanceled, canceled.Status)
	assert.Equal(t, entity.CanceledBySeller, canceled.CanceledBy)
}

func TestOrderCancel_StrangerForbidden(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	_, err := svc.Cancel(context.Background(), f.buyer2, order.ID)
	assert.ErrorIs(t, err, entity.ErrForbidden)
}

func TestOrderCancel_AfterReceivedRejected(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	_, err := svc.Ship(context.Background(), f.seller, order.ID)
	require.NoError(t, err)
	_, err = svc.Receive(context.Background(), f.buyer, order.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), f.buyer, order.ID)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	listing, errGet := f.listings.GetByID(context.Background(), f.listing.ID)
	require.NoError(t, errGet)
	assert.Equal(t, entity.ListingSold, listing.Status)
}

func TestOrderConcurrentCancels_ExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Cancel(context.Background(), f.buyer, order.ID)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, entity.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, successes)

	final, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCanceled, final.Status)

	listing, err := f.listings.GetByID(context.Background(), f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingOnSale, listing.Status)
}

func TestOrderCancelVsShip_SerializesCleanly(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	var wg sync.WaitGroup
	var shipErr, cancelErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, shipErr = svc.Ship(context.Background(), f.seller, order.ID)
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = svc.Cancel(context.Background(), f.buyer, order.ID)
	}()
	wg.Wait()

	// The race admits three serializations: ship wins (cancel saw SHIPPED too
	// late or lost the CAS and may still cancel from SHIPPED), cancel wins
	// (ship loses against CANCELED), or ship lands first and cancel follows
	// legally from SHIPPED. What can never happen is a transition landing out
	// of CANCELED, or both failing.
	for _, err := range []error{shipErr, cancelErr} {
		if err != nil {
			assert.ErrorIs(t, err, entity.ErrInvalidTransition)
		}
	}
	require.False(t, shipErr != nil && cancelErr != nil, "at least one transition must land")

	final, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	if cancelErr == nil {
		assert.Equal(t, entity.StatusCanceled, final.Status)
	} else {
		assert.Equal(t, entity.StatusShipped, final.Status)
	}
}

func TestOrderForceStatus_AdminOnly(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	_, err := svc.ForceStatus(context.Background(), f.buyer, order.ID, entity.StatusShipped)
	assert.ErrorIs(t, err, entity.ErrForbidden)

	forced, err := svc.ForceStatus(context.Background(), f.admin, order.ID, entity.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusShipped, forced.Status)
}

func TestOrderForceStatus_GraphStillBinds(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	// CREATED -> RECEIVED is not an edge, even for admins.
	_, err := svc.ForceStatus(context.Background(), f.admin, order.ID, entity.StatusReceived)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestOrderForceStatus_ReviewedUnreachable(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	_, err := svc.ForceStatus(context.Background(), f.admin, order.ID, entity.StatusReviewed)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestOrderForceStatus_AdminCancelAttribution(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	canceled, err := svc.ForceStatus(context.Background(), f.admin, order.ID, entity.StatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, entity.CanceledByAdmin, canceled.CanceledBy)

	listing, errGet := f.listings.GetByID(context.Background(), f.listing.ID)
	require.NoError(t, errGet)
	assert.Equal(t, entity.ListingOnSale, listing.Status)
}

func TestOrderGetByID_Authorization(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	for _, actor := range []entity.Actor{f.buyer, f.seller, f.admin} {
		details, err := svc.GetByID(context.Background(), actor, order.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []entity.OrderStatus{entity.StatusShipped, entity.StatusCanceled}, details.NextStatuses)
	}

	_, err := svc.GetByID(context.Background(), f.buyer2, order.ID)
	assert.ErrorIs(t, err, entity.ErrForbidden)
}

func TestOrderLists_ScopedToActor(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	f.placeOrder(t)

	buyerOrders, err := svc.ListForBuyer(context.Background(), f.buyer, entity.OrderFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, buyerOrders.TotalCount)

	otherOrders, err := svc.ListForBuyer(context.Background(), f.buyer2, entity.OrderFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, otherOrders.TotalCount)

	sellerOrders, err := svc.ListForSeller(context.Background(), f.seller, entity.OrderFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, sellerOrders.TotalCount)

	_, err = svc.ListAll(context.Background(), f.buyer, entity.OrderFilter{})
	assert.ErrorIs(t, err, entity.ErrForbidden)

	all, err := svc.ListAll(context.Background(), f.admin, entity.OrderFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, all.TotalCount)
}

func TestOrderTransition_DisabledActorRejected(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	order := f.placeOrder(t)

	require.NoError(t, f.users.SetActive(context.Background(), f.seller.ID, false))

	_, err := svc.Ship(context.Background(), f.seller, order.ID)
	assert.ErrorIs(t, err, entity.ErrUserDisabled)
}

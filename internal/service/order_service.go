package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Will-hxw/1688/internal/adapter/nats"
	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/Will-hxw/1688/internal/platform/metrics"
	"github.com/Will-hxw/1688/internal/repository"
)

// OrderDetails pairs an order with the transitions legal from its current
// status, so clients render only the actions that can still succeed.
type OrderDetails struct {
	Order        *entity.Order
	NextStatuses []entity.OrderStatus
}

// OrderService walks orders through the state graph. Every transition is a
// conditional update on the current status, so two racing actors resolve to
// exactly one winner; the loser gets ErrInvalidTransition.
type OrderService interface {
	GetByID(ctx context.Context, actor entity.Actor, orderID string) (*OrderDetails, error)
	// Ship marks CREATED->SHIPPED. Seller only.
	Ship(ctx context.Context, actor entity.Actor, orderID string) (*entity.Order, error)
	// Receive marks SHIPPED->RECEIVED. Buyer only.
	Receive(ctx context.Context, actor entity.Actor, orderID string) (*entity.Order, error)
	// Cancel marks CREATED/SHIPPED->CANCELED and puts the listing back on sale.
	// Buyer or seller; admins cancel any order.
	Cancel(ctx context.Context, actor entity.Actor, orderID string) (*entity.Order, error)
	// ForceStatus is the admin override: any actor restriction is bypassed but
	// the state graph is not, and REVIEWED can never be forced.
	ForceStatus(ctx context.Context, actor entity.Actor, orderID string, to entity.OrderStatus) (*entity.Order, error)
	ListForBuyer(ctx context.Context, actor entity.Actor, filter entity.OrderFilter) (*repository.ListOrdersResult, error)
	ListForSeller(ctx context.Context, actor entity.Actor, filter entity.OrderFilter) (*repository.ListOrdersResult, error)
	ListAll(ctx context.Context, actor entity.Actor, filter entity.OrderFilter) (*repository.ListOrdersResult, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	txn         repository.TxnRunner
	publisher   nats.MessagePublisher
	metrics     *metrics.Manager
	log         logger.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	txn repository.TxnRunner,
	publisher nats.MessagePublisher,
	m *metrics.Manager,
	log logger.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		listingRepo: listingRepo,
		userRepo:    userRepo,
		txn:         txn,
		publisher:   publisher,
		metrics:     m,
		log:         log,
	}
}

func (s *orderService) GetByID(ctx context.Context, actor entity.Actor, orderID string) (*OrderDetails, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != order.BuyerID && actor.ID != order.SellerID {
		return nil, entity.ErrForbidden
	}
	return &OrderDetails{
		Order:        order,
		NextStatuses: order.LegalNextStatuses(),
	}, nil
}

func (s *orderService) Ship(ctx context.Context, actor entity.Actor, orderID string) (*entity.Order, error) {
	return s.transition(ctx, actor, orderID, entity.StatusShipped, false)
}

func (s *orderService) Receive(ctx context.Context, actor entity.Actor, orderID string) (*entity.Order, error) {
	return s.transition(ctx, actor, orderID, entity.StatusReceived, false)
}

func (s *orderService) Cancel(ctx context.Context, actor entity.Actor, orderID string) (*entity.Order, error) {
	return s.transition(ctx, actor, orderID, entity.StatusCanceled, actor.IsAdmin())
}

func (s *orderService) ForceStatus(ctx context.Context, actor entity.Actor, orderID string, to entity.OrderStatus) (*entity.Order, error) {
	if !actor.IsAdmin() {
		return nil, entity.ErrForbidden
	}
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", entity.ErrInvalidInput, to)
	}
	if to == entity.StatusReviewed {
		return nil, fmt.Errorf("%w: REVIEWED is only reachable through review creation", entity.ErrInvalidTransition)
	}
	return s.transition(ctx, actor, orderID, to, true)
}

// transition performs one authorized, atomic step of the state graph. override
// skips the actor policy and the active-account check (admin paths); the graph
// itself is enforced unconditionally.
func (s *orderService) transition(ctx context.Context, actor entity.Actor, orderID string, to entity.OrderStatus, override bool) (*entity.Order, error) {
	if !override {
		if err := requireActiveUser(ctx, s.userRepo, actor); err != nil {
			return nil, err
		}
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status

	if !entity.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", entity.ErrInvalidTransition, from, to)
	}
	if !override && !ActorMayTransition(actor, order, to) {
		return nil, entity.ErrForbidden
	}

	params := repository.TransitionParams{
		OrderID: orderID,
		From:    from,
		To:      to,
	}
	if to == entity.StatusCanceled {
		now := time.Now().UTC()
		params.CanceledBy = cancelAttribution(actor, order)
		params.CanceledAt = &now
	}

	if to == entity.StatusCanceled {
		// Cancellation returns the listing to sale in the same transaction, so a
		// crash between the two writes cannot strand a SOLD listing.
		err = s.txn.WithinTxn(ctx, func(txCtx context.Context) error {
			if errTr := s.orderRepo.TransitionStatus(txCtx, params); errTr != nil {
				return errTr
			}
			return s.listingRepo.Release(txCtx, order.ListingID)
		})
	} else {
		err = s.orderRepo.TransitionStatus(ctx, params)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCASFailed):
			return nil, fmt.Errorf("%w: order already left %s", entity.ErrInvalidTransition, from)
		case errors.Is(err, repository.ErrNotFound):
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("failed to transition order %s: %w", orderID, err)
	}

	updated, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrderTransitionsTotal.WithLabelValues(string(to)).Inc()
	}
	s.publishStatusUpdated(ctx, updated, from, actor)

	return updated, nil
}

func (s *orderService) publishStatusUpdated(ctx context.Context, order *entity.Order, from entity.OrderStatus, actor entity.Actor) {
	if s.publisher == nil {
		return
	}
	event := map[string]interface{}{
		"order_id":    order.ID,
		"from_status": from,
		"to_status":   order.Status,
		"actor_id":    actor.ID,
		"updated_at":  order.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, nats.SubjectOrderStatusUpdated, event); err != nil {
		s.log.Warnf("failed to publish %s for order %s: %v", nats.SubjectOrderStatusUpdated, order.ID, err)
	}
}

func (s *orderService) ListForBuyer(ctx context.Context, actor entity.Actor, filter entity.OrderFilter) (*repository.ListOrdersResult, error) {
	filter.BuyerID = actor.ID
	filter.SellerID = ""
	return s.orderRepo.List(ctx, filter)
}

func (s *orderService) ListForSeller(ctx context.Context, actor entity.Actor, filter entity.OrderFilter) (*repository.ListOrdersResult, error) {
	filter.SellerID = actor.ID
	filter.BuyerID = ""
	return s.orderRepo.List(ctx, filter)
}

func (s *orderService) ListAll(ctx context.Context, actor entity.Actor, filter entity.OrderFilter) (*repository.ListOrdersResult, error) {
	if !actor.IsAdmin() {
		return nil, entity.ErrForbidden
	}
	return s.orderRepo.List(ctx, filter)
}

func (s *orderService) loadOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	return order, nil
}

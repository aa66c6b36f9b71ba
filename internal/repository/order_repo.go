package repository

import (
	"context"
	"time"

	"github.com/Will-hxw/1688/internal/domain/entity"
)

// TransitionParams describes an atomic status flip. The update only matches a
// document whose current status equals From; a zero match is reported as
// ErrCASFailed (or ErrNotFound if the order does not exist at all).
type TransitionParams struct {
	OrderID    string
	From       entity.OrderStatus
	To         entity.OrderStatus
	CanceledBy entity.CanceledBy // set only when To is CANCELED
	CanceledAt *time.Time        // set only when To is CANCELED
}

type ListOrdersResult struct {
	Orders     []entity.Order
	TotalCount int64
}

type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, orderID string) (*entity.Order, error)
	// GetByIdempotencyKey is the DB-side idempotency backstop.
	GetByIdempotencyKey(ctx context.Context, buyerID, key string) (*entity.Order, error)
	// TransitionStatus performs the check-and-set described by params.
	TransitionStatus(ctx context.Context, params TransitionParams) error
	List(ctx context.Context, filter entity.OrderFilter) (*ListOrdersResult, error)
}

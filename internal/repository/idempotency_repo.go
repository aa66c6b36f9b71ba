package repository

import (
	"context"
	"time"

	"github.com/Will-hxw/1688/internal/domain/entity"
)

// FinalizeParams writes the durable outcome of a purchase attempt. Exactly one
// of OrderID / FailureKind is meaningful depending on State.
type FinalizeParams struct {
	BuyerID     string
	Key         string
	State       entity.IdemState
	OrderID     string
	FailureKind entity.FailureKind
	ExpiresAt   time.Time
}

// IdempotencyRepository is the durable ledger behind request deduplication.
// The placeholder insert under a uniqueness constraint is the concurrency
// primitive: whoever inserts it owns the attempt.
type IdempotencyRepository interface {
	// InsertPending claims the key. ErrAlreadyExists means another caller
	// (current or past) holds it.
	InsertPending(ctx context.Context, buyerID, key string, leaseUntil time.Time) error
	Get(ctx context.Context, buyerID, key string) (*entity.IdempotencyRecord, error)
	// TakeoverLease re-claims a PENDING record whose lease lapsed (crashed
	// attempt). ErrCASFailed means someone else finalized or re-claimed first.
	TakeoverLease(ctx context.Context, buyerID, key string, leaseUntil time.Time) error
	Finalize(ctx context.Context, params FinalizeParams) error
	// DeletePending drops an unfinalized placeholder after a transient storage
	// failure, so a retry with the same key can run afresh. It never touches a
	// finalized record.
	DeletePending(ctx context.Context, buyerID, key string) error
}

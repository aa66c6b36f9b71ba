package entity

import (
	"errors"
	"time"
)

// IdemState is the lifecycle of an idempotency record.
type IdemState string

const (
	IdemPending   IdemState = "PENDING"
	IdemSucceeded IdemState = "SUCCEEDED"
	IdemFailed    IdemState = "FAILED"
)

// FailureKind classifies a cached purchase failure so replays surface the same
// error the first attempt did.
type FailureKind string

const (
	FailureNone     FailureKind = ""
	FailureConflict FailureKind = "CONFLICT"
	FailureNotFound FailureKind = "NOT_FOUND"
)

// Err maps a cached failure kind back to its sentinel error.
func (k FailureKind) Err() error {
	switch k {
	case FailureConflict:
		return ErrConflict
	case FailureNotFound:
		return ErrNotFound
	}
	return nil
}

// KindOf classifies an error into a cacheable failure kind. Errors outside the
// domain taxonomy (storage faults etc.) return FailureNone and must not be
// cached against the key.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrConflict):
		return FailureConflict
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	}
	return FailureNone
}

// IdempotencyRecord maps a (buyer, key) pair to the outcome of a purchase
// attempt, forever. A PENDING record with an expired lease belongs to a crashed
// attempt and may be taken over; a finalized record is immutable.
//
// ExpiresAt is set only at finalization, so a TTL purge can never remove a
// record whose outcome is still being awaited.
type IdempotencyRecord struct {
	BuyerID     string      `bson:"buyer_id"`
	Key         string      `bson:"key"`
	State       IdemState   `bson:"state"`
	OrderID     string      `bson:"order_id,omitempty"`
	FailureKind FailureKind `bson:"failure_kind,omitempty"`
	LeaseUntil  time.Time   `bson:"lease_until"`
	CreatedAt   time.Time   `bson:"created_at"`
	ExpiresAt   *time.Time  `bson:"expires_at,omitempty"`
}

// Finalized reports whether the record carries a durable outcome.
func (r *IdempotencyRecord) Finalized() bool {
	return r.State == IdemSucceeded || r.State == IdemFailed
}

// LeaseExpired reports whether an in-flight attempt's lease has lapsed.
func (r *IdempotencyRecord) LeaseExpired(now time.Time) bool {
	return r.State == IdemPending && now.After(r.LeaseUntil)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Will-hxw/1688/internal/adapter/nats"
	"github.com/Will-hxw/1688/internal/adapter/redis"
	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/Will-hxw/1688/internal/platform/metrics"
	"github.com/Will-hxw/1688/internal/repository"
)

const ledgerPollInterval = 100 * time.Millisecond

// PurchaseService turns a buyer's (listingID, idempotencyKey) request into
// exactly one order, no matter how many times or how concurrently it is
// retried. The durable ledger arbitrates ownership of an attempt; the listing
// reservation and the order insert happen in one transaction.
type PurchaseService interface {
	Purchase(ctx context.Context, actor entity.Actor, listingID, idempotencyKey string) (*entity.Order, error)
}

type purchaseService struct {
	orderRepo   repository.OrderRepository
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	idemRepo    repository.IdempotencyRepository
	txn         repository.TxnRunner
	cache       redis.IdempotencyCache
	publisher   nats.MessagePublisher
	metrics     *metrics.Manager
	log         logger.Logger

	lease     time.Duration
	retention time.Duration
}

func NewPurchaseService(
	orderRepo repository.OrderRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	idemRepo repository.IdempotencyRepository,
	txn repository.TxnRunner,
	cache redis.IdempotencyCache,
	publisher nats.MessagePublisher,
	m *metrics.Manager,
	log logger.Logger,
	lease, retention time.Duration,
) PurchaseService {
	return &purchaseService{
		orderRepo:   orderRepo,
		listingRepo: listingRepo,
		userRepo:    userRepo,
		idemRepo:    idemRepo,
		txn:         txn,
		cache:       cache,
		publisher:   publisher,
		metrics:     m,
		log:         log,
		lease:       lease,
		retention:   retention,
	}
}

func (s *purchaseService) Purchase(ctx context.Context, actor entity.Actor, listingID, idempotencyKey string) (*entity.Order, error) {
	if listingID == "" || idempotencyKey == "" {
		return nil, fmt.Errorf("%w: listing ID and idempotency key are required", entity.ErrInvalidInput)
	}

	if err := requireActiveUser(ctx, s.userRepo, actor); err != nil {
		return nil, err
	}

	// Fast path: a finalized success may already be cached.
	if s.cache != nil {
		if orderID, err := s.cache.GetOrderID(ctx, actor.ID, idempotencyKey); err == nil {
			order, errGet := s.orderRepo.GetByID(ctx, orderID)
			if errGet == nil {
				s.markReplay()
				return order, nil
			}
			s.log.Warnf("cached order %s for key %s not readable, falling through to ledger: %v", orderID, idempotencyKey, errGet)
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.Warnf("idempotency cache unavailable, falling through to ledger: %v", err)
		}
	}

	for {
		record, err := s.idemRepo.Get(ctx, actor.ID, idempotencyKey)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			leaseUntil := time.Now().UTC().Add(s.lease)
			errIns := s.idemRepo.InsertPending(ctx, actor.ID, idempotencyKey, leaseUntil)
			if errIns == nil {
				return s.runAttempt(ctx, actor, listingID, idempotencyKey)
			}
			if errors.Is(errIns, repository.ErrAlreadyExists) {
				continue // lost the insert race, re-read the record
			}
			return nil, fmt.Errorf("failed to claim idempotency key: %w", errIns)

		case err != nil:
			return nil, fmt.Errorf("failed to read idempotency ledger: %w", err)

		case record.Finalized():
			return s.replayOutcome(ctx, actor, idempotencyKey, record)

		case record.LeaseExpired(time.Now().UTC()):
			leaseUntil := time.Now().UTC().Add(s.lease)
			errTake := s.idemRepo.TakeoverLease(ctx, actor.ID, idempotencyKey, leaseUntil)
			if errTake == nil {
				s.log.Warnf("took over expired purchase attempt for buyer %s key %s", actor.ID, idempotencyKey)
				return s.runAttempt(ctx, actor, listingID, idempotencyKey)
			}
			if errors.Is(errTake, repository.ErrCASFailed) {
				continue // someone else finalized or re-claimed first
			}
			return nil, fmt.Errorf("failed to take over idempotency lease: %w", errTake)

		default:
			// Another in-flight attempt owns the key. Wait for its outcome.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(ledgerPollInterval):
			}
		}
	}
}

// replayOutcome serves a finalized record: the winning order for a success, the
// identical domain error for a cached failure.
func (s *purchaseService) replayOutcome(ctx context.Context, actor entity.Actor, key string, record *entity.IdempotencyRecord) (*entity.Order, error) {
	if record.State == entity.IdemFailed {
		if err := record.FailureKind.Err(); err != nil {
			return nil, err
		}
		return nil, entity.ErrConflict
	}

	order, err := s.orderRepo.GetByID(ctx, record.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s recorded for key %s: %w", record.OrderID, key, err)
	}
	s.cacheOutcome(ctx, actor.ID, key, order.ID)
	s.markReplay()
	return order, nil
}

// runAttempt executes the purchase this caller now owns: reserve the listing
// and insert the order in one transaction, then record the outcome in the
// ledger.
func (s *purchaseService) runAttempt(ctx context.Context, actor entity.Actor, listingID, key string) (*entity.Order, error) {
	var order *entity.Order

	errTxn := s.txn.WithinTxn(ctx, func(txCtx context.Context) error {
		listing, err := s.listingRepo.GetByID(txCtx, listingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: listing %s", entity.ErrNotFound, listingID)
			}
			return err
		}
		if listing.SellerID == actor.ID {
			return fmt.Errorf("%w: cannot purchase own listing", entity.ErrConflict)
		}
		if listing.Status != entity.ListingOnSale {
			return fmt.Errorf("%w: listing is not on sale", entity.ErrConflict)
		}

		if err := s.listingRepo.Reserve(txCtx, listingID); err != nil {
			switch {
			case errors.Is(err, repository.ErrCASFailed):
				return fmt.Errorf("%w: listing was just sold", entity.ErrConflict)
			case errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("%w: listing %s", entity.ErrNotFound, listingID)
			}
			return err
		}

		order, err = entity.NewOrder(actor.ID, key, listing)
		if err != nil {
			return fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
		}
		return s.orderRepo.Create(txCtx, order)
	})

	if errTxn == nil {
		s.finalizeSuccess(ctx, actor.ID, key, order)
		return order, nil
	}

	// The order unique index is the backstop: a duplicate here means a past
	// attempt already created the order but never finalized its ledger record.
	if errors.Is(errTxn, repository.ErrAlreadyExists) {
		existing, errGet := s.orderRepo.GetByIdempotencyKey(ctx, actor.ID, key)
		if errGet == nil {
			s.finalizeSuccess(ctx, actor.ID, key, existing)
			s.markReplay()
			return existing, nil
		}
		return nil, fmt.Errorf("order exists for key %s but could not be loaded: %w", key, errGet)
	}

	if kind := entity.KindOf(errTxn); kind != entity.FailureNone {
		// Domain failures are deterministic for this key: cache them so replays
		// see the same answer.
		expiresAt := time.Now().UTC().Add(s.retention)
		if errFin := s.idemRepo.Finalize(ctx, repository.FinalizeParams{
			BuyerID:     actor.ID,
			Key:         key,
			State:       entity.IdemFailed,
			FailureKind: kind,
			ExpiresAt:   expiresAt,
		}); errFin != nil {
			s.log.Errorf("failed to finalize failed purchase for key %s: %v", key, errFin)
		}
		return nil, errTxn
	}

	// Transient failure: release the key so a retry can run afresh.
	if errDel := s.idemRepo.DeletePending(ctx, actor.ID, key); errDel != nil {
		s.log.Errorf("failed to release idempotency key %s after transient error: %v", key, errDel)
	}
	return nil, errTxn
}

func (s *purchaseService) finalizeSuccess(ctx context.Context, buyerID, key string, order *entity.Order) {
	expiresAt := time.Now().UTC().Add(s.retention)
	if err := s.idemRepo.Finalize(ctx, repository.FinalizeParams{
		BuyerID:   buyerID,
		Key:       key,
		State:     entity.IdemSucceeded,
		OrderID:   order.ID,
		ExpiresAt: expiresAt,
	}); err != nil {
		// The order exists; the order collection's unique key backstops dedup
		// even if this ledger write is lost.
		s.log.Errorf("failed to finalize successful purchase for key %s: %v", key, err)
	}

	s.cacheOutcome(ctx, buyerID, key, order.ID)

	if s.metrics != nil {
		s.metrics.OrdersCreatedTotal.Inc()
	}
	if s.publisher != nil {
		event := map[string]interface{}{
			"order_id":   order.ID,
			"buyer_id":   order.BuyerID,
			"seller_id":  order.SellerID,
			"listing_id": order.ListingID,
			"price":      order.Price,
			"created_at": order.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, nats.SubjectOrderCreated, event); err != nil {
			s.log.Warnf("failed to publish %s for order %s: %v", nats.SubjectOrderCreated, order.ID, err)
		}
	}
}

func (s *purchaseService) cacheOutcome(ctx context.Context, buyerID, key, orderID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetOrderID(ctx, buyerID, key, orderID); err != nil {
		s.log.Warnf("failed to cache purchase outcome for key %s: %v", key, err)
	}
}

func (s *purchaseService) markReplay() {
	if s.metrics != nil {
		s.metrics.IdemReplaysTotal.Inc()
	}
}

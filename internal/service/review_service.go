package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Will-hxw/1688/internal/adapter/nats"
	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/Will-hxw/1688/internal/platform/metrics"
	"github.com/Will-hxw/1688/internal/repository"
)

// ReviewService gates review creation on the order lifecycle: only the buyer,
// only a RECEIVED order, at most once. The review insert and the order's
// RECEIVED->REVIEWED step commit in one transaction, which is what makes
// "at most once" hold under concurrent submissions.
type ReviewService interface {
	Create(ctx context.Context, actor entity.Actor, orderID string, rating int, content string) (*entity.Review, error)
	GetByID(ctx context.Context, reviewID string) (*entity.Review, error)
	ListForListing(ctx context.Context, listingID string, page, pageSize int) (*repository.ListReviewsResult, error)
	ListForBuyer(ctx context.Context, actor entity.Actor, page, pageSize int) (*repository.ListReviewsResult, error)
	// ListAll is the moderation view: every review, soft-deleted ones
	// included. Admin only.
	ListAll(ctx context.Context, actor entity.Actor, filter entity.ReviewFilter) (*repository.ListReviewsResult, error)
	// Delete soft-deletes a review. Admin only; the order stays REVIEWED.
	Delete(ctx context.Context, actor entity.Actor, reviewID string) error
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	orderRepo  repository.OrderRepository
	userRepo   repository.UserRepository
	txn        repository.TxnRunner
	publisher  nats.MessagePublisher
	metrics    *metrics.Manager
	log        logger.Logger
}

func NewReviewService(
	reviewRepo repository.ReviewRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	txn repository.TxnRunner,
	publisher nats.MessagePublisher,
	m *metrics.Manager,
	log logger.Logger,
) ReviewService {
	return &reviewService{
		reviewRepo: reviewRepo,
		orderRepo:  orderRepo,
		userRepo:   userRepo,
		txn:        txn,
		publisher:  publisher,
		metrics:    m,
		log:        log,
	}
}

func (s *reviewService) Create(ctx context.Context, actor entity.Actor, orderID string, rating int, content string) (*entity.Review, error) {
	if err := requireActiveUser(ctx, s.userRepo, actor); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	if actor.ID != order.BuyerID {
		return nil, fmt.Errorf("%w: only the buyer may review", entity.ErrForbidden)
	}
	if order.Status != entity.StatusReceived {
		return nil, fmt.Errorf("%w: order is %s, reviews require RECEIVED", entity.ErrInvalidTransition, order.Status)
	}

	review, err := entity.NewReview(order, rating, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}

	errTxn := s.txn.WithinTxn(ctx, func(txCtx context.Context) error {
		// The CAS on RECEIVED is the review gate under concurrency: of any
		// number of simultaneous submissions, exactly one advances the order.
		if errTr := s.orderRepo.TransitionStatus(txCtx, repository.TransitionParams{
			OrderID: orderID,
			From:    entity.StatusReceived,
			To:      entity.StatusReviewed,
		}); errTr != nil {
			return errTr
		}
		return s.reviewRepo.Create(txCtx, review)
	})
	if errTxn != nil {
		switch {
		case errors.Is(errTxn, repository.ErrCASFailed), errors.Is(errTxn, repository.ErrAlreadyExists):
			return nil, fmt.Errorf("%w: order already reviewed", entity.ErrInvalidTransition)
		case errors.Is(errTxn, repository.ErrNotFound):
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("failed to create review for order %s: %w", orderID, errTxn)
	}

	if s.metrics != nil {
		s.metrics.ReviewsCreatedTotal.Inc()
		s.metrics.OrderTransitionsTotal.WithLabelValues(string(entity.StatusReviewed)).Inc()
	}
	if s.publisher != nil {
		event := map[string]interface{}{
			"review_id":  review.ID,
			"order_id":   review.OrderID,
			"listing_id": review.ListingID,
			"buyer_id":   review.BuyerID,
			"seller_id":  review.SellerID,
			"rating":     review.Rating,
			"created_at": review.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, nats.SubjectReviewCreated, event); err != nil {
			s.log.Warnf("failed to publish %s for review %s: %v", nats.SubjectReviewCreated, review.ID, err)
		}
	}

	return review, nil
}

func (s *reviewService) GetByID(ctx context.Context, reviewID string) (*entity.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load review %s: %w", reviewID, err)
	}
	if review.Deleted {
		return nil, entity.ErrNotFound
	}
	return review, nil
}

func (s *reviewService) ListForListing(ctx context.Context, listingID string, page, pageSize int) (*repository.ListReviewsResult, error) {
	if listingID == "" {
		return nil, fmt.Errorf("%w: listing ID is required", entity.ErrInvalidInput)
	}
	return s.reviewRepo.List(ctx, entity.ReviewFilter{
		ListingID: listingID,
		Page:      page,
		PageSize:  pageSize,
	})
}

func (s *reviewService) ListForBuyer(ctx context.Context, actor entity.Actor, page, pageSize int) (*repository.ListReviewsResult, error) {
	return s.reviewRepo.List(ctx, entity.ReviewFilter{
		BuyerID:  actor.ID,
		Page:     page,
		PageSize: pageSize,
	})
}

func (s *reviewService) ListAll(ctx context.Context, actor entity.Actor, filter entity.ReviewFilter) (*repository.ListReviewsResult, error) {
	if !actor.IsAdmin() {
		return nil, entity.ErrForbidden
	}
	filter.IncludeDeleted = true
	return s.reviewRepo.List(ctx, filter)
}

func (s *reviewService) Delete(ctx context.Context, actor entity.Actor, reviewID string) error {
	if !actor.IsAdmin() {
		return entity.ErrForbidden
	}

	if err := s.reviewRepo.SoftDelete(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("failed to delete review %s: %w", reviewID, err)
	}

	if s.publisher != nil {
		event := map[string]interface{}{
			"review_id": reviewID,
			"admin_id":  actor.ID,
		}
		if err := s.publisher.Publish(ctx, nats.SubjectReviewDeleted, event); err != nil {
			s.log.Warnf("failed to publish %s for review %s: %v", nats.SubjectReviewDeleted, reviewID, err)
		}
	}
	return nil
}

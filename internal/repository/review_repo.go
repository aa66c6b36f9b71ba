package repository

import (
	"context"

	"github.com/Will-hxw/1688/internal/domain/entity"
)

type ListReviewsResult struct {
	Reviews    []entity.Review
	TotalCount int64
}

type ReviewRepository interface {
	// Create inserts a review. A unique index on order_id backstops the
	// one-review-per-order rule; a duplicate yields ErrAlreadyExists.
	Create(ctx context.Context, review *entity.Review) error
	GetByID(ctx context.Context, reviewID string) (*entity.Review, error)
	// SoftDelete flags the review deleted; it is never removed from storage.
	SoftDelete(ctx context.Context, reviewID string) error
	List(ctx context.Context, filter entity.ReviewFilter) (*ListReviewsResult, error)
}

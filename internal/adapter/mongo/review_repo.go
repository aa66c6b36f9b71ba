package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Will-hxw/1688/internal/app/config"
	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const reviewCollectionName = "reviews"

type reviewRepository struct {
	collection *mongo.Collection
}

func NewReviewRepository(ctx context.Context, client *mongo.Client, cfg config.MongoDBConfig) (repository.ReviewRepository, error) {
	collection := client.Database(cfg.Database).Collection(reviewCollectionName)

	indexes := []mongo.IndexModel{
		{
			// One review per order, enforced by the database regardless of what
			// the service layer checked.
			Keys:    bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().SetName("idx_order_id_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_listing_created_at"),
		},
		{
			Keys:    bson.D{{Key: "buyer_id", Value: 1}},
			Options: options.Index().SetName("idx_buyer_id"),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create indexes for %s: %w", reviewCollectionName, err)
	}

	return &reviewRepository{collection: collection}, nil
}

func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if _, err := r.collection.InsertOne(ctx, review); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, reviewID string) (*entity.Review, error) {
	var review entity.Review
	err := r.collection.FindOne(ctx, bson.M{"_id": reviewID}).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review by ID %s: %w", reviewID, err)
	}
	return &review, nil
}

func (r *reviewRepository) SoftDelete(ctx context.Context, reviewID string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": reviewID},
		bson.M{"$set": bson.M{"deleted": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to soft-delete review %s: %w", reviewID, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *reviewRepository) List(ctx context.Context, filter entity.ReviewFilter) (*repository.ListReviewsResult, error) {
	query := bson.M{}
	if filter.ListingID != "" {
		query["listing_id"] = filter.ListingID
	}
	if filter.BuyerID != "" {
		query["buyer_id"] = filter.BuyerID
	}
	if !filter.IncludeDeleted {
		query["deleted"] = false
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		findOptions.SetSkip(int64((page - 1) * filter.PageSize))
		findOptions.SetLimit(int64(filter.PageSize))
	}

	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var reviews []entity.Review
	if err = cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}

	totalCount, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count reviews: %w", err)
	}

	return &repository.ListReviewsResult{
		Reviews:    reviews,
		TotalCount: totalCount,
	}, nil
}

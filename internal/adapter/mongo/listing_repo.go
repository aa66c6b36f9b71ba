package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Will-hxw/1688/internal/app/config"
	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const listingCollectionName = "listings"

type listingRepository struct {
	collection *mongo.Collection
}

func NewListingRepository(ctx context.Context, client *mongo.Client, cfg config.MongoDBConfig) (repository.ListingRepository, error) {
	collection := client.Database(cfg.Database).Collection(listingCollectionName)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_status_created_at"),
		},
		{
			Keys:    bson.D{{Key: "seller_id", Value: 1}},
			Options: options.Index().SetName("idx_seller_id"),
		},
		{
			Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}},
			Options: options.Index().SetName("idx_text_search"),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create indexes for %s: %w", listingCollectionName, err)
	}

	return &listingRepository{collection: collection}, nil
}

func (r *listingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	if _, err := r.collection.InsertOne(ctx, listing); err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, listingID string) (*entity.Listing, error) {
	var listing entity.Listing
	err := r.collection.FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing by ID %s: %w", listingID, err)
	}
	return &listing, nil
}

// Reserve flips ON_SALE to SOLD in a single conditional update. The status
// filter is what makes concurrent purchases race safely: only one update can
// match.
func (r *listingRepository) Reserve(ctx context.Context, listingID string) error {
	return r.flipStatus(ctx, listingID, entity.ListingOnSale, entity.ListingSold, false)
}

// Release flips SOLD back to ON_SALE after a cancellation. A listing that is no
// longer SOLD (removed by moderation meanwhile) is left alone.
func (r *listingRepository) Release(ctx context.Context, listingID string) error {
	err := r.flipStatus(ctx, listingID, entity.ListingSold, entity.ListingOnSale, true)
	if errors.Is(err, repository.ErrCASFailed) {
		return nil
	}
	return err
}

func (r *listingRepository) SoftRemove(ctx context.Context, listingID string) error {
	filter := bson.M{
		"_id":    listingID,
		"status": bson.M{"$ne": entity.ListingRemoved},
	}
	update := bson.M{"$set": bson.M{
		"status":     entity.ListingRemoved,
		"updated_at": time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove listing %s: %w", listingID, err)
	}
	if result.MatchedCount == 0 {
		errFind := r.collection.FindOne(ctx, bson.M{"_id": listingID}).Err()
		if errors.Is(errFind, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		if errFind != nil {
			return fmt.Errorf("failed to re-check listing %s: %w", listingID, errFind)
		}
		// Already removed.
	}
	return nil
}

func (r *listingRepository) flipStatus(ctx context.Context, listingID string, from, to entity.ListingStatus, tolerateMissing bool) error {
	filter := bson.M{
		"_id":    listingID,
		"status": from,
	}
	update := bson.M{"$set": bson.M{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to flip listing %s status %s->%s: %w", listingID, from, to, err)
	}

	if result.MatchedCount == 0 {
		errFind := r.collection.FindOne(ctx, bson.M{"_id": listingID}).Err()
		if errors.Is(errFind, mongo.ErrNoDocuments) {
			if tolerateMissing {
				return nil
			}
			return repository.ErrNotFound
		}
		if errFind != nil {
			return fmt.Errorf("failed to re-check listing %s: %w", listingID, errFind)
		}
		return repository.ErrCASFailed
	}
	return nil
}

func (r *listingRepository) Search(ctx context.Context, filter entity.ListingFilter) (*repository.ListListingsResult, error) {
	query := bson.M{}
	if filter.Query != "" {
		query["$text"] = bson.M{"$search": filter.Query}
	}
	if filter.SellerID != "" {
		query["seller_id"] = filter.SellerID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	price := bson.M{}
	if filter.MinPrice > 0 {
		price["$gte"] = filter.MinPrice
	}
	if filter.MaxPrice > 0 {
		price["$lte"] = filter.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
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
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []entity.Listing
	if err = cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}

	totalCount, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	return &repository.ListListingsResult{
		Listings:   listings,
		TotalCount: totalCount,
	}, nil
}

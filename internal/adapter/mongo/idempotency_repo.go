package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Will-hxw/1688/internal/app/config"
	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const idempotencyCollectionName = "idempotency_records"

type idempotencyRepository struct {
	collection *mongo.Collection
}

func NewIdempotencyRepository(ctx context.Context, client *mongo.Client, cfg config.MongoDBConfig) (repository.IdempotencyRepository, error) {
	collection := client.Database(cfg.Database).Collection(idempotencyCollectionName)

	indexes := []mongo.IndexModel{
		{
			// The uniqueness constraint IS the lock: the insert that wins it owns
			// the purchase attempt.
			Keys:    bson.D{{Key: "buyer_id", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetName("idx_buyer_key_unique").SetUnique(true),
		},
		{
			// expires_at is only set when a record is finalized, so pending
			// records are never purged out from under a waiting caller.
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_expires_at_ttl").SetExpireAfterSeconds(0),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create indexes for %s: %w", idempotencyCollectionName, err)
	}

	return &idempotencyRepository{collection: collection}, nil
}

func (r *idempotencyRepository) InsertPending(ctx context.Context, buyerID, key string, leaseUntil time.Time) error {
	record := entity.IdempotencyRecord{
		BuyerID:    buyerID,
		Key:        key,
		State:      entity.IdemPending,
		LeaseUntil: leaseUntil,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert pending idempotency record: %w", err)
	}
	return nil
}

func (r *idempotencyRepository) Get(ctx context.Context, buyerID, key string) (*entity.IdempotencyRecord, error) {
	var record entity.IdempotencyRecord
	err := r.collection.FindOne(ctx, bson.M{"buyer_id": buyerID, "key": key}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}
	return &record, nil
}

func (r *idempotencyRepository) TakeoverLease(ctx context.Context, buyerID, key string, leaseUntil time.Time) error {
	now := time.Now().UTC()
	filter := bson.M{
		"buyer_id":    buyerID,
		"key":         key,
		"state":       entity.IdemPending,
		"lease_until": bson.M{"$lt": now},
	}
	update := bson.M{"$set": bson.M{"lease_until": leaseUntil}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to take over idempotency lease: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrCASFailed
	}
	return nil
}

func (r *idempotencyRepository) Finalize(ctx context.Context, params repository.FinalizeParams) error {
	filter := bson.M{
		"buyer_id": params.BuyerID,
		"key":      params.Key,
		"state":    entity.IdemPending,
	}
	set := bson.M{
		"state":      params.State,
		"expires_at": params.ExpiresAt,
	}
	if params.OrderID != "" {
		set["order_id"] = params.OrderID
	}
	if params.FailureKind != entity.FailureNone {
		set["failure_kind"] = params.FailureKind
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to finalize idempotency record: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrCASFailed
	}
	return nil
}

func (r *idempotencyRepository) DeletePending(ctx context.Context, buyerID, key string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{
		"buyer_id": buyerID,
		"key":      key,
		"state":    entity.IdemPending,
	})
	if err != nil {
		return fmt.Errorf("failed to delete pending idempotency record: %w", err)
	}
	return nil
}

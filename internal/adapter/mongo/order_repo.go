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

const orderCollectionName = "orders"

type orderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(ctx context.Context, client *mongo.Client, cfg config.MongoDBConfig) (repository.OrderRepository, error) {
	collection := client.Database(cfg.Database).Collection(orderCollectionName)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
			Options: options.Index().
				SetName("idx_buyer_idempotency_key").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "buyer_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_buyer_created_at"),
		},
		{
			Keys:    bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_seller_created_at"),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create indexes for %s: %w", orderCollectionName, err)
	}

	return &orderRepository{collection: collection}, nil
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*entity.Order, error) {
	var order entity.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", orderID, err)
	}
	return &order, nil
}

func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, buyerID, key string) (*entity.Order, error) {
	var order entity.Order
	err := r.collection.FindOne(ctx, bson.M{"buyer_id": buyerID, "idempotency_key": key}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order by idempotency key: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) TransitionStatus(ctx context.Context, params repository.TransitionParams) error {
	filter := bson.M{
		"_id":    params.OrderID,
		"status": params.From,
	}

	set := bson.M{
		"status":     params.To,
		"updated_at": time.Now().UTC(),
	}
	if params.To == entity.StatusCanceled {
		set["canceled_by"] = params.CanceledBy
		set["canceled_at"] = params.CanceledAt
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to transition order %s to %s: %w", params.OrderID, params.To, err)
	}

	if result.MatchedCount == 0 {
		errFind := r.collection.FindOne(ctx, bson.M{"_id": params.OrderID}).Err()
		if errors.Is(errFind, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		if errFind != nil {
			return fmt.Errorf("failed to re-check order %s after no-match update: %w", params.OrderID, errFind)
		}
		return repository.ErrCASFailed
	}
	return nil
}

func (r *orderRepository) List(ctx context.Context, filter entity.OrderFilter) (*repository.ListOrdersResult, error) {
	query := bson.M{}
	if filter.BuyerID != "" {
		query["buyer_id"] = filter.BuyerID
	}
	if filter.SellerID != "" {
		query["seller_id"] = filter.SellerID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
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
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []entity.Order
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode listed orders: %w", err)
	}

	totalCount, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	return &repository.ListOrdersResult{
		Orders:     orders,
		TotalCount: totalCount,
	}, nil
}

package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
)

type SpaBookingRepository interface {
	Create(ctx context.Context, b *domain.SpaBooking) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.SpaBooking, error)
}

type DiningOrderRepository interface {
	Create(ctx context.Context, o *domain.DiningOrder) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.DiningOrder, error)
}

type spaBookingRepository struct {
	coll *mongo.Collection
}

func NewSpaBookingRepository(db *mongo.Database) SpaBookingRepository {
	return &spaBookingRepository{coll: db.Collection(SpaBookingsCollection)}
}

func (r *spaBookingRepository) Create(ctx context.Context, b *domain.SpaBooking) error {
	id, err := insert(ctx, r.coll, b)
	if err != nil {
		return fmt.Errorf("insert spa booking: %w", err)
	}
	b.ID = id
	return nil
}

func (r *spaBookingRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.SpaBooking, error) {
	out := []domain.SpaBooking{}
	if err := listByUser(ctx, r.coll, userID, limit, &out); err != nil {
		return nil, fmt.Errorf("list spa bookings: %w", err)
	}
	return out, nil
}

type diningOrderRepository struct {
	coll *mongo.Collection
}

func NewDiningOrderRepository(db *mongo.Database) DiningOrderRepository {
	return &diningOrderRepository{coll: db.Collection(DiningOrdersCollection)}
}

func (r *diningOrderRepository) Create(ctx context.Context, o *domain.DiningOrder) error {
	id, err := insert(ctx, r.coll, o)
	if err != nil {
		return fmt.Errorf("insert dining order: %w", err)
	}
	o.ID = id
	return nil
}

func (r *diningOrderRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.DiningOrder, error) {
	out := []domain.DiningOrder{}
	if err := listByUser(ctx, r.coll, userID, limit, &out); err != nil {
		return nil, fmt.Errorf("list dining orders: %w", err)
	}
	return out, nil
}

func insert(ctx context.Context, coll *mongo.Collection, doc interface{}) (primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id %T", res.InsertedID)
	}
	return id, nil
}

func listByUser(ctx context.Context, coll *mongo.Collection, userID primitive.ObjectID, limit int64, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	return cursor.All(ctx, out)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
)

var (
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrDuplicateGuestID = errors.New("guest id already taken")
)

type GuestRepository interface {
	Create(ctx context.Context, g *domain.Guest) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Guest, error)
	FindByEmail(ctx context.Context, email string) (*domain.Guest, error)
	FindByGuestID(ctx context.Context, guestID string) (*domain.Guest, error)
	SetOTP(ctx context.Context, id primitive.ObjectID, codeHash string, expiresAt time.Time) error
	IncrementOTPAttempts(ctx context.Context, id primitive.ObjectID) (int, error)
	MarkVerified(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	AppendBooking(ctx context.Context, id, bookingID primitive.ObjectID) error
	AppendOrder(ctx context.Context, id, orderID primitive.ObjectID) error
}

type guestRepository struct {
	coll *mongo.Collection
}

func NewGuestRepository(db *mongo.Database) GuestRepository {
	return &guestRepository{coll: db.Collection(GuestsCollection)}
}

func (r *guestRepository) Create(ctx context.Context, g *domain.Guest) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, g)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), guestIDIndex) {
				return ErrDuplicateGuestID
			}
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert guest: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		g.ID = id
	}
	return nil
}

func (r *guestRepository) findOne(ctx context.Context, filter bson.M) (*domain.Guest, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var g domain.Guest
	err := r.coll.FindOne(ctx, filter).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *guestRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Guest, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *guestRepository) FindByEmail(ctx context.Context, email string) (*domain.Guest, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *guestRepository) FindByGuestID(ctx context.Context, guestID string) (*domain.Guest, error) {
	return r.findOne(ctx, bson.M{"guest_id": guestID})
}

// SetOTP stores a fresh code and resets the failed-attempt counter.
func (r *guestRepository) SetOTP(ctx context.Context, id primitive.ObjectID, codeHash string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"otp_hash":       codeHash,
		"otp_expires_at": expiresAt,
		"otp_attempts":   0,
		"updated_at":     time.Now().UTC(),
	}}
	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("set otp: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// IncrementOTPAttempts bumps the counter atomically and returns the new value.
func (r *guestRepository) IncrementOTPAttempts(ctx context.Context, id primitive.ObjectID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"otp_attempts": 1})

	var out struct {
		Attempts int `bson:"otp_attempts"`
	}
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"otp_attempts": 1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		opts,
	).Decode(&out)
	if err != nil {
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	return out.Attempts, nil
}

// MarkVerified flips the flag and clears code fields. It reports false when the
// guest was already verified.
func (r *guestRepository) MarkVerified(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "is_verified": false},
		bson.M{
			"$set":   bson.M{"is_verified": true, "verified_at": at, "updated_at": at},
			"$unset": bson.M{"otp_hash": "", "otp_expires_at": "", "otp_attempts": ""},
		},
	)
	if err != nil {
		return false, fmt.Errorf("mark verified: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *guestRepository) AppendBooking(ctx context.Context, id, bookingID primitive.ObjectID) error {
	return r.push(ctx, id, "bookings", bookingID)
}

func (r *guestRepository) AppendOrder(ctx context.Context, id, orderID primitive.ObjectID) error {
	return r.push(ctx, id, "orders", orderID)
}

func (r *guestRepository) push(ctx context.Context, id primitive.ObjectID, field string, ref primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$push": bson.M{field: ref},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("append %s: %w", field, err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	GuestsCollection          = "guests"
	OTPCodesCollection        = "otp_codes"
	ChatHistoryCollection     = "chat_history"
	SpaBookingsCollection     = "spa_bookings"
	DiningOrdersCollection    = "dining_orders"
	ContactMessagesCollection = "contact_messages"

	guestEmailIndex   = "guests_email_unique"
	guestIDIndex      = "guests_guest_id_unique"
	otpExpiresIndex   = "otp_codes_expires_ttl"
	chatUserIndex     = "chat_history_user_unique"
	queryTimeout      = 3 * time.Second
	indexBuildTimeout = 30 * time.Second
)

// EnsureIndexes creates every index the repositories rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, indexBuildTimeout)
	defer cancel()

	specs := map[string][]mongo.IndexModel{
		GuestsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(guestEmailIndex)},
			{Keys: bson.D{{Key: "guest_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName(guestIDIndex)},
		},
		OTPCodesCollection: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0).SetName(otpExpiresIndex)},
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		ChatHistoryCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName(chatUserIndex)},
		},
		SpaBookingsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		DiningOrdersCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		ContactMessagesCollection: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

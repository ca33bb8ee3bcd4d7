package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
)

type ChatRepository interface {
	Append(ctx context.Context, userID primitive.ObjectID, entry domain.ChatEntry, limit int) error
	Get(ctx context.Context, userID primitive.ObjectID) (*domain.ChatHistory, error)
}

type chatRepository struct {
	coll *mongo.Collection
}

func NewChatRepository(db *mongo.Database) ChatRepository {
	return &chatRepository{coll: db.Collection(ChatHistoryCollection)}
}

// Append pushes entry and keeps only the newest limit entries, creating the document on first use.
func (r *chatRepository) Append(ctx context.Context, userID primitive.ObjectID, entry domain.ChatEntry, limit int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$push": bson.M{"messages": bson.M{
			"$each":  []domain.ChatEntry{entry},
			"$slice": -limit,
		}},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"user_id": userID, "created_at": now},
	}

	_, err := r.coll.UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("append chat entry: %w", err)
	}
	return nil
}

func (r *chatRepository) Get(ctx context.Context, userID primitive.ObjectID) (*domain.ChatHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var h domain.ChatHistory
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&h)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat history: %w", err)
	}
	return &h, nil
}

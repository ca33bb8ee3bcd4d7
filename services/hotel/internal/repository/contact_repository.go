package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
)

type ContactRepository interface {
	Create(ctx context.Context, m *domain.ContactMessage) error
}

type contactRepository struct {
	coll *mongo.Collection
}

func NewContactRepository(db *mongo.Database) ContactRepository {
	return &contactRepository{coll: db.Collection(ContactMessagesCollection)}
}

func (r *contactRepository) Create(ctx context.Context, m *domain.ContactMessage) error {
	id, err := insert(ctx, r.coll, m)
	if err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	m.ID = id
	return nil
}

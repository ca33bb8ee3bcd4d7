package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
)

// OTPRepository is the otp_codes issuance log.
type OTPRepository interface {
	Record(ctx context.Context, issue *domain.OTPIssue) error
	DeleteByEmail(ctx context.Context, email string) (int64, error)
}

type otpRepository struct {
	coll *mongo.Collection
}

func NewOTPRepository(db *mongo.Database) OTPRepository {
	return &otpRepository{coll: db.Collection(OTPCodesCollection)}
}

func (r *otpRepository) Record(ctx context.Context, issue *domain.OTPIssue) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, issue); err != nil {
		return fmt.Errorf("record otp issue: %w", err)
	}
	return nil
}

func (r *otpRepository) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.coll.DeleteMany(ctx, bson.M{"email": email})
	if err != nil {
		return 0, fmt.Errorf("delete otp issues: %w", err)
	}
	return res.DeletedCount, nil
}

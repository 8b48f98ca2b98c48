package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/spec-kit/book-store-service/internal/domain"
)

// RevocationRepository stores blacklisted tokens in Mongo. Documents are
// swept by the TTL index on expires_at.
type RevocationRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
	now    func() time.Time
}

// NewRevocationRepository wraps the blacklist collection.
func NewRevocationRepository(coll *mongo.Collection, logger *zap.Logger) *RevocationRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationRepository{coll: coll, logger: logger, now: time.Now}
}

// IsRevoked reports whether token has an unexpired blacklist entry.
func (r *RevocationRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	record, err := r.Lookup(ctx, token)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// Lookup returns the live blacklist entry for token, or nil when there is none.
// Entries past expires_at are ignored even if the TTL monitor has not removed them yet.
func (r *RevocationRepository) Lookup(ctx context.Context, token string) (*domain.RevocationRecord, error) {
	filter := bson.D{
		{Key: "token", Value: token},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: r.now().UTC()}}},
	}
	var record domain.RevocationRecord
	err := r.coll.FindOne(ctx, filter).Decode(&record)
	switch {
	case err == nil:
		return &record, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, nil
	default:
		return nil, fmt.Errorf("lookup blacklist: %w", err)
	}
}

// Revoke inserts record. A token that is already blacklisted is not an error.
func (r *RevocationRepository) Revoke(ctx context.Context, record domain.RevocationRecord) error {
	record.CreatedAt = record.CreatedAt.UTC()
	record.ExpiresAt = record.ExpiresAt.UTC()

	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("token already blacklisted",
				zap.String("user_id", record.UserID),
				zap.String("kind", string(record.Kind)))
			return nil
		}
		return fmt.Errorf("insert blacklist entry: %w", err)
	}
	return nil
}

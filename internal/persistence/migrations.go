package persistence

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Mongo server error codes.
const (
	codeNamespaceNotFound = 26
	codeIndexNotFound     = 27
)

// legacyBlacklistIndexes were keyed on the pre-migration field names.
var legacyBlacklistIndexes = []string{"exp_1", "userId_1"}

// CaseInsensitive is the collation used to compare book titles and authors.
var CaseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// RunMigrations brings legacy documents to the current schema and ensures all indexes.
func RunMigrations(ctx context.Context, m *Mongo, logger *zap.Logger) error {
	if m == nil || m.DB == nil {
		logger.Warn("no mongo database available; skipping migrations")
		return nil
	}
	if err := MigrateBlacklist(ctx, m.Collection(BlacklistCollection), logger); err != nil {
		return err
	}
	if err := EnsureIndexes(ctx, m.DB); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

// MigrateBlacklist rewrites blacklist documents stored with the legacy field names
// and drops indexes built on them.
func MigrateBlacklist(ctx context.Context, coll *mongo.Collection, logger *zap.Logger) error {
	renamed, err := coll.UpdateMany(ctx,
		bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "tokenType", Value: bson.D{{Key: "$exists", Value: true}}}},
			bson.D{{Key: "userId", Value: bson.D{{Key: "$exists", Value: true}}}},
			bson.D{{Key: "createdAt", Value: bson.D{{Key: "$exists", Value: true}}}},
		}}},
		bson.D{{Key: "$rename", Value: bson.D{
			{Key: "tokenType", Value: "kind"},
			{Key: "userId", Value: "user_id"},
			{Key: "createdAt", Value: "created_at"},
		}}},
	)
	if err != nil {
		return fmt.Errorf("rename legacy blacklist fields: %w", err)
	}

	// exp held seconds since the epoch; TTL indexes need a date
	converted, err := coll.UpdateMany(ctx,
		bson.D{{Key: "exp", Value: bson.D{{Key: "$type", Value: "number"}}}},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.D{{Key: "expires_at", Value: bson.D{
				{Key: "$toDate", Value: bson.D{{Key: "$multiply", Value: bson.A{"$exp", 1000}}}},
			}}}}},
			{{Key: "$unset", Value: "exp"}},
		},
	)
	if err != nil {
		return fmt.Errorf("convert legacy blacklist expiry: %w", err)
	}

	for _, name := range legacyBlacklistIndexes {
		if _, err := coll.Indexes().DropOne(ctx, name); err != nil && !isMissing(err) {
			return fmt.Errorf("drop legacy index %s: %w", name, err)
		}
	}

	logger.Info("blacklist schema migrated",
		zap.Int64("renamed", renamed.ModifiedCount),
		zap.Int64("converted", converted.ModifiedCount))
	return nil
}

// EnsureIndexes creates the indexes every collection relies on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	titleAuthor := options.Index().SetName("title_author_unique").SetUnique(true).SetCollation(CaseInsensitive)
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("email_unique").SetUnique(true),
			},
		},
		BooksCollection: {
			{
				Keys:    bson.D{{Key: "title", Value: 1}, {Key: "author", Value: 1}},
				Options: titleAuthor,
			},
		},
		BlacklistCollection: {
			{
				Keys:    bson.D{{Key: "token", Value: 1}},
				Options: options.Index().SetName("token_1").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
			},
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetName("user_id_1"),
			},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}
	return nil
}

func isMissing(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == codeIndexNotFound || cmdErr.Code == codeNamespaceNotFound
	}
	return false
}

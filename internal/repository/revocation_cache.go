package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/book-store-service/internal/domain"
	"github.com/spec-kit/book-store-service/internal/observability"
)

const blacklistKeyPrefix = "blacklist:"

// RevocationBackend is the authoritative blacklist behind the cache.
type RevocationBackend interface {
	Lookup(ctx context.Context, token string) (*domain.RevocationRecord, error)
	Revoke(ctx context.Context, record domain.RevocationRecord) error
}

// CachedRevocationStore answers blacklist lookups from Redis when it can and
// falls through to the backend otherwise. Redis failures never turn into a
// "not revoked" answer; backend failures are returned to the caller.
type CachedRevocationStore struct {
	backend RevocationBackend
	client  *redis.Client
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewCachedRevocationStore wraps backend. A nil client disables caching.
func NewCachedRevocationStore(backend RevocationBackend, client *redis.Client, metrics *observability.Metrics, logger *zap.Logger) *CachedRevocationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRevocationStore{
		backend: backend,
		client:  client,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// IsRevoked checks the cache, then the backend, backfilling the cache on a positive answer.
func (s *CachedRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if s.client != nil {
		n, err := s.client.Exists(ctx, cacheKey(token)).Result()
		switch {
		case err != nil:
			s.metrics.RecordRevocationCache("error")
			s.logger.Warn("blacklist cache lookup failed", zap.Error(err))
		case n > 0:
			s.metrics.RecordRevocationCache("hit")
			return true, nil
		default:
			s.metrics.RecordRevocationCache("miss")
		}
	}

	record, err := s.backend.Lookup(ctx, token)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	s.remember(ctx, token, record.ExpiresAt)
	return true, nil
}

// Revoke writes through to the backend before caching the entry.
func (s *CachedRevocationStore) Revoke(ctx context.Context, record domain.RevocationRecord) error {
	if err := s.backend.Revoke(ctx, record); err != nil {
		return err
	}
	s.remember(ctx, record.Token, record.ExpiresAt)
	return nil
}

func (s *CachedRevocationStore) remember(ctx context.Context, token string, expiresAt time.Time) {
	if s.client == nil {
		return
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}
	if err := s.client.Set(ctx, cacheKey(token), 1, ttl).Err(); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("blacklist cache write failed", zap.Error(err))
	}
}

// cacheKey hashes the token so raw credentials never sit in Redis.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return blacklistKeyPrefix + hex.EncodeToString(sum[:])
}

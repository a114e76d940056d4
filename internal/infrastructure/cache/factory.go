package cache

import (
	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewIdempotencyStore picks the Redis store when a client is available and
// falls back to a process-local store otherwise. The returned close func
// must be called on shutdown.
func NewIdempotencyStore(client *redis.Client, logger *zap.Logger) (shared.IdempotencyStore, func() error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client != nil {
		logger.Info("Using Redis idempotency store")
		return NewRedisIdempotencyStore(client, defaultIdempotencyPrefix), func() error { return nil }
	}

	logger.Warn("Redis not configured, idempotency keys are tracked per instance")
	store := NewInMemoryIdempotencyStore()
	return store, store.Close
}

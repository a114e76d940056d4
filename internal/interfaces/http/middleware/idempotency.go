package middleware

import (
	"net/http"
	"time"

	"github.com/catalogmirror/backend/internal/domain/shared"
	"github.com/catalogmirror/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader carries the client key for a retryable write
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// Idempotency rejects a POST whose Idempotency-Key was already accepted for
// the same organization. Keys of requests that end in an error are released.
// Requests without the header pass through untouched.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if store == nil || c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			abortWith(c, shared.CodeValidation, IdempotencyKeyHeader+" header is too long")
			return
		}

		scoped := key
		if org, ok := GetOrganizationID(c); ok {
			scoped = org.String() + ":" + key
		}

		ctx := c.Request.Context()
		claimed, err := store.Claim(ctx, scoped, ttl)
		if err != nil {
			// store outage must not block writes
			log.With(logger.Fields(ctx)...).Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			abortWith(c, shared.CodeDuplicateRequest, shared.ErrDuplicateRequest.Message)
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Release(ctx, scoped); err != nil {
				log.With(logger.Fields(ctx)...).Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
	}
}

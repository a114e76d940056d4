package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers client-supplied request keys so a retried write
// is accepted at most once
type IdempotencyStore interface {
	// Claim reserves key for ttl. It returns false if the key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees a key whose request failed, so the client may retry it
	Release(ctx context.Context, key string) error
}

// DefaultIdempotencyTTL is how long an accepted key blocks replays
const DefaultIdempotencyTTL = 24 * time.Hour

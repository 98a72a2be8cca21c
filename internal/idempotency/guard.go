package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hotelbooking/pkg/log"
)

const keyPrefix = "idempotency:booking:"

// DefaultTTL bounds how long a processed booking id keeps absorbing duplicates.
const DefaultTTL = 10 * time.Minute

// Guard is the distributed exactly-once admission gate for booking ids.
// The Redis SETNX primitive is the single source of truth; there is no
// read-then-write path anywhere.
type Guard struct {
	client *redis.Client
	ttl    time.Duration
	owner  string
}

// NewGuard creates a guard backed by the given Redis client.
func NewGuard(client *redis.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{
		client: client,
		ttl:    ttl,
		owner:  uuid.NewString(),
	}
}

// TryAcquire atomically creates the processing marker for bookingID.
// Returns true iff this call created it. A store error is returned as-is:
// admitting un-gated risks duplicate side effects, so the caller must treat
// it as a retryable failure, never as an admission.
func (g *Guard) TryAcquire(ctx context.Context, bookingID string) (bool, error) {
	acquired, err := g.client.SetNX(ctx, keyPrefix+bookingID, g.owner, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency store unavailable: %w", err)
	}

	if acquired {
		log.WithField("booking_id", bookingID).Debug("Idempotency acquired")
	} else {
		log.WithField("booking_id", bookingID).Warn("Duplicate detected")
	}
	return acquired, nil
}

// Release deletes the marker unconditionally so broker redelivery can retry.
// Only the retryable-failure path may call this; permanent rejections keep
// the marker so the same event is never reprocessed.
func (g *Guard) Release(ctx context.Context, bookingID string) error {
	if err := g.client.Del(ctx, keyPrefix+bookingID).Err(); err != nil {
		return fmt.Errorf("failed to release marker: %w", err)
	}
	log.WithField("booking_id", bookingID).Debug("Idempotency released")
	return nil
}

// TTL returns the configured marker lifetime.
func (g *Guard) TTL() time.Duration {
	return g.ttl
}

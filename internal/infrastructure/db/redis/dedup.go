package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evently/evently-web/internal/api/metrics"
)

const defaultSubmissionTTL = 10 * time.Minute

// SubmissionGuard rejects repeated form submissions backed by Redis.
// Key format: submit:<idempotency_key>
type SubmissionGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubmissionGuard creates a SubmissionGuard wrapping the given Redis
// client. Keys expire after ttl (10 minutes when ttl is not positive).
func NewSubmissionGuard(client *redis.Client, ttl time.Duration) *SubmissionGuard {
	if ttl <= 0 {
		ttl = defaultSubmissionTTL
	}
	return &SubmissionGuard{client: client, ttl: ttl}
}

// Claim atomically marks key as submitted. It reports false when the key was
// already claimed within the TTL.
func (g *SubmissionGuard) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(key), "1", g.ttl).Result()
	if err != nil {
		metrics.PurchaseDedupTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("submission claim: %w", err)
	}
	if ok {
		metrics.PurchaseDedupTotal.WithLabelValues("miss").Inc()
	} else {
		metrics.PurchaseDedupTotal.WithLabelValues("hit").Inc()
	}
	return ok, nil
}

// Release deletes the claim on key. Releasing an unclaimed key is not an
// error.
func (g *SubmissionGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.key(key)).Err(); err != nil {
		metrics.PurchaseDedupTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("submission release: %w", err)
	}
	metrics.PurchaseDedupTotal.WithLabelValues("released").Inc()
	return nil
}

func (g *SubmissionGuard) key(k string) string {
	return "submit:" + k
}

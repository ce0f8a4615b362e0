package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evently/evently-web/internal/api/metrics"
	"github.com/evently/evently-web/internal/core/domain"
)

const defaultCacheTTL = 30 * time.Second

// EventCache keeps recent search results as JSON.
// Key format: events:search:<normalized query>
type EventCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventCache creates an EventCache. Entries expire after ttl (30s when
// ttl is not positive).
func NewEventCache(client *redis.Client, ttl time.Duration) *EventCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &EventCache{client: client, ttl: ttl}
}

// Get returns the cached results for query. A miss is (nil, false, nil).
func (c *EventCache) Get(ctx context.Context, query string) ([]domain.Event, bool, error) {
	raw, err := c.client.Get(ctx, c.key(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.SearchCacheTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("event cache get: %w", err)
	}

	var events []domain.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		// A corrupt entry is a miss; the next Set overwrites it.
		metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
	return events, true, nil
}

// Set stores events for query.
func (c *EventCache) Set(ctx context.Context, query string, events []domain.Event) error {
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("event cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(query), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("event cache set: %w", err)
	}
	return nil
}

func (c *EventCache) key(query string) string {
	return "events:search:" + strings.TrimSpace(query)
}

// Package cache mirrors computed query results into Redis so that other
// processes can read them while they are fresh. The in-process result map in
// the processor stays authoritative; this mirror is write-through and
// best-effort.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

const DefaultKeyPrefix = "textsearch:results:"

// Store is the subset of the Redis client the mirror needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ResultCache publishes result lists under prefix+query with a TTL.
type ResultCache struct {
	store  Store
	prefix string
	ttl    time.Duration
	guard  *resilience.Breaker
	logger *slog.Logger
	stored atomic.Int64
}

var _ Store = (*pkgredis.Client)(nil)

func New(store Store, cfg config.RedisConfig) *ResultCache {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &ResultCache{
		store:  store,
		prefix: prefix,
		ttl:    cfg.CacheTTL,
		guard:  resilience.NewBreaker("redis-results", resilience.BreakerConfig{Threshold: 5}),
		logger: slog.Default().With("component", "result-cache"),
	}
}

func (c *ResultCache) Name() string {
	return "redis"
}

// Publish stores results for query. After repeated store failures the
// mirror stops writing and returns resilience.ErrOpen until the store has
// had time to recover.
func (c *ResultCache) Publish(ctx context.Context, query string, results []index.SearchResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshaling results for %q: %w", query, err)
	}
	err = c.guard.Do(func() error {
		return c.store.Set(ctx, c.key(query), data, c.ttl)
	})
	if err != nil {
		return fmt.Errorf("storing results for %q: %w", query, err)
	}
	c.stored.Add(1)
	return nil
}

// Lookup returns the mirrored results for query and whether they were found.
func (c *ResultCache) Lookup(ctx context.Context, query string) ([]index.SearchResult, bool, error) {
	data, err := c.store.Get(ctx, c.key(query))
	if err != nil {
		if pkgredis.IsNilError(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("loading results for %q: %w", query, err)
	}
	var results []index.SearchResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		return nil, false, fmt.Errorf("decoding results for %q: %w", query, err)
	}
	return results, true, nil
}

// Invalidate removes every mirrored result under the prefix. Results from a
// previous run describe a different index, so the driver clears them first.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, c.prefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating result cache: %w", err)
	}
	c.logger.Info("result cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stored returns the number of result lists published.
func (c *ResultCache) Stored() int64 {
	return c.stored.Load()
}

func (c *ResultCache) key(query string) string {
	return c.prefix + query
}

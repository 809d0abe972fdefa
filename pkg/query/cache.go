package query

import (
	"context"
	"fmt"
	"log/slog"
)

// Cache stores raw response data by key.
type Cache interface {
	// Get returns the cached data and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// CachingClient applies fetch policies on top of another Client.
type CachingClient struct {
	next   Client
	cache  Cache
	logger *slog.Logger
}

// NewCachingClient wraps next with cache.
func NewCachingClient(next Client, cache Cache, logger *slog.Logger) *CachingClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingClient{next: next, cache: cache, logger: logger}
}

// Query runs d under opts.FetchPolicy. An empty policy means cache-first.
// Cache failures are logged and never fail the query.
func (c *CachingClient) Query(ctx context.Context, d Descriptor, opts Options) (*Response, error) {
	policy := opts.FetchPolicy
	if policy == "" {
		policy = CacheFirst
	}
	if policy == NoCache {
		return c.next.Query(ctx, d, opts)
	}

	key, err := d.CacheKey()
	if err != nil {
		return nil, fmt.Errorf("cache key for %s: %w", d.Operation, err)
	}

	if policy == CacheFirst {
		data, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("query cache read failed", "key", key, "err", err)
		} else if ok {
			c.logger.Debug("query cache hit", "key", key)
			return &Response{Data: data}, nil
		}
	}

	resp, err := c.next.Query(ctx, d, opts)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, resp.Data); err != nil {
		c.logger.Warn("query cache write failed", "key", key, "err", err)
	}
	return resp, nil
}

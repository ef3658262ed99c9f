package newsapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/cache"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
)

const cacheKeyPrefix = "news:"

// CachedSource wraps a NewsSource with a shared response cache keyed by query.
type CachedSource struct {
	inner   domain.NewsSource
	store   cache.Store
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedSource creates a cache decorator around a news source.
func NewCachedSource(inner domain.NewsSource, store cache.Store, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *CachedSource {
	return &CachedSource{
		inner:   inner,
		store:   store,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *CachedSource) Search(ctx context.Context, q domain.NewsQuery) (domain.NewsResponse, error) {
	key := CacheKey(q)
	cached, ok, err := cache.GetJSON[domain.NewsResponse](ctx, c.store, key)
	if err != nil {
		c.logger.Warn("news cache read failed", "error", err)
	}
	if ok {
		c.metrics.NewsCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	c.metrics.NewsCache.WithLabelValues("miss").Inc()

	resp, err := c.inner.Search(ctx, q)
	if err != nil {
		return resp, err
	}
	// Only successful responses are cached so failures are retried next time.
	if resp.Status == "ok" {
		if err := cache.SetJSON(ctx, c.store, key, resp, c.ttl); err != nil {
			c.logger.Warn("news cache write failed", "error", err)
		}
	}
	return resp, nil
}

// CacheKey derives the store key for q. Location lists make raw queries long,
// so the key is a digest.
func CacheKey(q domain.NewsQuery) string {
	sum := sha256.Sum256([]byte(q.CacheKey()))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

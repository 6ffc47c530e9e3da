package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/redis/go-redis/v9"
)

var _ catalog.Source = (*CachedSource)(nil)

// cmdable is the subset of the go-redis client the cache needs.
type cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedSource is a read-through Redis cache in front of another source.
// Redis failures degrade to fetching from the wrapped source; they never fail a load.
type CachedSource struct {
	next   catalog.Source
	cache  cmdable
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedSource(next catalog.Source, cache cmdable, key string, ttl time.Duration, logger *slog.Logger) *CachedSource {
	return &CachedSource{
		next:   next,
		cache:  cache,
		key:    key,
		ttl:    ttl,
		logger: logger.With("component", "catalog-cache"),
	}
}

func (s *CachedSource) Fetch(ctx context.Context) ([]catalog.Product, error) {
	raw, err := s.cache.Get(ctx, s.key).Bytes()
	switch {
	case err == nil:
		products, decodeErr := catalog.DecodePayload(bytes.NewReader(raw))
		if decodeErr == nil {
			s.logger.DebugContext(ctx, "Catalog served from cache", "key", s.key, "count", len(products))
			return products, nil
		}
		s.logger.WarnContext(ctx, "Discarding unreadable cache entry", "key", s.key, "error", decodeErr)
		if delErr := s.cache.Del(ctx, s.key).Err(); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to delete cache entry", "key", s.key, "error", delErr)
		}
	case errors.Is(err, redis.Nil):
		s.logger.DebugContext(ctx, "Catalog cache miss", "key", s.key)
	default:
		s.logger.WarnContext(ctx, "Catalog cache unavailable", "key", s.key, "error", err)
	}

	products, err := s.next.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(catalog.Payload{Products: products})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to encode catalog for cache", "error", err)
		return products, nil
	}
	if err := s.cache.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "Failed to store catalog in cache", "key", s.key, "error", err)
	}
	return products, nil
}

// Invalidate drops the cached catalog so the next fetch reaches the wrapped source.
func (s *CachedSource) Invalidate(ctx context.Context) error {
	if err := s.cache.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pokedex-core/internal/constants"
	"pokedex-core/internal/domain"
	"pokedex-core/internal/repository"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Store is the persistent tier the cache falls back to. Satisfied by
// repository.KVRepository.
type Store interface {
	Get(ctx context.Context, key string) (*repository.Entry, error)
	Set(ctx context.Context, key string, value []byte, fetchedAt time.Time) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// FetchFunc produces the raw payload for a key when both tiers miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Tiered resolves keys through an in-memory tier, then the persistent store,
// then the remote fetch, refreshing both tiers on a miss. Entries expire
// lazily: staleness is checked at read time, there is no background sweep.
type Tiered struct {
	memory *gocache.Cache
	store  Store
	ttl    time.Duration
	logger zerolog.Logger
}

func New(store Store, ttl time.Duration, logger zerolog.Logger) *Tiered {
	return &Tiered{
		memory: gocache.New(ttl, 2*ttl),
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// Resolve returns the cached value for key, fetching and populating both
// tiers when no live entry exists. A fetch failure with no cached fallback
// yields domain.ErrSourceUnavailable; nothing is cached in that case.
func (c *Tiered) Resolve(ctx context.Context, key string, fetch FetchFunc) ([]byte, error) {
	if value, ok := c.memory.Get(key); ok {
		c.logger.Debug().Str("key", key).Msg("memory cache hit")
		return value.([]byte), nil
	}

	if entry, err := c.store.Get(ctx, c.persistentKey(key)); err == nil {
		if time.Since(entry.FetchedAt) < c.ttl {
			c.logger.Debug().Str("key", key).Time("fetched_at", entry.FetchedAt).Msg("persistent cache hit, promoting to memory")
			c.memory.Set(key, entry.Value, time.Until(entry.FetchedAt.Add(c.ttl)))
			return entry.Value, nil
		}
		c.logger.Debug().Str("key", key).Time("fetched_at", entry.FetchedAt).Msg("persistent cache entry expired")
	} else if !errors.Is(err, domain.ErrNotFound) {
		c.logger.Warn().Err(err).Str("key", key).Msg("persistent cache read failed")
	}

	value, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w: %w", key, domain.ErrSourceUnavailable, err)
	}

	fetchedAt := time.Now()
	c.memory.Set(key, value, c.ttl)
	if err := c.store.Set(ctx, c.persistentKey(key), value, fetchedAt); err != nil {
		// Memory-only entry is acceptable degradation.
		c.logger.Warn().Err(err).Str("key", key).Msg("persistent cache write failed")
	}

	c.logger.Debug().Str("key", key).Int("bytes", len(value)).Msg("cache populated from source")
	return value, nil
}

// Clear drops the memory tier unconditionally, then deletes every persistent
// entry under the cache namespace. A persistent failure is reported but the
// memory tier stays cleared.
func (c *Tiered) Clear(ctx context.Context) error {
	c.memory.Flush()

	deleted, err := c.store.DeletePrefix(ctx, constants.CacheKeyPrefix)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to clear persistent cache tier")
		return fmt.Errorf("failed to clear persistent cache tier: %w", err)
	}

	c.logger.Info().Int64("deleted", deleted).Msg("cache cleared")
	return nil
}

func (c *Tiered) persistentKey(key string) string {
	return constants.CacheKeyPrefix + key
}

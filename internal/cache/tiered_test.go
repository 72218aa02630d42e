package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pokedex-core/internal/constants"
	"pokedex-core/internal/domain"
	"pokedex-core/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	entries map[string]repository.Entry
	setErr  error
	delErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]repository.Entry)}
}

func (f *fakeStore) Get(_ context.Context, key string) (*repository.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
	}
	return &entry, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte, fetchedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = repository.Entry{Key: key, Value: value, FetchedAt: fetchedAt}
	return nil
}

func (f *fakeStore) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return 0, f.delErr
	}
	var deleted int64
	for key := range f.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(f.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func failingFetch(t *testing.T) FetchFunc {
	t.Helper()
	return func(context.Context) ([]byte, error) {
		t.Fatal("fetch should not have been invoked")
		return nil, nil
	}
}

func TestResolveFetchesAndPopulatesBothTiers(t *testing.T) {
	store := newFakeStore()
	tiered := New(store, constants.CacheTTL, zerolog.Nop())

	fetches := 0
	value, err := tiered.Resolve(context.Background(), "/pokemon/25", func(context.Context) ([]byte, error) {
		fetches++
		return []byte(`{"id":25}`), nil
	})

	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":25}`), value)
	assert.Equal(t, 1, fetches)

	persisted, ok := store.entries["api_cache_/pokemon/25"]
	require.True(t, ok, "persistent tier should hold the entry")
	assert.Equal(t, []byte(`{"id":25}`), persisted.Value)

	// Second resolve is served from memory.
	value, err = tiered.Resolve(context.Background(), "/pokemon/25", failingFetch(t))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":25}`), value)
}

func TestResolveLiveEntryJustInsideTTL(t *testing.T) {
	store := newFakeStore()
	store.entries["api_cache_/type/fire"] = repository.Entry{
		Key:       "api_cache_/type/fire",
		Value:     []byte(`{"name":"fire"}`),
		FetchedAt: time.Now().Add(-constants.CacheTTL + time.Minute),
	}
	tiered := New(store, constants.CacheTTL, zerolog.Nop())

	value, err := tiered.Resolve(context.Background(), "/type/fire", failingFetch(t))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"name":"fire"}`), value)

	// The hit was promoted into memory.
	value, err = tiered.Resolve(context.Background(), "/type/fire", failingFetch(t))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"name":"fire"}`), value)
}

func TestResolveExpiredEntryRefetches(t *testing.T) {
	store := newFakeStore()
	store.entries["api_cache_/type/fire"] = repository.Entry{
		Key:       "api_cache_/type/fire",
		Value:     []byte(`stale`),
		FetchedAt: time.Now().Add(-constants.CacheTTL - time.Minute),
	}
	tiered := New(store, constants.CacheTTL, zerolog.Nop())

	fetches := 0
	value, err := tiered.Resolve(context.Background(), "/type/fire", func(context.Context) ([]byte, error) {
		fetches++
		return []byte(`fresh`), nil
	})

	require.NoError(t, err)
	assert.Equal(t, []byte(`fresh`), value)
	assert.Equal(t, 1, fetches)
	assert.Equal(t, []byte(`fresh`), store.entries["api_cache_/type/fire"].Value)
}

func TestResolveSourceFailureCachesNothing(t *testing.T) {
	store := newFakeStore()
	tiered := New(store, constants.CacheTTL, zerolog.Nop())

	_, err := tiered.Resolve(context.Background(), "/pokemon/9999", func(context.Context) ([]byte, error) {
		return nil, errors.New("connection refused")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Empty(t, store.entries)

	// A later successful fetch proves nothing poisonous was cached.
	value, err := tiered.Resolve(context.Background(), "/pokemon/9999", func(context.Context) ([]byte, error) {
		return []byte(`ok`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte(`ok`), value)
}

func TestResolvePersistentWriteFailureIsSwallowed(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("disk full")
	tiered := New(store, constants.CacheTTL, zerolog.Nop())

	value, err := tiered.Resolve(context.Background(), "/pokemon/1", func(context.Context) ([]byte, error) {
		return []byte(`bulbasaur`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte(`bulbasaur`), value)

	// Memory-only degradation: the value is still served without refetching.
	value, err = tiered.Resolve(context.Background(), "/pokemon/1", failingFetch(t))
	require.NoError(t, err)
	assert.Equal(t, []byte(`bulbasaur`), value)
}

func TestClearDropsBothTiers(t *testing.T) {
	store := newFakeStore()
	tiered := New(store, constants.CacheTTL, zerolog.Nop())

	_, err := tiered.Resolve(context.Background(), "/pokemon/1", func(context.Context) ([]byte, error) {
		return []byte(`bulbasaur`), nil
	})
	require.NoError(t, err)

	// A non-cache key must survive the clear.
	store.entries["pokedex_teams"] = repository.Entry{Key: "pokedex_teams", Value: []byte(`[]`)}

	require.NoError(t, tiered.Clear(context.Background()))

	_, ok := store.entries["api_cache_/pokemon/1"]
	assert.False(t, ok)
	_, ok = store.entries["pokedex_teams"]
	assert.True(t, ok, "clear must only touch the cache namespace")

	fetches := 0
	_, err = tiered.Resolve(context.Background(), "/pokemon/1", func(context.Context) ([]byte, error) {
		fetches++
		return []byte(`again`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fetches, "cleared key should refetch")
}

func TestClearMemoryEvenWhenPersistentFails(t *testing.T) {
	store := newFakeStore()
	tiered := New(store, constants.CacheTTL, zerolog.Nop())

	_, err := tiered.Resolve(context.Background(), "/pokemon/1", func(context.Context) ([]byte, error) {
		return []byte(`bulbasaur`), nil
	})
	require.NoError(t, err)

	store.delErr = errors.New("database locked")
	err = tiered.Clear(context.Background())
	require.Error(t, err)

	// Memory tier was cleared first regardless of the persistent failure:
	// with the persistent entry still live, the resolve promotes from there
	// rather than from memory, and an expired persistent entry refetches.
	store.entries["api_cache_/pokemon/1"] = repository.Entry{
		Key:       "api_cache_/pokemon/1",
		Value:     []byte(`from-disk`),
		FetchedAt: time.Now(),
	}
	value, err := tiered.Resolve(context.Background(), "/pokemon/1", failingFetch(t))
	require.NoError(t, err)
	assert.Equal(t, []byte(`from-disk`), value)
}

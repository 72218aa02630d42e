package service

import (
	"context"
	"testing"

	"pokedex-core/internal/cache"
	"pokedex-core/internal/constants"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPokemonService(pokeAPI *fakeAPI) (*PokemonService, *fakeKV) {
	kv := newFakeKV()
	tiered := cache.New(kv, constants.CacheTTL, zerolog.Nop())
	effectiveness := NewEffectivenessService(pokeAPI, zerolog.Nop())
	return NewPokemonService(pokeAPI, tiered, effectiveness, zerolog.Nop()), kv
}

func TestLoadAllDropsFailuresAndPreservesOrder(t *testing.T) {
	pokeAPI := newFakeAPI(10)
	pokeAPI.failIDs[3] = true
	pokeAPI.failIDs[6] = true
	pokeAPI.failIDs[9] = true
	svc, _ := newPokemonService(pokeAPI)

	roster, err := svc.LoadAll(context.Background())
	require.NoError(t, err)

	require.Len(t, roster, 7)
	ids := make([]int, 0, len(roster))
	for _, p := range roster {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int{1, 2, 4, 5, 7, 8, 10}, ids, "survivors keep source-list order")
}

func TestLoadAllMemoizesUnderAggregateKey(t *testing.T) {
	pokeAPI := newFakeAPI(5)
	svc, kv := newPokemonService(pokeAPI)

	_, err := svc.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pokeAPI.listCalls)
	assert.Equal(t, 5, pokeAPI.pokemonCalls)

	_, ok := kv.entries[constants.CacheKeyPrefix+constants.AllPokemonCacheKey]
	assert.True(t, ok, "assembled roster persisted under the aggregate key")

	// Repeated loads are O(1): served from cache, no new remote calls.
	_, err = svc.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pokeAPI.listCalls)
	assert.Equal(t, 5, pokeAPI.pokemonCalls)
}

func TestWarmCachePopulatesAggregateKey(t *testing.T) {
	pokeAPI := newFakeAPI(3)
	svc, kv := newPokemonService(pokeAPI)

	svc.WarmCache(context.Background())

	_, ok := kv.entries[constants.CacheKeyPrefix+constants.AllPokemonCacheKey]
	assert.True(t, ok)
}

func TestSearchFiltersInMemory(t *testing.T) {
	pokeAPI := newFakeAPI(9)
	svc, _ := newPokemonService(pokeAPI)

	// By canonical name substring.
	results, err := svc.Search(context.Background(), "pokemon-3", Filters{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].ID)

	// By localized name substring.
	results, err = svc.Search(context.Background(), "POKEMON-FR-4", Filters{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 4, results[0].ID)

	// By type membership.
	results, err = svc.Search(context.Background(), "", Filters{Types: []string{"fire"}})
	require.NoError(t, err)
	ids := make([]int, 0, len(results))
	for _, p := range results {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int{2, 5, 8}, ids)

	// By generation.
	results, err = svc.Search(context.Background(), "", Filters{Generation: 2})
	require.NoError(t, err)
	assert.Empty(t, results)

	// Limit caps the result set.
	results, err = svc.Search(context.Background(), "", Filters{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// Filtering never re-fetched anything.
	assert.Equal(t, 1, pokeAPI.listCalls)
}

func TestGetDetailsJoinsSummaryAndEffectiveness(t *testing.T) {
	pokeAPI := newFakeAPI(0)
	pokeAPI.relations["fire"] = fireRelations()
	svc, _ := newPokemonService(pokeAPI)

	details, err := svc.GetDetails(context.Background(), "2")
	require.NoError(t, err)

	assert.Equal(t, 2, details.Summary.ID)
	assert.Equal(t, "pokemon-2", details.Summary.Name)
	assert.Equal(t, "pokemon-fr-2", details.Summary.LocalizedName)
	assert.Equal(t, []string{"fire"}, details.Summary.Types)
	assert.Equal(t, 1, details.Summary.Generation)
	assert.Contains(t, details.Effectiveness.WeakTo, "water")
	assert.Contains(t, details.Effectiveness.StrongAgainst, "grass")
}

func TestPageReportsHasMoreAndTotal(t *testing.T) {
	pokeAPI := newFakeAPI(30)
	svc, _ := newPokemonService(pokeAPI)

	page, err := svc.Page(context.Background(), 10, 0)
	require.NoError(t, err)

	assert.Len(t, page.Results, 10)
	assert.True(t, page.HasMore)
	assert.Equal(t, 30, page.Total)

	last, err := svc.Page(context.Background(), 10, 20)
	require.NoError(t, err)
	assert.Len(t, last.Results, 10)
	assert.False(t, last.HasMore)
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"pokedex-core/internal/api"
	"pokedex-core/internal/domain"
	"pokedex-core/internal/repository"
)

// fakeKV is an in-memory stand-in for the persistent-store boundary,
// satisfying both cache.Store and DocumentStore.
type fakeKV struct {
	mu      sync.Mutex
	entries map[string]repository.Entry
	setErr  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{entries: make(map[string]repository.Entry)}
}

func (f *fakeKV) Get(_ context.Context, key string) (*repository.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
	}
	return &entry, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte, fetchedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = repository.Entry{Key: key, Value: value, FetchedAt: fetchedAt}
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

func (f *fakeKV) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for key := range f.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(f.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// fakeAPI serves canned pokemon and type-relation data, tracking call counts
// and failing the ids listed in failIDs.
type fakeAPI struct {
	mu           sync.Mutex
	relations    map[string]domain.TypeRelations
	failIDs      map[int]bool
	failTypes    map[string]bool
	listTotal    int
	pokemonCalls int
	speciesCalls int
	listCalls    int
	typeCalls    int
}

func newFakeAPI(listTotal int) *fakeAPI {
	return &fakeAPI{
		relations: make(map[string]domain.TypeRelations),
		failIDs:   make(map[int]bool),
		failTypes: make(map[string]bool),
		listTotal: listTotal,
	}
}

func (f *fakeAPI) GetPokemon(_ context.Context, idOrName string) (*api.PokemonResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pokemonCalls++

	id, _ := strconv.Atoi(idOrName)
	if f.failIDs[id] {
		return nil, fmt.Errorf("pokemon %d: %w", id, domain.ErrSourceUnavailable)
	}

	resp := &api.PokemonResponse{
		ID:   id,
		Name: fmt.Sprintf("pokemon-%d", id),
		Types: []api.TypeSlot{
			{Slot: 1, Type: api.NamedResource{Name: typeForID(id)}},
		},
	}
	resp.Sprites.FrontDefault = fmt.Sprintf("https://sprites.example/%d.png", id)
	return resp, nil
}

func (f *fakeAPI) GetSpecies(_ context.Context, idOrName string) (*api.SpeciesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speciesCalls++

	id, _ := strconv.Atoi(idOrName)
	if f.failIDs[id] {
		return nil, fmt.Errorf("species %d: %w", id, domain.ErrSourceUnavailable)
	}

	return &api.SpeciesResponse{
		ID:   id,
		Name: fmt.Sprintf("pokemon-%d", id),
		Names: []api.SpeciesName{
			{Language: api.NamedResource{Name: "fr"}, Name: fmt.Sprintf("pokemon-fr-%d", id)},
		},
		Generation: api.NamedResource{
			Name: "generation-i",
			URL:  fmt.Sprintf("https://pokeapi.co/api/v2/generation/%d/", 1+(id-1)/151),
		},
	}, nil
}

func (f *fakeAPI) GetPokemonList(_ context.Context, limit, offset int) (*api.ListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	resp := &api.ListResponse{Count: f.listTotal}
	for i := offset + 1; i <= f.listTotal && len(resp.Results) < limit; i++ {
		resp.Results = append(resp.Results, api.NamedResource{
			Name: fmt.Sprintf("pokemon-%d", i),
			URL:  fmt.Sprintf("https://pokeapi.co/api/v2/pokemon/%d/", i),
		})
	}
	if offset+len(resp.Results) < f.listTotal {
		resp.Next = "https://pokeapi.co/api/v2/pokemon?offset=next"
	}
	return resp, nil
}

func (f *fakeAPI) GetTypeRelations(_ context.Context, typeName string) (*domain.TypeRelations, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typeCalls++

	if f.failTypes[typeName] {
		return nil, fmt.Errorf("type %q: %w", typeName, domain.ErrSourceUnavailable)
	}
	rel, ok := f.relations[typeName]
	if !ok {
		return &domain.TypeRelations{Type: typeName}, nil
	}
	return &rel, nil
}

func (f *fakeAPI) ClearCache(context.Context) error { return nil }

// typeForID gives the fixtures a deterministic type spread for filter tests.
func typeForID(id int) string {
	types := []string{"grass", "fire", "water"}
	return types[(id-1)%len(types)]
}

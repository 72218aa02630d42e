package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"pokedex-core/internal/api"
	"pokedex-core/internal/cache"
	"pokedex-core/internal/constants"
	"pokedex-core/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PokemonService assembles normalized summaries from the remote source,
// fanning out the per-pokemon sub-fetches and memoizing the full roster
// under one aggregate cache key.
type PokemonService struct {
	api           PokeAPI
	cache         *cache.Tiered
	effectiveness *EffectivenessService
	logger        zerolog.Logger
}

func NewPokemonService(pokeAPI PokeAPI, tiered *cache.Tiered, effectiveness *EffectivenessService, logger zerolog.Logger) *PokemonService {
	return &PokemonService{
		api:           pokeAPI,
		cache:         tiered,
		effectiveness: effectiveness,
		logger:        logger,
	}
}

// Filters narrows a search over the assembled roster. Applied in memory,
// never by re-fetching.
type Filters struct {
	Types      []string
	Generation int
	Limit      int
}

// Details is the full detail-screen payload for one pokemon.
type Details struct {
	Summary       domain.PokemonSummary       `json:"summary"`
	Effectiveness domain.EffectivenessProfile `json:"effectiveness"`
}

// GetSummary resolves one pokemon into its normalized summary.
func (s *PokemonService) GetSummary(ctx context.Context, idOrName string) (*domain.PokemonSummary, error) {
	return s.loadSummary(ctx, idOrName)
}

// GetDetails joins the summary with its effectiveness profile.
func (s *PokemonService) GetDetails(ctx context.Context, idOrName string) (*Details, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	summary, err := s.loadSummary(ctx, idOrName)
	if err != nil {
		return nil, err
	}

	profile, err := s.effectiveness.Classify(ctx, summary.Types)
	if err != nil {
		return nil, err
	}

	return &Details{Summary: *summary, Effectiveness: *profile}, nil
}

// LoadAll returns the fully assembled roster, building and caching it under
// the aggregate key on first use. Individual pokemon that fail to resolve
// are dropped with a warning; the call itself never fails on their account.
func (s *PokemonService) LoadAll(ctx context.Context) ([]domain.PokemonSummary, error) {
	body, err := s.cache.Resolve(ctx, constants.AllPokemonCacheKey, s.assembleRoster)
	if err != nil {
		return nil, err
	}

	var roster []domain.PokemonSummary
	if err := json.Unmarshal(body, &roster); err != nil {
		return nil, fmt.Errorf("decoding cached roster: %w", err)
	}
	return roster, nil
}

// WarmCache eagerly populates the aggregate roster key and discards the
// result. Failure is logged, never surfaced; callers rely only on the cache
// side effect.
func (s *PokemonService) WarmCache(ctx context.Context) {
	if _, err := s.LoadAll(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("cache warm-up failed")
		return
	}
	s.logger.Info().Msg("cache warmed")
}

// Search filters the cached roster by name substring (canonical and
// localized), type membership and generation.
func (s *PokemonService) Search(ctx context.Context, query string, filters Filters) ([]domain.PokemonSummary, error) {
	roster, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = constants.DefaultSearchLimit
	}

	query = strings.ToLower(query)
	results := make([]domain.PokemonSummary, 0, limit)
	for _, p := range roster {
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.LocalizedName), query) {
			continue
		}
		if len(filters.Types) > 0 && !hasAnyType(p.Types, filters.Types) {
			continue
		}
		if filters.Generation > 0 && p.Generation != filters.Generation {
			continue
		}

		results = append(results, p)
		if len(results) >= limit {
			break
		}
	}

	return results, nil
}

// Page loads one slice of the pokedex listing, resolving each entry through
// the cache with the usual partial-failure tolerance.
func (s *PokemonService) Page(ctx context.Context, limit, offset int) (*domain.Page, error) {
	if limit <= 0 {
		limit = constants.DefaultPageLimit
	}

	list, err := s.api.GetPokemonList(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	results := s.loadRoster(ctx, list.Results)
	return &domain.Page{
		Results: results,
		HasMore: list.Next != "",
		Total:   list.Count,
	}, nil
}

// ClearCache drops both cache tiers, including the aggregate roster key.
func (s *PokemonService) ClearCache(ctx context.Context) error {
	return s.api.ClearCache(ctx)
}

func (s *PokemonService) assembleRoster(ctx context.Context) ([]byte, error) {
	list, err := s.api.GetPokemonList(ctx, constants.RosterFetchLimit, 0)
	if err != nil {
		return nil, err
	}

	roster := s.loadRoster(ctx, list.Results)
	s.logger.Info().
		Int("requested", len(list.Results)).
		Int("loaded", len(roster)).
		Msg("roster assembled")

	return json.Marshal(roster)
}

// loadRoster resolves every list entry concurrently. Completion order is
// unordered but the returned sequence preserves source-list order; entries
// that fail are dropped with a warning.
func (s *PokemonService) loadRoster(ctx context.Context, sources []api.NamedResource) []domain.PokemonSummary {
	// Issued sub-fetches run to completion even if the caller goes away:
	// their cache writes stay useful for the next load.
	ctx = context.WithoutCancel(ctx)

	slots := make([]*domain.PokemonSummary, len(sources))

	g := new(errgroup.Group)
	g.SetLimit(constants.FetchConcurrency)
	for i, source := range sources {
		g.Go(func() error {
			id := api.ResourceID(source.URL)
			summary, err := s.loadSummary(ctx, strconv.Itoa(id))
			if err != nil {
				s.logger.Warn().Err(err).Str("name", source.Name).Int("id", id).Msg("dropping pokemon that failed to load")
				return nil
			}
			slots[i] = summary
			return nil
		})
	}
	// Item errors are swallowed above, Wait only joins the fan-out.
	_ = g.Wait()

	roster := make([]domain.PokemonSummary, 0, len(slots))
	for _, slot := range slots {
		if slot != nil {
			roster = append(roster, *slot)
		}
	}
	return roster
}

// loadSummary fetches the base pokemon and its species metadata concurrently
// and joins them into one immutable summary.
func (s *PokemonService) loadSummary(ctx context.Context, idOrName string) (*domain.PokemonSummary, error) {
	g, gCtx := errgroup.WithContext(ctx)

	var pokemon *api.PokemonResponse
	var species *api.SpeciesResponse

	g.Go(func() error {
		var err error
		pokemon, err = s.api.GetPokemon(gCtx, idOrName)
		return err
	})
	g.Go(func() error {
		var err error
		species, err = s.api.GetSpecies(gCtx, idOrName)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading pokemon %q: %w", idOrName, err)
	}

	return &domain.PokemonSummary{
		ID:            pokemon.ID,
		Name:          pokemon.Name,
		LocalizedName: species.LocalizedName("fr"),
		Types:         pokemon.TypeNames(),
		Sprite:        pokemon.BestSprite(),
		Generation:    api.GenerationNumber(species.Generation),
	}, nil
}

func hasAnyType(have, want []string) bool {
	for _, t := range have {
		if slices.Contains(want, t) {
			return true
		}
	}
	return false
}

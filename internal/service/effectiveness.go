package service

import (
	"context"
	"fmt"
	"slices"

	"pokedex-core/internal/api"
	"pokedex-core/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PokeAPI is the remote-source surface the services consume. Satisfied by
// *api.Client.
type PokeAPI interface {
	GetPokemon(ctx context.Context, idOrName string) (*api.PokemonResponse, error)
	GetSpecies(ctx context.Context, idOrName string) (*api.SpeciesResponse, error)
	GetPokemonList(ctx context.Context, limit, offset int) (*api.ListResponse, error)
	GetTypeRelations(ctx context.Context, typeName string) (*domain.TypeRelations, error)
	ClearCache(ctx context.Context) error
}

// EffectivenessService aggregates per-type damage relations into defensive
// and offensive classifications for a one- or two-type combination.
type EffectivenessService struct {
	api    PokeAPI
	logger zerolog.Logger
}

func NewEffectivenessService(pokeAPI PokeAPI, logger zerolog.Logger) *EffectivenessService {
	return &EffectivenessService{api: pokeAPI, logger: logger}
}

// Classify computes the effectiveness profile for the given type combination.
// Defense multiplies across the combination's own types; offense takes the
// best single type, since one well-matched move type is enough to carry the
// matchup.
func (s *EffectivenessService) Classify(ctx context.Context, types []string) (*domain.EffectivenessProfile, error) {
	relations, err := s.fetchRelations(ctx, types)
	if err != nil {
		return nil, err
	}

	return buildProfile(relations), nil
}

func (s *EffectivenessService) fetchRelations(ctx context.Context, types []string) ([]domain.TypeRelations, error) {
	relations := make([]domain.TypeRelations, len(types))

	g, gCtx := errgroup.WithContext(ctx)
	for i, typeName := range types {
		g.Go(func() error {
			rel, err := s.api.GetTypeRelations(gCtx, typeName)
			if err != nil {
				return fmt.Errorf("fetching relations for %q: %w", typeName, err)
			}
			relations[i] = *rel
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Strs("types", types).Msg("failed to fetch type relations")
		return nil, err
	}

	return relations, nil
}

// buildProfile classifies every known type against the combination described
// by relations. Neutral matchups (multiplier exactly 1) are omitted.
func buildProfile(relations []domain.TypeRelations) *domain.EffectivenessProfile {
	profile := &domain.EffectivenessProfile{
		WeakTo:        []string{},
		ResistantTo:   []string{},
		StrongAgainst: []string{},
		WeakAgainst:   []string{},
	}

	for _, candidate := range domain.AllTypes {
		defensive := defensiveMultiplier(relations, candidate)
		if defensive > 1 {
			profile.WeakTo = append(profile.WeakTo, candidate)
		} else if defensive < 1 {
			// Immunity (0) folds into the resisted bucket.
			profile.ResistantTo = append(profile.ResistantTo, candidate)
		}

		offensive := offensiveMultiplier(relations, candidate)
		if offensive > 1 {
			profile.StrongAgainst = append(profile.StrongAgainst, candidate)
		} else if offensive < 1 {
			profile.WeakAgainst = append(profile.WeakAgainst, candidate)
		}
	}

	return profile
}

// defensiveMultiplier is the product over own types of the single-type
// multiplier for an incoming attack of the candidate type.
func defensiveMultiplier(relations []domain.TypeRelations, attackType string) float64 {
	multiplier := 1.0
	for i := range relations {
		multiplier *= incomingMultiplier(&relations[i], attackType)
	}
	return multiplier
}

// offensiveMultiplier is the best single-type multiplier over own types
// attacking the candidate type. Max, not product: only the best-matching
// move type needs to connect.
func offensiveMultiplier(relations []domain.TypeRelations, defendType string) float64 {
	if len(relations) == 0 {
		return 1
	}
	best := outgoingMultiplier(&relations[0], defendType)
	for i := 1; i < len(relations); i++ {
		if m := outgoingMultiplier(&relations[i], defendType); m > best {
			best = m
		}
	}
	return best
}

// incomingMultiplier is the damage factor one defending type takes from an
// attack of attackType.
func incomingMultiplier(rel *domain.TypeRelations, attackType string) float64 {
	switch {
	case slices.Contains(rel.DoubleFrom, attackType):
		return 2
	case slices.Contains(rel.HalfFrom, attackType):
		return 0.5
	case slices.Contains(rel.NoneFrom, attackType):
		return 0
	default:
		return 1
	}
}

// outgoingMultiplier is the damage factor one attacking type deals to a
// defender of defendType.
func outgoingMultiplier(rel *domain.TypeRelations, defendType string) float64 {
	switch {
	case slices.Contains(rel.DoubleTo, defendType):
		return 2
	case slices.Contains(rel.HalfTo, defendType):
		return 0.5
	case slices.Contains(rel.NoneTo, defendType):
		return 0
	default:
		return 1
	}
}

package service

import (
	"context"
	"fmt"
	"sort"

	"pokedex-core/internal/constants"
	"pokedex-core/internal/domain"

	"github.com/rs/zerolog"
)

// RecommendationService ranks a stored team against an opponent's type
// combination using the same single-type multipliers as the effectiveness
// engine.
type RecommendationService struct {
	api    PokeAPI
	teams  *TeamService
	logger zerolog.Logger
}

func NewRecommendationService(pokeAPI PokeAPI, teams *TeamService, logger zerolog.Logger) *RecommendationService {
	return &RecommendationService{api: pokeAPI, teams: teams, logger: logger}
}

type scoredMember struct {
	member     domain.TeamPokemon
	multiplier float64
}

// Recommend scores every member of the team against opponentTypes. A member's
// aggregate multiplier is the product over all (member type, opponent type)
// pairs; members above 1 are ranked descending, stable by roster order.
// Reasons records every non-neutral pair that was evaluated, whether or not
// the member ranked — it is an audit trail, not a filtered match of Ranked.
func (s *RecommendationService) Recommend(ctx context.Context, opponentTypes []string, teamID string) (*domain.Recommendation, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	recommendation := &domain.Recommendation{
		Ranked:  []domain.TeamPokemon{},
		Reasons: []string{},
	}
	if len(opponentTypes) == 0 || len(team.Pokemon) == 0 {
		return recommendation, nil
	}

	relationsByType := make(map[string]*domain.TypeRelations)
	var scored []scoredMember

	for _, member := range team.Pokemon {
		multiplier, reasons, err := s.scoreMember(ctx, member, opponentTypes, relationsByType)
		if err != nil {
			// Per-member source failures are recoverable: drop the member,
			// keep scoring the rest.
			s.logger.Warn().Err(err).Str("member", member.Name).Msg("skipping member with unresolvable type relations")
			continue
		}

		recommendation.Reasons = append(recommendation.Reasons, reasons...)
		if multiplier > 1 {
			scored = append(scored, scoredMember{member: member, multiplier: multiplier})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].multiplier > scored[j].multiplier
	})
	for _, sm := range scored {
		recommendation.Ranked = append(recommendation.Ranked, sm.member)
	}

	s.logger.Info().
		Str("team_id", teamID).
		Strs("opponent_types", opponentTypes).
		Int("ranked", len(recommendation.Ranked)).
		Int("reasons", len(recommendation.Reasons)).
		Msg("recommendation computed")

	return recommendation, nil
}

func (s *RecommendationService) scoreMember(
	ctx context.Context,
	member domain.TeamPokemon,
	opponentTypes []string,
	relationsByType map[string]*domain.TypeRelations,
) (float64, []string, error) {
	multiplier := 1.0
	var reasons []string

	for _, memberType := range member.Types {
		rel, ok := relationsByType[memberType]
		if !ok {
			fetched, err := s.api.GetTypeRelations(ctx, memberType)
			if err != nil {
				return 0, nil, err
			}
			relationsByType[memberType] = fetched
			rel = fetched
		}

		for _, opponentType := range opponentTypes {
			pair := outgoingMultiplier(rel, opponentType)
			multiplier *= pair

			switch pair {
			case 2:
				reasons = append(reasons, fmt.Sprintf("%s is super effective against %s", memberType, opponentType))
			case 0.5:
				reasons = append(reasons, fmt.Sprintf("%s is not very effective against %s", memberType, opponentType))
			case 0:
				reasons = append(reasons, fmt.Sprintf("%s has no effect on %s", memberType, opponentType))
			}
		}
	}

	return multiplier, reasons, nil
}

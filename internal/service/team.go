package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"pokedex-core/internal/constants"
	"pokedex-core/internal/domain"
	"pokedex-core/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// DocumentStore is the slice of the persistent-store boundary the team store
// needs. Satisfied by repository.KVRepository.
type DocumentStore interface {
	Get(ctx context.Context, key string) (*repository.Entry, error)
	Set(ctx context.Context, key string, value []byte, fetchedAt time.Time) error
	Delete(ctx context.Context, key string) error
}

// TeamService persists every team inside one document and rewrites it whole
// on each mutation. Writes are last-writer-wins with no version token, which
// is fine for a single-user local store.
type TeamService struct {
	store  DocumentStore
	logger zerolog.Logger
}

func NewTeamService(store DocumentStore, logger zerolog.Logger) *TeamService {
	return &TeamService{store: store, logger: logger}
}

// List returns every team, main team first, then newest created first.
func (s *TeamService) List(ctx context.Context) ([]domain.Team, error) {
	teams, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(teams, func(i, j int) bool {
		if teams[i].IsMain != teams[j].IsMain {
			return teams[i].IsMain
		}
		return teams[i].CreatedAt.After(teams[j].CreatedAt)
	})
	return teams, nil
}

func (s *TeamService) GetByID(ctx context.Context, teamID string) (*domain.Team, error) {
	teams, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range teams {
		if teams[i].ID == teamID {
			return &teams[i], nil
		}
	}
	return nil, fmt.Errorf("team %q: %w", teamID, domain.ErrNotFound)
}

// GetMain returns the team flagged as main, or ErrNotFound when none is.
func (s *TeamService) GetMain(ctx context.Context) (*domain.Team, error) {
	teams, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range teams {
		if teams[i].IsMain {
			return &teams[i], nil
		}
	}
	return nil, fmt.Errorf("main team: %w", domain.ErrNotFound)
}

// Create inserts an empty team. When isMain is set, every existing main flag
// is cleared first so the single-main invariant holds before the insert.
func (s *TeamService) Create(ctx context.Context, name string, isMain bool) (*domain.Team, error) {
	teams, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if isMain {
		for i := range teams {
			if teams[i].IsMain {
				teams[i].IsMain = false
				teams[i].UpdatedAt = now
			}
		}
	}
	team := domain.Team{
		ID:        "team_" + gonanoid.Must(),
		Name:      name,
		Pokemon:   []domain.TeamPokemon{},
		IsMain:    isMain,
		CreatedAt: now,
		UpdatedAt: now,
	}
	teams = append(teams, team)

	if err := s.save(ctx, teams); err != nil {
		return nil, err
	}

	s.logger.Info().Str("team_id", team.ID).Str("name", name).Bool("is_main", isMain).Msg("team created")
	return &team, nil
}

// Rename updates a team's display name.
func (s *TeamService) Rename(ctx context.Context, teamID, name string) (*domain.Team, error) {
	return s.mutate(ctx, teamID, func(team *domain.Team) error {
		team.Name = name
		return nil
	})
}

// AddMember appends a pokemon to the team, enforcing the capacity and
// uniqueness invariants. The team is unchanged when either check fails.
func (s *TeamService) AddMember(ctx context.Context, teamID string, member domain.TeamPokemon) (*domain.Team, error) {
	return s.mutate(ctx, teamID, func(team *domain.Team) error {
		if len(team.Pokemon) >= constants.MaxTeamSize {
			return fmt.Errorf("team %q: %w", teamID, domain.ErrTeamFull)
		}
		for _, p := range team.Pokemon {
			if p.ID == member.ID {
				return fmt.Errorf("pokemon %d on team %q: %w", member.ID, teamID, domain.ErrDuplicateMember)
			}
		}
		if member.AddedAt.IsZero() {
			member.AddedAt = time.Now()
		}
		team.Pokemon = append(team.Pokemon, member)
		return nil
	})
}

// RemoveMember drops a pokemon from the team. Removing an absent member is
// not an error; the team's UpdatedAt is stamped either way.
func (s *TeamService) RemoveMember(ctx context.Context, teamID string, pokemonID int) (*domain.Team, error) {
	return s.mutate(ctx, teamID, func(team *domain.Team) error {
		kept := team.Pokemon[:0]
		for _, p := range team.Pokemon {
			if p.ID != pokemonID {
				kept = append(kept, p)
			}
		}
		team.Pokemon = kept
		return nil
	})
}

// SetMain flags the target team as main and clears the flag on every other
// team in the same write. The store is untouched when the team is missing.
func (s *TeamService) SetMain(ctx context.Context, teamID string) error {
	teams, err := s.load(ctx)
	if err != nil {
		return err
	}

	found := false
	now := time.Now()
	for i := range teams {
		switch {
		case teams[i].ID == teamID:
			teams[i].IsMain = true
			teams[i].UpdatedAt = now
			found = true
		case teams[i].IsMain:
			teams[i].IsMain = false
			teams[i].UpdatedAt = now
		}
	}

	if !found {
		return fmt.Errorf("team %q: %w", teamID, domain.ErrNotFound)
	}
	return s.save(ctx, teams)
}

// Delete removes the team. A missing team reports ErrNotFound and leaves the
// store unchanged.
func (s *TeamService) Delete(ctx context.Context, teamID string) error {
	teams, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := make([]domain.Team, 0, len(teams))
	for _, t := range teams {
		if t.ID != teamID {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(teams) {
		return fmt.Errorf("team %q: %w", teamID, domain.ErrNotFound)
	}

	if err := s.save(ctx, kept); err != nil {
		return err
	}
	s.logger.Info().Str("team_id", teamID).Msg("team deleted")
	return nil
}

// AddToMain appends a pokemon to the main team, creating one when the user
// has none yet.
func (s *TeamService) AddToMain(ctx context.Context, member domain.TeamPokemon) (*domain.Team, error) {
	main, err := s.GetMain(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		main, err = s.Create(ctx, "Main Team", true)
	}
	if err != nil {
		return nil, err
	}

	return s.AddMember(ctx, main.ID, member)
}

// RemoveFromMain drops a pokemon from the main team.
func (s *TeamService) RemoveFromMain(ctx context.Context, pokemonID int) (*domain.Team, error) {
	main, err := s.GetMain(ctx)
	if err != nil {
		return nil, err
	}
	return s.RemoveMember(ctx, main.ID, pokemonID)
}

// Stats summarizes the store for the overview screen.
func (s *TeamService) Stats(ctx context.Context) (*domain.TeamStats, error) {
	teams, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.TeamStats{TotalTeams: len(teams)}
	for _, t := range teams {
		stats.TotalPokemon += len(t.Pokemon)
		if t.IsMain {
			stats.MainTeamSize = len(t.Pokemon)
		}
	}
	if len(teams) > 0 {
		stats.AveragePerTeam = float64(stats.TotalPokemon) / float64(len(teams))
	}
	return stats, nil
}

// Export serializes the whole team list.
func (s *TeamService) Export(ctx context.Context) ([]byte, error) {
	teams, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(teams, "", "  ")
}

// Import merges serialized teams into the store. Colliding ids get fresh
// ones, and an imported main team takes the flag from every existing team.
func (s *TeamService) Import(ctx context.Context, data []byte) error {
	var imported []domain.Team
	if err := json.Unmarshal(data, &imported); err != nil {
		return fmt.Errorf("invalid team export: %w", err)
	}

	teams, err := s.load(ctx)
	if err != nil {
		return err
	}

	existing := make(map[string]bool, len(teams))
	for _, t := range teams {
		existing[t.ID] = true
	}

	for _, t := range imported {
		if existing[t.ID] {
			t.ID = "team_" + gonanoid.Must()
		}
		if t.IsMain {
			for i := range teams {
				teams[i].IsMain = false
			}
		}
		existing[t.ID] = true
		teams = append(teams, t)
	}

	if err := s.save(ctx, teams); err != nil {
		return err
	}
	s.logger.Info().Int("imported", len(imported)).Msg("teams imported")
	return nil
}

// ClearAll deletes the whole team document.
func (s *TeamService) ClearAll(ctx context.Context) error {
	if err := s.store.Delete(ctx, constants.TeamsStorageKey); err != nil {
		return err
	}
	s.logger.Info().Msg("all teams cleared")
	return nil
}

// mutate runs one read-modify-write cycle against a single team and stamps
// UpdatedAt on success.
func (s *TeamService) mutate(ctx context.Context, teamID string, apply func(*domain.Team) error) (*domain.Team, error) {
	teams, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range teams {
		if teams[i].ID != teamID {
			continue
		}
		if err := apply(&teams[i]); err != nil {
			return nil, err
		}
		teams[i].UpdatedAt = time.Now()
		if err := s.save(ctx, teams); err != nil {
			return nil, err
		}
		return &teams[i], nil
	}

	return nil, fmt.Errorf("team %q: %w", teamID, domain.ErrNotFound)
}

func (s *TeamService) load(ctx context.Context) ([]domain.Team, error) {
	entry, err := s.store.Get(ctx, constants.TeamsStorageKey)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Team{}, nil
	}
	if err != nil {
		return nil, err
	}

	var teams []domain.Team
	if err := json.Unmarshal(entry.Value, &teams); err != nil {
		s.logger.Error().Err(err).Msg("team document is corrupt")
		return nil, fmt.Errorf("decoding team document: %w: %w", domain.ErrPersistence, err)
	}
	return teams, nil
}

// save rewrites the whole document. A storage failure here is fatal to the
// calling mutation: user-authored data takes integrity over availability.
func (s *TeamService) save(ctx context.Context, teams []domain.Team) error {
	data, err := json.Marshal(teams)
	if err != nil {
		return fmt.Errorf("encoding team document: %w", err)
	}
	return s.store.Set(ctx, constants.TeamsStorageKey, data, time.Now())
}

package domain

import (
	"time"
)

// AllTypes lists every damage type PokeAPI knows about. Kept static so the
// type picker never needs a network round-trip.
var AllTypes = []string{
	"normal", "fire", "water", "electric", "grass", "ice",
	"fighting", "poison", "ground", "flying", "psychic", "bug",
	"rock", "ghost", "dragon", "dark", "steel", "fairy",
}

// PokemonSummary is the normalized join of the base pokemon resource and its
// species metadata. Immutable once built.
type PokemonSummary struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	LocalizedName string   `json:"localizedName"`
	Types         []string `json:"types"`
	Sprite        string   `json:"sprite,omitempty"`
	Generation    int      `json:"generation"`
}

// TypeRelations holds the six damage-relation sets for one type, as served by
// the type endpoint.
type TypeRelations struct {
	Type       string   `json:"type"`
	DoubleFrom []string `json:"doubleFrom"`
	DoubleTo   []string `json:"doubleTo"`
	HalfFrom   []string `json:"halfFrom"`
	HalfTo     []string `json:"halfTo"`
	NoneFrom   []string `json:"noneFrom"`
	NoneTo     []string `json:"noneTo"`
}

// EffectivenessProfile classifies every non-neutral matchup for a type
// combination. Immunities land in ResistantTo; neutral types appear nowhere.
type EffectivenessProfile struct {
	WeakTo        []string `json:"weakTo"`
	ResistantTo   []string `json:"resistantTo"`
	StrongAgainst []string `json:"strongAgainst"`
	WeakAgainst   []string `json:"weakAgainst"`
}

// TeamPokemon is a roster slot. Owned by exactly one Team.
type TeamPokemon struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	LocalizedName string    `json:"localizedName,omitempty"`
	Types         []string  `json:"types"`
	Sprite        string    `json:"sprite,omitempty"`
	AddedAt       time.Time `json:"addedAt"`
}

// Team is a user-curated roster of up to six pokemon. At most one team in the
// store carries IsMain.
type Team struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Pokemon   []TeamPokemon `json:"pokemon"`
	IsMain    bool          `json:"isMain"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Recommendation ranks team members against an opponent's type combination.
// Reasons covers every non-neutral type pairing that was evaluated, including
// pairs belonging to members that did not make the ranking.
type Recommendation struct {
	Ranked  []TeamPokemon `json:"ranked"`
	Reasons []string      `json:"reasons"`
}

// TeamStats summarizes the whole store for the teams overview screen.
type TeamStats struct {
	TotalTeams     int     `json:"totalTeams"`
	TotalPokemon   int     `json:"totalPokemon"`
	AveragePerTeam float64 `json:"averagePerTeam"`
	MainTeamSize   int     `json:"mainTeamSize"`
}

// Page is one slice of the full pokedex listing.
type Page struct {
	Results []PokemonSummary `json:"results"`
	HasMore bool             `json:"hasMore"`
	Total   int              `json:"total"`
}

package constants

import "time"

const (
	// CacheTTL applies uniformly to every cached key; expiry is checked
	// lazily at read time.
	CacheTTL = 24 * time.Hour

	// CacheKeyPrefix namespaces cache rows in the persistent store so a
	// cache clear never touches user-authored data.
	CacheKeyPrefix = "api_cache_"

	// AllPokemonCacheKey memoizes the fully assembled pokedex roster.
	AllPokemonCacheKey = "all-entities"

	// TeamsStorageKey is the single document the team store reads and
	// rewrites wholesale.
	TeamsStorageKey = "pokedex_teams"
)

const (
	ExternalAPITimeout = 10 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	// MaxTeamSize caps a roster at the in-game team size.
	MaxTeamSize = 6

	// RosterFetchLimit bounds the full-pokedex load, matching the slice the
	// search screen indexes.
	RosterFetchLimit = 500

	// FetchConcurrency bounds concurrent per-pokemon fan-out against the
	// remote API.
	FetchConcurrency = 20

	DefaultSearchLimit = 20
	DefaultPageLimit   = 20
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

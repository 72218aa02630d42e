package domain

import "errors"

var (
	// ErrSourceUnavailable means the remote fetch failed and no cached
	// fallback existed in either tier.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNotFound covers missing teams, members and remote resources.
	ErrNotFound = errors.New("not found")

	// ErrTeamFull is returned when a seventh member is added to a team.
	ErrTeamFull = errors.New("team already has the maximum number of pokemon")

	// ErrDuplicateMember is returned when a pokemon id is already on the team.
	ErrDuplicateMember = errors.New("pokemon is already on the team")

	// ErrPersistence marks storage-layer read/write failures, distinct from
	// data simply not being there.
	ErrPersistence = errors.New("persistence failure")
)

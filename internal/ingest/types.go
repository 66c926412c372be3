// Package ingest defines the core types and stage contracts for the
// match ingestion pipeline: fetch, normalize, upsert.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrMatchNotFound is returned by stores when no row exists for an id.
var ErrMatchNotFound = errors.New("match not found")

// RawMatch is one match object as returned by the upstream API.
// Fields are kept raw so each one can be decoded defensively; a malformed
// sub-field degrades to its zero value instead of rejecting the record.
type RawMatch map[string]json.RawMessage

// RawInnings is a single innings entry from the upstream score list.
// The score list is positional: entry i belongs to team i.
type RawInnings struct {
	Runs    int     `json:"r"`
	Wickets int     `json:"w"`
	Overs   float64 `json:"o"`
	Inning  string  `json:"inning"`
}

// MatchRow is the canonical persisted shape of one match. The id is stable
// across the row's lifetime; every other field holds the most recently
// observed state.
type MatchRow struct {
	ID          string    `db:"id"`
	Team1       string    `db:"team1"`
	Team2       string    `db:"team2"`
	MatchNumber string    `db:"match_number"`
	MatchType   string    `db:"match_type"`
	Status      string    `db:"status"`
	ScoreTeam1  string    `db:"score_team1"`
	ScoreTeam2  string    `db:"score_team2"`
	Venue       string    `db:"venue"`
	City        string    `db:"city"`
	ObservedAt  time.Time `db:"observed_at"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// FetchResult carries the decoded match list plus the raw response body so
// an optional archiver can persist the payload without a second request.
type FetchResult struct {
	Records []RawMatch
	Body    []byte
}

// Fetcher retrieves the current match list from the upstream API.
type Fetcher interface {
	Fetch(ctx context.Context) (FetchResult, error)
}

// Store persists normalized rows keyed by match id.
type Store interface {
	UpsertBatch(ctx context.Context, rows []MatchRow) (int, error)
}

// Archiver persists a cycle's raw payload. Archival failures must never
// fail the cycle.
type Archiver interface {
	Archive(ctx context.Context, cycleID string, body []byte) error
}

// Clock abstracts time.Now for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces correlation ids for ingestion cycles.
type IDGenerator interface {
	NewID() (string, error)
}

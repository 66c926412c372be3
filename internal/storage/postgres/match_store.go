// Package postgres provides the Postgres-backed match store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crickstream/cricket-ingest/internal/ingest"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "cricket_matches"

// Config controls the Postgres connection pool used for match rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration

	// WriteTimeout bounds each UpsertBatch call. Zero means the caller's
	// context deadline (if any) applies alone.
	WriteTimeout time.Duration
}

// pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// MatchStore persists match rows into a single Postgres table keyed by id.
type MatchStore struct {
	pool         pool
	table        string
	clock        ingest.Clock
	writeTimeout time.Duration
}

// New creates a MatchStore backed by a fresh pgx pool.
func New(ctx context.Context, cfg Config, clock ingest.Clock) (*MatchStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &MatchStore{
		pool:         p,
		table:        table,
		clock:        clock,
		writeTimeout: cfg.WriteTimeout,
	}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string, clock ingest.Clock, writeTimeout time.Duration) (*MatchStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &MatchStore{pool: p, table: table, clock: clock, writeTimeout: writeTimeout}, nil
}

// Close releases the underlying pool resources.
func (s *MatchStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *MatchStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return classifyStoreError(err)
	}
	return nil
}

// EnsureSchema creates the match table if it does not exist yet.
func (s *MatchStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id             TEXT PRIMARY KEY,
	team1          TEXT NOT NULL DEFAULT '',
	team2          TEXT NOT NULL DEFAULT '',
	match_number   TEXT NOT NULL DEFAULT '',
	match_type     TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT '',
	score_team1    TEXT NOT NULL DEFAULT '',
	score_team2    TEXT NOT NULL DEFAULT '',
	venue          TEXT NOT NULL DEFAULT '',
	city           TEXT NOT NULL DEFAULT '',
	observed_at    TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return classifyStoreError(err)
	}
	return nil
}

// UpsertBatch writes all rows inside one transaction. Existing ids keep
// their created_at; every written row gets the same fresh updated_at.
// Any row-level failure rolls the whole batch back.
func (s *MatchStore) UpsertBatch(ctx context.Context, rows []ingest.MatchRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, classifyStoreError(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	now := s.clock.Now()
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, team1, team2, match_number, match_type, status,
	score_team1, score_team2, venue, city,
	observed_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)
ON CONFLICT (id) DO UPDATE SET
	team1 = EXCLUDED.team1,
	team2 = EXCLUDED.team2,
	match_number = EXCLUDED.match_number,
	match_type = EXCLUDED.match_type,
	status = EXCLUDED.status,
	score_team1 = EXCLUDED.score_team1,
	score_team2 = EXCLUDED.score_team2,
	venue = EXCLUDED.venue,
	city = EXCLUDED.city,
	observed_at = EXCLUDED.observed_at,
	updated_at = EXCLUDED.updated_at`, s.table)

	written := 0
	for _, row := range rows {
		tag, err := tx.Exec(ctx, query,
			row.ID,
			row.Team1,
			row.Team2,
			row.MatchNumber,
			row.MatchType,
			row.Status,
			row.ScoreTeam1,
			row.ScoreTeam2,
			row.Venue,
			row.City,
			row.ObservedAt,
			now,
		)
		if err != nil {
			return 0, classifyStoreError(err)
		}
		written += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, classifyStoreError(err)
	}
	committed = true
	return written, nil
}

const matchColumns = `id, team1, team2, match_number, match_type, status, score_team1, score_team2, venue, city, observed_at, created_at, updated_at`

// ListMatches returns the most recently updated rows, newest first.
func (s *MatchStore) ListMatches(ctx context.Context, limit int) ([]ingest.MatchRow, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY updated_at DESC LIMIT $1`, matchColumns, s.table)
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	defer rows.Close()

	var out []ingest.MatchRow
	for rows.Next() {
		row, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyStoreError(err)
	}
	return out, nil
}

// GetMatch fetches a single row by id, or ingest.ErrMatchNotFound.
func (s *MatchStore) GetMatch(ctx context.Context, id string) (ingest.MatchRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, matchColumns, s.table)
	row, err := scanMatch(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ingest.MatchRow{}, ingest.ErrMatchNotFound
		}
		return ingest.MatchRow{}, classifyStoreError(err)
	}
	return row, nil
}

func scanMatch(row pgx.Row) (ingest.MatchRow, error) {
	var m ingest.MatchRow
	err := row.Scan(
		&m.ID,
		&m.Team1,
		&m.Team2,
		&m.MatchNumber,
		&m.MatchType,
		&m.Status,
		&m.ScoreTeam1,
		&m.ScoreTeam2,
		&m.Venue,
		&m.City,
		&m.ObservedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

// classifyStoreError maps driver errors onto the store error taxonomy:
// constraint violations (SQLSTATE class 23), timeouts (context deadline,
// query_canceled, lock_not_available), everything else connection-level.
func classifyStoreError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ingest.StoreError{Kind: ingest.StoreErrTimeout, Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			return &ingest.StoreError{Kind: ingest.StoreErrConstraint, Err: err}
		case pgErr.Code == "57014" || pgErr.Code == "55P03":
			return &ingest.StoreError{Kind: ingest.StoreErrTimeout, Err: err}
		}
	}
	return &ingest.StoreError{Kind: ingest.StoreErrConnection, Err: err}
}

// Package postgres provides a Postgres-backed checkpoint store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acstiles/media-preloader/internal/preload"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for checkpoints.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store keeps one snapshot row per domain.
type Store struct {
	pool  querier
	table string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("checkpoint.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "preload_checkpoints"
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
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool querier, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "preload_checkpoints"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Save upserts the snapshot row for domain.
func (s *Store) Save(ctx context.Context, domain preload.Domain, snap preload.Snapshot) error {
	if !domain.Valid() {
		return fmt.Errorf("unknown domain %q", domain)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (domain, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (domain) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`, s.table)
	if _, err := s.pool.Exec(ctx, query, string(domain), payload); err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

// Load reads the snapshot row for domain. A missing row is a miss; an
// unparseable payload is reported as *CheckpointParseError.
func (s *Store) Load(ctx context.Context, domain preload.Domain) (preload.Snapshot, bool, error) {
	if !domain.Valid() {
		return preload.Snapshot{}, false, fmt.Errorf("unknown domain %q", domain)
	}
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE domain = $1`, s.table)
	var payload []byte
	err := s.pool.QueryRow(ctx, query, string(domain)).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return preload.Snapshot{}, false, nil
	}
	if err != nil {
		return preload.Snapshot{}, false, fmt.Errorf("query checkpoint: %w", err)
	}
	var snap preload.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return preload.Snapshot{}, false, &preload.CheckpointParseError{Domain: domain, Err: err}
	}
	return snap, true, nil
}

// Clear deletes the snapshot row for domain.
func (s *Store) Clear(ctx context.Context, domain preload.Domain) error {
	if !domain.Valid() {
		return fmt.Errorf("unknown domain %q", domain)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE domain = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, string(domain)); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

package dbstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Store bundles the shared pgxpool.Pool with one repository accessor per
// entity, the way the teacher's Store interface grouped every concern
// behind a single handle. Unlike the teacher's FileStore, every mutating
// method here either runs inside a caller-supplied pgx.Tx or issues a
// single statement on the pool; there is no in-memory mirror.
type Store struct {
	pool *pgxpool.Pool
}

// Open builds the shared connection pool (min 2, max 10 per §5) and
// verifies connectivity with a ping.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("dbstore: parse dsn: %w", err)
	}
	cfg.MinConns = 2
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dbstore: create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("dbstore: ping: %w", err)
	}

	log.Info().Int32("min_conns", cfg.MinConns).Int32("max_conns", cfg.MaxConns).Msg("dbstore: pool ready")
	return &Store{pool: pool}, nil
}

// Close tears down the pool. Call once at shutdown.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the raw pool for callers (migrations, admin tooling) that
// need it directly.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

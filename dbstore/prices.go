package dbstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// NearestPrice returns the cached OraclePrice for asset on Chain-E whose
// timestamp is within ±1 hour of t, preferring the closest one — the
// §4.6 step 1 cache check.
func (s *Store) NearestPrice(ctx context.Context, asset string, chainID uint64, t time.Time, tolerance time.Duration) (*OraclePrice, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT asset, chain_id, block_number, ts, price_usd, scale, source
		FROM oracle_prices
		WHERE asset = $1 AND chain_id = $2 AND ts BETWEEN $3 AND $4
		ORDER BY ABS(EXTRACT(EPOCH FROM (ts - $5))) ASC
		LIMIT 1`, asset, chainID, t.Add(-tolerance), t.Add(tolerance), t)

	var p OraclePrice
	err := row.Scan(&p.Asset, &p.ChainID, &p.BlockNumber, &p.Timestamp, &p.PriceUSD, &p.Scale, &p.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dbstore: nearest price: %w", err)
	}
	return &p, nil
}

// LatestPrice returns the most recently observed price for asset,
// regardless of age, used by the validate() staleness check (§4.6).
func (s *Store) LatestPrice(ctx context.Context, asset string, chainID uint64) (*OraclePrice, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT asset, chain_id, block_number, ts, price_usd, scale, source
		FROM oracle_prices
		WHERE asset = $1 AND chain_id = $2
		ORDER BY ts DESC LIMIT 1`, asset, chainID)

	var p OraclePrice
	err := row.Scan(&p.Asset, &p.ChainID, &p.BlockNumber, &p.Timestamp, &p.PriceUSD, &p.Scale, &p.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dbstore: latest price: %w", err)
	}
	return &p, nil
}

// InsertPrice records a resolved price observation (§4.6 step 4). The
// (asset, chain_id, block_number) key is unique, so repeated resolution
// of the same block is an idempotent overwrite of the cached value.
func (s *Store) InsertPrice(ctx context.Context, p OraclePrice) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO oracle_prices (asset, chain_id, block_number, ts, price_usd, scale, source)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (asset, chain_id, block_number) DO UPDATE SET
			price_usd = EXCLUDED.price_usd, source = EXCLUDED.source`,
		p.Asset, p.ChainID, p.BlockNumber, p.Timestamp, p.PriceUSD, p.Scale, p.Source)
	if err != nil {
		return fmt.Errorf("dbstore: insert price: %w", err)
	}
	return nil
}

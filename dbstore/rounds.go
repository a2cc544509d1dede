package dbstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// UpsertRound writes a Round row, keyed (asset, chain_id, round_id), the
// way §4.4 requires: "Upsert Round row by (asset, chain_id=E, round_id)".
func (s *Store) UpsertRound(ctx context.Context, tx pgx.Tx, r Round) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO rounds (asset, chain_id, round_id, start_block, start_ts, end_ts, pps, pps_scale, shares_minted, yield, is_yield_positive, tx_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (asset, chain_id, round_id) DO UPDATE SET
			start_block = EXCLUDED.start_block,
			start_ts = EXCLUDED.start_ts,
			pps = EXCLUDED.pps,
			pps_scale = EXCLUDED.pps_scale,
			shares_minted = EXCLUDED.shares_minted,
			yield = EXCLUDED.yield,
			is_yield_positive = EXCLUDED.is_yield_positive,
			tx_hash = EXCLUDED.tx_hash`,
		r.Asset, r.ChainID, r.RoundID, r.StartBlock, r.StartTs, r.EndTs, r.PPS, r.PPSScale,
		r.SharesMinted, r.Yield, r.IsYieldPositive, r.TxHash)
	if err != nil {
		return fmt.Errorf("dbstore: upsert round: %w", err)
	}
	return nil
}

// CloseRound sets end_ts on the most recent open round for asset,
// implementing "Close prior round: set prior.end_ts = this.start_ts"
// (§4.4). Returns ErrNotFound if there is no open prior round (the
// first round of an asset's lifetime).
func (s *Store) CloseRound(ctx context.Context, tx pgx.Tx, asset string, chainID uint64, endTs time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE rounds SET end_ts = $3
		WHERE asset = $1 AND chain_id = $2 AND end_ts IS NULL
		AND round_id = (SELECT MAX(round_id) FROM rounds WHERE asset = $1 AND chain_id = $2 AND end_ts IS NULL)`,
		asset, chainID, endTs)
	if err != nil {
		return fmt.Errorf("dbstore: close round: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RoundCoveringBlock returns the Round on Chain-E whose [start_block,
// next.start_block) window covers blockNumber — the §4.4 PPS(asset,
// block) lookup for Chain-E itself.
func (s *Store) RoundCoveringBlock(ctx context.Context, asset string, chainID, blockNumber uint64) (*Round, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT asset, chain_id, round_id, start_block, start_ts, end_ts, pps, pps_scale, shares_minted, yield, is_yield_positive, tx_hash
		FROM rounds
		WHERE asset = $1 AND chain_id = $2 AND start_block <= $3
		ORDER BY start_block DESC LIMIT 1`, asset, chainID, blockNumber)
	return scanRound(row)
}

// LatestRoundBefore returns the most recent round on Chain-E whose
// start_ts <= t — used to price balances on satellite chains (§4.4: "use
// the PPS of the latest Round on Chain-E whose start_ts <= the
// requested chain's block timestamp").
func (s *Store) LatestRoundBefore(ctx context.Context, asset string, chainID uint64, t time.Time) (*Round, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT asset, chain_id, round_id, start_block, start_ts, end_ts, pps, pps_scale, shares_minted, yield, is_yield_positive, tx_hash
		FROM rounds
		WHERE asset = $1 AND chain_id = $2 AND start_ts <= $3
		ORDER BY start_ts DESC LIMIT 1`, asset, chainID, t)
	return scanRound(row)
}

// HadUnstakeInDateRange reports whether address had had_unstake_in_round
// set on any BalanceSnapshot whose round overlaps [dayStart, dayEnd) for
// asset, the §4.8 eligibility check: "if had_unstake_in_round is true for
// any round intersecting the day".
func (s *Store) HadUnstakeInDateRange(ctx context.Context, address, asset string, chainID uint64, dayStart, dayEnd time.Time) (bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM balance_snapshots bs
			JOIN rounds r ON r.asset = bs.asset AND r.round_id = bs.round_id AND r.chain_id = $4
			WHERE bs.address = $1 AND bs.asset = $2 AND bs.had_unstake_in_round = true
			AND r.start_ts < $3 AND (r.end_ts IS NULL OR r.end_ts > $5)
		)`, address, asset, dayEnd, chainID, dayStart)
	var had bool
	if err := row.Scan(&had); err != nil {
		return false, fmt.Errorf("dbstore: had unstake in date range: %w", err)
	}
	return had, nil
}

func scanRound(row pgx.Row) (*Round, error) {
	var r Round
	err := row.Scan(&r.Asset, &r.ChainID, &r.RoundID, &r.StartBlock, &r.StartTs, &r.EndTs,
		&r.PPS, &r.PPSScale, &r.SharesMinted, &r.Yield, &r.IsYieldPositive, &r.TxHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dbstore: scan round: %w", err)
	}
	return &r, nil
}

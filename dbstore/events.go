package dbstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// InsertShareEvent writes one canonical event. Conflict on the unique
// (chain_id, tx_hash, log_index) key is "ignore" per §7 duplicate
// ingestion policy: a second insert of the same event is a no-op.
func (s *Store) InsertShareEvent(ctx context.Context, tx pgx.Tx, e ShareEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO share_events
			(chain_id, tx_hash, log_index, address, asset, event_type, shares_delta, block_number, ts, round_id, classification)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING`,
		e.ChainID, e.TxHash, e.LogIndex, e.Address, e.Asset, e.EventType, e.SharesDelta,
		e.Block, e.Timestamp, e.RoundID, e.Classification)
	if err != nil {
		return fmt.Errorf("dbstore: insert share event: %w", err)
	}
	return nil
}

// SumDeltas returns the signed sum of ShareEvent.shares_delta for one
// (address, asset, chain), used by replay/backfill to recompute
// CurrentBalance from scratch (§8 sum-of-deltas invariant).
func (s *Store) SumDeltas(ctx context.Context, address, asset string, chainID uint64) (string, error) {
	var sum *string
	err := s.pool.QueryRow(ctx, `
		SELECT SUM(shares_delta)::text FROM share_events
		WHERE address = $1 AND asset = $2 AND chain_id = $3`, address, asset, chainID).Scan(&sum)
	if err != nil {
		return "", fmt.Errorf("dbstore: sum deltas: %w", err)
	}
	if sum == nil {
		return "0", nil
	}
	return *sum, nil
}

// EventsInRange returns all share events for a chain in [fromBlock,
// toBlock], ordered (block, tx_index-equivalent log_index) per §4.2 step
// 4 — log_index is the within-block tiebreaker the ingester already
// sorted by before persisting, so ordering by (block_number, log_index)
// here is sufficient for replay.
func (s *Store) EventsInRange(ctx context.Context, chainID uint64, fromBlock, toBlock uint64) ([]ShareEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, tx_hash, log_index, address, asset, event_type, shares_delta, block_number, ts, round_id, classification
		FROM share_events
		WHERE chain_id = $1 AND block_number BETWEEN $2 AND $3
		ORDER BY block_number, log_index`, chainID, fromBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("dbstore: events in range: %w", err)
	}
	defer rows.Close()

	var out []ShareEvent
	for rows.Next() {
		var e ShareEvent
		if err := rows.Scan(&e.ChainID, &e.TxHash, &e.LogIndex, &e.Address, &e.Asset, &e.EventType,
			&e.SharesDelta, &e.Block, &e.Timestamp, &e.RoundID, &e.Classification); err != nil {
			return nil, fmt.Errorf("dbstore: scan share event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

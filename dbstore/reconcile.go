package dbstore

import (
	"context"
	"fmt"
)

// ShareEventsByClassificationInRange returns canonical events on one
// chain within [fromBlock, toBlock] carrying any of the given
// classifications, the vault side of the Reconciliation Validator's
// (§4.10) integration_in/integration_out transfer pull.
func (s *Store) ShareEventsByClassificationInRange(ctx context.Context, chainID, fromBlock, toBlock uint64, classes ...Classification) ([]ShareEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, tx_hash, log_index, address, asset, event_type, shares_delta, block_number, ts, round_id, classification
		FROM share_events
		WHERE chain_id = $1 AND block_number BETWEEN $2 AND $3 AND classification = ANY($4)
		ORDER BY block_number, log_index`, chainID, fromBlock, toBlock, classificationStrings(classes))
	if err != nil {
		return nil, fmt.Errorf("dbstore: share events by classification: %w", err)
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

func classificationStrings(cs []Classification) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

// GetOrCreateReconciliationJob returns the job row for (chainID,
// fromBlock, toBlock), creating it in `pending` status if absent.
func (s *Store) GetOrCreateReconciliationJob(ctx context.Context, chainID, fromBlock, toBlock uint64) (*ReconciliationJob, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reconciliation_jobs (chain_id, from_block, to_block, status, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (chain_id, from_block, to_block) DO NOTHING`, chainID, fromBlock, toBlock, JobPending)
	if err != nil {
		return nil, fmt.Errorf("dbstore: create reconciliation job: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		SELECT chain_id, from_block, to_block, status, error, updated_at
		FROM reconciliation_jobs WHERE chain_id = $1 AND from_block = $2 AND to_block = $3`, chainID, fromBlock, toBlock)
	var j ReconciliationJob
	if err := row.Scan(&j.ChainID, &j.FromBlock, &j.ToBlock, &j.Status, &j.Error, &j.UpdatedAt); err != nil {
		return nil, fmt.Errorf("dbstore: get reconciliation job: %w", err)
	}
	return &j, nil
}

// SetReconciliationJobStatus transitions a reconciliation job's status.
func (s *Store) SetReconciliationJobStatus(ctx context.Context, chainID, fromBlock, toBlock uint64, status JobStatus, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE reconciliation_jobs SET status = $4, error = $5, updated_at = now()
		WHERE chain_id = $1 AND from_block = $2 AND to_block = $3`, chainID, fromBlock, toBlock, status, errMsg)
	if err != nil {
		return fmt.Errorf("dbstore: set reconciliation job status: %w", err)
	}
	return nil
}

package dbstore

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
)

// ErrNegativeBalance signals an attempted decrement below zero (§4.5: "if
// result < 0, log an error and leave balance unchanged"). Callers must
// not treat this as a hard failure of the surrounding batch — the event
// is still persisted, only the balance mutation is skipped.
var ErrNegativeBalance = errors.New("dbstore: balance would go negative")

// LockCurrentBalance reads the CurrentBalance row for update, taking a
// row-level lock for the remainder of the transaction (§5: "CurrentBalance
// updates MUST be performed inside a transaction with row-level
// locking"). Returns a zero-valued balance, not an error, if the row
// does not exist yet — the row is created on first write.
func (s *Store) LockCurrentBalance(ctx context.Context, tx pgx.Tx, address, asset string, chainID uint64) (*CurrentBalance, error) {
	row := tx.QueryRow(ctx, `
		SELECT address, asset, chain_id, shares, last_update_block
		FROM current_balances
		WHERE address = $1 AND asset = $2 AND chain_id = $3
		FOR UPDATE`, address, asset, chainID)

	var b CurrentBalance
	err := row.Scan(&b.Address, &b.Asset, &b.ChainID, &b.Shares, &b.LastUpdateBlock)
	if errors.Is(err, pgx.ErrNoRows) {
		return &CurrentBalance{Address: address, Asset: asset, ChainID: chainID, Shares: "0"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dbstore: lock current balance: %w", err)
	}
	return &b, nil
}

// ApplyDelta adds delta (signed) to the locked balance and writes the
// result. If the result would be negative, it returns ErrNegativeBalance
// and does not write — the caller must still commit the transaction so
// the originating event persists, per §7 invariant-violation policy.
func (s *Store) ApplyDelta(ctx context.Context, tx pgx.Tx, locked *CurrentBalance, delta *big.Int, atBlock uint64) error {
	cur, ok := new(big.Int).SetString(locked.Shares, 10)
	if !ok {
		return fmt.Errorf("dbstore: corrupt shares value %q", locked.Shares)
	}
	next := new(big.Int).Add(cur, delta)
	if next.Sign() < 0 {
		return ErrNegativeBalance
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO current_balances (address, asset, chain_id, shares, last_update_block)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (address, asset, chain_id) DO UPDATE SET
			shares = EXCLUDED.shares,
			last_update_block = EXCLUDED.last_update_block`,
		locked.Address, locked.Asset, locked.ChainID, next.String(), atBlock)
	if err != nil {
		return fmt.Errorf("dbstore: apply delta: %w", err)
	}
	locked.Shares = next.String()
	locked.LastUpdateBlock = atBlock
	return nil
}

// CurrentBalancesByAsset returns every non-excluded holder's balance for
// (asset, chainID), used by the balance folder at RoundRolled time to
// seed BalanceSnapshot rows (§4.5).
func (s *Store) CurrentBalancesByAsset(ctx context.Context, asset string, chainID uint64) ([]CurrentBalance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cb.address, cb.asset, cb.chain_id, cb.shares, cb.last_update_block
		FROM current_balances cb
		LEFT JOIN excluded_addresses ea ON ea.address = cb.address
		WHERE cb.asset = $1 AND cb.chain_id = $2 AND cb.shares > 0 AND ea.address IS NULL`, asset, chainID)
	if err != nil {
		return nil, fmt.Errorf("dbstore: current balances by asset: %w", err)
	}
	defer rows.Close()

	var out []CurrentBalance
	for rows.Next() {
		var b CurrentBalance
		if err := rows.Scan(&b.Address, &b.Asset, &b.ChainID, &b.Shares, &b.LastUpdateBlock); err != nil {
			return nil, fmt.Errorf("dbstore: scan current balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetCurrentBalance reads a single balance without locking, for the
// snapshot engine's read-only USD valuation path.
func (s *Store) GetCurrentBalance(ctx context.Context, address, asset string, chainID uint64) (*CurrentBalance, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, asset, chain_id, shares, last_update_block
		FROM current_balances WHERE address = $1 AND asset = $2 AND chain_id = $3`, address, asset, chainID)
	var b CurrentBalance
	err := row.Scan(&b.Address, &b.Asset, &b.ChainID, &b.Shares, &b.LastUpdateBlock)
	if errors.Is(err, pgx.ErrNoRows) {
		return &CurrentBalance{Address: address, Asset: asset, ChainID: chainID, Shares: "0"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dbstore: get current balance: %w", err)
	}
	return &b, nil
}

// InsertBalanceSnapshot seeds the per-round opening balance for one
// address (§4.5). Conflict on the unique key is ignored: re-running a
// RoundRolled backfill must not clobber flags already set by subsequent
// events within the round.
func (s *Store) InsertBalanceSnapshot(ctx context.Context, tx pgx.Tx, bs BalanceSnapshot) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO balance_snapshots (address, asset, round_id, shares_at_start, had_unstake_in_round, had_transfer_in_round, had_bridge_in_round)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (address, asset, round_id) DO NOTHING`,
		bs.Address, bs.Asset, bs.RoundID, bs.SharesAtStart, bs.HadUnstakeInRound, bs.HadTransferInRound, bs.HadBridgeInRound)
	if err != nil {
		return fmt.Errorf("dbstore: insert balance snapshot: %w", err)
	}
	return nil
}

// SetRoundFlag flips one had_*_in_round flag for (address, asset,
// round_id), used as events land within an open round (§4.5).
func (s *Store) SetRoundFlag(ctx context.Context, tx pgx.Tx, address, asset string, roundID int64, flag string) error {
	col := map[string]string{
		"unstake":  "had_unstake_in_round",
		"transfer": "had_transfer_in_round",
		"bridge":   "had_bridge_in_round",
	}[flag]
	if col == "" {
		return fmt.Errorf("dbstore: unknown round flag %q", flag)
	}
	_, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE balance_snapshots SET %s = true
		WHERE address = $1 AND asset = $2 AND round_id = $3`, col), address, asset, roundID)
	if err != nil {
		return fmt.Errorf("dbstore: set round flag %s: %w", flag, err)
	}
	return nil
}

// BalanceSnapshotFor returns the snapshot row for (address, asset,
// round), used by the eligibility check in §4.8.
func (s *Store) BalanceSnapshotFor(ctx context.Context, address, asset string, roundID int64) (*BalanceSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, asset, round_id, shares_at_start, had_unstake_in_round, had_transfer_in_round, had_bridge_in_round
		FROM balance_snapshots WHERE address = $1 AND asset = $2 AND round_id = $3`, address, asset, roundID)
	var bs BalanceSnapshot
	err := row.Scan(&bs.Address, &bs.Asset, &bs.RoundID, &bs.SharesAtStart, &bs.HadUnstakeInRound, &bs.HadTransferInRound, &bs.HadBridgeInRound)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dbstore: balance snapshot for: %w", err)
	}
	return &bs, nil
}

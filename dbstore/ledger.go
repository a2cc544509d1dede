package dbstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// InsertDropletLedger appends (or idempotently replaces) one ledger
// entry and maintains the leaderboard aggregate in the same transaction
// (§4.9: "updated inside the same transaction as the ledger writes").
func (s *Store) InsertDropletLedger(ctx context.Context, tx pgx.Tx, entry DropletLedger) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO droplet_ledger (address, snapshot_date, amount, reason)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (address, snapshot_date) DO UPDATE SET
			amount = EXCLUDED.amount, reason = EXCLUDED.reason`,
		entry.Address, entry.SnapshotDate, entry.Amount, entry.Reason)
	if err != nil {
		return fmt.Errorf("dbstore: insert droplet ledger: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO leaderboard (address, total_droplets, days_participated, last_snapshot_date, average_daily_usd)
		VALUES ($1, $2::decimal, 1, $3, $2::decimal)
		ON CONFLICT (address) DO UPDATE SET
			total_droplets = leaderboard.total_droplets + EXCLUDED.total_droplets,
			days_participated = leaderboard.days_participated + 1,
			last_snapshot_date = GREATEST(leaderboard.last_snapshot_date, EXCLUDED.last_snapshot_date),
			average_daily_usd = (leaderboard.total_droplets + EXCLUDED.total_droplets)::double precision
				/ (leaderboard.days_participated + 1)`,
		entry.Address, entry.Amount, entry.SnapshotDate)
	if err != nil {
		return fmt.Errorf("dbstore: update leaderboard: %w", err)
	}
	return nil
}

// DropletsFor returns an address's ledger history, most recent first.
func (s *Store) DropletsFor(ctx context.Context, address string) ([]DropletLedger, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, snapshot_date, amount, reason FROM droplet_ledger
		WHERE address = $1 ORDER BY snapshot_date DESC`, address)
	if err != nil {
		return nil, fmt.Errorf("dbstore: droplets for: %w", err)
	}
	defer rows.Close()

	var out []DropletLedger
	for rows.Next() {
		var d DropletLedger
		if err := rows.Scan(&d.Address, &d.SnapshotDate, &d.Amount, &d.Reason); err != nil {
			return nil, fmt.Errorf("dbstore: scan droplet ledger: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LeaderboardFor returns one address's aggregate row, or ErrNotFound.
func (s *Store) LeaderboardFor(ctx context.Context, address string) (*Leaderboard, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, total_droplets, days_participated, last_snapshot_date, average_daily_usd
		FROM leaderboard WHERE address = $1`, address)
	var l Leaderboard
	var lastDate *time.Time
	if err := row.Scan(&l.Address, &l.TotalDroplets, &l.DaysParticipated, &lastDate, &l.AverageDailyUSD); err != nil {
		return nil, fmt.Errorf("dbstore: leaderboard for: %w", err)
	}
	if lastDate != nil {
		l.LastSnapshotDate = *lastDate
	}
	return &l, nil
}

// UpsertLeaderboard overwrites one address's aggregate row wholesale,
// used by the leaderboard recompute path to replace the incrementally
// maintained row with one derived from the full ledger history.
func (s *Store) UpsertLeaderboard(ctx context.Context, l Leaderboard) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO leaderboard (address, total_droplets, days_participated, last_snapshot_date, average_daily_usd)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (address) DO UPDATE SET
			total_droplets = EXCLUDED.total_droplets,
			days_participated = EXCLUDED.days_participated,
			last_snapshot_date = EXCLUDED.last_snapshot_date,
			average_daily_usd = EXCLUDED.average_daily_usd`,
		l.Address, l.TotalDroplets, l.DaysParticipated, l.LastSnapshotDate, l.AverageDailyUSD)
	if err != nil {
		return fmt.Errorf("dbstore: upsert leaderboard: %w", err)
	}
	return nil
}

// Leaderboard returns the top entries ordered by total_droplets desc,
// for the downstream `leaderboard(limit, offset)` API call.
func (s *Store) Leaderboard(ctx context.Context, limit, offset int) ([]Leaderboard, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, total_droplets, days_participated, last_snapshot_date, average_daily_usd
		FROM leaderboard ORDER BY total_droplets DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("dbstore: leaderboard: %w", err)
	}
	defer rows.Close()

	var out []Leaderboard
	for rows.Next() {
		var l Leaderboard
		var lastDate *time.Time
		if err := rows.Scan(&l.Address, &l.TotalDroplets, &l.DaysParticipated, &lastDate, &l.AverageDailyUSD); err != nil {
			return nil, fmt.Errorf("dbstore: scan leaderboard: %w", err)
		}
		if lastDate != nil {
			l.LastSnapshotDate = *lastDate
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

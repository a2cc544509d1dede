package dbstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// InsertDailyUsdSnapshot writes one per-address, per-day USD valuation
// (§4.8 step 5). Conflict on (address, snapshot_date) overwrites — a
// re-run of a failed day must be able to replace a partial snapshot.
func (s *Store) InsertDailyUsdSnapshot(ctx context.Context, tx pgx.Tx, d DailyUsdSnapshot) error {
	breakdown, err := json.Marshal(d.Breakdown)
	if err != nil {
		return fmt.Errorf("dbstore: marshal breakdown: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO daily_usd_snapshots (address, snapshot_date, total_usd_value, breakdown, had_unstake, is_excluded, droplets_earned, snapshot_ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (address, snapshot_date) DO UPDATE SET
			total_usd_value = EXCLUDED.total_usd_value,
			breakdown = EXCLUDED.breakdown,
			had_unstake = EXCLUDED.had_unstake,
			is_excluded = EXCLUDED.is_excluded,
			droplets_earned = EXCLUDED.droplets_earned,
			snapshot_ts = EXCLUDED.snapshot_ts`,
		d.Address, d.SnapshotDate, d.TotalUSDValue, breakdown, d.HadUnstake, d.IsExcluded, d.DropletsEarned, d.SnapshotTs)
	if err != nil {
		return fmt.Errorf("dbstore: insert daily usd snapshot: %w", err)
	}
	return nil
}

// DailyUsdSnapshotExists reports whether a snapshot already exists for
// (address, date) — the idempotency check the Daily Snapshot Engine
// uses to skip work on a completed date (§8).
func (s *Store) DailyUsdSnapshotExists(ctx context.Context, address string, date time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM daily_usd_snapshots WHERE address = $1 AND snapshot_date = $2)`,
		address, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("dbstore: daily usd snapshot exists: %w", err)
	}
	return exists, nil
}

// GetDailyUsdSnapshot returns one day's snapshot for an address.
func (s *Store) GetDailyUsdSnapshot(ctx context.Context, address string, date time.Time) (*DailyUsdSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, snapshot_date, total_usd_value, breakdown, had_unstake, is_excluded, droplets_earned, snapshot_ts
		FROM daily_usd_snapshots WHERE address = $1 AND snapshot_date = $2`, address, date)

	var d DailyUsdSnapshot
	var breakdown []byte
	err := row.Scan(&d.Address, &d.SnapshotDate, &d.TotalUSDValue, &breakdown, &d.HadUnstake, &d.IsExcluded, &d.DropletsEarned, &d.SnapshotTs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dbstore: get daily usd snapshot: %w", err)
	}
	if err := json.Unmarshal(breakdown, &d.Breakdown); err != nil {
		return nil, fmt.Errorf("dbstore: unmarshal breakdown: %w", err)
	}
	return &d, nil
}

// DaySnapshotAggregate sums total_usd_value and droplets across every
// address for one date, for the downstream `daySnapshot(date)` API call.
func (s *Store) DaySnapshotAggregate(ctx context.Context, date time.Time) (totalUSD string, totalDroplets string, addressCount int64, err error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_usd_value), 0)::text, COALESCE(SUM(droplets_earned), 0)::text, COUNT(*)
		FROM daily_usd_snapshots WHERE snapshot_date = $1`, date)
	if scanErr := row.Scan(&totalUSD, &totalDroplets, &addressCount); scanErr != nil {
		return "", "", 0, fmt.Errorf("dbstore: day snapshot aggregate: %w", scanErr)
	}
	return totalUSD, totalDroplets, addressCount, nil
}

// DailyUsdValuesForAddress returns every day's total_usd_value for
// address, used by the leaderboard recompute path to average over the
// real daily valuations rather than the droplet count (§4.9).
func (s *Store) DailyUsdValuesForAddress(ctx context.Context, address string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT total_usd_value FROM daily_usd_snapshots WHERE address = $1 ORDER BY snapshot_date`, address)
	if err != nil {
		return nil, fmt.Errorf("dbstore: daily usd values for address: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("dbstore: scan daily usd value: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// --- DailyJob state machine (§4.8, §4.10) ---

// GetOrCreateDailyJob returns the job row for date, creating it in
// `pending` status if absent.
func (s *Store) GetOrCreateDailyJob(ctx context.Context, date time.Time) (*DailyJob, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO daily_jobs (snapshot_date, status, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (snapshot_date) DO NOTHING`, date, JobPending)
	if err != nil {
		return nil, fmt.Errorf("dbstore: create daily job: %w", err)
	}
	row := s.pool.QueryRow(ctx, `SELECT snapshot_date, status, error, updated_at FROM daily_jobs WHERE snapshot_date = $1`, date)
	var j DailyJob
	if err := row.Scan(&j.SnapshotDate, &j.Status, &j.Error, &j.UpdatedAt); err != nil {
		return nil, fmt.Errorf("dbstore: get daily job: %w", err)
	}
	return &j, nil
}

// SetDailyJobStatus transitions a job's status, optionally within a
// caller-managed transaction (pass nil to run standalone).
func (s *Store) SetDailyJobStatus(ctx context.Context, tx pgx.Tx, date time.Time, status JobStatus, errMsg string) error {
	const q = `UPDATE daily_jobs SET status = $2, error = $3, updated_at = now() WHERE snapshot_date = $1`
	var err error
	if tx != nil {
		_, err = tx.Exec(ctx, q, date, status, errMsg)
	} else {
		_, err = s.pool.Exec(ctx, q, date, status, errMsg)
	}
	if err != nil {
		return fmt.Errorf("dbstore: set daily job status: %w", err)
	}
	return nil
}

// LatestDailyJob returns the daily job row with the latest snapshot_date, or
// ErrNotFound if no snapshot has ever run. Drives the health endpoint's
// "last snapshot job status" field (spec §6).
func (s *Store) LatestDailyJob(ctx context.Context) (*DailyJob, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT snapshot_date, status, error, updated_at FROM daily_jobs
		ORDER BY snapshot_date DESC LIMIT 1`)
	var j DailyJob
	if err := row.Scan(&j.SnapshotDate, &j.Status, &j.Error, &j.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("dbstore: latest daily job: %w", err)
	}
	return &j, nil
}

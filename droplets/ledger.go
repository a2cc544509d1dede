// Package droplets implements the Droplet Ledger (C11): read access to
// an address's append-only ledger history and the leaderboard aggregate
// derived from it (§4.9). Grounded on the teacher's rewards/ledger.go
// thin-repository-wrapper shape — a package that adds no state of its
// own beyond what dbstore already persists, only the read/recompute
// operations the CLI and API surfaces call.
package droplets

import (
	"context"
	"fmt"

	"github.com/streamdroplets/droplets-engine/dbstore"
)

// Ledger answers droplet-history and leaderboard queries over dbstore.
type Ledger struct {
	db *dbstore.Store
}

// New builds a Ledger.
func New(db *dbstore.Store) *Ledger {
	return &Ledger{db: db}
}

// For returns one address's full droplet history, most recent day first.
func (l *Ledger) For(ctx context.Context, address string) ([]dbstore.DropletLedger, error) {
	entries, err := l.db.DropletsFor(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("droplets: for %s: %w", address, err)
	}
	return entries, nil
}

// Leaderboard returns the top addresses by total_droplets.
func (l *Ledger) Leaderboard(ctx context.Context, limit, offset int) ([]dbstore.Leaderboard, error) {
	rows, err := l.db.Leaderboard(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("droplets: leaderboard: %w", err)
	}
	return rows, nil
}

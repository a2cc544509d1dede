package balances

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/streamdroplets/droplets-engine/chainregistry"
	"github.com/streamdroplets/droplets-engine/dbstore"
)

// SeedRoundSnapshots implements §4.5's RoundRolled hook: "for each
// (address, asset=this asset, chain_id=E) with shares > 0 and address
// not in Excluded, insert BalanceSnapshot(... shares_at_start=current
// shares, had_*_in_round=false)".
func (f *Folder) SeedRoundSnapshots(ctx context.Context, tx pgx.Tx, asset string, roundID int64) error {
	balances, err := f.store.CurrentBalancesByAsset(ctx, asset, uint64(chainregistry.ChainEthereum))
	if err != nil {
		return fmt.Errorf("balances: seed snapshots: current balances: %w", err)
	}
	for _, b := range balances {
		err := f.store.InsertBalanceSnapshot(ctx, tx, dbstore.BalanceSnapshot{
			Address:       b.Address,
			Asset:         asset,
			RoundID:       roundID,
			SharesAtStart: b.Shares,
		})
		if err != nil {
			return fmt.Errorf("balances: seed snapshot for %s: %w", b.Address, err)
		}
	}
	return nil
}

// MarkRoundFlag flips one had_*_in_round flag on the open BalanceSnapshot
// for (address, asset) as a subsequent event lands within the round
// window (§4.5). flag is one of "unstake", "transfer", "bridge".
func (f *Folder) MarkRoundFlag(ctx context.Context, tx pgx.Tx, address, asset string, roundID int64, flag string) error {
	if err := f.store.SetRoundFlag(ctx, tx, address, asset, roundID, flag); err != nil {
		return fmt.Errorf("balances: mark round flag: %w", err)
	}
	return nil
}

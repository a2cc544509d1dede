// Package balances implements the Balance Folder (C6): applying
// classified ShareEvents to CurrentBalance and, at round boundaries,
// BalanceSnapshot. Grounded on the teacher's staking/stakeguard.go
// StakeGuard — a mutex-guarded map[string]*Staker updated via signed
// big.Int deltas (DepositStake/Slash/DistributeRewards) — generalized
// from an in-memory map to dbstore's row-locked transactions, since this
// state must survive restarts and be shared across ingester tasks.
package balances

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/streamdroplets/droplets-engine/dbstore"
)

// Folder applies ShareEvents to CurrentBalance rows.
type Folder struct {
	store *dbstore.Store
}

// New builds a Folder over store.
func New(store *dbstore.Store) *Folder {
	return &Folder{store: store}
}

// Apply folds one already-persisted ShareEvent into CurrentBalance,
// inside the same transaction the event was inserted under (§4.2 step 5:
// "invoke the decoder with a DB transaction scope"). Rule dispatch
// follows §4.5 exactly.
func (f *Folder) Apply(ctx context.Context, tx pgx.Tx, e dbstore.ShareEvent) error {
	delta, ok := new(big.Int).SetString(e.SharesDelta, 10)
	if !ok {
		return fmt.Errorf("balances: corrupt shares_delta %q", e.SharesDelta)
	}

	switch e.Classification {
	case dbstore.ClassMint, dbstore.ClassIntegrationIn, dbstore.ClassBridgeMint:
		return f.adjust(ctx, tx, e.Address, e.Asset, e.ChainID, new(big.Int).Abs(delta), e.Block)

	case dbstore.ClassBurnUnstake, dbstore.ClassIntegrationOut, dbstore.ClassBridgeBurn:
		return f.adjust(ctx, tx, e.Address, e.Asset, e.ChainID, new(big.Int).Neg(new(big.Int).Abs(delta)), e.Block)

	case dbstore.ClassTransferUser:
		return f.applyTransfer(ctx, tx, e)

	default:
		return fmt.Errorf("balances: unhandled classification %q", e.Classification)
	}
}

// applyTransfer decrements the sender and increments the receiver inside
// one transaction (§4.5: "transfer_user: decrement sender, increment
// receiver in one transaction"). ShareEvent rows for transfer_user carry
// the sender as Address with a negative delta; the paired receiver-side
// row (same tx_hash, log_index offset by 2^32) carries the positive delta, so
// this method only needs to apply whichever side e represents.
func (f *Folder) applyTransfer(ctx context.Context, tx pgx.Tx, e dbstore.ShareEvent) error {
	delta, _ := new(big.Int).SetString(e.SharesDelta, 10)
	return f.adjust(ctx, tx, e.Address, e.Asset, e.ChainID, delta, e.Block)
}

// adjust locks the CurrentBalance row and applies delta. A would-be
// negative result is logged and the balance left unchanged — the event
// itself is still persisted by the caller's transaction (§4.5, §7).
func (f *Folder) adjust(ctx context.Context, tx pgx.Tx, address, asset string, chainID uint64, delta *big.Int, atBlock uint64) error {
	locked, err := f.store.LockCurrentBalance(ctx, tx, address, asset, chainID)
	if err != nil {
		return fmt.Errorf("balances: lock balance: %w", err)
	}
	if err := f.store.ApplyDelta(ctx, tx, locked, delta, atBlock); err != nil {
		if err == dbstore.ErrNegativeBalance {
			log.Error().
				Str("address", address).Str("asset", asset).Uint64("chain_id", chainID).
				Str("delta", delta.String()).Uint64("block", atBlock).
				Msg("balances: would-be negative CurrentBalance, left unchanged")
			return nil
		}
		return fmt.Errorf("balances: apply delta: %w", err)
	}
	return nil
}

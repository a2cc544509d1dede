package ingest

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/events"
	"github.com/streamdroplets/droplets-engine/rounds"
)

// transferReceiverIndexOffset distinguishes the receiver-side ShareEvent
// row a transfer_user classification writes from the sender-side row,
// both sharing the raw log's tx_hash but needing distinct log_index
// values to satisfy the (chain_id, tx_hash, log_index) primary key
// (§4.5: "decrement sender, increment receiver in one transaction").
const transferReceiverIndexOffset = int64(1) << 32

// processLog decodes, classifies, persists, and folds exactly one log,
// inside a single DB transaction (§4.2 step 5). An unknown event topic
// is tolerated: logged at debug and skipped, never fatal (§7).
func (t *Task) processLog(ctx context.Context, l types.Log, oftIdx map[common.Hash]oftMatch, logger zerolog.Logger) error {
	d, err := events.Decode(l)
	if err != nil {
		if err == events.ErrUnknownEvent {
			logger.Debug().Str("topic0", l.Topics[0].Hex()).Msg("ingest: unknown event topic, skipped")
			return nil
		}
		return fmt.Errorf("decode: %w", err)
	}

	ts := time.Now() // overwritten below once the block header timestamp is known
	header, err := t.pool.HeaderByNumber(ctx, new(big.Int).SetUint64(l.BlockNumber))
	if err == nil && header != nil {
		ts = time.Unix(int64(header.Time), 0).UTC()
	}

	switch d.Name {
	case "Transfer":
		return t.processTransfer(ctx, l, d, oftIdx, ts)
	case "Stake":
		return t.processLifecycle(ctx, l, d, dbstore.EventStake, dbstore.ClassMint, big.NewInt(0), ts)
	case "Unstake":
		return t.processLifecycle(ctx, l, d, dbstore.EventUnstake, dbstore.ClassBurnUnstake, new(big.Int).Neg(d.Shares), ts)
	case "Redeem":
		return t.processLifecycle(ctx, l, d, dbstore.EventRedeem, dbstore.ClassMint, d.Shares, ts)
	case "InstantUnstake":
		return t.processLifecycle(ctx, l, d, dbstore.EventInstantUnstake, dbstore.ClassMint, big.NewInt(0), ts)
	case "RoundRolled":
		return t.processRoundRolled(ctx, l, d, ts)
	case "OFTSent", "OFTReceived":
		// Consumed only as same-tx context for Transfer classification
		// (§4.3 rule 3); no independent ShareEvent of its own.
		return nil
	default:
		return nil
	}
}

// processLifecycle handles Stake/Unstake/Redeem/InstantUnstake, each of
// which folds against the event's own account rather than a transfer
// pair. Stake and InstantUnstake carry a zero delta: neither changes
// CurrentBalance, since shares materialize only at the following
// RoundRolled mint (Stake) or were never minted to begin with
// (InstantUnstake cancels the pending stake before that happens).
func (t *Task) processLifecycle(ctx context.Context, l types.Log, d *events.Decoded, eventType dbstore.EventType, class dbstore.Classification, delta *big.Int, ts time.Time) error {
	e := dbstore.ShareEvent{
		ChainID:        uint64(t.Chain.ID),
		TxHash:         l.TxHash.Hex(),
		LogIndex:       int64(l.Index),
		Address:        d.Account.Hex(),
		Asset:          t.Asset,
		EventType:      eventType,
		SharesDelta:    delta.String(),
		Block:          l.BlockNumber,
		Timestamp:      ts,
		Classification: class,
	}

	return t.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := t.db.InsertShareEvent(ctx, tx, e); err != nil {
			return err
		}
		return t.folder.Apply(ctx, tx, e)
	})
}

// processTransfer applies §4.3's ordered classification rules to a
// decoded Transfer, then persists and folds one or two ShareEvent rows
// depending on the outcome.
func (t *Task) processTransfer(ctx context.Context, l types.Log, d *events.Decoded, oftIdx map[common.Hash]oftMatch, ts time.Time) error {
	class, ok := events.Classify(events.ClassifyInput{
		From:             d.From,
		To:               d.To,
		VaultAddress:     t.vaultAddress,
		IsCanonicalChain: t.Chain.ID.IsCanonical(),
		HasOFTInSameTx:   hasOFTInTx(oftIdx, l.TxHash),
		IntegrationSet:   t.integrationSet,
	})
	if !ok {
		// Rule 1's vault-self-mint carve-out: not a share-issuance event.
		return nil
	}

	switch class {
	case dbstore.ClassTransferUser:
		return t.db.WithTx(ctx, func(tx pgx.Tx) error {
			sender := dbstore.ShareEvent{
				ChainID: uint64(t.Chain.ID), TxHash: l.TxHash.Hex(), LogIndex: int64(l.Index),
				Address: d.From.Hex(), Asset: t.Asset, EventType: dbstore.EventTransfer,
				SharesDelta: new(big.Int).Neg(d.Value).String(), Block: l.BlockNumber, Timestamp: ts,
				Classification: class,
			}
			receiver := dbstore.ShareEvent{
				ChainID: uint64(t.Chain.ID), TxHash: l.TxHash.Hex(), LogIndex: int64(l.Index) + transferReceiverIndexOffset,
				Address: d.To.Hex(), Asset: t.Asset, EventType: dbstore.EventTransfer,
				SharesDelta: d.Value.String(), Block: l.BlockNumber, Timestamp: ts,
				Classification: class,
			}
			if err := t.db.InsertShareEvent(ctx, tx, sender); err != nil {
				return err
			}
			if err := t.db.InsertShareEvent(ctx, tx, receiver); err != nil {
				return err
			}
			if err := t.folder.Apply(ctx, tx, sender); err != nil {
				return err
			}
			return t.folder.Apply(ctx, tx, receiver)
		})

	case dbstore.ClassMint, dbstore.ClassBridgeMint, dbstore.ClassIntegrationIn:
		e := dbstore.ShareEvent{
			ChainID: uint64(t.Chain.ID), TxHash: l.TxHash.Hex(), LogIndex: int64(l.Index),
			Address: d.To.Hex(), Asset: t.Asset, EventType: dbstore.EventTransfer,
			SharesDelta: d.Value.String(), Block: l.BlockNumber, Timestamp: ts,
			Classification: class,
		}
		return t.foldOne(ctx, e)

	case dbstore.ClassBurnUnstake, dbstore.ClassBridgeBurn, dbstore.ClassIntegrationOut:
		e := dbstore.ShareEvent{
			ChainID: uint64(t.Chain.ID), TxHash: l.TxHash.Hex(), LogIndex: int64(l.Index),
			Address: d.From.Hex(), Asset: t.Asset, EventType: dbstore.EventTransfer,
			SharesDelta: new(big.Int).Neg(d.Value).String(), Block: l.BlockNumber, Timestamp: ts,
			Classification: class,
		}
		return t.foldOne(ctx, e)

	default:
		return fmt.Errorf("ingest: unhandled classification %q", class)
	}
}

func (t *Task) foldOne(ctx context.Context, e dbstore.ShareEvent) error {
	return t.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := t.db.InsertShareEvent(ctx, tx, e); err != nil {
			return err
		}
		return t.folder.Apply(ctx, tx, e)
	})
}

// processRoundRolled implements §4.4: only meaningful on Chain-E, since
// satellite chains never emit this event for a vault contract (OFT
// mirrors don't roll rounds).
func (t *Task) processRoundRolled(ctx context.Context, l types.Log, d *events.Decoded, ts time.Time) error {
	if !t.Chain.ID.IsCanonical() {
		return nil
	}
	in := rounds.RoundRolledInput{
		Asset:           t.Asset,
		ChainID:         uint64(t.Chain.ID),
		RoundID:         d.Round.Int64(),
		StartBlock:      l.BlockNumber,
		StartTs:         ts,
		PPS:             d.PPS,
		SharesMinted:    d.SharesMinted,
		Yield:           d.Yield,
		IsYieldPositive: d.IsYieldPositive,
		TxHash:          l.TxHash.Hex(),
	}
	return t.db.WithTx(ctx, func(tx pgx.Tx) error {
		return t.roundStore.IngestRoundRolled(ctx, tx, in)
	})
}

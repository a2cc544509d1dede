// Package ingest implements the Log Ingester (C4): one cooperative,
// long-lived task per (chain, contract), each running the exact
// fetch-decode-classify-fold-advance loop independently and in parallel
// across chains. Grounded on the teacher's node/listener.go
// EventListener.Start/connectAndListen reconnect-with-backoff shape,
// retargeted from a live subscription to a bounded-batch getLogs poll
// because historical backfill and multi-provider rotation both need an
// explicit cursor rather than a subscription socket.
package ingest

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/streamdroplets/droplets-engine/balances"
	"github.com/streamdroplets/droplets-engine/chainregistry"
	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/events"
	"github.com/streamdroplets/droplets-engine/rounds"
	"github.com/streamdroplets/droplets-engine/rpcpool"
)

// rpcErrorSleep is how long a task backs off after an RPC error before
// retrying the same iteration from step 1 (§4.2 step 6).
const rpcErrorSleep = 5 * time.Second

// Task polls one (chain, contract) pair indefinitely, per §4.2.
type Task struct {
	Chain           chainregistry.Chain
	ContractAddress common.Address
	Asset           string // this contract's asset symbol, for ShareEvent tagging
	IsVault         bool   // true for the Chain-E vault, false for an OFT mirror
	DeployBlock     uint64

	pool           *rpcpool.Pool
	db             *dbstore.Store
	folder         *balances.Folder
	roundStore     *rounds.Store
	vaultAddress   common.Address           // this asset's Chain-E vault (for classify's self-mint check)
	integrationSet map[common.Address]bool // shared across all tasks for this asset

	pollInterval time.Duration
}

// NewTask builds a polling task. integrationSet may be shared (read-only
// after startup) across every task for the same asset.
func NewTask(
	chain chainregistry.Chain,
	contract common.Address,
	asset string,
	isVault bool,
	deployBlock uint64,
	vaultAddress common.Address,
	integrationSet map[common.Address]bool,
	pool *rpcpool.Pool,
	db *dbstore.Store,
	folder *balances.Folder,
	roundStore *rounds.Store,
) *Task {
	interval, err := time.ParseDuration(chain.PollInterval)
	if err != nil || interval <= 0 {
		interval = 5 * time.Second
	}
	return &Task{
		Chain:           chain,
		ContractAddress: contract,
		Asset:           asset,
		IsVault:         isVault,
		DeployBlock:     deployBlock,
		pool:            pool,
		db:              db,
		folder:          folder,
		roundStore:      roundStore,
		vaultAddress:    vaultAddress,
		integrationSet:  integrationSet,
		pollInterval:    interval,
	}
}

// Run drives the task until ctx is cancelled. It never returns an error
// to the caller — every failure is logged and retried per §4.2 step 6,
// the scheduler only needs to know when ctx is done.
func (t *Task) Run(ctx context.Context) {
	logger := log.With().
		Str("chain", t.Chain.Name).Str("asset", t.Asset).
		Str("contract", t.ContractAddress.Hex()).Logger()
	logger.Info().Msg("ingest: task starting")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("ingest: task stopping")
			return
		default:
		}

		if err := t.iterate(ctx); err != nil {
			logger.Error().Err(err).Msg("ingest: iteration failed, backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(rpcErrorSleep):
			}
			continue
		}
	}
}

// iterate runs exactly one pass of the §4.2 algorithm. Returning nil
// with nothing ingested (the from > safe "sleep and continue" case) is
// the expected steady-state outcome once the task has caught up to the
// chain tip.
func (t *Task) iterate(ctx context.Context) error {
	contract := t.ContractAddress.Hex()

	// Step 1: latest := rpc.blockNumber(); safe := latest - confirmations.
	latest, err := t.pool.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("ingest: block number: %w", err)
	}
	if latest < t.Chain.Confirmations {
		time.Sleep(t.pollInterval)
		return nil
	}
	safe := latest - t.Chain.Confirmations

	cursor, err := t.db.GetCursor(ctx, uint64(t.Chain.ID), contract)
	var fromBlock uint64
	if err == dbstore.ErrNotFound {
		fromBlock = t.DeployBlock
	} else if err != nil {
		return fmt.Errorf("ingest: get cursor: %w", err)
	} else {
		fromBlock = cursor.LastSafeBlock + 1
	}

	// Step 2: if from > safe, sleep poll_interval and continue.
	if fromBlock > safe {
		time.Sleep(t.pollInterval)
		return nil
	}

	// Step 3: to := min(from + batch_size - 1, safe).
	toBlock := fromBlock + t.Chain.BatchSize - 1
	if toBlock > safe {
		toBlock = safe
	}

	batchID := uuid.New().String()
	blog := log.With().Str("batch_id", batchID).
		Str("chain", t.Chain.Name).Str("contract", contract).
		Uint64("from", fromBlock).Uint64("to", toBlock).Logger()

	// Step 4: fetch logs; sort by (block_number, transaction_index, log_index).
	logs, err := t.pool.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{t.ContractAddress},
	})
	if err != nil {
		return fmt.Errorf("ingest: filter logs: %w", err)
	}
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		if logs[i].TxIndex != logs[j].TxIndex {
			return logs[i].TxIndex < logs[j].TxIndex
		}
		return logs[i].Index < logs[j].Index
	})
	blog.Debug().Int("log_count", len(logs)).Msg("ingest: batch fetched")

	oftGUIDs := indexOFTLogsByTx(logs)

	var lastProcessed *types.Log
	for i := range logs {
		l := logs[i]
		if cursor != nil && !afterCursor(l, *cursor) {
			continue
		}
		if err := t.processLog(ctx, l, oftGUIDs, blog); err != nil {
			return fmt.Errorf("ingest: process log (tx %s idx %d): %w", l.TxHash.Hex(), l.Index, err)
		}
		lp := l
		lastProcessed = &lp
	}

	// Advance the cursor to the end of the scanned range regardless of
	// whether any log in it matched a known event: an empty or
	// all-unknown-topic batch still moves the resume point forward, or
	// step 2 would spin on the same range forever (§4.2, §7 "unknown
	// topics are tolerated").
	newCursor := dbstore.Cursor{
		ChainID:         uint64(t.Chain.ID),
		ContractAddress: contract,
		LastSafeBlock:   toBlock,
	}
	if lastProcessed != nil {
		newCursor.LastTxHash = lastProcessed.TxHash.Hex()
		newCursor.LastLogIndex = int64(lastProcessed.Index)
	} else if cursor != nil {
		newCursor.LastTxHash = cursor.LastTxHash
		newCursor.LastLogIndex = cursor.LastLogIndex
	}
	if err := t.db.WithTx(ctx, func(tx pgx.Tx) error {
		return t.db.AdvanceCursor(ctx, tx, newCursor)
	}); err != nil {
		return fmt.Errorf("ingest: advance cursor: %w", err)
	}

	return nil
}

// afterCursor reports whether log l is strictly after the cursor's
// (block, tx_hash, log_index) tie-breaker (§4.2 step 5).
func afterCursor(l types.Log, c dbstore.Cursor) bool {
	if l.BlockNumber != c.LastSafeBlock {
		return l.BlockNumber > c.LastSafeBlock
	}
	if l.TxHash.Hex() != c.LastTxHash {
		return true
	}
	return int64(l.Index) > c.LastLogIndex
}

// oftMatch records the OFTSent/OFTReceived logs seen in one tx, keyed by
// guid, so Transfer decoding can tell whether a same-tx bridge leg exists
// (§4.3 rule 3).
type oftMatch struct {
	sent     bool
	received bool
}

// indexOFTLogsByTx scans a batch once and groups OFTSent/OFTReceived
// topics by transaction hash, the cheapest way to answer "does this tx
// also carry an OFT leg" without re-decoding per Transfer.
func indexOFTLogsByTx(logs []types.Log) map[common.Hash]oftMatch {
	out := make(map[common.Hash]oftMatch)
	for _, l := range logs {
		d, err := events.Decode(l)
		if err != nil {
			continue
		}
		switch d.Name {
		case "OFTSent":
			m := out[l.TxHash]
			m.sent = true
			out[l.TxHash] = m
		case "OFTReceived":
			m := out[l.TxHash]
			m.received = true
			out[l.TxHash] = m
		}
	}
	return out
}

func hasOFTInTx(idx map[common.Hash]oftMatch, txHash common.Hash) bool {
	m, ok := idx[txHash]
	return ok && (m.sent || m.received)
}

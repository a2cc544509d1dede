// Package rounds implements the Round/PPS Store (C7): ingesting
// RoundRolled on Chain-E and answering pps(asset, block) for both
// Chain-E and satellite chains. Grounded on the teacher's
// chains/evm/adapter.go GetLatestRoundData/GetRoundData pattern (a
// Chainlink-shaped view-call reader) and consensus/ocr.go's
// round-sequencing shape, adapted here to a single authoritative writer
// with no off-chain consensus step.
package rounds

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/streamdroplets/droplets-engine/balances"
	"github.com/streamdroplets/droplets-engine/chainregistry"
	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/oracle"
)

// defaultPPSScale and defaultPPSValue back the §4.4 fallback: "If nothing is
// found, return scale = 10^18 and value 10^18 (i.e. 1.0) and log a
// warning."
const defaultPPSScale = 18

var defaultPPSValue = new(big.Int).Exp(big.NewInt(10), big.NewInt(defaultPPSScale), nil)

// Store answers PPS queries and ingests RoundRolled events.
type Store struct {
	db      *dbstore.Store
	folder  *balances.Folder
	oracles *oracle.Service
}

// New builds a rounds.Store.
func New(db *dbstore.Store, folder *balances.Folder, oracles *oracle.Service) *Store {
	return &Store{db: db, folder: folder, oracles: oracles}
}

// RoundRolledInput is the decoded payload of a RoundRolled log plus its
// chain context.
type RoundRolledInput struct {
	Asset           string
	ChainID         uint64
	RoundID         int64
	StartBlock      uint64
	StartTs         time.Time
	PPS             *big.Int
	SharesMinted    *big.Int
	Yield           *big.Int
	IsYieldPositive bool
	TxHash          string
}

// IngestRoundRolled implements §4.4: close the prior round, upsert this
// Round row, then seed this round's BalanceSnapshot rows — all inside
// tx so the RoundRolled commit and snapshot creation are atomic (§5).
func (s *Store) IngestRoundRolled(ctx context.Context, tx pgx.Tx, in RoundRolledInput) error {
	if err := s.db.CloseRound(ctx, tx, in.Asset, in.ChainID, in.StartTs); err != nil && err != dbstore.ErrNotFound {
		return fmt.Errorf("rounds: close prior round: %w", err)
	}

	err := s.db.UpsertRound(ctx, tx, dbstore.Round{
		Asset:           in.Asset,
		ChainID:         in.ChainID,
		RoundID:         in.RoundID,
		StartBlock:      in.StartBlock,
		StartTs:         in.StartTs,
		PPS:             in.PPS.String(),
		PPSScale:        defaultPPSScale,
		SharesMinted:    in.SharesMinted.String(),
		Yield:           in.Yield.String(),
		IsYieldPositive: in.IsYieldPositive,
		TxHash:          in.TxHash,
	})
	if err != nil {
		return fmt.Errorf("rounds: upsert round: %w", err)
	}

	if err := s.folder.SeedRoundSnapshots(ctx, tx, in.Asset, in.RoundID); err != nil {
		return fmt.Errorf("rounds: seed snapshots: %w", err)
	}
	return nil
}

// PPSAtBlock implements §4.4's pps(asset, block) for Chain-E: the PPS of
// the Round whose [start_block, next.start_block) window covers block.
func (s *Store) PPSAtBlock(ctx context.Context, asset string, blockNumber uint64) (value *big.Int, scale uint8, err error) {
	r, err := s.db.RoundCoveringBlock(ctx, asset, uint64(chainregistry.ChainEthereum), blockNumber)
	if err == dbstore.ErrNotFound {
		log.Warn().Str("asset", asset).Uint64("block", blockNumber).Msg("rounds: no covering round, using PPS fallback 1.0")
		return defaultPPSValue, defaultPPSScale, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("rounds: pps at block: %w", err)
	}
	v, ok := new(big.Int).SetString(r.PPS, 10)
	if !ok {
		return nil, 0, fmt.Errorf("rounds: corrupt pps %q", r.PPS)
	}
	return v, r.PPSScale, nil
}

// PPSAtTimestamp implements §4.4's cross-chain PPS resolution: "If block
// is on another chain, use the PPS of the latest Round on Chain-E whose
// start_ts <= the requested chain's block timestamp."
func (s *Store) PPSAtTimestamp(ctx context.Context, asset string, t time.Time) (value *big.Int, scale uint8, err error) {
	r, err := s.db.LatestRoundBefore(ctx, asset, uint64(chainregistry.ChainEthereum), t)
	if err == dbstore.ErrNotFound {
		log.Warn().Str("asset", asset).Time("ts", t).Msg("rounds: no round before timestamp, using PPS fallback 1.0")
		return defaultPPSValue, defaultPPSScale, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("rounds: pps at timestamp: %w", err)
	}
	v, ok := new(big.Int).SetString(r.PPS, 10)
	if !ok {
		return nil, 0, fmt.Errorf("rounds: corrupt pps %q", r.PPS)
	}
	return v, r.PPSScale, nil
}

// Package main is the droplets-engine CLI/daemon entrypoint: the
// `start` daemon wires every component (C1-C12) into a running
// process, while the `backfill-*`, `recalc-droplets`, `validate`, and
// `stats` subcommands run single operations against the same stack.
// Grounded on the teacher's cmd/obscura/main.go root/subcommand
// cobra.Command tree.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/streamdroplets/droplets-engine/balances"
	"github.com/streamdroplets/droplets-engine/chainregistry"
	"github.com/streamdroplets/droplets-engine/config"
	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/droplets"
	"github.com/streamdroplets/droplets-engine/ingest"
	"github.com/streamdroplets/droplets-engine/integrations"
	"github.com/streamdroplets/droplets-engine/oracle"
	"github.com/streamdroplets/droplets-engine/reconcile"
	"github.com/streamdroplets/droplets-engine/rounds"
	"github.com/streamdroplets/droplets-engine/rpcpool"
	"github.com/streamdroplets/droplets-engine/snapshot"
)

// components is the fully wired dependency graph every subcommand draws
// its piece from.
type components struct {
	cfg          *config.Config
	db           *dbstore.Store
	registry     *chainregistry.Registry
	rpcs         *rpcpool.Manager
	folder       *balances.Folder
	roundStore   *rounds.Store
	oracles      *oracle.Service
	integrations *integrations.Set
	snapshots    *snapshot.Engine
	ledger       *droplets.Ledger
	reconciler   *reconcile.Validator
	scheduler    *ingest.Scheduler
}

// build loads configuration and wires every component. Callers that
// only need a subset (e.g. `stats` only reads dbstore and chain tips) still pay the RPC
// dial cost today; a leaner partial-build path isn't worth the
// complexity for an internal operator CLI.
func build(ctx context.Context) (*components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("infra: load config: %w", err)
	}

	db, err := dbstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("infra: open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("infra: migrate database: %w", err)
	}

	registry, err := cfg.BuildRegistry()
	if err != nil {
		return nil, fmt.Errorf("infra: build chain registry: %w", err)
	}

	rpcs, err := rpcpool.NewManager(ctx, cfg.BuildRPCURLs(), cfg.ChainNames())
	if err != nil {
		return nil, fmt.Errorf("infra: dial rpc pools: %w", err)
	}

	integrationSet, integrationTargets, err := cfg.BuildIntegrationSet(rpcs)
	if err != nil {
		return nil, fmt.Errorf("infra: build integration set: %w", err)
	}

	excluded := make(map[string]string)
	for _, asset := range registry.Assets() {
		if asset.VaultAddress != (common.Address{}) {
			excluded[strings.ToLower(asset.VaultAddress.Hex())] = fmt.Sprintf("%s vault contract", asset.Symbol)
		}
	}
	for addr := range integrationSet.ContractAddresses() {
		excluded[strings.ToLower(addr.Hex())] = "integration contract"
	}
	if err := db.SeedExcludedAddresses(ctx, excluded); err != nil {
		return nil, fmt.Errorf("infra: seed excluded addresses: %w", err)
	}

	chainEPool, err := rpcs.For(chainregistry.ChainEthereum)
	if err != nil {
		return nil, fmt.Errorf("infra: chain-e pool: %w", err)
	}
	oracles, err := oracle.NewService(db, chainEPool, config.OracleFeeds(registry), cfg.OracleBlockCachePath)
	if err != nil {
		return nil, fmt.Errorf("infra: build oracle service: %w", err)
	}

	folder := balances.New(db)
	roundStore := rounds.New(db, folder, oracles)

	scheduler, err := ingest.NewScheduler(registry, rpcs, db, folder, roundStore, integrationSet, integrationTargets)
	if err != nil {
		return nil, fmt.Errorf("infra: build ingest scheduler: %w", err)
	}

	policy := snapshot.AccrueRegardless
	if cfg.DropletEligibilityPolicy == "ZeroOnUnstake" {
		policy = snapshot.ZeroOnUnstake
	}
	snapshots := snapshot.New(db, registry, roundStore, oracles, integrationSet, policy, cfg.DropletUSDRatio, cfg.SnapshotTimeOfDay())

	return &components{
		cfg:          cfg,
		db:           db,
		registry:     registry,
		rpcs:         rpcs,
		folder:       folder,
		roundStore:   roundStore,
		oracles:      oracles,
		integrations: integrationSet,
		snapshots:    snapshots,
		ledger:       droplets.New(db),
		reconciler:   reconcile.New(db, integrationSet),
		scheduler:    scheduler,
	}, nil
}

// chainIDOf narrows a cursor row's stored chain id back to its typed form.
func chainIDOf(id uint64) chainregistry.ChainID {
	return chainregistry.ChainID(id)
}

func (c *components) Close() {
	if c.oracles != nil {
		_ = c.oracles.Close()
	}
	if c.rpcs != nil {
		c.rpcs.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
}

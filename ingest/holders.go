package ingest

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/streamdroplets/droplets-engine/chainregistry"
	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/events"
	"github.com/streamdroplets/droplets-engine/integrations"
	"github.com/streamdroplets/droplets-engine/rpcpool"
)

// holderBatchSize bounds one HolderTask iteration's getLogs range, the
// same batching idea Task.iterate uses for the vault/OFT side.
const holderBatchSize = 2000

// IntegrationTarget pairs one configured integration adapter with the
// chain and deploy block its holder-discovery task needs.
type IntegrationTarget struct {
	Adapter     integrations.Adapter
	ChainID     chainregistry.ChainID
	DeployBlock uint64
}

// HolderTask polls one integration adapter's own share/LP token for
// Transfer events and calls Observe on every (from, to) pair seen — the
// only input an adapter's Holders/PositionsAt enumeration depends on
// (§4.7: "User ... holders are tracked via Transfer events on the ...
// token"). Grounded on Task.iterate's poll-fetch-advance loop, stripped
// of classification/balance-folding since holder discovery only needs
// the transfer's endpoints, not its amount.
type HolderTask struct {
	ChainID     uint64
	Adapter     integrations.Adapter
	Contract    common.Address
	DeployBlock uint64

	pool *rpcpool.Pool
	db   *dbstore.Store

	pollInterval time.Duration
}

// NewHolderTask builds a polling holder-discovery task for one adapter.
func NewHolderTask(chainID chainregistry.ChainID, adapter integrations.Adapter, deployBlock uint64, pool *rpcpool.Pool, db *dbstore.Store) *HolderTask {
	return &HolderTask{
		ChainID:      uint64(chainID),
		Adapter:      adapter,
		Contract:     adapter.ContractAddress(),
		DeployBlock:  deployBlock,
		pool:         pool,
		db:           db,
		pollInterval: 5 * time.Second,
	}
}

// Run drives the task until ctx is cancelled, mirroring Task.Run's
// never-return-an-error-to-the-caller contract.
func (t *HolderTask) Run(ctx context.Context) {
	logger := log.With().Str("protocol", t.Adapter.ProtocolID()).Str("contract", t.Contract.Hex()).Logger()
	logger.Info().Msg("ingest: holder task starting")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("ingest: holder task stopping")
			return
		default:
		}

		if err := t.iterate(ctx); err != nil {
			logger.Error().Err(err).Msg("ingest: holder iteration failed, backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(rpcErrorSleep):
			}
			continue
		}
	}
}

func (t *HolderTask) iterate(ctx context.Context) error {
	contract := t.Contract.Hex()

	latest, err := t.pool.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("ingest: holder block number: %w", err)
	}

	cursor, err := t.db.GetCursor(ctx, t.ChainID, contract)
	var fromBlock uint64
	if err == dbstore.ErrNotFound {
		fromBlock = t.DeployBlock
	} else if err != nil {
		return fmt.Errorf("ingest: holder get cursor: %w", err)
	} else {
		fromBlock = cursor.LastSafeBlock + 1
	}

	if fromBlock > latest {
		time.Sleep(t.pollInterval)
		return nil
	}

	toBlock := fromBlock + holderBatchSize - 1
	if toBlock > latest {
		toBlock = latest
	}

	logs, err := t.pool.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{t.Contract},
	})
	if err != nil {
		return fmt.Errorf("ingest: holder filter logs: %w", err)
	}

	for _, l := range logs {
		d, err := events.Decode(l)
		if err != nil || d.Name != "Transfer" {
			continue // unknown or unrelated topic, tolerated (§7)
		}
		t.Adapter.Observe(d.From, d.To)
	}

	if err := t.db.WithTx(ctx, func(tx pgx.Tx) error {
		return t.db.AdvanceCursor(ctx, tx, dbstore.Cursor{
			ChainID:         t.ChainID,
			ContractAddress: contract,
			LastSafeBlock:   toBlock,
		})
	}); err != nil {
		return fmt.Errorf("ingest: holder advance cursor: %w", err)
	}
	return nil
}

// Package snapshot implements the Daily Snapshot Engine (C10): once per
// snapshot_date, it unifies every address's vault, OFT, and integration
// exposure into a single USD value and appends the droplet ledger entry
// that value earns. Grounded on the teacher's jobs/manager.go JobManager
// (a status-tracked unit of work run to completion or failure) and
// staking/stakeguard.go's DistributeRewards accrual-loop shape,
// retargeted here from node-operator reward distribution to a daily
// per-address USD valuation.
package snapshot

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/streamdroplets/droplets-engine/chainregistry"
	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/integrations"
	"github.com/streamdroplets/droplets-engine/money"
	"github.com/streamdroplets/droplets-engine/oracle"
	"github.com/streamdroplets/droplets-engine/rounds"
)

// EligibilityPolicy controls whether an unstake within the snapshot
// window zeroes that address's droplets for the day (§4.8, SPEC_FULL §F.1).
type EligibilityPolicy string

const (
	AccrueRegardless EligibilityPolicy = "AccrueRegardless"
	ZeroOnUnstake    EligibilityPolicy = "ZeroOnUnstake"
)

// usdScale is the fixed-point scale every USD value in this package is
// carried at, matching the Chainlink feed scale oracle.Service caches
// prices with (§4.6 step 4: "scale=8"). Every valueX helper below divides
// out the asset's own share/token decimals so a sum across assets of
// differing decimals (A_ETH vs A_BTC) is dimensionally sound — the
// literal formulas in §4.8 omit that division where the source and
// target decimals happen to coincide; dividing it out explicitly keeps
// the result correct when they don't (documented in DESIGN.md).
const usdScale = 8

// Engine runs one snapshot_date to completion.
type Engine struct {
	db           *dbstore.Store
	reg          *chainregistry.Registry
	rounds       *rounds.Store
	oracles      *oracle.Service
	integrations *integrations.Set
	policy       EligibilityPolicy
	usdRatio     int64         // droplets per whole USD, §6 DROPLET_USD_RATIO
	cutoff       time.Duration // offset since midnight UTC, §6 SNAPSHOT_TIME_HOUR/_MINUTE
}

// New builds a snapshot Engine. cutoff is the configured daily snapshot
// time of day (Config.SnapshotTimeOfDay()).
func New(db *dbstore.Store, reg *chainregistry.Registry, roundStore *rounds.Store, oracles *oracle.Service, integrationSet *integrations.Set, policy EligibilityPolicy, usdRatio int64, cutoff time.Duration) *Engine {
	return &Engine{db: db, reg: reg, rounds: roundStore, oracles: oracles, integrations: integrationSet, policy: policy, usdRatio: usdRatio, cutoff: cutoff}
}

// Run executes the full snapshot for date (truncated to the UTC day),
// driving the DailyJob state machine from pending/failed through
// processing to completed (§4.8, §4.10). It never overlaps itself for
// the same date: GetOrCreateDailyJob is the mutex.
func (e *Engine) Run(ctx context.Context, date time.Time) error {
	date = date.Truncate(24 * time.Hour)

	job, err := e.db.GetOrCreateDailyJob(ctx, date)
	if err != nil {
		return fmt.Errorf("snapshot: get or create job: %w", err)
	}
	if job.Status == dbstore.JobCompleted {
		log.Info().Time("date", date).Msg("snapshot: already completed, skipping")
		return nil
	}

	if err := e.db.SetDailyJobStatus(ctx, nil, date, dbstore.JobProcessing, ""); err != nil {
		return fmt.Errorf("snapshot: set processing: %w", err)
	}

	if err := e.runAllAddresses(ctx, date); err != nil {
		_ = e.db.SetDailyJobStatus(ctx, nil, date, dbstore.JobFailed, err.Error())
		return fmt.Errorf("snapshot: run: %w", err)
	}

	if err := e.db.SetDailyJobStatus(ctx, nil, date, dbstore.JobCompleted, ""); err != nil {
		return fmt.Errorf("snapshot: set completed: %w", err)
	}
	return nil
}

// runAllAddresses refreshes every integration adapter's positions once
// for the day, then values every eligible address and writes its day's
// snapshot + ledger row in its own transaction, so one address's failure
// does not lose already-completed work for the others — the DailyJob as
// a whole only fails if a structural error (DB, oracle) stops progress
// entirely, never because one address had, say, a zero balance.
func (e *Engine) runAllAddresses(ctx context.Context, date time.Time) error {
	t := date.Add(e.cutoff)

	if err := e.refreshIntegrationPositions(ctx, t); err != nil {
		return fmt.Errorf("refresh integration positions: %w", err)
	}

	addrs, err := e.db.DistinctUsersWithBalanceOrPosition(ctx)
	if err != nil {
		return fmt.Errorf("list addresses: %w", err)
	}

	for _, addr := range addrs {
		if err := e.snapshotOne(ctx, addr, date, t); err != nil {
			return fmt.Errorf("address %s: %w", addr, err)
		}
	}
	return nil
}

// refreshIntegrationPositions re-derives every registered adapter's
// current holder positions and prices them against the underlying
// asset's oracle price, caching the result as the IntegrationPosition
// row the per-address valuation pass then simply sums (§4.7, §4.8 step
// 3). Each adapter is read at its own chain's latest block: integration
// contracts are not necessarily on Chain-E, so there is no single "block
// just before T" to use the way the vault valuation has one.
func (e *Engine) refreshIntegrationPositions(ctx context.Context, t time.Time) error {
	for _, a := range e.integrations.All() {
		block, err := a.LatestBlock(ctx)
		if err != nil {
			return fmt.Errorf("integrations(%s): latest block: %w", a.ProtocolID(), err)
		}
		positions, err := a.PositionsAt(ctx, block)
		if err != nil {
			return fmt.Errorf("integrations(%s): positions at %d: %w", a.ProtocolID(), block, err)
		}

		asset, ok := e.reg.Asset(a.UnderlyingAsset())
		if !ok {
			return fmt.Errorf("integrations(%s): unknown underlying asset %q", a.ProtocolID(), a.UnderlyingAsset())
		}
		price, _, err := e.oracles.PriceAt(ctx, asset.Symbol, t)
		if err != nil {
			return fmt.Errorf("integrations(%s): price %s: %w", a.ProtocolID(), asset.Symbol, err)
		}

		for _, p := range positions {
			usd := money.MulDivFloor(p.UnderlyingXTokenAmount, price, money.Scale(asset.Decimals))
			if err := e.db.UpsertIntegrationPosition(ctx, dbstore.IntegrationPosition{
				ProtocolID:             a.ProtocolID(),
				UserAddress:            p.UserAddress.Hex(),
				PositionShares:         p.PositionShares.String(),
				UnderlyingXTokenAmount: p.UnderlyingXTokenAmount.String(),
				USDValue:               usd.String(),
				BlockNumber:            block,
				Timestamp:              t,
			}); err != nil {
				return fmt.Errorf("integrations(%s): upsert position %s: %w", a.ProtocolID(), p.UserAddress.Hex(), err)
			}
		}
	}
	return nil
}

func (e *Engine) snapshotOne(ctx context.Context, address string, date, t time.Time) error {
	breakdown := make(map[string]string)
	total := big.NewInt(0)
	hadUnstake := false

	for _, asset := range e.reg.Assets() {
		assetTotal := big.NewInt(0)

		usd, unstook, err := e.valueVaultShares(ctx, asset, address, date, t)
		if err != nil {
			return fmt.Errorf("vault shares %s: %w", asset.Symbol, err)
		}
		assetTotal = money.Add(assetTotal, usd)
		hadUnstake = hadUnstake || unstook

		for _, chainID := range e.reg.SatelliteChains {
			if _, ok := asset.OFTAddress(chainID); !ok {
				continue
			}
			usd, err := e.valueOFTBalance(ctx, asset, address, chainID, t)
			if err != nil {
				return fmt.Errorf("oft balance %s/%s: %w", asset.Symbol, chainID, err)
			}
			assetTotal = money.Add(assetTotal, usd)
		}

		total = money.Add(total, assetTotal)
		if assetTotal.Sign() != 0 {
			breakdown[asset.Symbol] = assetTotal.String()
		}
	}

	integrationUSD, err := e.valueIntegrationPositions(ctx, address)
	if err != nil {
		return fmt.Errorf("integration positions: %w", err)
	}
	total = money.Add(total, integrationUSD)
	if integrationUSD.Sign() != 0 {
		breakdown["integrations"] = integrationUSD.String()
	}

	excluded, err := e.db.IsExcluded(ctx, address)
	if err != nil {
		return fmt.Errorf("is excluded: %w", err)
	}

	droplets := big.NewInt(0)
	if !excluded && total.Sign() > 0 {
		if e.policy == ZeroOnUnstake && hadUnstake {
			droplets = big.NewInt(0)
		} else {
			droplets = new(big.Int).Mul(money.FloorUSD(total, usdScale), big.NewInt(e.usdRatio))
		}
	}

	return e.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := e.db.InsertDailyUsdSnapshot(ctx, tx, dbstore.DailyUsdSnapshot{
			Address: address, SnapshotDate: date, TotalUSDValue: total.String(),
			Breakdown: breakdown, HadUnstake: hadUnstake, IsExcluded: excluded,
			DropletsEarned: droplets.String(), SnapshotTs: t,
		}); err != nil {
			return err
		}
		if droplets.Sign() > 0 {
			if err := e.db.InsertDropletLedger(ctx, tx, dbstore.DropletLedger{
				Address: address, SnapshotDate: date, Amount: droplets.String(), Reason: "daily_snapshot",
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// valueVaultShares implements §4.8 step 1 for Chain-E:
// usd = shares_E * pps * price / (10^pps_scale * 10^decimals), left at
// usdScale (see the package-level comment on usdScale for why the
// decimals division is made explicit here). It also reports whether any
// round intersecting date had an unstake for this address, the input to
// the ZeroOnUnstake eligibility policy.
func (e *Engine) valueVaultShares(ctx context.Context, asset *chainregistry.Asset, address string, date, t time.Time) (usd *big.Int, hadUnstake bool, err error) {
	bal, err := e.db.GetCurrentBalance(ctx, address, asset.Symbol, uint64(chainregistry.ChainEthereum))
	if err != nil {
		return nil, false, fmt.Errorf("current balance: %w", err)
	}

	hadUnstake, err = e.db.HadUnstakeInDateRange(ctx, address, asset.Symbol, uint64(chainregistry.ChainEthereum), date, date.Add(24*time.Hour))
	if err != nil {
		return nil, false, fmt.Errorf("had unstake: %w", err)
	}

	shares, err := money.ParseAmount(bal.Shares)
	if err != nil {
		return nil, false, fmt.Errorf("parse shares: %w", err)
	}
	if shares.Sign() == 0 {
		return big.NewInt(0), hadUnstake, nil
	}

	pps, ppsScale, err := e.rounds.PPSAtTimestamp(ctx, asset.Symbol, t)
	if err != nil {
		return nil, false, fmt.Errorf("pps: %w", err)
	}
	price, _, err := e.oracles.PriceAt(ctx, asset.Symbol, t)
	if err != nil {
		return nil, false, fmt.Errorf("price: %w", err)
	}

	underlying := money.MulDivFloor(shares, pps, money.Scale(ppsScale))
	usd = money.MulDivFloor(underlying, price, money.Scale(asset.Decimals))
	return usd, hadUnstake, nil
}

// valueOFTBalance implements §4.8 step 2: the OFT balance is already in
// underlying units, so it is priced directly without a PPS conversion.
func (e *Engine) valueOFTBalance(ctx context.Context, asset *chainregistry.Asset, address string, chainID chainregistry.ChainID, t time.Time) (*big.Int, error) {
	bal, err := e.db.GetCurrentBalance(ctx, address, asset.Symbol, uint64(chainID))
	if err != nil {
		return nil, fmt.Errorf("current balance: %w", err)
	}
	tokens, err := money.ParseAmount(bal.Shares)
	if err != nil {
		return nil, fmt.Errorf("parse tokens: %w", err)
	}
	if tokens.Sign() == 0 {
		return big.NewInt(0), nil
	}

	price, _, err := e.oracles.PriceAt(ctx, asset.Symbol, t)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	return money.MulDivFloor(tokens, price, money.Scale(asset.Decimals)), nil
}

// valueIntegrationPositions implements §4.8 step 3 by summing the
// usd_value column refreshIntegrationPositions already populated for
// this address this run.
func (e *Engine) valueIntegrationPositions(ctx context.Context, address string) (*big.Int, error) {
	positions, err := e.db.IntegrationPositionsForUser(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("positions for user: %w", err)
	}
	total := big.NewInt(0)
	for _, p := range positions {
		v, err := money.ParseAmount(p.USDValue)
		if err != nil {
			return nil, fmt.Errorf("parse usd value: %w", err)
		}
		total = money.Add(total, v)
	}
	return total, nil
}

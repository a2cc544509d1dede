package droplets

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/money"
)

// usdScale mirrors the Chainlink-feed fixed-point scale every
// total_usd_value row is stored at (§4.6 step 4, §4.8).
const usdScale = 8

// RecomputeLeaderboard rebuilds one address's leaderboard row from its
// full droplet ledger and daily USD history, replacing the incrementally
// maintained row InsertDropletLedger keeps up to date. This is the
// "rebuildable from raw events" property made operable for the
// `recalc-droplets` CLI path and for drift detection against the
// incremental aggregate (§4.9).
func (l *Ledger) RecomputeLeaderboard(ctx context.Context, address string) (*dbstore.Leaderboard, error) {
	entries, err := l.db.DropletsFor(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("droplets: recompute %s: ledger: %w", address, err)
	}

	total := big.NewInt(0)
	var lastDate time.Time
	for _, e := range entries {
		amt, err := money.ParseAmount(e.Amount)
		if err != nil {
			return nil, fmt.Errorf("droplets: recompute %s: parse amount: %w", address, err)
		}
		total = money.Add(total, amt)
		if e.SnapshotDate.After(lastDate) {
			lastDate = e.SnapshotDate
		}
	}

	usdValues, err := l.db.DailyUsdValuesForAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("droplets: recompute %s: usd values: %w", address, err)
	}
	avg := averageUSD(usdValues)

	lb := dbstore.Leaderboard{
		Address:          address,
		TotalDroplets:    total.String(),
		DaysParticipated: int64(len(entries)),
		LastSnapshotDate: lastDate,
		AverageDailyUSD:  avg,
	}
	if err := l.db.UpsertLeaderboard(ctx, lb); err != nil {
		return nil, fmt.Errorf("droplets: recompute %s: upsert: %w", address, err)
	}
	return &lb, nil
}

// averageUSD converts every decimal(78,0)-at-usdScale string to a whole-
// dollar float64 and averages them with gonum/stat.Mean (SPEC_FULL §D:
// "average_daily_usd via gonum/stat.Mean, not left as a TODO").
func averageUSD(values []string) float64 {
	if len(values) == 0 {
		return 0
	}
	scale := new(big.Float).SetInt(money.Scale(usdScale))
	floats := make([]float64, len(values))
	for i, v := range values {
		raw, err := money.ParseAmount(v)
		if err != nil {
			continue
		}
		f := new(big.Float).Quo(new(big.Float).SetInt(raw), scale)
		floats[i], _ = f.Float64()
	}
	return stat.Mean(floats, nil)
}

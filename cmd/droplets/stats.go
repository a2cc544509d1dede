package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/streamdroplets/droplets-engine/money"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a human-readable summary of ingestion lag and the latest snapshot's totals",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	comps, err := build(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()

	cursors, err := comps.db.ListCursors(ctx)
	if err != nil {
		return infraErr("stats", err)
	}

	fmt.Println("Chain cursors:")
	for _, c := range cursors {
		pool, err := comps.rpcs.For(chainIDOf(c.ChainID))
		if err != nil {
			fmt.Printf("  %s %s: no pool configured\n", chainIDOf(c.ChainID), c.ContractAddress)
			continue
		}
		latest, err := pool.BlockNumber(ctx)
		if err != nil {
			fmt.Printf("  %s %s: block number error: %v\n", chainIDOf(c.ChainID), c.ContractAddress, err)
			continue
		}
		lag := int64(latest) - int64(c.LastSafeBlock)
		fmt.Printf("  %-12s %s  safe=%s  tip=%s  lag=%s blocks  (updated %s)\n",
			chainIDOf(c.ChainID), c.ContractAddress,
			humanize.Comma(int64(c.LastSafeBlock)), humanize.Comma(int64(latest)), humanize.Comma(lag),
			humanize.Time(c.UpdatedAt))
	}

	job, err := comps.db.LatestDailyJob(ctx)
	switch {
	case err == nil:
		fmt.Printf("\nLast snapshot: %s status=%s (%s)\n", job.SnapshotDate.Format(dateLayout), job.Status, humanize.Time(job.UpdatedAt))
		totalUSD, totalDroplets, addrs, derr := comps.db.DaySnapshotAggregate(ctx, job.SnapshotDate)
		if derr == nil {
			fmt.Printf("  addresses=%s  total_droplets=%s  total_usd=$%s\n",
				humanize.Comma(addrs), humanize.Comma(bigIntOrZero(totalDroplets)), humanize.Commaf(usdFloat(totalUSD)))
		}
	default:
		fmt.Println("\nNo snapshot has ever run.")
	}

	return nil
}

const dateLayout = "2006-01-02"

func bigIntOrZero(s string) int64 {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return 0
	}
	return v.Int64()
}

func usdFloat(s string) float64 {
	v, err := money.ParseAmount(s)
	if err != nil {
		return 0
	}
	scale := new(big.Float).SetInt(money.Scale(8))
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), scale).Float64()
	return f
}

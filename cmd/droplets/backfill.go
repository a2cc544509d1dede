package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var backfillPricesCmd = &cobra.Command{
	Use:   "backfill-prices",
	Short: "Warm the oracle price cache for --asset over [--from, --to] (unix seconds)",
	RunE:  runBackfillPrices,
}

var backfillEventsCmd = &cobra.Command{
	Use:   "backfill-events",
	Short: "Catch up ingestion for every tracked contract up to chain tip or --to",
	RunE:  runBackfillEvents,
}

func runBackfillPrices(cmd *cobra.Command, args []string) error {
	if flagAsset == "" || flagFrom == 0 || flagTo == 0 {
		return validationErr("backfill-prices", fmt.Errorf("--asset, --from, and --to (unix seconds) are required"))
	}
	if flagFrom > flagTo {
		return validationErr("backfill-prices", fmt.Errorf("--from must not be after --to"))
	}

	ctx := context.Background()
	comps, err := build(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()

	from := time.Unix(int64(flagFrom), 0).UTC()
	to := time.Unix(int64(flagTo), 0).UTC()

	count := 0
	for t := from; !t.After(to); t = t.Add(24 * time.Hour) {
		if _, _, err := comps.oracles.PriceAt(ctx, flagAsset, t); err != nil {
			return infraErr("backfill-prices", fmt.Errorf("%s at %s: %w", flagAsset, t, err))
		}
		count++
	}
	log.Info().Str("asset", flagAsset).Int("days", count).Msg("droplets: backfill-prices complete")
	return nil
}

func runBackfillEvents(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps, err := build(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()

	done := make(chan struct{})
	go func() {
		comps.scheduler.Run(ctx)
		close(done)
	}()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			caughtUp, err := backfillCaughtUp(ctx, comps)
			if err != nil {
				cancel()
				<-done
				return infraErr("backfill-events", err)
			}
			if caughtUp {
				cancel()
				<-done
				log.Info().Msg("droplets: backfill-events caught up")
				return nil
			}
		case <-ctx.Done():
			<-done
			return nil
		}
	}
}

// backfillCaughtUp reports whether every tracked contract's cursor has
// reached --to (if set) or its chain's current tip.
func backfillCaughtUp(ctx context.Context, comps *components) (bool, error) {
	cursors, err := comps.db.ListCursors(ctx)
	if err != nil {
		return false, err
	}
	if len(cursors) == 0 {
		return false, nil
	}
	for _, c := range cursors {
		target := flagTo
		if target == 0 {
			pool, err := comps.rpcs.For(chainIDOf(c.ChainID))
			if err != nil {
				return false, err
			}
			latest, err := pool.BlockNumber(ctx)
			if err != nil {
				return false, err
			}
			target = latest
		}
		if c.LastSafeBlock < target {
			return false, nil
		}
	}
	return true, nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var recalcDropletsCmd = &cobra.Command{
	Use:   "recalc-droplets",
	Short: "Replay the daily snapshot engine over [--from, --to] (unix seconds, inclusive days)",
	RunE:  runRecalcDroplets,
}

func runRecalcDroplets(cmd *cobra.Command, args []string) error {
	if flagFrom == 0 || flagTo == 0 || flagFrom > flagTo {
		return validationErr("recalc-droplets", fmt.Errorf("--from and --to (unix seconds) are required with from <= to"))
	}

	ctx := context.Background()
	comps, err := build(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()

	from := time.Unix(int64(flagFrom), 0).UTC().Truncate(24 * time.Hour)
	to := time.Unix(int64(flagTo), 0).UTC().Truncate(24 * time.Hour)

	days := 0
	for d := from; !d.After(to); d = d.Add(24 * time.Hour) {
		if err := comps.snapshots.Run(ctx, d); err != nil {
			return infraErr("recalc-droplets", fmt.Errorf("%s: %w", d.Format(dateLayout), err))
		}
		days++
	}
	log.Info().Int("days", days).Msg("droplets: recalc-droplets complete")
	return nil
}

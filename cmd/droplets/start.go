package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/streamdroplets/droplets-engine/api"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the ingest scheduler, daily snapshot loop, and read API",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := build(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()

	go comps.scheduler.Run(ctx)
	go runDailySnapshotLoop(ctx, comps)

	srv := api.NewServer(comps.db, comps.ledger, comps.rpcs)
	httpServer := &http.Server{Addr: comps.cfg.ListenAddr, Handler: srv.NewRouter()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", comps.cfg.ListenAddr).Int("tasks", comps.scheduler.Len()).Msg("droplets: starting")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return infraErr("http server", err)
	}
	return nil
}

// runDailySnapshotLoop sleeps until the next configured cutoff, runs the
// snapshot engine for the day that just elapsed, and repeats until ctx
// is cancelled (§4.8 runs "once per snapshot_date at T, configurable").
func runDailySnapshotLoop(ctx context.Context, comps *components) {
	for {
		next := nextCutoff(time.Now().UTC(), comps.cfg.SnapshotTimeOfDay())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		date := next.Add(-24 * time.Hour)
		if err := comps.snapshots.Run(ctx, date); err != nil {
			log.Error().Err(err).Time("date", date).Msg("droplets: snapshot run failed")
		}
	}
}

// nextCutoff returns the next occurrence of cutoff (an offset since
// midnight UTC) strictly after now.
func nextCutoff(now time.Time, cutoff time.Duration) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	next := midnight.Add(cutoff)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

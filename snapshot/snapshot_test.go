package snapshot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/streamdroplets/droplets-engine/chainregistry"
	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/integrations"
	"github.com/streamdroplets/droplets-engine/oracle"
	"github.com/streamdroplets/droplets-engine/rounds"
)

func TestEligibilityPolicyConstants(t *testing.T) {
	if AccrueRegardless == ZeroOnUnstake {
		t.Fatal("eligibility policies must be distinct")
	}
	if AccrueRegardless != "AccrueRegardless" || ZeroOnUnstake != "ZeroOnUnstake" {
		t.Errorf("eligibility policy string values changed: %q, %q", AccrueRegardless, ZeroOnUnstake)
	}
}

// open returns a live Store against TEST_DATABASE_URL, or skips — the
// engine's valuation path is exercised end to end only against real SQL.
func open(t *testing.T) *dbstore.Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("set TEST_DATABASE_URL to run snapshot integration tests")
	}
	s, err := dbstore.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestRunSkipsCompletedJob(t *testing.T) {
	db := open(t)
	ctx := context.Background()

	reg, err := chainregistry.New(
		[]chainregistry.Chain{{ID: chainregistry.ChainEthereum, Name: "ethereum", Confirmations: 2, BatchSize: 500}},
		nil,
	)
	if err != nil {
		t.Fatalf("chainregistry.New: %v", err)
	}
	roundStore := rounds.New(db, nil, nil)
	oracles, err := oracle.NewService(db, nil, nil, "")
	if err != nil {
		t.Fatalf("oracle.NewService: %v", err)
	}
	engine := New(db, reg, roundStore, oracles, integrations.NewSet(), AccrueRegardless, 1, 5*time.Minute)

	date := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := db.SetDailyJobStatus(ctx, nil, date, dbstore.JobPending, ""); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	if _, err := db.GetOrCreateDailyJob(ctx, date); err != nil {
		t.Fatalf("GetOrCreateDailyJob: %v", err)
	}
	if err := db.SetDailyJobStatus(ctx, nil, date, dbstore.JobCompleted, ""); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	if err := engine.Run(ctx, date); err != nil {
		t.Fatalf("Run on already-completed day should be a no-op, got: %v", err)
	}
}

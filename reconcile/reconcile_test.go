package reconcile

import (
	"context"
	"os"
	"testing"

	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/integrations"
)

// open returns a live Store against TEST_DATABASE_URL, or skips — the
// job-state-machine transitions are exercised end to end only against
// real SQL.
func open(t *testing.T) *dbstore.Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("set TEST_DATABASE_URL to run reconcile integration tests")
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

func TestReconcileEmptyRangeCompletes(t *testing.T) {
	db := open(t)
	ctx := context.Background()

	v := New(db, integrations.NewSet())
	result, err := v.Reconcile(ctx, 1, 1, 100)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Matched != 0 || len(result.UnmatchedVault) != 0 || len(result.UnmatchedIntegration) != 0 {
		t.Errorf("expected an empty range to produce no matches and no unmatched records, got %+v", result)
	}

	job, err := db.GetOrCreateReconciliationJob(ctx, 1, 1, 100)
	if err != nil {
		t.Fatalf("GetOrCreateReconciliationJob: %v", err)
	}
	if job.Status != dbstore.JobCompleted {
		t.Errorf("expected job status completed, got %s", job.Status)
	}
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/droplets"
)

// open returns a live Store against TEST_DATABASE_URL, or skips — these
// handlers are thin wrappers over real SQL queries, not worth mocking.
func open(t *testing.T) *dbstore.Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("set TEST_DATABASE_URL to run api integration tests")
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

func TestDropletsForUnknownAddressReturnsZero(t *testing.T) {
	db := open(t)
	srv := NewServer(db, droplets.New(db), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/droplets/0xdeadbeef", nil)
	rr := httptest.NewRecorder()
	srv.NewRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp dropletsForResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalDroplets != "0" {
		t.Errorf("TotalDroplets = %q, want 0", resp.TotalDroplets)
	}
	if resp.LastSnapshotDate != "" {
		t.Errorf("expected no snapshot date for an address with no history, got %q", resp.LastSnapshotDate)
	}
}

func TestHealthWithNoCursorsReturnsEmptyChains(t *testing.T) {
	db := open(t)
	srv := NewServer(db, droplets.New(db), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	srv.NewRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Chains) != 0 {
		t.Errorf("Chains = %+v, want empty", resp.Chains)
	}
	if resp.LastSnapshotJob != "never_run" {
		t.Errorf("LastSnapshotJob = %q, want never_run", resp.LastSnapshotJob)
	}
}

func TestDaySnapshotRejectsBadDate(t *testing.T) {
	db := open(t)
	srv := NewServer(db, droplets.New(db), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/snapshots/not-a-date", nil)
	rr := httptest.NewRecorder()
	srv.NewRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestLeaderboardEmpty(t *testing.T) {
	db := open(t)
	srv := NewServer(db, droplets.New(db), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	rr := httptest.NewRecorder()
	srv.NewRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var rows []leaderboardRow
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

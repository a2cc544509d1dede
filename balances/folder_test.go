package balances

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/streamdroplets/droplets-engine/dbstore"
)

// These exercise real Postgres transactions (row locking, the negative
// balance guard) that an in-memory fake would not faithfully reproduce.
func openStore(t *testing.T) *dbstore.Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("set TEST_DATABASE_URL to run balances integration tests")
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

func TestApplyMintThenBurnLeavesZero(t *testing.T) {
	store := openStore(t)
	folder := New(store)
	ctx := context.Background()

	mint := dbstore.ShareEvent{ChainID: 1, Address: "0xuser", Asset: "A_ETH", Classification: dbstore.ClassMint, SharesDelta: "100", Block: 1}
	burn := dbstore.ShareEvent{ChainID: 1, Address: "0xuser", Asset: "A_ETH", Classification: dbstore.ClassBurnUnstake, SharesDelta: "-100", Block: 2}

	if err := store.WithTx(ctx, func(tx pgx.Tx) error { return folder.Apply(ctx, tx, mint) }); err != nil {
		t.Fatalf("apply mint: %v", err)
	}
	if err := store.WithTx(ctx, func(tx pgx.Tx) error { return folder.Apply(ctx, tx, burn) }); err != nil {
		t.Fatalf("apply burn: %v", err)
	}

	bal, err := store.GetCurrentBalance(ctx, "0xuser", "A_ETH", 1)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.Shares != "0" {
		t.Errorf("expected 0 after mint+burn, got %s", bal.Shares)
	}
}

func TestApplyBurnWithoutMintLeavesUnchanged(t *testing.T) {
	store := openStore(t)
	folder := New(store)
	ctx := context.Background()

	burn := dbstore.ShareEvent{ChainID: 1, Address: "0xnevermintedotom", Asset: "A_ETH", Classification: dbstore.ClassBurnUnstake, SharesDelta: "-50", Block: 1}
	if err := store.WithTx(ctx, func(tx pgx.Tx) error { return folder.Apply(ctx, tx, burn) }); err != nil {
		t.Fatalf("apply should not error even when it skips the negative mutation: %v", err)
	}

	bal, err := store.GetCurrentBalance(ctx, "0xnevermintedotom", "A_ETH", 1)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.Shares != "0" {
		t.Errorf("balance should stay at implicit zero, got %s", bal.Shares)
	}
}

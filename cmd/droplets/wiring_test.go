package main

import (
	"context"
	"os"
	"testing"
)

// build dials out to postgres and RPC providers, so only its config-time
// failure path is worth asserting here; the happy path is exercised by
// hand against a real environment, not in CI.
func TestBuildFailsWithoutDatabaseURL(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "ALCHEMY_API_KEY_1", "ALCHEMY_API_KEY_2", "ALCHEMY_API_KEY_3"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}

	if _, err := build(context.Background()); err == nil {
		t.Fatal("build() with no DATABASE_URL: want error, got nil")
	}
}

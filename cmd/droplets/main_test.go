package main

import (
	"errors"
	"testing"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil is success", nil, 0},
		{"validation prefix", validationErr("validate", errors.New("3 unmatched")), 1},
		{"infra prefix", infraErr("stats", errors.New("dial tcp: timeout")), 2},
		{"unprefixed defaults to infra", errors.New("boom"), 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := exitCode(c.err); got != c.want {
				t.Errorf("exitCode(%v) = %d, want %d", c.err, got, c.want)
			}
		})
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("DROPLETS_TEST_ENV_OR", "")
	if got := envOr("DROPLETS_TEST_ENV_OR", "fallback"); got != "fallback" {
		t.Errorf("envOr empty = %q, want fallback", got)
	}
	t.Setenv("DROPLETS_TEST_ENV_OR", "set")
	if got := envOr("DROPLETS_TEST_ENV_OR", "fallback"); got != "set" {
		t.Errorf("envOr set = %q, want set", got)
	}
}

package rpcpool

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrHistoricalDepth marks an RPC error that must not be retried —
// "block range too large", "archive required" and similar provider
// responses meaning the data simply isn't reachable from this endpoint
// (§4.1 failure policy, §7 "Historical depth unavailable").
var ErrHistoricalDepth = errors.New("rpcpool: historical depth unavailable")

// historicalDepthMarkers are substrings Alchemy/Infura-style providers
// use in error messages for requests that exceed archive depth or
// getLogs range limits.
var historicalDepthMarkers = []string{
	"block range too large",
	"archive",
	"exceed maximum block range",
	"range limit",
	"older than",
}

func isHistoricalDepthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range historicalDepthMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// newBackoff builds the retry policy from §4.1: base 1s, multiplier 2,
// cap 30s, up to 5 attempts.
func newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.Multiplier = 2
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries instead
	// WithMaxRetries counts retries after the first try: 4 retries = 5 attempts.
	return backoff.WithContext(backoff.WithMaxRetries(b, 4), ctx)
}

// withRetry runs fn, retrying per newBackoff's policy unless fn returns
// an error wrapping ErrHistoricalDepth, which bubbles immediately so
// callers fall back to cache instead of burning retries on an error
// that retrying cannot fix.
func withRetry(ctx context.Context, fn func() error) error {
	operation := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isHistoricalDepthError(err) {
			return backoff.Permanent(ErrHistoricalDepth)
		}
		return err
	}
	return backoff.Retry(operation, newBackoff(ctx))
}

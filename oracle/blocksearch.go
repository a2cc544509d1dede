package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/streamdroplets/droplets-engine/rpcpool"
)

// maxBinarySearchIterations bounds the timestamp->block resolution per
// §4.6 step 2 and §5's timeout section.
const maxBinarySearchIterations = 30

// findBlockByTimestamp binary-searches Chain-E for the block whose
// timestamp is closest to t: "low=0, high=latest; at each step fetch
// block mid" (§4.6 step 2).
func findBlockByTimestamp(ctx context.Context, pool *rpcpool.Pool, t time.Time) (uint64, error) {
	latest, err := pool.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("oracle: find block: latest block number: %w", err)
	}

	target := t.Unix()
	low, high := uint64(0), latest
	var best uint64 = latest
	var bestDiff int64 = -1

	for i := 0; i < maxBinarySearchIterations && low <= high; i++ {
		mid := low + (high-low)/2
		header, err := pool.HeaderByNumber(ctx, new(big.Int).SetUint64(mid))
		if err != nil {
			return 0, fmt.Errorf("oracle: find block: header at %d: %w", mid, err)
		}
		ts := int64(header.Time)
		diff := ts - target
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = mid, diff
		}

		switch {
		case ts == target:
			return mid, nil
		case ts < target:
			low = mid + 1
		default:
			if mid == 0 {
				return mid, nil
			}
			high = mid - 1
		}
	}
	return best, nil
}

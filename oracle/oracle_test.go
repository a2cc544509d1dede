package oracle

import (
	"testing"
	"time"
)

func TestCacheKeyBucketsWithinHour(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC)
	other := time.Date(2026, 1, 1, 10, 45, 0, 0, time.UTC)
	if string(cacheKey(1, base)) != string(cacheKey(1, other)) {
		t.Error("timestamps in the same hour bucket should produce the same cache key")
	}

	nextHour := time.Date(2026, 1, 1, 11, 1, 0, 0, time.UTC)
	if string(cacheKey(1, base)) == string(cacheKey(1, nextHour)) {
		t.Error("timestamps in different hour buckets should produce different cache keys")
	}
}

func TestCacheKeyDiffersByChain(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if string(cacheKey(1, ts)) == string(cacheKey(2, ts)) {
		t.Error("different chain ids must not collide in the cache key")
	}
}

func TestConstants(t *testing.T) {
	if priceScale != 8 {
		t.Errorf("priceScale = %d, want 8 per spec", priceScale)
	}
	if cacheTolerance != time.Hour {
		t.Errorf("cacheTolerance = %v, want 1h per spec", cacheTolerance)
	}
	if maxBinarySearchIterations != 30 {
		t.Errorf("maxBinarySearchIterations = %d, want 30 per spec", maxBinarySearchIterations)
	}
}

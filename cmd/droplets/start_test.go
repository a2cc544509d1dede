package main

import (
	"testing"
	"time"
)

func TestNextCutoff(t *testing.T) {
	cutoff := 5 * time.Minute // 00:05 UTC

	before := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	want := time.Date(2026, 7, 29, 0, 5, 0, 0, time.UTC)
	if got := nextCutoff(before, cutoff); !got.Equal(want) {
		t.Errorf("nextCutoff(%v) = %v, want %v", before, got, want)
	}

	after := time.Date(2026, 7, 29, 0, 5, 0, 0, time.UTC)
	wantNext := time.Date(2026, 7, 30, 0, 5, 0, 0, time.UTC)
	if got := nextCutoff(after, cutoff); !got.Equal(wantNext) {
		t.Errorf("nextCutoff(at cutoff) = %v, want %v", got, wantNext)
	}

	late := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	if got := nextCutoff(late, cutoff); !got.Equal(wantNext) {
		t.Errorf("nextCutoff(late) = %v, want %v", got, wantNext)
	}
}

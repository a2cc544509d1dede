package main

import "testing"

func TestBigIntOrZero(t *testing.T) {
	cases := map[string]int64{
		"12345":   12345,
		"0":       0,
		"":        0,
		"not-a-number": 0,
		"-42":     -42,
	}
	for in, want := range cases {
		if got := bigIntOrZero(in); got != want {
			t.Errorf("bigIntOrZero(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestUsdFloat(t *testing.T) {
	// money amounts are stored scaled by 1e8 (money.Scale(8)).
	got := usdFloat("123450000000")
	want := 1234.5
	if got != want {
		t.Errorf("usdFloat = %v, want %v", got, want)
	}

	if got := usdFloat("not-a-number"); got != 0 {
		t.Errorf("usdFloat(garbage) = %v, want 0", got)
	}
}

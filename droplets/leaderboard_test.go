package droplets

import "testing"

func TestAverageUSD(t *testing.T) {
	// 100.00000000, 200.00000000, 300.00000000 at usdScale=8 -> mean 200.
	values := []string{"10000000000", "20000000000", "30000000000"}
	got := averageUSD(values)
	if got != 200 {
		t.Errorf("averageUSD = %v, want 200", got)
	}
}

func TestAverageUSDEmpty(t *testing.T) {
	if got := averageUSD(nil); got != 0 {
		t.Errorf("averageUSD(nil) = %v, want 0", got)
	}
}

func TestAverageUSDCountsCorruptAsZero(t *testing.T) {
	got := averageUSD([]string{"10000000000", "not-a-number", "30000000000"})
	// corrupt entry contributes 0 to the float slice, still averaged in.
	want := (100.0 + 0 + 300.0) / 3
	if got != want {
		t.Errorf("averageUSD = %v, want %v", got, want)
	}
}

package money

import (
	"math/big"
	"testing"
)

func TestMulDivFloor(t *testing.T) {
	cases := []struct {
		a, b, c string
		want    string
	}{
		{"10", "3", "2", "15"},
		{"7", "7", "10", "4"}, // floors, does not round
		{"0", "100", "7", "0"},
	}
	for _, tc := range cases {
		a, _ := new(big.Int).SetString(tc.a, 10)
		b, _ := new(big.Int).SetString(tc.b, 10)
		c, _ := new(big.Int).SetString(tc.c, 10)
		got := MulDivFloor(a, b, c)
		if got.String() != tc.want {
			t.Errorf("MulDivFloor(%s,%s,%s) = %s, want %s", tc.a, tc.b, tc.c, got, tc.want)
		}
	}
}

func TestConvert(t *testing.T) {
	amt := big.NewInt(1_000000) // 6 decimals
	got := Convert(amt, 6, 18)
	want, _ := new(big.Int).SetString("1000000000000000000", 10)
	if got.Cmp(want) != 0 {
		t.Errorf("Convert up = %s, want %s", got, want)
	}

	down := Convert(want, 18, 6)
	if down.Cmp(amt) != 0 {
		t.Errorf("Convert down = %s, want %s", down, amt)
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("")
	if err != nil || v.Sign() != 0 {
		t.Fatalf("empty string should parse to zero, got %v err=%v", v, err)
	}
	if _, err := ParseAmount("not-a-number"); err == nil {
		t.Fatal("expected error for invalid amount")
	}
	v, err = ParseAmount("123456789012345678901234567890")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.String() != "123456789012345678901234567890" {
		t.Errorf("round trip mismatch: %s", v)
	}
}

func TestFloorUSD(t *testing.T) {
	usd, _ := new(big.Int).SetString("20000123456", 10) // scale 6 -> $20000.123456
	got := FloorUSD(usd, 6)
	if got.String() != "20000" {
		t.Errorf("FloorUSD = %s, want 20000", got)
	}
}

func TestAddSubNilSafe(t *testing.T) {
	if Add(nil, big.NewInt(5)).String() != "5" {
		t.Error("Add with nil operand failed")
	}
	if Sub(big.NewInt(5), nil).String() != "5" {
		t.Error("Sub with nil operand failed")
	}
}

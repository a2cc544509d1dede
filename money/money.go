// Package money implements the fixed-point integer arithmetic the rest of
// the engine is built on. Every share amount, price-per-share, oracle price,
// and USD value that crosses a package boundary is a *big.Int plus an
// explicit base-10 scale (decimals); floating point never appears in the
// core (see spec Design Note: BigInt arithmetic everywhere).
package money

import (
	"fmt"
	"math/big"
)

// Scale returns 10^decimals as a *big.Int.
func Scale(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// MulDivFloor computes floor(a * b / c). c must be non-zero.
func MulDivFloor(a, b, c *big.Int) *big.Int {
	if c.Sign() == 0 {
		panic("money: division by zero scale")
	}
	num := new(big.Int).Mul(a, b)
	return num.Div(num, c)
}

// Convert rescales amount from decimals `from` to decimals `to`, flooring
// when `to` < `from`.
func Convert(amount *big.Int, from, to uint8) *big.Int {
	if from == to {
		return new(big.Int).Set(amount)
	}
	if to > from {
		return new(big.Int).Mul(amount, Scale(to-from))
	}
	return new(big.Int).Div(amount, Scale(from-to))
}

// ParseAmount parses a base-10 integer string (as stored in decimal(78,0)
// columns) into a *big.Int. An empty string parses as zero.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("money: invalid integer amount %q", s)
	}
	return v, nil
}

// FloorUSD converts a USD value expressed with `scale` decimals into a
// whole-dollar integer via floor division, the rule the droplet ledger
// uses to turn total_usd_value into an integer droplet count.
func FloorUSD(usd *big.Int, scale uint8) *big.Int {
	return new(big.Int).Div(usd, Scale(scale))
}

// IsZero reports whether v is nil or zero, treating a nil pointer as zero
// so callers don't need nil checks before arithmetic.
func IsZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

// Add returns a+b, tolerating nil operands as zero.
func Add(a, b *big.Int) *big.Int {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}
	return new(big.Int).Add(a, b)
}

// Sub returns a-b, tolerating nil operands as zero.
func Sub(a, b *big.Int) *big.Int {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}
	return new(big.Int).Sub(a, b)
}

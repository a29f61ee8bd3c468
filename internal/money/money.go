// Package money provides fixed-point monetary types for treasury arithmetic.
package money

import (
	"fmt"
	"math"
	"math/big"
)

// Money6 is a USD amount in micro-dollars (6-decimal fixed point).
// All planning and risk arithmetic uses Money6; floating point appears
// only at display and oracle boundaries.
type Money6 int64

// Common fixed-point scales.
const (
	// MicrosPerDollar is the Money6 scale factor.
	MicrosPerDollar = 1_000_000

	// BpsScale is the basis-point denominator (10000 = 100%).
	BpsScale = 10_000

	// HealthInfinite is the sentinel health factor (ratio 999.0 in bps)
	// reported when a borrower carries no meaningful debt.
	HealthInfinite = 999 * BpsScale
)

var weiPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// FromDollars converts a display-level dollar amount to Money6.
// Boundary use only (oracle quotes, config values, CLI flags).
func FromDollars(d float64) Money6 {
	return Money6(math.Round(d * MicrosPerDollar))
}

// FromMicros wraps a raw micro-dollar count.
func FromMicros(m int64) Money6 {
	return Money6(m)
}

// Micros returns the raw micro-dollar count.
func (m Money6) Micros() int64 {
	return int64(m)
}

// Dollars converts to a display-level float. Never feed the result back
// into planning arithmetic.
func (m Money6) Dollars() float64 {
	return float64(m) / MicrosPerDollar
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money6) IsPositive() bool {
	return m > 0
}

// Add returns m + n.
func (m Money6) Add(n Money6) Money6 {
	return m + n
}

// Sub returns m - n.
func (m Money6) Sub(n Money6) Money6 {
	return m - n
}

// String formats the amount as a dollar string with 2 decimals.
func (m Money6) String() string {
	return fmt.Sprintf("$%.2f", m.Dollars())
}

// Min returns the smaller of a and b.
func Min(a, b Money6) Money6 {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Money6) Money6 {
	if a > b {
		return a
	}
	return b
}

// ClampZero returns m, or zero when m is negative.
func ClampZero(m Money6) Money6 {
	if m < 0 {
		return 0
	}
	return m
}

// MulDiv computes m * num / den with a big.Int intermediate so the
// product cannot overflow int64.
func MulDiv(m Money6, num, den int64) Money6 {
	if den == 0 {
		return 0
	}
	r := new(big.Int).Mul(big.NewInt(int64(m)), big.NewInt(num))
	r.Quo(r, big.NewInt(den))
	return Money6(r.Int64())
}

// MulBps applies a basis-point ratio: m * bps / 10000.
func MulBps(m Money6, bps int64) Money6 {
	return MulDiv(m, bps, BpsScale)
}

// DivBps divides by a basis-point ratio: m * 10000 / bps.
// Used to size positions against a target ratio (e.g. maxBorrow / targetHealth).
func DivBps(m Money6, bps int64) Money6 {
	if bps == 0 {
		return 0
	}
	return MulDiv(m, BpsScale, bps)
}

// HealthBps computes the health factor maxBorrow/debt as a basis-point
// ratio. A borrower with no debt gets the HealthInfinite sentinel; the
// result is also capped at the sentinel so displays stay bounded.
func HealthBps(maxBorrow, debt Money6) int64 {
	if debt <= 0 {
		return HealthInfinite
	}
	hf := MulDiv(maxBorrow, BpsScale, int64(debt))
	if int64(hf) > HealthInfinite {
		return HealthInfinite
	}
	return int64(hf)
}

// HealthRatio converts a basis-point health factor to a display float.
func HealthRatio(bps int64) float64 {
	return float64(bps) / BpsScale
}

// CollateralValueUSD converts an 18-decimal collateral amount to its
// Money6 USD value at the given price (micro-dollars per whole token):
// value = wei * price / 1e18. Pure integer arithmetic.
func CollateralValueUSD(wei *big.Int, price Money6) Money6 {
	if wei == nil || wei.Sign() <= 0 || price <= 0 {
		return 0
	}
	v := new(big.Int).Mul(wei, big.NewInt(int64(price)))
	v.Quo(v, weiPerToken)
	return Money6(v.Int64())
}

// TokensToWei converts a whole-token count to an 18-decimal amount.
func TokensToWei(tokens float64) *big.Int {
	// Split into whole and fractional micro-tokens to keep precision.
	micros := int64(math.Round(tokens * MicrosPerDollar))
	w := new(big.Int).Mul(big.NewInt(micros), new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil))
	return w
}

package money

import (
	"math/big"
	"testing"
)

func TestFromDollarsRoundTrip(t *testing.T) {
	cases := []struct {
		dollars float64
		micros  int64
	}{
		{0, 0},
		{1, 1_000_000},
		{0.01, 10_000},
		{1234.56, 1_234_560_000},
		{-500, -500_000_000},
	}
	for _, tc := range cases {
		m := FromDollars(tc.dollars)
		if m.Micros() != tc.micros {
			t.Errorf("FromDollars(%v) = %d micros, want %d", tc.dollars, m.Micros(), tc.micros)
		}
	}
}

func TestMulDivNoOverflow(t *testing.T) {
	// A large amount times a bps ratio would overflow int64 without the
	// big.Int intermediate: 5e18 micros * 6000 > math.MaxInt64.
	large := Money6(5_000_000_000_000_000_000)
	got := MulBps(large, 6000)
	want := Money6(3_000_000_000_000_000_000)
	if got != want {
		t.Errorf("MulBps(large, 6000) = %d, want %d", got, want)
	}
}

func TestMulDivZeroDenominator(t *testing.T) {
	if got := MulDiv(FromDollars(100), 1, 0); got != 0 {
		t.Errorf("MulDiv with zero denominator = %d, want 0", got)
	}
	if got := DivBps(FromDollars(100), 0); got != 0 {
		t.Errorf("DivBps with zero bps = %d, want 0", got)
	}
}

func TestDivBps(t *testing.T) {
	// $6,000 at a 1.50 target ratio sizes to $4,000.
	got := DivBps(FromDollars(6000), 15000)
	if got != FromDollars(4000) {
		t.Errorf("DivBps($6000, 15000) = %s, want $4000.00", got)
	}
}

func TestHealthBps(t *testing.T) {
	cases := []struct {
		name      string
		maxBorrow Money6
		debt      Money6
		want      int64
	}{
		{"zero debt is infinite", FromDollars(6000), 0, HealthInfinite},
		{"negative debt is infinite", FromDollars(6000), -1, HealthInfinite},
		{"ratio 1.20", FromDollars(6000), FromDollars(5000), 12000},
		{"ratio 1.50", FromDollars(6000), FromDollars(4000), 15000},
		{"tiny debt capped at sentinel", FromDollars(6000), 1, HealthInfinite},
		{"zero capacity with debt", 0, FromDollars(100), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HealthBps(tc.maxBorrow, tc.debt); got != tc.want {
				t.Errorf("HealthBps(%s, %s) = %d, want %d", tc.maxBorrow, tc.debt, got, tc.want)
			}
		})
	}
}

func TestCollateralValueUSD(t *testing.T) {
	// 5 tokens at $2,000.00 = $10,000.00
	wei := new(big.Int).Mul(big.NewInt(5), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	got := CollateralValueUSD(wei, FromDollars(2000))
	if got != FromDollars(10_000) {
		t.Errorf("CollateralValueUSD(5 tokens, $2000) = %s, want $10000.00", got)
	}

	// Fractional: 0.5 token at $2,000.00 = $1,000.00
	half := new(big.Int).Div(wei, big.NewInt(10))
	got = CollateralValueUSD(half, FromDollars(2000))
	if got != FromDollars(1000) {
		t.Errorf("CollateralValueUSD(0.5 tokens, $2000) = %s, want $1000.00", got)
	}

	if got := CollateralValueUSD(nil, FromDollars(2000)); got != 0 {
		t.Errorf("CollateralValueUSD(nil) = %s, want 0", got)
	}
	if got := CollateralValueUSD(wei, 0); got != 0 {
		t.Errorf("CollateralValueUSD with zero price = %s, want 0", got)
	}
}

func TestTokensToWei(t *testing.T) {
	want := new(big.Int).Mul(big.NewInt(5), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	if got := TokensToWei(5); got.Cmp(want) != 0 {
		t.Errorf("TokensToWei(5) = %s, want %s", got, want)
	}
}

func TestClampZero(t *testing.T) {
	if got := ClampZero(FromDollars(-10)); got != 0 {
		t.Errorf("ClampZero(-10) = %s, want 0", got)
	}
	if got := ClampZero(FromDollars(10)); got != FromDollars(10) {
		t.Errorf("ClampZero(10) = %s, want $10.00", got)
	}
}

package money

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: health classification is monotone in debt. For a fixed
// borrow capacity, more debt never yields a higher health factor.
func TestPropertyHealthMonotoneInDebt(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("more debt never raises health", prop.ForAll(
		func(maxBorrowMicros, debtMicros, extraMicros int64) bool {
			maxBorrow := Money6(maxBorrowMicros)
			lower := Money6(debtMicros)
			higher := lower + Money6(extraMicros)

			return HealthBps(maxBorrow, higher) <= HealthBps(maxBorrow, lower)
		},
		gen.Int64Range(0, 1_000_000_000_000),
		gen.Int64Range(1, 1_000_000_000_000),
		gen.Int64Range(0, 1_000_000_000_000),
	))

	properties.TestingRun(t)
}

// Property: MulBps then DivBps at the same ratio loses at most the
// integer truncation, never gains value.
func TestPropertyBpsRoundTripNeverGains(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("round trip m -> MulBps -> DivBps never exceeds m", prop.ForAll(
		func(micros, bps int64) bool {
			m := Money6(micros)
			got := DivBps(MulBps(m, bps), bps)
			return got <= m
		},
		gen.Int64Range(0, 1_000_000_000_000_000),
		gen.Int64Range(1, 100_000),
	))

	properties.Property("MulBps is bounded by the ratio", prop.ForAll(
		func(micros, bps int64) bool {
			m := Money6(micros)
			got := MulBps(m, bps)
			if bps <= BpsScale {
				return got <= m
			}
			return got >= m
		},
		gen.Int64Range(0, 1_000_000_000_000_000),
		gen.Int64Range(1, 100_000),
	))

	properties.TestingRun(t)
}

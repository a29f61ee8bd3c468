package controller

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

// Property: no approved action ever exceeds the per-transaction cap,
// and total approved borrow+payment spend never exceeds the remaining
// daily allowance, regardless of what the planner proposed.
func TestPropertySafetyCapsAlwaysHold(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	safety := newTestSafety()

	properties.Property("approved actions respect per-tx and daily caps", prop.ForAll(
		func(debtD, maxBorrowD, liquidityD, spentD, borrowD, paymentD float64) bool {
			policy := testPolicy()
			snap := testSnapshot(policy,
				money.FromDollars(debtD), money.FromDollars(maxBorrowD),
				models.BucketBalances{Liquidity: money.FromDollars(liquidityD)})
			snap.DailySpent = money.FromDollars(spentD)

			proposal := models.Plan{Actions: []models.PlannedAction{
				{Kind: models.ActionBorrow, Amount: money.FromDollars(borrowD), To: models.BucketLiquidity},
				{Kind: models.ActionPayment, Amount: money.FromDollars(paymentD), Recipient: "acct-1"},
			}}

			verdict := safety.Validate(snap, proposal)

			var spend money.Money6
			for _, a := range verdict.Plan.Actions {
				if a.Amount <= 0 {
					t.Logf("zero-clamped action %s kept in plan", a.Kind)
					return false
				}
				// The emergency override's forced repay is exempt from
				// the caps; spend-side actions never are.
				if a.Kind == models.ActionBorrow || a.Kind == models.ActionPayment {
					if a.Amount > policy.MaxPerTx {
						t.Logf("action %s %s exceeds per-tx cap", a.Kind, a.Amount)
						return false
					}
					spend += a.Amount
				}
			}
			allowance := money.ClampZero(policy.MaxDaily - snap.DailySpent)
			return spend <= allowance
		},
		gen.Float64Range(0, 100_000),
		gen.Float64Range(0, 200_000),
		gen.Float64Range(0, 50_000),
		gen.Float64Range(0, 30_000),
		gen.Float64Range(0, 50_000),
		gen.Float64Range(0, 50_000),
	))

	properties.TestingRun(t)
}

// Property: below the emergency threshold the verdict is always a
// single repay (or nothing when there is no cash) with risk mode set.
func TestPropertyEmergencyVerdictShape(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	safety := newTestSafety()

	properties.Property("emergency verdict is a lone repay in risk mode", prop.ForAll(
		func(debtD, liquidityD, proposalD float64) bool {
			policy := testPolicy()
			debt := money.FromDollars(debtD)
			// Capacity pinned just below the emergency ratio.
			maxBorrow := money.MulBps(debt, policy.EmergencyHealthBps-100)
			snap := testSnapshot(policy, debt, maxBorrow,
				models.BucketBalances{Liquidity: money.FromDollars(liquidityD)})

			proposal := models.Plan{Actions: []models.PlannedAction{
				{Kind: models.ActionBorrow, Amount: money.FromDollars(proposalD), To: models.BucketLiquidity},
			}}

			verdict := safety.Validate(snap, proposal)

			if !verdict.RiskMode || verdict.Rule != RuleEmergencyOverride {
				return false
			}
			if len(verdict.Plan.Actions) > 1 {
				return false
			}
			for _, a := range verdict.Plan.Actions {
				if a.Kind != models.ActionRepay || a.Amount <= 0 || a.Amount > debt {
					return false
				}
			}
			return true
		},
		gen.Float64Range(100, 100_000),
		gen.Float64Range(0, 50_000),
		gen.Float64Range(0, 50_000),
	))

	properties.TestingRun(t)
}

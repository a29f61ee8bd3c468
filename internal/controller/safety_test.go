package controller

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

func newTestSafety() *Safety {
	return NewSafety(zerolog.Nop())
}

func TestSafetyEmergencyOverrideReplacesProposal(t *testing.T) {
	// Health 1.10 is below the 1.20 emergency threshold. Whatever the
	// planner proposed is discarded for a single forced repay.
	policy := testPolicy()
	snap := testSnapshot(policy,
		money.FromDollars(5000), money.FromDollars(5500),
		models.BucketBalances{
			Liquidity: money.FromDollars(3000),
			Reserve:   money.FromDollars(3000),
		})

	proposal := models.Plan{Actions: []models.PlannedAction{
		{Kind: models.ActionBorrow, Amount: money.FromDollars(100), To: models.BucketLiquidity},
		{Kind: models.ActionPayment, Amount: money.FromDollars(200), Recipient: "acct-1"},
	}}

	verdict := newTestSafety().Validate(snap, proposal)

	assert.True(t, verdict.RiskMode)
	assert.Equal(t, RuleEmergencyOverride, verdict.Rule)
	require.Len(t, verdict.Plan.Actions, 1)
	assert.Equal(t, models.ActionRepay, verdict.Plan.Actions[0].Kind)
	// 5000 - 5500/1.5 = 1333.333334 (ceil via truncation of the division)
	expected := money.FromDollars(5000) - money.DivBps(money.FromDollars(5500), policy.TargetHealthBps)
	assert.Equal(t, expected, verdict.Plan.Actions[0].Amount)
}

func TestSafetyEmergencyOverrideWithoutDebtIsInactive(t *testing.T) {
	policy := testPolicy()
	snap := testSnapshot(policy,
		0, money.FromDollars(6000),
		models.BucketBalances{Liquidity: money.FromDollars(1000)})

	verdict := newTestSafety().Validate(snap, models.Plan{})
	assert.False(t, verdict.RiskMode)
	assert.True(t, verdict.Plan.IsEmpty())
}

func TestSafetyDebtGateStripsBorrowAndPayment(t *testing.T) {
	// Health 1.30: above emergency, below minimum. Debt-increasing
	// actions go; the repay survives.
	policy := testPolicy()
	snap := testSnapshot(policy,
		money.FromDollars(4615), money.FromDollars(6000), // ~1.3001
		models.BucketBalances{Liquidity: money.FromDollars(2000)})

	proposal := models.Plan{Actions: []models.PlannedAction{
		{Kind: models.ActionBorrow, Amount: money.FromDollars(500), To: models.BucketLiquidity},
		{Kind: models.ActionRepay, Amount: money.FromDollars(300)},
		{Kind: models.ActionPayment, Amount: money.FromDollars(200), Recipient: "acct-1"},
	}}

	verdict := newTestSafety().Validate(snap, proposal)

	assert.False(t, verdict.RiskMode)
	assert.Equal(t, RuleDebtGate, verdict.Rule)
	require.Len(t, verdict.Plan.Actions, 1)
	assert.Equal(t, models.ActionRepay, verdict.Plan.Actions[0].Kind)
}

func TestSafetyDebtGateRejectsEmptiedProposal(t *testing.T) {
	// When the gate strips everything the planner proposed, the whole
	// plan is rejected rather than silently reduced to a no-op.
	policy := testPolicy()
	snap := testSnapshot(policy,
		money.FromDollars(4615), money.FromDollars(6000),
		models.BucketBalances{Liquidity: money.FromDollars(2000)})

	proposal := models.Plan{Actions: []models.PlannedAction{
		{Kind: models.ActionBorrow, Amount: money.FromDollars(500), To: models.BucketLiquidity},
		{Kind: models.ActionPayment, Amount: money.FromDollars(200), Recipient: "acct-1"},
	}}

	verdict := newTestSafety().Validate(snap, proposal)

	assert.False(t, verdict.Allowed)
	assert.Equal(t, RuleDebtGate, verdict.Rule)
	assert.True(t, verdict.Plan.IsEmpty())
}

func TestSafetyPerTxCap(t *testing.T) {
	policy := testPolicy() // per-tx $10,000
	snap := testSnapshot(policy,
		money.FromDollars(1000), money.FromDollars(60000),
		models.BucketBalances{Liquidity: money.FromDollars(1000)})

	proposal := models.Plan{Actions: []models.PlannedAction{
		{Kind: models.ActionBorrow, Amount: money.FromDollars(15000), To: models.BucketLiquidity},
	}}

	verdict := newTestSafety().Validate(snap, proposal)

	require.Len(t, verdict.Plan.Actions, 1)
	assert.Equal(t, money.FromDollars(10000), verdict.Plan.Actions[0].Amount)
	assert.Equal(t, RulePerTxCap, verdict.Rule)
}

func TestSafetyDailyCap(t *testing.T) {
	policy := testPolicy() // daily $25,000
	snap := testSnapshot(policy,
		money.FromDollars(1000), money.FromDollars(60000),
		models.BucketBalances{Liquidity: money.FromDollars(10000)})
	snap.DailySpent = money.FromDollars(24000)

	proposal := models.Plan{Actions: []models.PlannedAction{
		{Kind: models.ActionPayment, Amount: money.FromDollars(5000), Recipient: "acct-1"},
	}}

	verdict := newTestSafety().Validate(snap, proposal)

	require.Len(t, verdict.Plan.Actions, 1)
	assert.Equal(t, money.FromDollars(1000), verdict.Plan.Actions[0].Amount)
	assert.Equal(t, RuleDailyCap, verdict.Rule)
}

func TestSafetyDailyCapSharedAcrossPlan(t *testing.T) {
	// Borrow and payment in one plan draw down the same allowance.
	policy := testPolicy()
	snap := testSnapshot(policy,
		money.FromDollars(1000), money.FromDollars(60000),
		models.BucketBalances{Liquidity: money.FromDollars(10000)})
	snap.DailySpent = money.FromDollars(20000)

	proposal := models.Plan{Actions: []models.PlannedAction{
		{Kind: models.ActionBorrow, Amount: money.FromDollars(4000), To: models.BucketLiquidity},
		{Kind: models.ActionPayment, Amount: money.FromDollars(4000), Recipient: "acct-1"},
	}}

	verdict := newTestSafety().Validate(snap, proposal)

	require.Len(t, verdict.Plan.Actions, 2)
	assert.Equal(t, money.FromDollars(4000), verdict.Plan.Actions[0].Amount)
	assert.Equal(t, money.FromDollars(1000), verdict.Plan.Actions[1].Amount)
}

func TestSafetyBorrowHeadroomClamp(t *testing.T) {
	// Capacity $6,000, debt $5,500: only $500 of headroom no matter
	// what the planner asked for.
	policy := testPolicy()
	policy.MinHealthBps = 10000 // keep the debt gate out of this scenario
	policy.EmergencyHealthBps = 9000
	snap := testSnapshot(policy,
		money.FromDollars(5500), money.FromDollars(6000),
		models.BucketBalances{Liquidity: money.FromDollars(1000)})

	proposal := models.Plan{Actions: []models.PlannedAction{
		{Kind: models.ActionBorrow, Amount: money.FromDollars(2000), To: models.BucketLiquidity},
	}}

	verdict := newTestSafety().Validate(snap, proposal)

	require.Len(t, verdict.Plan.Actions, 1)
	assert.Equal(t, RuleBorrowHeadroom, verdict.Rule)
	assert.LessOrEqual(t, verdict.Plan.Actions[0].Amount, money.FromDollars(500))
	assert.Greater(t, verdict.Plan.Actions[0].Amount, money.FromDollars(499))
}

func TestSafetyRebalanceFromLiquidityPreservesFloor(t *testing.T) {
	policy := testPolicy() // floor $500
	snap := testSnapshot(policy,
		money.FromDollars(1000), money.FromDollars(6000),
		models.BucketBalances{Liquidity: money.FromDollars(1200)})

	proposal := models.Plan{Actions: []models.PlannedAction{
		{Kind: models.ActionRebalance, Amount: money.FromDollars(1000), From: models.BucketLiquidity, To: models.BucketYield},
	}}

	verdict := newTestSafety().Validate(snap, proposal)

	require.Len(t, verdict.Plan.Actions, 1)
	assert.Equal(t, money.FromDollars(700), verdict.Plan.Actions[0].Amount)
	assert.Equal(t, RuleLiquidityFloor, verdict.Rule)
}

func TestSafetyPaymentExemptFromLiquidityFloor(t *testing.T) {
	// A payment may legitimately take liquidity below the floor; the
	// floor check binds rebalances only.
	policy := testPolicy()
	snap := testSnapshot(policy,
		money.FromDollars(1000), money.FromDollars(6000),
		models.BucketBalances{Liquidity: money.FromDollars(900)})

	proposal := models.Plan{Actions: []models.PlannedAction{
		{Kind: models.ActionPayment, Amount: money.FromDollars(800), Recipient: "acct-1"},
	}}

	verdict := newTestSafety().Validate(snap, proposal)

	require.Len(t, verdict.Plan.Actions, 1)
	assert.Equal(t, money.FromDollars(800), verdict.Plan.Actions[0].Amount)
}

func TestSafetyVolatilityGuard(t *testing.T) {
	policy := testPolicy() // threshold 10%
	snap := testSnapshot(policy,
		money.FromDollars(1000), money.FromDollars(6000),
		models.BucketBalances{Liquidity: money.FromDollars(2000)})
	snap.VolatilityPct = 12.5

	proposal := models.Plan{Actions: []models.PlannedAction{
		{Kind: models.ActionBorrow, Amount: money.FromDollars(500), To: models.BucketLiquidity},
		{Kind: models.ActionPayment, Amount: money.FromDollars(300), Recipient: "acct-1"},
	}}

	verdict := newTestSafety().Validate(snap, proposal)

	assert.True(t, verdict.RiskMode)
	assert.Equal(t, RuleVolatility, verdict.Rule)
	require.Len(t, verdict.Plan.Actions, 1)
	assert.Equal(t, models.ActionPayment, verdict.Plan.Actions[0].Kind)
}

func TestSafetyVolatilityGuardOnDrops(t *testing.T) {
	// A sharp price drop is as much a guard condition as a spike.
	policy := testPolicy()
	snap := testSnapshot(policy,
		money.FromDollars(1000), money.FromDollars(6000),
		models.BucketBalances{Liquidity: money.FromDollars(2000)})
	snap.VolatilityPct = -12.5

	proposal := models.Plan{Actions: []models.PlannedAction{
		{Kind: models.ActionBorrow, Amount: money.FromDollars(500), To: models.BucketLiquidity},
	}}

	verdict := newTestSafety().Validate(snap, proposal)

	assert.True(t, verdict.RiskMode)
	assert.Equal(t, RuleVolatility, verdict.Rule)
	assert.True(t, verdict.Plan.IsEmpty())
}

func TestSafetyDropsZeroClampedActions(t *testing.T) {
	policy := testPolicy()
	snap := testSnapshot(policy,
		money.FromDollars(1000), money.FromDollars(6000),
		models.BucketBalances{Liquidity: money.FromDollars(10000)})
	snap.DailySpent = policy.MaxDaily // allowance exhausted

	proposal := models.Plan{Actions: []models.PlannedAction{
		{Kind: models.ActionPayment, Amount: money.FromDollars(500), Recipient: "acct-1"},
	}}

	verdict := newTestSafety().Validate(snap, proposal)
	assert.True(t, verdict.Plan.IsEmpty())
}

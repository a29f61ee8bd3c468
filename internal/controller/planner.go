package controller

import (
	"fmt"

	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

// proactiveHeadroomBps is the margin above the minimum health threshold
// required before the planner volunteers a proactive repay.
const proactiveHeadroomBps = 1000

// proactiveTargetLiftBps pushes the proactive-repay target above the
// policy target health (target + 0.30).
const proactiveTargetLiftBps = 3000

// Planner turns a snapshot into a proposal. Pure: no side effects, no
// collaborator calls. Rules run in priority order and each firing rule
// short-circuits the ones below it within the same tick.
type Planner struct{}

// NewPlanner creates a planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Propose evaluates the planning rules against a snapshot.
func (p *Planner) Propose(snap *models.Snapshot) models.Plan {
	if plan, ok := p.emergencyRepay(snap); ok {
		return plan
	}
	if plan, ok := p.pendingPayment(snap); ok {
		return plan
	}
	if plan, ok := p.liquidityFloor(snap); ok {
		return plan
	}
	if plan, ok := p.proactiveRepay(snap); ok {
		return plan
	}
	return models.Plan{Rationale: "no action required"}
}

// emergencyRepay sizes a repay back to target health when the health
// factor breaches the minimum threshold.
func (p *Planner) emergencyRepay(snap *models.Snapshot) (models.Plan, bool) {
	pol := snap.Policy
	if snap.HealthBps >= pol.MinHealthBps || snap.Debt <= 0 {
		return models.Plan{}, false
	}

	// Debt consistent with target health, given current borrow capacity.
	targetDebt := money.DivBps(snap.MaxBorrow, pol.TargetHealthBps)
	repay := money.ClampZero(snap.Debt - targetDebt)
	spendable := snap.Buckets.Liquidity + snap.Buckets.Reserve
	repay = money.Min(repay, spendable)
	repay = money.Min(repay, snap.Debt)

	rationale := fmt.Sprintf(
		"emergency repay: health %.2f below min %.2f; repay = max(0, debt %s - maxBorrow %s / target %.2f) capped by spendable %s",
		money.HealthRatio(snap.HealthBps), money.HealthRatio(pol.MinHealthBps),
		snap.Debt, snap.MaxBorrow, money.HealthRatio(pol.TargetHealthBps), spendable)

	plan := models.Plan{Rationale: rationale}
	if repay > 0 {
		plan.Actions = []models.PlannedAction{{
			Kind:      models.ActionRepay,
			Amount:    repay,
			Rationale: rationale,
		}}
	}
	return plan, true
}

// pendingPayment funds and releases a queued external payment.
func (p *Planner) pendingPayment(snap *models.Snapshot) (models.Plan, bool) {
	if snap.Pending == nil {
		return models.Plan{}, false
	}

	pol := snap.Policy
	pending := snap.Pending
	var actions []models.PlannedAction

	shortfall := money.ClampZero(pending.Amount + pol.LiquidityMin - snap.Buckets.Liquidity)
	if shortfall > 0 {
		// Borrow headroom that keeps health at or above target.
		borrowMaxSafe := money.ClampZero(money.DivBps(snap.MaxBorrow, pol.TargetHealthBps) - snap.Debt)
		borrowAmt := money.Min(shortfall, borrowMaxSafe)
		if borrowAmt > 0 {
			actions = append(actions, models.PlannedAction{
				Kind:   models.ActionBorrow,
				Amount: borrowAmt,
				To:     models.BucketLiquidity,
				Rationale: fmt.Sprintf(
					"fund payment: shortfall = payment %s + floor %s - liquidity %s = %s; borrow min(shortfall, safe headroom %s)",
					pending.Amount, pol.LiquidityMin, snap.Buckets.Liquidity, shortfall, borrowMaxSafe),
			})
		}

		remainder := shortfall - borrowAmt
		if remainder > 0 && snap.Buckets.Reserve > 0 {
			move := money.Min(remainder, snap.Buckets.Reserve)
			actions = append(actions, models.PlannedAction{
				Kind:   models.ActionRebalance,
				Amount: move,
				From:   models.BucketReserve,
				To:     models.BucketLiquidity,
				Rationale: fmt.Sprintf(
					"fund payment: remaining shortfall %s covered from reserve %s",
					remainder, snap.Buckets.Reserve),
			})
		}
	}

	actions = append(actions, models.PlannedAction{
		Kind:      models.ActionPayment,
		Amount:    pending.Amount,
		Recipient: pending.Recipient,
		Rationale: fmt.Sprintf("release queued payment of %s to %s", pending.Amount, pending.Recipient),
	})

	return models.Plan{
		Actions:   actions,
		Rationale: fmt.Sprintf("pending payment of %s to %s", pending.Amount, pending.Recipient),
	}, true
}

// liquidityFloor tops the liquidity bucket back up to its floor.
func (p *Planner) liquidityFloor(snap *models.Snapshot) (models.Plan, bool) {
	pol := snap.Policy
	if snap.Buckets.Liquidity >= pol.LiquidityMin {
		return models.Plan{}, false
	}

	deficit := pol.LiquidityMin - snap.Buckets.Liquidity
	var actions []models.PlannedAction

	fromReserve := money.Min(deficit, snap.Buckets.Reserve)
	if fromReserve > 0 {
		actions = append(actions, models.PlannedAction{
			Kind:   models.ActionRebalance,
			Amount: fromReserve,
			From:   models.BucketReserve,
			To:     models.BucketLiquidity,
			Rationale: fmt.Sprintf(
				"liquidity floor: liquidity %s below floor %s; move min(deficit %s, reserve %s)",
				snap.Buckets.Liquidity, pol.LiquidityMin, deficit, snap.Buckets.Reserve),
		})
	}

	remainder := deficit - fromReserve
	if remainder > 0 && snap.HealthBps >= pol.MinHealthBps {
		borrowMaxSafe := money.ClampZero(money.DivBps(snap.MaxBorrow, pol.TargetHealthBps) - snap.Debt)
		borrowAmt := money.Min(remainder, borrowMaxSafe)
		if borrowAmt > 0 {
			actions = append(actions, models.PlannedAction{
				Kind:   models.ActionBorrow,
				Amount: borrowAmt,
				To:     models.BucketLiquidity,
				Rationale: fmt.Sprintf(
					"liquidity floor: reserve insufficient, borrow min(remaining deficit %s, safe headroom %s)",
					remainder, borrowMaxSafe),
			})
		}
	}

	if len(actions) == 0 {
		return models.Plan{}, false
	}
	return models.Plan{
		Actions:   actions,
		Rationale: fmt.Sprintf("restore liquidity floor: %s below %s", snap.Buckets.Liquidity, pol.LiquidityMin),
	}, true
}

// proactiveRepay trims debt with idle liquidity, pushing health toward
// the lifted target when there is comfortable headroom above minimum.
func (p *Planner) proactiveRepay(snap *models.Snapshot) (models.Plan, bool) {
	pol := snap.Policy
	if snap.Debt <= 0 {
		return models.Plan{}, false
	}
	if snap.HealthBps < pol.MinHealthBps+proactiveHeadroomBps {
		return models.Plan{}, false
	}

	idle := money.ClampZero(snap.Buckets.Liquidity - pol.LiquidityMin)
	if idle <= 0 {
		return models.Plan{}, false
	}

	liftedTarget := pol.TargetHealthBps + proactiveTargetLiftBps
	if snap.HealthBps >= liftedTarget {
		return models.Plan{}, false
	}

	targetDebt := money.DivBps(snap.MaxBorrow, liftedTarget)
	repay := money.ClampZero(snap.Debt - targetDebt)
	repay = money.Min(repay, idle)
	repay = money.Min(repay, snap.Debt)
	if repay <= 0 {
		return models.Plan{}, false
	}

	rationale := fmt.Sprintf(
		"proactive repay: idle liquidity %s above floor %s; repay min(debt %s - maxBorrow %s / lifted target %.2f, idle)",
		idle, pol.LiquidityMin, snap.Debt, snap.MaxBorrow, money.HealthRatio(liftedTarget))

	return models.Plan{
		Actions: []models.PlannedAction{{
			Kind:      models.ActionRepay,
			Amount:    repay,
			Rationale: rationale,
		}},
		Rationale: rationale,
	}, true
}

package controller

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"treasury-agent/internal/logging"
	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

// Safety rule identifiers, recorded on verdicts and log entries.
const (
	RuleEmergencyOverride = "emergency-override"
	RuleDebtGate          = "debt-increase-gate"
	RulePerTxCap          = "per-tx-cap"
	RuleDailyCap          = "daily-cap"
	RuleBorrowHeadroom    = "borrow-headroom"
	RuleLiquidityFloor    = "liquidity-floor"
	RuleVolatility        = "volatility-guard"
)

// Safety validates and clamps proposals. It runs after the planner and
// is the only component allowed to rewrite a plan; the executor performs
// whatever survives it verbatim.
type Safety struct {
	logger zerolog.Logger
}

// NewSafety creates a safety controller.
func NewSafety(logger zerolog.Logger) *Safety {
	return &Safety{logger: logging.WithComponent(logger, "safety")}
}

// Validate applies the safety rules in order. The emergency override
// replaces the proposal outright; the remaining rules strip or clamp
// individual actions. A plan is never partially reordered.
func (s *Safety) Validate(snap *models.Snapshot, proposal models.Plan) models.SafetyResult {
	if result, ok := s.emergencyOverride(snap); ok {
		return result
	}

	riskMode := false
	rule := ""
	reason := ""

	actions := proposal.Actions

	// High volatility in either direction blocks new debt for the tick
	// and flags risk mode, but queued obligations still go out.
	if math.Abs(snap.VolatilityPct) > snap.Policy.VolatilityThresholdPct {
		riskMode = true
		rule = RuleVolatility
		reason = fmt.Sprintf("volatility %.2f%% above threshold %.2f%%",
			snap.VolatilityPct, snap.Policy.VolatilityThresholdPct)
		actions = stripKind(actions, models.ActionBorrow)
		s.logger.Warn().
			Float64("volatility_pct", snap.VolatilityPct).
			Float64("threshold_pct", snap.Policy.VolatilityThresholdPct).
			Msg("Volatility guard active, borrows stripped")
	}

	// Below minimum health nothing may increase debt. A proposal the
	// gate empties out is rejected, not just trimmed.
	if snap.HealthBps < snap.Policy.MinHealthBps {
		before := len(actions)
		actions = stripKind(actions, models.ActionBorrow)
		actions = stripKind(actions, models.ActionPayment)
		if len(actions) < before {
			rule = RuleDebtGate
			reason = fmt.Sprintf("health %.2f below min %.2f, debt-increasing actions removed",
				money.HealthRatio(snap.HealthBps), money.HealthRatio(snap.Policy.MinHealthBps))
			s.logger.Warn().
				Int64("health_bps", snap.HealthBps).
				Int("stripped", before-len(actions)).
				Msg("Debt-increase gate stripped actions")
		}
		if len(actions) == 0 && before > 0 {
			return models.SafetyResult{
				Allowed:  false,
				Plan:     models.Plan{Rationale: proposal.Rationale},
				RiskMode: riskMode,
				Rule:     RuleDebtGate,
				Reason:   reason,
			}
		}
	}

	clamped, clampRule, clampReason := s.clampActions(snap, actions)
	if clampRule != "" && rule == "" {
		rule = clampRule
		reason = clampReason
	}

	return models.SafetyResult{
		Allowed:  true,
		Plan:     models.Plan{Actions: clamped, Rationale: proposal.Rationale},
		RiskMode: riskMode,
		Rule:     rule,
		Reason:   reason,
	}
}

// emergencyOverride discards the proposal below the emergency threshold
// and substitutes a single forced repay.
func (s *Safety) emergencyOverride(snap *models.Snapshot) (models.SafetyResult, bool) {
	pol := snap.Policy
	if snap.HealthBps >= pol.EmergencyHealthBps || snap.Debt <= 0 {
		return models.SafetyResult{}, false
	}

	targetDebt := money.DivBps(snap.MaxBorrow, pol.TargetHealthBps)
	repay := money.ClampZero(snap.Debt - targetDebt)
	repay = money.Min(repay, snap.Buckets.Liquidity+snap.Buckets.Reserve)
	repay = money.Min(repay, snap.Debt)

	reason := fmt.Sprintf("health %.2f below emergency %.2f, forcing repay %s",
		money.HealthRatio(snap.HealthBps), money.HealthRatio(pol.EmergencyHealthBps), repay)
	s.logger.Error().
		Int64("health_bps", snap.HealthBps).
		Int64("emergency_bps", pol.EmergencyHealthBps).
		Str("repay", repay.String()).
		Msg("Emergency override engaged")

	plan := models.Plan{Rationale: reason}
	if repay > 0 {
		plan.Actions = []models.PlannedAction{{
			Kind:      models.ActionRepay,
			Amount:    repay,
			Rationale: reason,
		}}
	}
	return models.SafetyResult{
		Allowed:  true,
		Plan:     plan,
		RiskMode: true,
		Rule:     RuleEmergencyOverride,
		Reason:   reason,
	}, true
}

// clampActions applies the per-action caps in plan order, tracking the
// cumulative effect of earlier actions on spend allowance and projected
// liquidity. Actions clamped to zero are dropped.
func (s *Safety) clampActions(snap *models.Snapshot, actions []models.PlannedAction) ([]models.PlannedAction, string, string) {
	pol := snap.Policy
	out := make([]models.PlannedAction, 0, len(actions))
	rule := ""
	reason := ""

	dailyLeft := money.ClampZero(pol.MaxDaily - snap.DailySpent)
	projectedDebt := snap.Debt
	projectedLiquidity := snap.Buckets.Liquidity

	note := func(r, msg string) {
		if rule == "" {
			rule = r
			reason = msg
		}
	}

	for _, a := range actions {
		amt := a.Amount

		if amt > pol.MaxPerTx {
			note(RulePerTxCap, fmt.Sprintf("%s %s clamped to per-tx cap %s", a.Kind, amt, pol.MaxPerTx))
			s.logger.Info().Str("kind", string(a.Kind)).Str("from", amt.String()).
				Str("to", pol.MaxPerTx.String()).Msg("Per-tx cap applied")
			amt = pol.MaxPerTx
		}

		switch a.Kind {
		case models.ActionBorrow:
			// Daily allowance covers the actions that move value out of
			// the position's risk budget: new debt and external payments.
			if amt > dailyLeft {
				note(RuleDailyCap, fmt.Sprintf("borrow %s clamped to daily allowance %s", amt, dailyLeft))
				amt = dailyLeft
			}
			borrowHeadroom := money.ClampZero(money.MulBps(snap.Collateral.ValueUSD, pol.LTVBps) - projectedDebt)
			if amt > borrowHeadroom {
				note(RuleBorrowHeadroom, fmt.Sprintf("borrow %s clamped to headroom %s", amt, borrowHeadroom))
				amt = borrowHeadroom
			}
			if amt <= 0 {
				continue
			}
			dailyLeft -= amt
			projectedDebt += amt
			projectedLiquidity += amt

		case models.ActionPayment:
			if amt > dailyLeft {
				note(RuleDailyCap, fmt.Sprintf("payment %s clamped to daily allowance %s", amt, dailyLeft))
				amt = dailyLeft
			}
			if amt <= 0 {
				continue
			}
			// Payments deliberately skip the liquidity-floor check:
			// a queued obligation outranks the floor.
			dailyLeft -= amt
			projectedLiquidity -= amt

		case models.ActionRebalance:
			if a.From == models.BucketLiquidity {
				available := money.ClampZero(projectedLiquidity - pol.LiquidityMin)
				if amt > available {
					note(RuleLiquidityFloor, fmt.Sprintf("rebalance %s clamped to %s to preserve liquidity floor %s",
						amt, available, pol.LiquidityMin))
					amt = available
				}
			}
			if amt <= 0 {
				continue
			}
			if a.From == models.BucketLiquidity {
				projectedLiquidity -= amt
			}
			if a.To == models.BucketLiquidity {
				projectedLiquidity += amt
			}

		case models.ActionRepay:
			if amt <= 0 {
				continue
			}
			projectedDebt = money.ClampZero(projectedDebt - amt)

		default:
			continue
		}

		a.Amount = amt
		out = append(out, a)
	}

	return out, rule, reason
}

func stripKind(actions []models.PlannedAction, kind models.ActionKind) []models.PlannedAction {
	out := actions[:0:0]
	for _, a := range actions {
		if a.Kind != kind {
			out = append(out, a)
		}
	}
	return out
}

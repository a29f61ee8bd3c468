// Package models provides domain models for the treasury controller.
package models

import (
	"time"

	apperrors "treasury-agent/internal/errors"
	"treasury-agent/internal/money"
)

// Bucket identifies a custodial cash bucket on the payment rail.
type Bucket string

const (
	BucketLiquidity      Bucket = "liquidity"
	BucketReserve        Bucket = "reserve"
	BucketYield          Bucket = "yield"
	BucketCreditFacility Bucket = "credit-facility"
)

// ActionKind identifies a planned treasury action.
type ActionKind string

const (
	ActionBorrow    ActionKind = "borrow"
	ActionRepay     ActionKind = "repay"
	ActionRebalance ActionKind = "rebalance"
	ActionPayment   ActionKind = "payment"
)

// AgentStatus is the observable state of the tick loop.
type AgentStatus string

const (
	StatusMonitoring AgentStatus = "Monitoring"
	StatusExecuting  AgentStatus = "Executing"
	StatusRisk       AgentStatus = "Risk Mode"
)

// ActionStatus is the recorded outcome of one execution attempt.
type ActionStatus string

const (
	ActionExecuted ActionStatus = "EXECUTED"
	ActionBlocked  ActionStatus = "BLOCKED"
	ActionFailed   ActionStatus = "FAILED"
)

// PriceQuote is an oracle price observation.
type PriceQuote struct {
	Price     float64
	Source    string
	Stale     bool
	Timestamp time.Time
}

// Policy holds the active risk policy. Ratio fields are basis points
// (10000 = 100% / 1.00x), monetary fields are Money6.
type Policy struct {
	LTVBps                 int64
	MinHealthBps           int64
	EmergencyHealthBps     int64
	TargetHealthBps        int64
	LiquidityMin           money.Money6
	MaxPerTx               money.Money6
	MaxDaily               money.Money6
	TargetLiquidityBps     int64
	TargetReserveBps       int64
	VolatilityThresholdPct float64
}

// DefaultPolicy returns the safe-constant policy used when neither the
// ledger contract nor the config overlay provides a value.
func DefaultPolicy() Policy {
	return Policy{
		LTVBps:                 6000,
		MinHealthBps:           14000,
		EmergencyHealthBps:     12000,
		TargetHealthBps:        15000,
		LiquidityMin:           money.FromDollars(500),
		MaxPerTx:               money.FromDollars(10_000),
		MaxDaily:               money.FromDollars(25_000),
		TargetLiquidityBps:     3000,
		TargetReserveBps:       5000,
		VolatilityThresholdPct: 10,
	}
}

// Validate checks policy invariants.
func (p Policy) Validate() error {
	if p.EmergencyHealthBps > p.MinHealthBps {
		return apperrors.ErrPolicyThresholds
	}
	return nil
}

// BucketBalances holds the three cash bucket balances.
type BucketBalances struct {
	Liquidity money.Money6
	Reserve   money.Money6
	Yield     money.Money6
}

// Total returns the sum across buckets.
func (b BucketBalances) Total() money.Money6 {
	return b.Liquidity + b.Reserve + b.Yield
}

// PendingPayment is a queued external payment awaiting release.
type PendingPayment struct {
	Recipient string
	Amount    money.Money6
	QueuedAt  time.Time
}

// Snapshot is the immutable point-in-time view a tick operates on.
type Snapshot struct {
	BorrowerID    string
	Quote         PriceQuote
	VolatilityPct float64
	Collateral    CollateralPosition
	Debt          money.Money6
	MaxBorrow     money.Money6
	HealthBps     int64
	Buckets       BucketBalances
	Pending       *PendingPayment
	Policy        Policy
	DailySpent    money.Money6
	Timestamp     time.Time
}

// CollateralPosition holds the raw collateral amount and its USD value.
type CollateralPosition struct {
	Wei      string // 18-decimal amount, decimal string form
	ValueUSD money.Money6
}

// PlannedAction is a single proposed treasury action. Source and
// destination are meaningful per kind: borrow fills To, rebalance fills
// From and To, payment fills Recipient.
type PlannedAction struct {
	Kind      ActionKind
	Amount    money.Money6
	From      Bucket
	To        Bucket
	Recipient string
	Rationale string
}

// Plan is an ordered action sequence. Later actions assume the state
// mutations of earlier ones, so order is load-bearing.
type Plan struct {
	Actions   []PlannedAction
	Rationale string
}

// IsEmpty reports whether the plan proposes no actions.
func (p Plan) IsEmpty() bool {
	return len(p.Actions) == 0
}

// SafetyResult is the safety controller's verdict on a proposal.
type SafetyResult struct {
	Allowed  bool
	Plan     Plan
	RiskMode bool
	Rule     string
	Reason   string
}

// ActionLogEntry freezes the outcome of one execution attempt.
type ActionLogEntry struct {
	ID            string
	Timestamp     time.Time
	BorrowerID    string
	Kind          ActionKind
	Status        ActionStatus
	Amount        money.Money6
	HealthBefore  int64
	HealthAfter   int64
	BucketsBefore BucketBalances
	BucketsAfter  BucketBalances
	Trigger       string
	Rule          string
	RailRef       string
	LedgerRef     string
}

// TickRecord summarizes a completed tick for persistence and status.
type TickRecord struct {
	ID            string
	BorrowerID    string
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        AgentStatus
	Reason        string
	HealthBps     int64
	VolatilityPct float64
	Price         float64
	ActionsRun    int
}

// TelemetryView is a read-only copy of the orchestrator's observable state.
type TelemetryView struct {
	AgentEnabled bool
	Status       AgentStatus
	LastReason   string
	NextTickAt   int64 // epoch millis, zero when stopped
	LastSnapshot string
}

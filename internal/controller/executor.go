package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"treasury-agent/internal/config"
	apperrors "treasury-agent/internal/errors"
	"treasury-agent/internal/ledger"
	"treasury-agent/internal/logging"
	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
	"treasury-agent/internal/rail"
	"treasury-agent/internal/store"
)

// Executor performs an approved plan against the rail and ledger. It
// never re-plans: whatever the safety controller approved runs verbatim,
// in order. Rail failures and an underfunded repay abort the remainder
// of the plan; ledger record failures do not.
type Executor struct {
	cfg       *config.Config
	ledger    ledger.Ledger
	rail      rail.Rail
	queue     *PaymentQueue
	actionLog *ActionLog
	store     store.DataStore
	logger    zerolog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(cfg *config.Config, l ledger.Ledger, r rail.Rail, q *PaymentQueue, log *ActionLog, st store.DataStore, logger zerolog.Logger) *Executor {
	return &Executor{
		cfg:       cfg,
		ledger:    l,
		rail:      r,
		queue:     q,
		actionLog: log,
		store:     st,
		logger:    logging.WithComponent(logger, "executor"),
	}
}

// Execute runs each approved action. It returns the number of actions
// executed, the total spend counted against the daily allowance, and
// the first fatal error.
func (e *Executor) Execute(ctx context.Context, snap *models.Snapshot, verdict models.SafetyResult) (int, money.Money6, error) {
	executed := 0
	var spent money.Money6

	// Projected position, updated as actions land. Later actions see
	// the effects of earlier ones without a mid-plan re-read.
	buckets := snap.Buckets
	debt := snap.Debt

	for _, action := range verdict.Plan.Actions {
		entry := models.ActionLogEntry{
			ID:            uuid.NewString(),
			Timestamp:     time.Now(),
			BorrowerID:    snap.BorrowerID,
			Kind:          action.Kind,
			Amount:        action.Amount,
			HealthBefore:  money.HealthBps(snap.MaxBorrow, debt),
			BucketsBefore: buckets,
			Trigger:       action.Rationale,
			Rule:          verdict.Rule,
		}

		railRef, ledgerRef, err := e.perform(ctx, snap.BorrowerID, action, &buckets, &debt)
		entry.RailRef = railRef
		entry.LedgerRef = ledgerRef
		entry.HealthAfter = money.HealthBps(snap.MaxBorrow, debt)
		entry.BucketsAfter = buckets

		if err != nil {
			entry.Status = models.ActionFailed
			e.record(entry)
			e.logger.Error().Err(err).Str("kind", string(action.Kind)).Msg("Action failed, aborting plan")
			e.auditDecision(ctx, snap, verdict)
			return executed, spent, err
		}

		entry.Status = models.ActionExecuted
		e.record(entry)
		logging.LogAction(e.logger, string(action.Kind), action.Amount.Dollars(), railRef, ledgerRef)

		executed++
		if action.Kind == models.ActionBorrow || action.Kind == models.ActionPayment {
			spent += action.Amount
		}
		if action.Kind == models.ActionPayment {
			e.queue.Clear(snap.BorrowerID)
		}
	}

	e.auditDecision(ctx, snap, verdict)
	return executed, spent, nil
}

// perform moves the money for one action and updates the projection.
func (e *Executor) perform(ctx context.Context, borrowerID string, a models.PlannedAction, buckets *models.BucketBalances, debt *money.Money6) (string, string, error) {
	switch a.Kind {
	case models.ActionBorrow:
		return e.performBorrow(ctx, borrowerID, a, buckets, debt)
	case models.ActionRepay:
		return e.performRepay(ctx, borrowerID, a, buckets, debt)
	case models.ActionRebalance:
		return e.performRebalance(ctx, borrowerID, a, buckets)
	case models.ActionPayment:
		return e.performPayment(ctx, borrowerID, a, buckets)
	}
	return "", "", fmt.Errorf("unknown action kind %q", a.Kind)
}

func (e *Executor) performBorrow(ctx context.Context, borrowerID string, a models.PlannedAction, buckets *models.BucketBalances, debt *money.Money6) (string, string, error) {
	to := a.To
	if to == "" {
		to = models.BucketLiquidity
	}

	railRef, err := e.rail.Transfer(ctx, models.BucketCreditFacility, string(to), a.Amount)
	if err != nil {
		return "", "", apperrors.NewRailError("borrow", string(models.BucketCreditFacility), string(to), a.Amount.String(), err)
	}
	logging.LogTransfer(e.logger, string(models.BucketCreditFacility), string(to), a.Amount.Dollars(), railRef)

	ledgerRef := e.ledgerRef(func() (string, error) {
		return e.ledger.RecordBorrow(ctx, borrowerID, a.Amount)
	}, "borrow")

	*debt += a.Amount
	creditBucket(buckets, to, a.Amount)
	return railRef, ledgerRef, nil
}

// performRepay drains liquidity first, then reserve, withholding the
// gas reserve in each bucket. A repay larger than the total spendable
// amount is rejected whole, never paid in part, and fails the tick.
func (e *Executor) performRepay(ctx context.Context, borrowerID string, a models.PlannedAction, buckets *models.BucketBalances, debt *money.Money6) (string, string, error) {
	gas := e.cfg.GasReserveMoney()
	fromLiquidity := money.ClampZero(buckets.Liquidity - gas)
	fromReserve := money.ClampZero(buckets.Reserve - gas)
	spendable := fromLiquidity + fromReserve

	if a.Amount > spendable {
		return "", "", apperrors.Wrapf(apperrors.ErrInsufficientSpendable,
			"repay %s exceeds spendable %s (gas reserve %s per bucket)", a.Amount, spendable, gas)
	}

	var refs []string
	remaining := a.Amount

	liqPart := money.Min(remaining, fromLiquidity)
	if liqPart > 0 {
		ref, err := e.rail.Transfer(ctx, models.BucketLiquidity, string(models.BucketCreditFacility), liqPart)
		if err != nil {
			return "", "", apperrors.NewRailError("repay", string(models.BucketLiquidity), string(models.BucketCreditFacility), liqPart.String(), err)
		}
		logging.LogTransfer(e.logger, string(models.BucketLiquidity), string(models.BucketCreditFacility), liqPart.Dollars(), ref)
		refs = append(refs, ref)
		buckets.Liquidity -= liqPart
		remaining -= liqPart
	}

	if remaining > 0 {
		ref, err := e.rail.Transfer(ctx, models.BucketReserve, string(models.BucketCreditFacility), remaining)
		if err != nil {
			return strings.Join(refs, ","), "", apperrors.NewRailError("repay", string(models.BucketReserve), string(models.BucketCreditFacility), remaining.String(), err)
		}
		logging.LogTransfer(e.logger, string(models.BucketReserve), string(models.BucketCreditFacility), remaining.Dollars(), ref)
		refs = append(refs, ref)
		buckets.Reserve -= remaining
	}

	ledgerRef := e.ledgerRef(func() (string, error) {
		return e.ledger.RecordRepay(ctx, borrowerID, a.Amount)
	}, "repay")

	*debt = money.ClampZero(*debt - a.Amount)
	return strings.Join(refs, ","), ledgerRef, nil
}

func (e *Executor) performRebalance(ctx context.Context, borrowerID string, a models.PlannedAction, buckets *models.BucketBalances) (string, string, error) {
	railRef, err := e.rail.Transfer(ctx, a.From, string(a.To), a.Amount)
	if err != nil {
		return "", "", apperrors.NewRailError("rebalance", string(a.From), string(a.To), a.Amount.String(), err)
	}
	logging.LogTransfer(e.logger, string(a.From), string(a.To), a.Amount.Dollars(), railRef)

	ledgerRef := e.ledgerRef(func() (string, error) {
		return e.ledger.RecordRebalance(ctx, borrowerID, a.From, a.To, a.Amount)
	}, "rebalance")

	debitBucket(buckets, a.From, a.Amount)
	creditBucket(buckets, a.To, a.Amount)
	return railRef, ledgerRef, nil
}

func (e *Executor) performPayment(ctx context.Context, borrowerID string, a models.PlannedAction, buckets *models.BucketBalances) (string, string, error) {
	railRef, err := e.rail.Transfer(ctx, models.BucketLiquidity, a.Recipient, a.Amount)
	if err != nil {
		return "", "", apperrors.NewRailError("payment", string(models.BucketLiquidity), a.Recipient, a.Amount.String(), err)
	}
	logging.LogTransfer(e.logger, string(models.BucketLiquidity), a.Recipient, a.Amount.Dollars(), railRef)

	ledgerRef := e.ledgerRef(func() (string, error) {
		return e.ledger.RecordPayment(ctx, borrowerID, a.Recipient, a.Amount)
	}, "payment")

	buckets.Liquidity -= a.Amount
	return railRef, ledgerRef, nil
}

// ledgerRef records a fund movement on the ledger. The movement already
// happened on the rail, so a failed record gets a synthetic reference
// instead of failing the action.
func (e *Executor) ledgerRef(record func() (string, error), kind string) string {
	ref, err := record()
	if err != nil {
		synthetic := fmt.Sprintf("sim-%s-%s", kind, uuid.NewString()[:8])
		e.logger.Warn().Err(err).Str("synthetic_ref", synthetic).Msg("Ledger record failed, using synthetic reference")
		return synthetic
	}
	return ref
}

// record appends to the in-memory log and persists best-effort.
func (e *Executor) record(entry models.ActionLogEntry) {
	e.actionLog.Append(entry)
	if e.store == nil {
		return
	}
	if err := e.store.SaveAction(entry); err != nil {
		e.logger.Warn().Err(err).Str("action_id", entry.ID).Msg("Action persist failed")
	}
}

// auditDecision writes the decision audit record. Best-effort.
func (e *Executor) auditDecision(ctx context.Context, snap *models.Snapshot, verdict models.SafetyResult) {
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Snapshot marshal failed, skipping decision audit")
		return
	}

	tags := make([]string, 0, len(verdict.Plan.Actions))
	for _, a := range verdict.Plan.Actions {
		tags = append(tags, string(a.Kind))
	}
	tag := strings.Join(tags, "+")
	if tag == "" {
		tag = "none"
	}

	if _, err := e.ledger.LogDecision(ctx, snapJSON, tag, ledger.RationaleHash(verdict.Plan.Rationale)); err != nil {
		e.logger.Warn().Err(err).Msg("Decision audit failed")
	}
}

func creditBucket(b *models.BucketBalances, bucket models.Bucket, amount money.Money6) {
	switch bucket {
	case models.BucketLiquidity:
		b.Liquidity += amount
	case models.BucketReserve:
		b.Reserve += amount
	case models.BucketYield:
		b.Yield += amount
	}
}

func debitBucket(b *models.BucketBalances, bucket models.Bucket, amount money.Money6) {
	switch bucket {
	case models.BucketLiquidity:
		b.Liquidity -= amount
	case models.BucketReserve:
		b.Reserve -= amount
	case models.BucketYield:
		b.Yield -= amount
	}
}

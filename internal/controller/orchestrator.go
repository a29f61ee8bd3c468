package controller

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"treasury-agent/internal/config"
	apperrors "treasury-agent/internal/errors"
	"treasury-agent/internal/logging"
	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
	"treasury-agent/internal/notify"
	"treasury-agent/internal/store"
	"treasury-agent/pkg/utils"
)

// Orchestrator owns the tick loop: it schedules ticks at a fixed
// cadence, runs each borrower sequentially through snapshot, planner,
// safety and executor, and maintains telemetry and the daily spend
// counters.
type Orchestrator struct {
	cfg       *config.Config
	builder   *Builder
	planner   *Planner
	safety    *Safety
	executor  *Executor
	telemetry *Telemetry
	actionLog *ActionLog
	store     store.DataStore
	notifier  *notify.Dispatcher
	logger    zerolog.Logger

	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	cron       *cron.Cron
	inFlight   bool
	dailySpent map[string]money.Money6
}

// NewOrchestrator wires the tick pipeline together.
func NewOrchestrator(cfg *config.Config, b *Builder, p *Planner, s *Safety, e *Executor, t *Telemetry, log *ActionLog, st store.DataStore, n *notify.Dispatcher, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		builder:    b,
		planner:    p,
		safety:     s,
		executor:   e,
		telemetry:  t,
		actionLog:  log,
		store:      st,
		notifier:   n,
		logger:     logging.WithComponent(logger, "orchestrator"),
		dailySpent: make(map[string]money.Money6),
	}
}

// Start begins the tick loop. Calling Start on a running orchestrator
// is a no-op.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		o.logger.Debug().Msg("Start ignored, already running")
		return
	}
	o.running = true
	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})

	// Daily spend counters reset at midnight.
	o.cron = cron.New()
	o.cron.AddFunc("0 0 * * *", o.resetDailySpend)
	o.cron.Start()
	o.mu.Unlock()

	interval := time.Duration(o.cfg.Controller.TickIntervalSeconds) * time.Second
	o.telemetry.SetEnabled(true)
	o.telemetry.SetNextTickAt(time.Now().Add(interval))
	o.logger.Info().
		Dur("interval", interval).
		Strs("borrowers", o.cfg.Controller.Borrowers).
		Msg("Tick loop started")

	go o.loop(ctx, interval)
}

func (o *Orchestrator) loop(ctx context.Context, interval time.Duration) {
	defer close(o.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.telemetry.SetNextTickAt(time.Now().Add(interval))
			if err := o.Tick(ctx); err != nil {
				if apperrors.Is(err, apperrors.ErrTickInFlight) {
					o.logger.Warn().Msg("Tick still in flight, firing dropped")
					continue
				}
				o.logger.Error().Err(err).Msg("Tick failed")
			}
		}
	}
}

// Stop halts the tick loop and waits for an in-flight tick to finish.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return apperrors.ErrNotRunning
	}
	o.running = false
	close(o.stopCh)
	o.cron.Stop()
	o.mu.Unlock()

	<-o.doneCh
	o.telemetry.SetEnabled(false)
	o.telemetry.SetNextTickAt(time.Time{})
	o.telemetry.SetStatus(models.StatusMonitoring, "stopped")
	o.logger.Info().Msg("Tick loop stopped")
	return nil
}

// Running reports whether the tick loop is active.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Tick runs one full cycle over all borrowers, sequentially. A firing
// that arrives while a tick is in flight is dropped, never queued.
func (o *Orchestrator) Tick(ctx context.Context) error {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return apperrors.ErrTickInFlight
	}
	o.inFlight = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	for _, borrowerID := range o.cfg.Controller.Borrowers {
		o.tickBorrower(ctx, borrowerID)
	}
	return nil
}

// DailySpent returns the running spend counter for a borrower.
func (o *Orchestrator) DailySpent(borrowerID string) money.Money6 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dailySpent[borrowerID]
}

func (o *Orchestrator) resetDailySpend() {
	o.mu.Lock()
	o.dailySpent = make(map[string]money.Money6)
	o.mu.Unlock()
	o.logger.Info().Msg("Daily spend counters reset")
}

// tickBorrower runs the pipeline for one borrower. A panic anywhere in
// the pipeline is contained to this borrower's tick and drops the
// controller into Risk Mode.
func (o *Orchestrator) tickBorrower(ctx context.Context, borrowerID string) {
	tickID := uuid.NewString()
	logger := logging.WithTick(logging.WithBorrower(o.logger, borrowerID), tickID)
	startedAt := time.Now()

	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("tick panic: %v", r)
			logger.Error().Interface("panic", r).Msg("Tick panicked")
			o.telemetry.SetStatus(models.StatusRisk, reason)
			o.notifier.Dispatch(ctx, notify.Event{
				Kind:       "error",
				BorrowerID: borrowerID,
				Message:    reason,
			})
		}
	}()

	snap, err := o.builder.Build(ctx, borrowerID, o.DailySpent(borrowerID))
	if err != nil {
		reason := fmt.Sprintf("snapshot failed: %v", err)
		logger.Error().Err(err).Msg("Snapshot failed, tick skipped")
		o.telemetry.SetStatus(models.StatusRisk, reason)
		o.notifier.Dispatch(ctx, notify.Event{
			Kind:       "error",
			BorrowerID: borrowerID,
			Message:    reason,
		})
		o.saveTick(models.TickRecord{
			ID:         tickID,
			BorrowerID: borrowerID,
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
			Status:     models.StatusRisk,
			Reason:     reason,
		}, logger)
		return
	}

	proposal := o.planner.Propose(snap)
	verdict := o.safety.Validate(snap, proposal)
	o.recordBlocked(snap, proposal, verdict)

	o.telemetry.SetStatus(models.StatusExecuting, verdict.Plan.Rationale)

	executed, spent, execErr := o.executor.Execute(ctx, snap, verdict)
	if spent > 0 {
		o.mu.Lock()
		o.dailySpent[borrowerID] += spent
		o.mu.Unlock()
	}

	// Post-tick status comes from the pre-execution snapshot: the
	// position as this tick saw it, not the optimistic projection.
	status, reason := o.statusFor(snap, verdict, execErr)
	o.telemetry.SetStatus(status, reason)
	o.telemetry.SetLastSnapshot(snapshotSummary(snap))

	if status == models.StatusRisk {
		logging.LogRiskEvent(o.logger, borrowerID, verdict.Rule, reason, snap.HealthBps)
		o.notifier.Dispatch(ctx, notify.Event{
			Kind:       "risk",
			BorrowerID: borrowerID,
			Message:    reason,
		})
	}

	logging.LogTick(logger, borrowerID, string(status), snap.HealthBps, executed, reason)
	o.saveTick(models.TickRecord{
		ID:            tickID,
		BorrowerID:    borrowerID,
		StartedAt:     startedAt,
		FinishedAt:    time.Now(),
		Status:        status,
		Reason:        reason,
		HealthBps:     snap.HealthBps,
		VolatilityPct: snap.VolatilityPct,
		Price:         snap.Quote.Price,
		ActionsRun:    executed,
	}, logger)
}

// statusFor derives the post-tick status from the snapshot the tick
// operated on.
func (o *Orchestrator) statusFor(snap *models.Snapshot, verdict models.SafetyResult, execErr error) (models.AgentStatus, string) {
	if execErr != nil {
		return models.StatusRisk, fmt.Sprintf("execution failed: %v", execErr)
	}
	if verdict.RiskMode {
		return models.StatusRisk, verdict.Reason
	}
	if snap.HealthBps < snap.Policy.MinHealthBps {
		return models.StatusRisk, fmt.Sprintf("health %.2f below min %.2f",
			money.HealthRatio(snap.HealthBps), money.HealthRatio(snap.Policy.MinHealthBps))
	}
	if math.Abs(snap.VolatilityPct) > snap.Policy.VolatilityThresholdPct {
		return models.StatusRisk, fmt.Sprintf("volatility %.2f%% above threshold %.2f%%",
			snap.VolatilityPct, snap.Policy.VolatilityThresholdPct)
	}
	return models.StatusMonitoring, verdict.Plan.Rationale
}

// recordBlocked logs a BLOCKED entry for each proposed action the
// safety controller removed.
func (o *Orchestrator) recordBlocked(snap *models.Snapshot, proposal models.Plan, verdict models.SafetyResult) {
	kept := make(map[models.ActionKind]int)
	for _, a := range verdict.Plan.Actions {
		kept[a.Kind]++
	}
	for _, a := range proposal.Actions {
		if kept[a.Kind] > 0 {
			kept[a.Kind]--
			continue
		}
		entry := models.ActionLogEntry{
			ID:            uuid.NewString(),
			Timestamp:     time.Now(),
			BorrowerID:    snap.BorrowerID,
			Kind:          a.Kind,
			Status:        models.ActionBlocked,
			Amount:        a.Amount,
			HealthBefore:  snap.HealthBps,
			HealthAfter:   snap.HealthBps,
			BucketsBefore: snap.Buckets,
			BucketsAfter:  snap.Buckets,
			Trigger:       a.Rationale,
			Rule:          verdict.Rule,
		}
		o.actionLog.Append(entry)
		if o.store != nil {
			if err := o.store.SaveAction(entry); err != nil {
				o.logger.Warn().Err(err).Str("action_id", entry.ID).Msg("Blocked-action persist failed")
			}
		}
	}
}

func (o *Orchestrator) saveTick(record models.TickRecord, logger zerolog.Logger) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveTick(record); err != nil {
		logger.Warn().Err(err).Msg("Tick persist failed")
	}
}

func snapshotSummary(snap *models.Snapshot) string {
	return fmt.Sprintf("price %s | collateral %s | debt %s | health %s | liquidity %s | reserve %s | yield %s | volatility %s",
		utils.FormatUSD(money.FromDollars(snap.Quote.Price)),
		utils.FormatUSD(snap.Collateral.ValueUSD),
		utils.FormatUSD(snap.Debt),
		utils.FormatHealth(snap.HealthBps),
		utils.FormatUSD(snap.Buckets.Liquidity),
		utils.FormatUSD(snap.Buckets.Reserve),
		utils.FormatUSD(snap.Buckets.Yield),
		utils.FormatPct(snap.VolatilityPct))
}

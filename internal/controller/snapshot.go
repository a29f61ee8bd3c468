package controller

import (
	"context"
	"math/big"
	"time"

	"github.com/rs/zerolog"

	"treasury-agent/internal/config"
	apperrors "treasury-agent/internal/errors"
	"treasury-agent/internal/ledger"
	"treasury-agent/internal/logging"
	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
	"treasury-agent/internal/oracle"
	"treasury-agent/internal/rail"
)

// Builder assembles the point-in-time snapshot a tick operates on.
type Builder struct {
	cfg     *config.Config
	oracle  oracle.Oracle
	ledger  ledger.Ledger
	rail    rail.Rail
	history *oracle.History
	queue   *PaymentQueue
	logger  zerolog.Logger
}

// NewBuilder creates a snapshot builder.
func NewBuilder(cfg *config.Config, o oracle.Oracle, l ledger.Ledger, r rail.Rail, q *PaymentQueue, logger zerolog.Logger) *Builder {
	return &Builder{
		cfg:     cfg,
		oracle:  o,
		ledger:  l,
		rail:    r,
		history: oracle.NewHistory(),
		queue:   q,
		logger:  logging.WithComponent(logger, "snapshot"),
	}
}

// History exposes the price-history window (status display, tests).
func (b *Builder) History() *oracle.History {
	return b.history
}

// Build produces the snapshot for one borrower, or fails the tick.
// An invalid oracle price is the only fatal read failure besides the
// position and balance reads, which have no safe fallback.
func (b *Builder) Build(ctx context.Context, borrowerID string, dailySpent money.Money6) (*models.Snapshot, error) {
	user, err := b.ledger.GetUserState(ctx, borrowerID)
	if err != nil {
		return nil, apperrors.Wrapf(err, "fetching position for %s", borrowerID)
	}

	// Policy reads fall back to overlay + safe constants.
	contractPolicy, err := b.ledger.GetPolicy(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Policy read failed, using overlay and defaults")
		contractPolicy = models.Policy{}
	}
	policy := b.cfg.MergePolicy(contractPolicy)
	if err := policy.Validate(); err != nil {
		return nil, apperrors.Wrap(err, "merged policy invalid")
	}

	quote, err := b.oracle.GetPrice(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "oracle unavailable")
	}
	if !oracle.IsUsable(quote) {
		return nil, apperrors.NewOracleError(quote.Source, quote.Price, "non-positive price", apperrors.ErrOracleInvalid)
	}

	// Idempotent on duplicate timestamps.
	b.history.Append(quote.Price, quote.Timestamp)
	volatility := b.history.Volatility()
	logging.LogOracle(b.logger, quote.Source, quote.Price, quote.Stale, volatility)

	buckets, err := b.rail.Balances(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching bucket balances")
	}

	price := money.FromDollars(quote.Price)
	collateralUSD := money.CollateralValueUSD(user.Collateral, price)
	maxBorrow := money.MulBps(collateralUSD, policy.LTVBps)
	healthBps := money.HealthBps(maxBorrow, user.Debt)

	snap := &models.Snapshot{
		BorrowerID:    borrowerID,
		Quote:         quote,
		VolatilityPct: volatility,
		Collateral: models.CollateralPosition{
			Wei:      weiString(user.Collateral),
			ValueUSD: collateralUSD,
		},
		Debt:       user.Debt,
		MaxBorrow:  maxBorrow,
		HealthBps:  healthBps,
		Buckets:    buckets,
		Pending:    b.queue.Peek(borrowerID),
		Policy:     policy,
		DailySpent: dailySpent,
		Timestamp:  time.Now(),
	}

	// Best-effort push-back of the observed price to the ledger's
	// oracle snapshot slot. Never fails the tick.
	if err := b.ledger.SetOracleSnapshot(ctx, quote.Price, quote.Timestamp); err != nil {
		b.logger.Warn().Err(err).Msg("Oracle snapshot push-back failed")
	}

	return snap, nil
}

func weiString(w *big.Int) string {
	if w == nil {
		return "0"
	}
	return w.String()
}

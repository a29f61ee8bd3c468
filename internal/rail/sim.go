package rail

import (
	"context"
	"fmt"
	"sync"

	apperrors "treasury-agent/internal/errors"
	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

// SimRail is an in-memory payment rail used when no custody credentials
// are configured. Transfers mutate a balance table; external payments
// simply debit the source bucket.
type SimRail struct {
	mu        sync.Mutex
	balances  map[models.Bucket]money.Money6
	txCounter int
}

// SimRailConfig seeds the simulated bucket balances.
type SimRailConfig struct {
	Liquidity      money.Money6
	Reserve        money.Money6
	Yield          money.Money6
	CreditFacility money.Money6
}

// NewSimRail creates a simulated rail with the given starting balances.
func NewSimRail(cfg SimRailConfig) *SimRail {
	return &SimRail{
		balances: map[models.Bucket]money.Money6{
			models.BucketLiquidity:      cfg.Liquidity,
			models.BucketReserve:        cfg.Reserve,
			models.BucketYield:          cfg.Yield,
			models.BucketCreditFacility: cfg.CreditFacility,
		},
	}
}

// Balance returns one bucket's balance.
func (r *SimRail) Balance(ctx context.Context, bucket models.Bucket) (money.Money6, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.balances[bucket]
	if !ok {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrUnknownBucket, bucket)
	}
	return b, nil
}

// Balances returns the three cash bucket balances.
func (r *SimRail) Balances(ctx context.Context) (models.BucketBalances, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return models.BucketBalances{
		Liquidity: r.balances[models.BucketLiquidity],
		Reserve:   r.balances[models.BucketReserve],
		Yield:     r.balances[models.BucketYield],
	}, nil
}

// Transfer moves funds between buckets, or out to an external recipient
// when the destination is not a managed bucket.
func (r *SimRail) Transfer(ctx context.Context, from models.Bucket, to string, amount money.Money6) (string, error) {
	if amount <= 0 {
		return "", apperrors.NewRailError("transfer", string(from), to, amount.String(),
			fmt.Errorf("amount must be positive"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.balances[from]
	if !ok {
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnknownBucket, from)
	}
	if src < amount {
		return "", apperrors.NewRailError("transfer", string(from), to, amount.String(),
			apperrors.ErrInsufficientSpendable)
	}

	r.balances[from] = src - amount
	if IsBucket(to) {
		r.balances[models.Bucket(to)] += amount
	}
	// External recipients only debit; settlement is outside the rail.

	r.txCounter++
	return fmt.Sprintf("sim-rail-%d", r.txCounter), nil
}

// SetBalance overrides one bucket's balance (test hook).
func (r *SimRail) SetBalance(bucket models.Bucket, amount money.Money6) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[bucket] = amount
}

// Ensure SimRail implements the Rail interface
var _ Rail = (*SimRail)(nil)

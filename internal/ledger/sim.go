package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	apperrors "treasury-agent/internal/errors"
	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

// SimLedger is an in-memory ledger used when no RPC endpoint is
// configured. Mutations follow the recorded fund movements so the
// simulated position stays consistent across ticks.
type SimLedger struct {
	mu        sync.Mutex
	users     map[string]*UserState
	policy    models.Policy
	lastPrice float64
	lastTS    time.Time
	txCounter int
}

// SimLedgerConfig seeds the simulated ledger.
type SimLedgerConfig struct {
	Borrowers  []string
	Collateral *big.Int     // per borrower, 18-decimal
	Debt       money.Money6 // per borrower
	Policy     models.Policy
}

// NewSimLedger creates a simulated ledger seeded with the given positions.
func NewSimLedger(cfg SimLedgerConfig) *SimLedger {
	users := make(map[string]*UserState)
	for _, id := range cfg.Borrowers {
		collateral := big.NewInt(0)
		if cfg.Collateral != nil {
			collateral = new(big.Int).Set(cfg.Collateral)
		}
		users[id] = &UserState{
			BorrowerID: id,
			Collateral: collateral,
			Debt:       cfg.Debt,
		}
	}
	return &SimLedger{
		users:  users,
		policy: cfg.Policy,
	}
}

// GetUserState returns the simulated position for a borrower.
func (l *SimLedger) GetUserState(ctx context.Context, borrowerID string) (UserState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[borrowerID]
	if !ok {
		return UserState{}, fmt.Errorf("%w: %s", apperrors.ErrBorrowerUnknown, borrowerID)
	}
	return UserState{
		BorrowerID: u.BorrowerID,
		Collateral: new(big.Int).Set(u.Collateral),
		Debt:       u.Debt,
	}, nil
}

// GetPolicy returns the seeded contract policy. Zero fields mean the
// contract does not set that value.
func (l *SimLedger) GetPolicy(ctx context.Context) (models.Policy, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.policy, nil
}

// SetOracleSnapshot stores the pushed-back price.
func (l *SimLedger) SetOracleSnapshot(ctx context.Context, price float64, ts time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastPrice = price
	l.lastTS = ts
	return nil
}

// LastOracleSnapshot returns the most recently pushed price (test hook).
func (l *SimLedger) LastOracleSnapshot() (float64, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastPrice, l.lastTS
}

// RecordBorrow increases the borrower's simulated debt.
func (l *SimLedger) RecordBorrow(ctx context.Context, borrowerID string, amount money.Money6) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[borrowerID]
	if !ok {
		return "", fmt.Errorf("%w: %s", apperrors.ErrBorrowerUnknown, borrowerID)
	}
	u.Debt += amount
	return l.nextRef("borrow"), nil
}

// RecordRepay decreases the borrower's simulated debt, floored at zero.
func (l *SimLedger) RecordRepay(ctx context.Context, borrowerID string, amount money.Money6) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[borrowerID]
	if !ok {
		return "", fmt.Errorf("%w: %s", apperrors.ErrBorrowerUnknown, borrowerID)
	}
	u.Debt = money.ClampZero(u.Debt - amount)
	return l.nextRef("repay"), nil
}

// RecordRebalance records a bucket-to-bucket move. Debt is unaffected.
func (l *SimLedger) RecordRebalance(ctx context.Context, borrowerID string, from, to models.Bucket, amount money.Money6) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.users[borrowerID]; !ok {
		return "", fmt.Errorf("%w: %s", apperrors.ErrBorrowerUnknown, borrowerID)
	}
	return l.nextRef("rebalance"), nil
}

// RecordPayment records an external payment. Debt is unaffected.
func (l *SimLedger) RecordPayment(ctx context.Context, borrowerID, recipient string, amount money.Money6) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.users[borrowerID]; !ok {
		return "", fmt.Errorf("%w: %s", apperrors.ErrBorrowerUnknown, borrowerID)
	}
	return l.nextRef("payment"), nil
}

// LogDecision records an audit entry and returns a synthetic reference.
func (l *SimLedger) LogDecision(ctx context.Context, snapshotJSON []byte, actionTag, rationaleHash string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextRef("decision"), nil
}

// nextRef mints a synthetic transaction reference. Callers hold the lock.
func (l *SimLedger) nextRef(kind string) string {
	l.txCounter++
	return fmt.Sprintf("sim-ledger-%s-%d", kind, l.txCounter)
}

// SetDebt overrides a borrower's debt (test hook).
func (l *SimLedger) SetDebt(borrowerID string, debt money.Money6) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if u, ok := l.users[borrowerID]; ok {
		u.Debt = debt
	}
}

// Ensure SimLedger implements the Ledger interface
var _ Ledger = (*SimLedger)(nil)

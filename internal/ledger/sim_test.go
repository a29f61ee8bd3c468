package ledger

import (
	"context"
	"strings"
	"testing"
	"time"

	apperrors "treasury-agent/internal/errors"
	"treasury-agent/internal/money"
)

func newTestLedger() *SimLedger {
	return NewSimLedger(SimLedgerConfig{
		Borrowers:  []string{"default"},
		Collateral: money.TokensToWei(5),
		Debt:       money.FromDollars(1000),
	})
}

func TestSimLedgerBorrowRepayMutateDebt(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	ref, err := l.RecordBorrow(ctx, "default", money.FromDollars(500))
	if err != nil {
		t.Fatalf("RecordBorrow: %v", err)
	}
	if !strings.HasPrefix(ref, "sim-ledger-borrow-") {
		t.Errorf("borrow ref = %q", ref)
	}

	state, _ := l.GetUserState(ctx, "default")
	if state.Debt != money.FromDollars(1500) {
		t.Errorf("debt after borrow = %s, want $1500", state.Debt)
	}

	if _, err := l.RecordRepay(ctx, "default", money.FromDollars(2000)); err != nil {
		t.Fatalf("RecordRepay: %v", err)
	}
	state, _ = l.GetUserState(ctx, "default")
	if state.Debt != 0 {
		t.Errorf("debt floors at zero, got %s", state.Debt)
	}
}

func TestSimLedgerUnknownBorrower(t *testing.T) {
	l := newTestLedger()
	if _, err := l.GetUserState(context.Background(), "missing"); !apperrors.Is(err, apperrors.ErrBorrowerUnknown) {
		t.Errorf("want ErrBorrowerUnknown, got %v", err)
	}
}

func TestSimLedgerStateCopiesCollateral(t *testing.T) {
	l := newTestLedger()
	state, _ := l.GetUserState(context.Background(), "default")

	state.Collateral.SetInt64(0)

	again, _ := l.GetUserState(context.Background(), "default")
	if again.Collateral.Sign() == 0 {
		t.Error("GetUserState must return a defensive copy of collateral")
	}
}

func TestSimLedgerOracleSnapshot(t *testing.T) {
	l := newTestLedger()
	ts := time.Now()
	if err := l.SetOracleSnapshot(context.Background(), 2345.67, ts); err != nil {
		t.Fatalf("SetOracleSnapshot: %v", err)
	}
	price, got := l.LastOracleSnapshot()
	if price != 2345.67 || !got.Equal(ts) {
		t.Errorf("LastOracleSnapshot = %v @ %v", price, got)
	}
}

func TestRationaleHashStable(t *testing.T) {
	a := RationaleHash("emergency repay: health 1.20 below min 1.40")
	b := RationaleHash("emergency repay: health 1.20 below min 1.40")
	if a != b {
		t.Errorf("hash not stable: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("hash length = %d, want 16", len(a))
	}
	if a == RationaleHash("different rationale") {
		t.Error("distinct inputs should hash differently")
	}
}

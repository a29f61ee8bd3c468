package rail

import (
	"context"
	"testing"

	apperrors "treasury-agent/internal/errors"
	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

func TestSimRailBucketTransfer(t *testing.T) {
	r := NewSimRail(SimRailConfig{
		Liquidity: money.FromDollars(1000),
		Reserve:   money.FromDollars(500),
	})
	ctx := context.Background()

	ref, err := r.Transfer(ctx, models.BucketLiquidity, string(models.BucketReserve), money.FromDollars(300))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if ref == "" {
		t.Error("expected a transfer reference")
	}

	balances, _ := r.Balances(ctx)
	if balances.Liquidity != money.FromDollars(700) {
		t.Errorf("liquidity = %s, want $700", balances.Liquidity)
	}
	if balances.Reserve != money.FromDollars(800) {
		t.Errorf("reserve = %s, want $800", balances.Reserve)
	}
}

func TestSimRailExternalTransferOnlyDebits(t *testing.T) {
	r := NewSimRail(SimRailConfig{Liquidity: money.FromDollars(1000)})
	ctx := context.Background()

	if _, err := r.Transfer(ctx, models.BucketLiquidity, "acct-987", money.FromDollars(400)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	balances, _ := r.Balances(ctx)
	if balances.Liquidity != money.FromDollars(600) {
		t.Errorf("liquidity = %s, want $600", balances.Liquidity)
	}
	if total := balances.Total(); total != money.FromDollars(600) {
		t.Errorf("total = %s, want $600 (external transfers leave the rail)", total)
	}
}

func TestSimRailInsufficientFunds(t *testing.T) {
	r := NewSimRail(SimRailConfig{Liquidity: money.FromDollars(100)})
	ctx := context.Background()

	_, err := r.Transfer(ctx, models.BucketLiquidity, "acct-987", money.FromDollars(200))
	if !apperrors.Is(err, apperrors.ErrInsufficientSpendable) {
		t.Errorf("want ErrInsufficientSpendable, got %v", err)
	}

	balances, _ := r.Balances(ctx)
	if balances.Liquidity != money.FromDollars(100) {
		t.Errorf("failed transfer must not move funds: %s", balances.Liquidity)
	}
}

func TestSimRailRejectsNonPositiveAmounts(t *testing.T) {
	r := NewSimRail(SimRailConfig{Liquidity: money.FromDollars(100)})
	if _, err := r.Transfer(context.Background(), models.BucketLiquidity, "acct-1", 0); err == nil {
		t.Error("zero amount should be rejected")
	}
	if _, err := r.Transfer(context.Background(), models.BucketLiquidity, "acct-1", -100); err == nil {
		t.Error("negative amount should be rejected")
	}
}

func TestIsBucket(t *testing.T) {
	for _, b := range []string{"liquidity", "reserve", "yield", "credit-facility"} {
		if !IsBucket(b) {
			t.Errorf("IsBucket(%q) = false", b)
		}
	}
	if IsBucket("acct-987") {
		t.Error("external recipient classified as bucket")
	}
}

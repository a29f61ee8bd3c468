package store

import (
	"path/filepath"
	"testing"
	"time"

	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "treasurer.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreActionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	entry := models.ActionLogEntry{
		ID:           "action-1",
		Timestamp:    time.Now().Truncate(time.Millisecond),
		BorrowerID:   "default",
		Kind:         models.ActionRepay,
		Status:       models.ActionExecuted,
		Amount:       money.FromDollars(1000),
		HealthBefore: 12000,
		HealthAfter:  15000,
		BucketsBefore: models.BucketBalances{
			Liquidity: money.FromDollars(1500),
			Reserve:   money.FromDollars(3000),
		},
		BucketsAfter: models.BucketBalances{
			Liquidity: money.FromDollars(500),
			Reserve:   money.FromDollars(3000),
		},
		Trigger:   "emergency repay",
		Rule:      "debt-increase-gate",
		RailRef:   "sim-rail-1",
		LedgerRef: "sim-ledger-repay-1",
	}
	if err := s.SaveAction(entry); err != nil {
		t.Fatalf("SaveAction: %v", err)
	}

	got, err := s.RecentActions("default", 10)
	if err != nil {
		t.Fatalf("RecentActions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("RecentActions returned %d entries, want 1", len(got))
	}

	e := got[0]
	if e.ID != entry.ID || e.Kind != entry.Kind || e.Status != entry.Status {
		t.Errorf("identity fields mismatch: %+v", e)
	}
	if e.Amount != entry.Amount {
		t.Errorf("Amount = %s, want %s", e.Amount, entry.Amount)
	}
	if e.HealthBefore != 12000 || e.HealthAfter != 15000 {
		t.Errorf("health fields mismatch: %d -> %d", e.HealthBefore, e.HealthAfter)
	}
	if e.BucketsBefore != entry.BucketsBefore || e.BucketsAfter != entry.BucketsAfter {
		t.Errorf("bucket fields mismatch: %+v / %+v", e.BucketsBefore, e.BucketsAfter)
	}
	if !e.Timestamp.Equal(entry.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, entry.Timestamp)
	}
}

func TestSQLiteStoreRecentActionsOrderAndFilter(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()

	for i := 0; i < 5; i++ {
		if err := s.SaveAction(models.ActionLogEntry{
			ID:         "a-" + string(rune('0'+i)),
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			BorrowerID: "default",
			Kind:       models.ActionBorrow,
			Status:     models.ActionExecuted,
		}); err != nil {
			t.Fatalf("SaveAction: %v", err)
		}
	}
	if err := s.SaveAction(models.ActionLogEntry{
		ID:         "other-1",
		Timestamp:  base,
		BorrowerID: "other",
		Kind:       models.ActionRepay,
		Status:     models.ActionExecuted,
	}); err != nil {
		t.Fatalf("SaveAction: %v", err)
	}

	got, err := s.RecentActions("default", 3)
	if err != nil {
		t.Fatalf("RecentActions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("RecentActions(3) returned %d", len(got))
	}
	if got[0].ID != "a-4" {
		t.Errorf("newest = %s, want a-4", got[0].ID)
	}
	for _, e := range got {
		if e.BorrowerID != "default" {
			t.Errorf("borrower filter leaked %s", e.BorrowerID)
		}
	}
}

func TestSQLiteStoreTickHistory(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().Truncate(time.Millisecond)

	if last, err := s.LastTick("default"); err != nil || last != nil {
		t.Fatalf("LastTick on empty store = %v, %v", last, err)
	}

	for i := 0; i < 3; i++ {
		if err := s.SaveTick(models.TickRecord{
			ID:            "tick-" + string(rune('0'+i)),
			BorrowerID:    "default",
			StartedAt:     base.Add(time.Duration(i) * time.Minute),
			FinishedAt:    base.Add(time.Duration(i)*time.Minute + time.Second),
			Status:        models.StatusMonitoring,
			HealthBps:     60000,
			VolatilityPct: 1.5,
			Price:         2000,
			ActionsRun:    i,
		}); err != nil {
			t.Fatalf("SaveTick: %v", err)
		}
	}

	last, err := s.LastTick("default")
	if err != nil {
		t.Fatalf("LastTick: %v", err)
	}
	if last == nil || last.ID != "tick-2" {
		t.Fatalf("LastTick = %+v, want tick-2", last)
	}
	if last.ActionsRun != 2 || last.HealthBps != 60000 {
		t.Errorf("tick fields mismatch: %+v", last)
	}

	ticks, err := s.RecentTicks("default", 10)
	if err != nil {
		t.Fatalf("RecentTicks: %v", err)
	}
	if len(ticks) != 3 {
		t.Errorf("RecentTicks returned %d, want 3", len(ticks))
	}
}

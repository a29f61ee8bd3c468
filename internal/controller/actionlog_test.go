package controller

import (
	"fmt"
	"testing"

	"treasury-agent/internal/models"
)

func TestActionLogBoundedNewestFirst(t *testing.T) {
	log := NewActionLog()

	for i := 0; i < ActionLogCapacity+1; i++ {
		log.Append(models.ActionLogEntry{ID: fmt.Sprintf("entry-%d", i)})
	}

	if log.Len() != ActionLogCapacity {
		t.Fatalf("Len() = %d, want %d", log.Len(), ActionLogCapacity)
	}

	entries := log.Recent(0)
	if entries[0].ID != fmt.Sprintf("entry-%d", ActionLogCapacity) {
		t.Errorf("newest entry = %s, want entry-%d", entries[0].ID, ActionLogCapacity)
	}
	// entry-0 was the oldest and is gone.
	last := entries[len(entries)-1]
	if last.ID != "entry-1" {
		t.Errorf("oldest retained entry = %s, want entry-1", last.ID)
	}
}

func TestActionLogRecentLimit(t *testing.T) {
	log := NewActionLog()
	for i := 0; i < 10; i++ {
		log.Append(models.ActionLogEntry{ID: fmt.Sprintf("entry-%d", i)})
	}

	recent := log.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("Recent(3) returned %d entries", len(recent))
	}
	if recent[0].ID != "entry-9" {
		t.Errorf("Recent(3)[0] = %s, want entry-9", recent[0].ID)
	}

	if got := len(log.Recent(100)); got != 10 {
		t.Errorf("Recent(100) returned %d entries, want 10", got)
	}
}

func TestPaymentQueueOnePendingPerBorrower(t *testing.T) {
	q := NewPaymentQueue()

	if err := q.Enqueue("default", "acct-1", 100_000_000); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue("default", "acct-2", 200_000_000); err == nil {
		t.Error("second Enqueue for the same borrower should fail")
	}
	if err := q.Enqueue("other", "acct-2", 200_000_000); err != nil {
		t.Errorf("Enqueue for a different borrower: %v", err)
	}

	p := q.Peek("default")
	if p == nil || p.Recipient != "acct-1" {
		t.Fatalf("Peek = %+v, want acct-1", p)
	}

	// Peek returns a copy; mutating it must not affect the queue.
	p.Recipient = "mutated"
	if q.Peek("default").Recipient != "acct-1" {
		t.Error("Peek should return a defensive copy")
	}

	q.Clear("default")
	if q.Peek("default") != nil {
		t.Error("Clear should remove the pending payment")
	}
}

func TestPaymentQueueValidation(t *testing.T) {
	q := NewPaymentQueue()
	if err := q.Enqueue("default", "", 100); err == nil {
		t.Error("empty recipient should be rejected")
	}
	if err := q.Enqueue("default", "acct-1", 0); err == nil {
		t.Error("zero amount should be rejected")
	}
	if err := q.Enqueue("default", "acct-1", -5); err == nil {
		t.Error("negative amount should be rejected")
	}
}

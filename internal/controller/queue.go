package controller

import (
	"fmt"
	"sync"
	"time"

	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

// PaymentQueue holds at most one pending external payment per borrower.
// The API layer enqueues; the snapshot builder reads; the executor
// clears on release.
type PaymentQueue struct {
	mu      sync.Mutex
	pending map[string]*models.PendingPayment
}

// NewPaymentQueue creates an empty payment queue.
func NewPaymentQueue() *PaymentQueue {
	return &PaymentQueue{pending: make(map[string]*models.PendingPayment)}
}

// Enqueue queues a payment for a borrower. A borrower can hold only one
// pending payment at a time.
func (q *PaymentQueue) Enqueue(borrowerID, recipient string, amount money.Money6) error {
	if recipient == "" {
		return fmt.Errorf("payment recipient required")
	}
	if amount <= 0 {
		return fmt.Errorf("payment amount must be positive")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.pending[borrowerID]; exists {
		return fmt.Errorf("borrower %s already has a pending payment", borrowerID)
	}
	q.pending[borrowerID] = &models.PendingPayment{
		Recipient: recipient,
		Amount:    amount,
		QueuedAt:  time.Now(),
	}
	return nil
}

// Peek returns a copy of the borrower's pending payment, or nil.
func (q *PaymentQueue) Peek(borrowerID string) *models.PendingPayment {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.pending[borrowerID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Clear removes the borrower's pending payment.
func (q *PaymentQueue) Clear(borrowerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, borrowerID)
}

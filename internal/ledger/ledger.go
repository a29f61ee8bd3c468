// Package ledger provides on-chain ledger integrations for the treasury controller.
package ledger

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/big"
	"time"

	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

// UserState is a borrower's on-chain collateral/debt position.
type UserState struct {
	BorrowerID string
	Collateral *big.Int // 18-decimal token amount
	Debt       money.Money6
}

// Ledger defines the interface for on-chain ledger operations. Write
// methods return a transaction reference; simulated implementations
// return references prefixed with "sim-".
type Ledger interface {
	// Reads
	GetUserState(ctx context.Context, borrowerID string) (UserState, error)
	GetPolicy(ctx context.Context) (models.Policy, error)

	// Best-effort snapshot push-back
	SetOracleSnapshot(ctx context.Context, price float64, ts time.Time) error

	// Fund-movement records
	RecordBorrow(ctx context.Context, borrowerID string, amount money.Money6) (string, error)
	RecordRepay(ctx context.Context, borrowerID string, amount money.Money6) (string, error)
	RecordRebalance(ctx context.Context, borrowerID string, from, to models.Bucket, amount money.Money6) (string, error)
	RecordPayment(ctx context.Context, borrowerID, recipient string, amount money.Money6) (string, error)

	// Audit log
	LogDecision(ctx context.Context, snapshotJSON []byte, actionTag, rationaleHash string) (string, error)
}

// RationaleHash produces the short digest recorded with decision logs.
// FNV-1a: the ledger only needs a stable short token, not a
// cryptographic commitment.
func RationaleHash(rationale string) string {
	h := fnv.New64a()
	h.Write([]byte(rationale))
	return fmt.Sprintf("%016x", h.Sum64())
}

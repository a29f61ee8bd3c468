package oracle

import (
	"context"
	"math"
	"sync"
	"time"

	"treasury-agent/internal/models"
)

// SimOracle produces a deterministic price walk around a base price.
// Used when no live price feed is configured.
type SimOracle struct {
	base float64

	mu    sync.Mutex
	calls int
}

// NewSimOracle creates a simulated oracle around the given base price.
func NewSimOracle(basePrice float64) *SimOracle {
	if basePrice <= 0 {
		basePrice = 2000
	}
	return &SimOracle{base: basePrice}
}

// GetPrice returns a simulated price. The walk is a slow sine wave with
// +/-1% amplitude so volatility stays realistic but bounded.
func (o *SimOracle) GetPrice(ctx context.Context) (models.PriceQuote, error) {
	o.mu.Lock()
	o.calls++
	n := o.calls
	o.mu.Unlock()

	drift := math.Sin(float64(n)/10) * 0.01
	return models.PriceQuote{
		Price:     o.base * (1 + drift),
		Source:    "sim",
		Stale:     false,
		Timestamp: time.Now(),
	}, nil
}

// SetBase updates the base price (used by tests and the sim CLI).
func (o *SimOracle) SetBase(price float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.base = price
}

// Ensure SimOracle implements the Oracle interface
var _ Oracle = (*SimOracle)(nil)

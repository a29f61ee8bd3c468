// Package oracle provides price oracle integrations for the treasury controller.
package oracle

import (
	"context"

	"treasury-agent/internal/models"
)

// Oracle defines the interface for price feeds. Implementations fail
// closed: transient read failures surface as a stale or clearly-invalid
// quote, not as an error. Errors are reserved for unrecoverable
// configuration problems.
type Oracle interface {
	GetPrice(ctx context.Context) (models.PriceQuote, error)
}

// IsUsable reports whether a quote carries a price the pipeline can act on.
func IsUsable(q models.PriceQuote) bool {
	return q.Price > 0
}

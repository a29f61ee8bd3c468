// Package rail provides payment-rail integrations for the treasury controller.
package rail

import (
	"context"

	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

// Rail defines the interface for custodial bucket operations. Transfer
// destinations are either a bucket name or an external recipient
// address; implementations distinguish by whether the destination
// matches a known bucket.
type Rail interface {
	Balance(ctx context.Context, bucket models.Bucket) (money.Money6, error)
	Balances(ctx context.Context) (models.BucketBalances, error)
	Transfer(ctx context.Context, from models.Bucket, to string, amount money.Money6) (string, error)
}

// IsBucket reports whether a transfer destination names a managed bucket.
func IsBucket(dest string) bool {
	switch models.Bucket(dest) {
	case models.BucketLiquidity, models.BucketReserve, models.BucketYield, models.BucketCreditFacility:
		return true
	}
	return false
}

package controller

import (
	"time"

	"treasury-agent/internal/config"
	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

// testPolicy returns the default policy with a low liquidity floor so
// scenarios can control it explicitly.
func testPolicy() models.Policy {
	return models.DefaultPolicy()
}

// testSnapshot assembles a snapshot with the health factor derived from
// the given debt and borrow capacity.
func testSnapshot(policy models.Policy, debt, maxBorrow money.Money6, buckets models.BucketBalances) *models.Snapshot {
	return &models.Snapshot{
		BorrowerID: "default",
		Quote: models.PriceQuote{
			Price:     2000,
			Source:    "sim",
			Timestamp: time.Now(),
		},
		Collateral: models.CollateralPosition{
			Wei: "5000000000000000000",
			// LTV backs out of maxBorrow so safety's headroom math is
			// consistent with the scenario.
			ValueUSD: money.DivBps(maxBorrow, policy.LTVBps),
		},
		Debt:      debt,
		MaxBorrow: maxBorrow,
		HealthBps: money.HealthBps(maxBorrow, debt),
		Buckets:   buckets,
		Policy:    policy,
		Timestamp: time.Now(),
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Controller: config.ControllerConfig{
			Mode:                "sim",
			TickIntervalSeconds: 30,
			Borrowers:           []string{"default"},
			GasReserve:          5,
		},
	}
}

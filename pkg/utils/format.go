package utils

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"treasury-agent/internal/money"
)

// FormatUSD formats a Money6 amount for display, e.g. "$12,345.67".
func FormatUSD(m money.Money6) string {
	return "$" + humanize.CommafWithDigits(m.Dollars(), 2)
}

// FormatHealth formats a basis-point health factor for display. The
// sentinel renders as the infinity glyph.
func FormatHealth(bps int64) string {
	if bps >= money.HealthInfinite {
		return "∞"
	}
	return fmt.Sprintf("%.2f", money.HealthRatio(bps))
}

// FormatPct formats a percentage with sign, e.g. "+2.35%".
func FormatPct(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

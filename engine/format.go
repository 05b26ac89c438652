package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// numberUnits are the scale suffixes used by FormatNumber, one per factor of 1000.
var numberUnits = []string{"", "mil"}

// FormatNumber renders a value for a metric card: below 1,000 as-is with two
// decimals, below one million in thousands ("mil"), otherwise in millions.
//
//	FormatNumber(850, "R$")     → "R$ 850.00"
//	FormatNumber(12350, "R$")   → "R$ 12.35 mil"
//	FormatNumber(2500000, "")   → "2.50 million"
func FormatNumber(value float64, prefix string) string {
	for _, unit := range numberUnits {
		if value < 1000 {
			return joinNonEmpty(prefix, fmt.Sprintf("%.2f", value), unit)
		}
		value /= 1000
	}
	return joinNonEmpty(prefix, fmt.Sprintf("%.2f", value), "million")
}

// FormatCurrency formats an amount with currency prefix and comma separators.
func FormatCurrency(amount float64, currency string) string {
	return joinNonEmpty(currency, humanize.FormatFloat("#,###.##", amount))
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	return humanize.Comma(int64(n))
}

// FormatValue formats an aggregated value: counts as integers, everything
// else as a two-decimal amount.
func FormatValue(v float64, aggregation string) string {
	if aggregation == AggCount {
		return FormatInt(int(v))
	}
	return humanize.FormatFloat("#,###.##", v)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

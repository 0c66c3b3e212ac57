// Package report renders rankings, backtest results and positions as
// terminal tables.
package report

import (
	"fmt"
	"math"
	"strings"
)

// FormatPct formats a fractional value as a signed percentage, e.g. 0.0123
// becomes "+1.23%". Values of 100% or more drop the decimals.
func FormatPct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	pct := v * 100
	sign := "+"
	if pct < 0 {
		sign = "-"
		pct = -pct
	}
	if pct == 0 {
		return "0.00%"
	}
	if pct >= 100 {
		return fmt.Sprintf("%s%.0f%%", sign, pct)
	}
	return fmt.Sprintf("%s%.2f%%", sign, pct)
}

// FormatPrice formats a price with precision scaled to its magnitude so that
// sub-cent coins stay readable.
func FormatPrice(p float64) string {
	switch {
	case p == 0:
		return "-"
	case p >= 1000:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	default:
		return fmt.Sprintf("%.8f", p)
	}
}

// FormatScore formats a ranking score.
func FormatScore(s float64) string {
	if s == math.Trunc(s) && math.Abs(s) < 1e9 {
		return fmt.Sprintf("%.0f", s)
	}
	return fmt.Sprintf("%.4f", s)
}

// padOrTrunc pads s with spaces to width w, or truncates it if longer.
func padOrTrunc(s string, w int) string {
	if len(s) >= w {
		return s[:w]
	}
	return s + strings.Repeat(" ", w-len(s))
}

// padLeft right-aligns s in a field of width w.
func padLeft(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return strings.Repeat(" ", w-len(s)) + s
}

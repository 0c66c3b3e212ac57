package ranker

import (
	"fmt"
	"strings"

	"quantbot/internal/domain"
)

// ScreenMode picks the ticker screen used to choose a backtest universe.
type ScreenMode string

const (
	// ScreenGainers keeps symbols whose 24h change is at least the threshold
	// percent.
	ScreenGainers ScreenMode = "gainers"
	// ScreenVolatile keeps symbols whose (high-low)/low range is at least the
	// threshold percent.
	ScreenVolatile ScreenMode = "volatile"
)

// ParseScreenMode converts a name into a ScreenMode.
func ParseScreenMode(name string) (ScreenMode, error) {
	switch m := ScreenMode(strings.ToLower(strings.TrimSpace(name))); m {
	case ScreenGainers, ScreenVolatile:
		return m, nil
	default:
		return "", fmt.Errorf("unknown screen mode %q", name)
	}
}

// Screen filters tickers by mode and threshold and returns at most limit
// symbols, highest metric first. Scores are in percent for both modes.
func Screen(tickers map[string]domain.Ticker, mode ScreenMode, threshold float64, limit int, suffix string) []domain.SymbolScore {
	var picked []domain.SymbolScore
	for _, symbol := range FilterQuote(tickers, suffix) {
		t := tickers[symbol]
		// No daily bar, so neither change nor range is known.
		if !t.HasRange {
			continue
		}
		switch mode {
		case ScreenGainers:
			if t.ChangePct >= threshold {
				picked = append(picked, domain.SymbolScore{Symbol: symbol, Score: t.ChangePct})
			}
		case ScreenVolatile:
			v := Volatility(t)
			if v >= threshold/100 {
				picked = append(picked, domain.SymbolScore{Symbol: symbol, Score: v * 100})
			}
		}
	}
	if picked == nil {
		return []domain.SymbolScore{}
	}
	return TopK(picked, limit)
}

// Volatility is the intraday range (high-low)/low as a fraction. A zero low
// yields 0.
func Volatility(t domain.Ticker) float64 {
	if t.Low == 0 {
		return 0
	}
	return (t.High - t.Low) / t.Low
}

// Symbols extracts the symbol names of scores in order.
func Symbols(scores []domain.SymbolScore) []string {
	out := make([]string, len(scores))
	for i, s := range scores {
		out[i] = s.Symbol
	}
	return out
}

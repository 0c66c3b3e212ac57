package strategy

import (
	"math"

	"quantbot/internal/domain"
)

// Default indicator windows.
const (
	DefaultMomentumPeriod = 14
	DefaultShortWindow    = 10
	DefaultLongWindow     = 30
)

// Momentum returns close[last] - close[last-period]. Series shorter than
// period+1 bars (or a non-positive period) yield 0.
func Momentum(bars []domain.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}
	last := len(bars) - 1
	return bars[last].Close - bars[last-period].Close
}

// SMA returns the trailing simple moving average of values over window. The
// result has the same length as values; entries with fewer than window
// values behind them are NaN.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		out[i] = mean(values[i-window+1 : i+1])
	}
	return out
}

// mean is anchored at the first element so a constant window averages to
// exactly that constant regardless of window length.
func mean(xs []float64) float64 {
	base := xs[0]
	var sum float64
	for _, x := range xs[1:] {
		sum += x - base
	}
	return base + sum/float64(len(xs))
}

// Crossover compares the latest short and long SMA of the closes. Short above
// long is Buy, below is Sell; equal or undefined averages are Hold.
func Crossover(bars []domain.Bar, short, long int) domain.Action {
	if len(bars) == 0 {
		return domain.ActionHold
	}
	closes := domain.Closes(bars)
	s := SMA(closes, short)
	l := SMA(closes, long)
	return direction(s[len(s)-1], l[len(l)-1])
}

// CrossoverSeries returns the per-bar crossover direction: +1 while the short
// SMA is above the long SMA, -1 while below, 0 otherwise.
func CrossoverSeries(bars []domain.Bar, short, long int) []int {
	closes := domain.Closes(bars)
	s := SMA(closes, short)
	l := SMA(closes, long)

	out := make([]int, len(bars))
	for i := range out {
		switch direction(s[i], l[i]) {
		case domain.ActionBuy:
			out[i] = 1
		case domain.ActionSell:
			out[i] = -1
		}
	}
	return out
}

// direction applies the tie rule shared by the live signal and the backtest.
// Comparisons against NaN are false, so undefined averages fall through to
// Hold.
func direction(short, long float64) domain.Action {
	switch {
	case short > long:
		return domain.ActionBuy
	case short < long:
		return domain.ActionSell
	default:
		return domain.ActionHold
	}
}

// ActionScore maps a crossover action to its directional score.
func ActionScore(a domain.Action) float64 {
	switch a {
	case domain.ActionBuy:
		return 1
	case domain.ActionSell:
		return -1
	default:
		return 0
	}
}

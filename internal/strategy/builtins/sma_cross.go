// Package builtins provides the built-in strategy implementations that ship
// with quantbot.
package builtins

import (
	"fmt"
	"time"

	"quantbot/internal/domain"
	"quantbot/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It signals
// Buy while the short-period SMA is above the long-period SMA and Sell while
// it is below.
type SMACross struct {
	shortPeriod int
	longPeriod  int
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods.
func NewSMACross(short, long int) *SMACross {
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
	}
}

// Kind returns strategy.KindCrossover.
func (s *SMACross) Kind() strategy.Kind {
	return strategy.KindCrossover
}

// Evaluate compares the latest short and long SMA of bars.
func (s *SMACross) Evaluate(symbol string, bars []domain.Bar) domain.Signal {
	action := strategy.Crossover(bars, s.shortPeriod, s.longPeriod)
	return domain.Signal{
		Symbol:    symbol,
		Action:    action,
		Score:     strategy.ActionScore(action),
		Reason:    fmt.Sprintf("sma(%d) vs sma(%d) over %d bars", s.shortPeriod, s.longPeriod, len(bars)),
		CreatedAt: time.Now(),
	}
}

// RankScore puts Buy symbols ahead of everything else: +1 for Buy, -1 for
// Sell or Hold.
func (s *SMACross) RankScore(sig domain.Signal) float64 {
	if sig.Action == domain.ActionBuy {
		return 1
	}
	return -1
}

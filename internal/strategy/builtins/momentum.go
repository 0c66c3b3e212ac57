package builtins

import (
	"fmt"
	"time"

	"quantbot/internal/domain"
	"quantbot/internal/strategy"
)

var _ strategy.Strategy = (*Momentum)(nil)

// Momentum signals Buy when the close has risen over the lookback period and
// Sell when it has fallen.
type Momentum struct {
	period int
}

// NewMomentum creates a Momentum strategy with the given lookback period.
func NewMomentum(period int) *Momentum {
	return &Momentum{period: period}
}

// Kind returns strategy.KindMomentum.
func (m *Momentum) Kind() strategy.Kind {
	return strategy.KindMomentum
}

// Evaluate scores bars by their momentum. A zero score, including the
// insufficient-history case, is Hold.
func (m *Momentum) Evaluate(symbol string, bars []domain.Bar) domain.Signal {
	score := strategy.Momentum(bars, m.period)

	action := domain.ActionHold
	switch {
	case score > 0:
		action = domain.ActionBuy
	case score < 0:
		action = domain.ActionSell
	}
	return domain.Signal{
		Symbol:    symbol,
		Action:    action,
		Score:     score,
		Reason:    fmt.Sprintf("momentum(%d)=%.6f", m.period, score),
		CreatedAt: time.Now(),
	}
}

// RankScore is the raw momentum value.
func (m *Momentum) RankScore(sig domain.Signal) float64 {
	return sig.Score
}

// Package domain defines the core value types shared by the signal, ranking,
// position and backtest layers.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Bar is a single OHLCV aggregate for one symbol. A bar series is a slice of
// Bars for one symbol in ascending Timestamp order; gaps are not filled.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	TradeCount int64
	VWAP       float64
}

// Closes extracts the close prices of a bar series.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Ticker is a point-in-time snapshot used only for cross-sectional screens.
// ChangePct is expressed in percent (5.0 means +5%). HasRange is false when
// the snapshot carried no high/low.
type Ticker struct {
	Symbol    string
	Last      float64
	ChangePct float64
	High      float64
	Low       float64
	HasRange  bool
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// Action is the discrete outcome of a strategy evaluation.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal is a strategy's decision for one symbol. Score carries the momentum
// value, or +1/-1/0 for crossover direction.
type Signal struct {
	Symbol    string
	Action    Action
	Score     float64
	Reason    string
	CreatedAt time.Time
}

// SymbolScore pairs a symbol with the score used to rank it.
type SymbolScore struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
}

// ---------------------------------------------------------------------------
// Positions and orders
// ---------------------------------------------------------------------------

// SellMode selects how open positions are closed.
type SellMode string

const (
	// SellModeRealtime closes positions when the strategy emits Sell.
	SellModeRealtime SellMode = "realtime"
	// SellModeLimit places target/stop levels at entry instead.
	SellModeLimit SellMode = "limit"
)

// ParseSellMode converts a case-insensitive name into a SellMode.
func ParseSellMode(name string) (SellMode, error) {
	switch m := SellMode(strings.ToLower(strings.TrimSpace(name))); m {
	case SellModeRealtime, SellModeLimit:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sell mode %q", name)
	}
}

// Position is a simulated long holding. TargetPrice and StopPrice are set
// only for positions opened in limit mode.
type Position struct {
	Symbol      string    `json:"symbol"`
	EntryPrice  float64   `json:"entry_price"`
	Qty         float64   `json:"qty"`
	EntryTime   time.Time `json:"entry_time"`
	TargetPrice float64   `json:"target_price,omitempty"`
	StopPrice   float64   `json:"stop_price,omitempty"`
}

// HasExitLevels reports whether target/stop levels were recorded.
func (p Position) HasExitLevels() bool {
	return p.TargetPrice > 0 || p.StopPrice > 0
}

// OrderSide represents the direction of a simulated order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderIntent is a simulated market order. Nothing is sent anywhere.
type OrderIntent struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      OrderSide `json:"side"`
	Price     float64   `json:"price"`
	Qty       float64   `json:"qty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExitIntent records the take-profit and stop-loss levels that would be
// placed for a position opened in limit mode.
type ExitIntent struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	TargetPrice float64   `json:"target_price"`
	StopPrice   float64   `json:"stop_price"`
	Qty         float64   `json:"qty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Transition names the state change a decision caused in the position table.
type Transition string

const (
	TransitionNone   Transition = "none"
	TransitionOpened Transition = "opened"
	TransitionClosed Transition = "closed"
)

// Decision is emitted by the engine for every evaluated symbol.
type Decision struct {
	Symbol     string     `json:"symbol"`
	Action     Action     `json:"action"`
	Score      float64    `json:"score"`
	Transition Transition `json:"transition"`
	Price      float64    `json:"price"`
	Time       time.Time  `json:"time"`
}

// ---------------------------------------------------------------------------
// Backtesting
// ---------------------------------------------------------------------------

// BacktestResult summarises a replay of the crossover strategy over one
// symbol's history. TotalReturn is a fraction (0.12 means +12%).
type BacktestResult struct {
	Symbol      string  `json:"symbol"`
	TotalReturn float64 `json:"total_return"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Exposures   int     `json:"exposures"`
	Bars        int     `json:"bars"`
}

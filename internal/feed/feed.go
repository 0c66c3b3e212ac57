// Package feed defines the market-data collaborators consumed by the ranking,
// trading and backtest layers, plus adapters for Alpaca and the local bar
// cache.
package feed

import (
	"context"
	"errors"

	"quantbot/internal/domain"
)

// ErrNoData is returned when a source has no bars for a symbol.
var ErrNoData = errors.New("no data")

// BarSource fetches a bar series for one symbol. Bars are returned in
// ascending timestamp order, at most limit of them, ending at the most recent
// bar. An error or an empty slice both mean "no usable data".
type BarSource interface {
	Bars(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Bar, error)
}

// TickerSource returns a snapshot of every tradable symbol.
type TickerSource interface {
	Tickers(ctx context.Context) (map[string]domain.Ticker, error)
}

// BarSourceFunc adapts a function to the BarSource interface.
type BarSourceFunc func(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Bar, error)

// Bars calls f.
func (f BarSourceFunc) Bars(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Bar, error) {
	return f(ctx, symbol, timeframe, limit)
}

// Tail returns the last limit bars, or all of them when limit is not positive.
func Tail(bars []domain.Bar, limit int) []domain.Bar {
	if limit <= 0 || len(bars) <= limit {
		return bars
	}
	return bars[len(bars)-limit:]
}

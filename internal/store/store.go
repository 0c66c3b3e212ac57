// Package store defines storage interfaces for the local bar cache and the
// backtest run log, with Parquet and SQLite implementations.
package store

import (
	"context"
	"time"

	"quantbot/internal/domain"
)

// MarketCrypto is the market directory used for crypto pairs.
const MarketCrypto = "crypto"

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars for the given market and timeframe,
	// merging with bars already stored.
	WriteBars(ctx context.Context, market, timeframe string, bars []domain.Bar) error

	// ReadBars returns bars for symbol within [start, end], ascending.
	ReadBars(ctx context.Context, market, timeframe, symbol string, start, end time.Time) ([]domain.Bar, error)

	// LatestBars returns the most recent limit bars for symbol, ascending.
	LatestBars(ctx context.Context, market, timeframe, symbol string, limit int) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols stored for market and timeframe.
	ListSymbols(ctx context.Context, market, timeframe string) ([]string, error)
}

// BacktestRun is one recorded invocation of the backtester.
type BacktestRun struct {
	ID          int64
	StartedAt   time.Time
	Screen      string
	Threshold   float64
	Timeframe   string
	ShortWindow int
	LongWindow  int
	Results     []domain.BacktestResult
}

// RunStore records backtest runs and their ranked results.
type RunStore interface {
	// SaveRun inserts run and its results and sets run.ID.
	SaveRun(ctx context.Context, run *BacktestRun) error

	// ListRuns returns the most recent runs, newest first, without results.
	ListRuns(ctx context.Context, limit int) ([]BacktestRun, error)

	// RunResults returns the results of a run in their recorded order.
	RunResults(ctx context.Context, runID int64) ([]domain.BacktestResult, error)
}

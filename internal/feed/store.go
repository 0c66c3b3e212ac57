package feed

import (
	"context"
	"fmt"
	"log/slog"

	"quantbot/internal/domain"
	"quantbot/internal/store"
)

// Compile-time interface checks.
var _ BarSource = (*StoreSource)(nil)
var _ BarSource = (*Caching)(nil)

// StoreSource serves bars from a local BarStore.
type StoreSource struct {
	store  store.BarStore
	market string
}

// NewStoreSource creates a StoreSource reading market from s.
func NewStoreSource(s store.BarStore, market string) *StoreSource {
	if market == "" {
		market = store.MarketCrypto
	}
	return &StoreSource{store: s, market: market}
}

// Bars returns the trailing limit bars stored for symbol.
func (s *StoreSource) Bars(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Bar, error) {
	bars, err := s.store.LatestBars(ctx, s.market, timeframe, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("reading cached bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}

// Caching wraps a BarSource and writes every fetched series to a BarStore.
// Write failures are logged and do not fail the fetch.
type Caching struct {
	source BarSource
	store  store.BarStore
	market string
	log    *slog.Logger
}

// NewCaching creates a Caching source.
func NewCaching(source BarSource, s store.BarStore, market string, logger *slog.Logger) *Caching {
	if market == "" {
		market = store.MarketCrypto
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Caching{source: source, store: s, market: market, log: logger.With("component", "bar-cache")}
}

// Bars fetches from the wrapped source and stores the result.
func (c *Caching) Bars(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Bar, error) {
	bars, err := c.source.Bars(ctx, symbol, timeframe, limit)
	if err != nil || len(bars) == 0 {
		return bars, err
	}
	if werr := c.store.WriteBars(ctx, c.market, timeframe, bars); werr != nil {
		c.log.Warn("caching bars failed", "symbol", symbol, "timeframe", timeframe, "error", werr)
	}
	return bars, nil
}

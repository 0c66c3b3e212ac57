package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"quantbot/internal/domain"
	"quantbot/internal/util"
)

// Compile-time interface checks.
var _ BarSource = (*AlpacaFeed)(nil)
var _ TickerSource = (*AlpacaFeed)(nil)

// cryptoData is the subset of the Alpaca market-data client the feed uses.
type cryptoData interface {
	GetCryptoBars(symbol string, req marketdata.GetCryptoBarsRequest) ([]marketdata.CryptoBar, error)
	GetCryptoSnapshots(symbols []string, req marketdata.GetCryptoSnapshotRequest) (map[string]marketdata.CryptoSnapshot, error)
}

// assetLister is the subset of the Alpaca trading client the feed uses.
type assetLister interface {
	GetAssets(req alpaca.GetAssetsRequest) ([]alpaca.Asset, error)
}

// AlpacaOptions configures an AlpacaFeed.
type AlpacaOptions struct {
	APIKey    string
	APISecret string
	DataURL   string
	BaseURL   string
	// RequestsPerMinute caps REST calls; 0 means 200, the free-plan limit.
	RequestsPerMinute int
	MaxRetries        int
	// SnapshotBatch is the number of symbols per snapshot request.
	SnapshotBatch int
	Logger        *slog.Logger
}

// AlpacaFeed serves crypto bars and ticker snapshots from the Alpaca APIs.
type AlpacaFeed struct {
	data       cryptoData
	assets     assetLister
	limiter    *util.RateLimiter
	maxRetries int
	retryDelay time.Duration
	batch      int
	now        func() time.Time
	log        *slog.Logger
}

// NewAlpacaFeed creates an AlpacaFeed with real Alpaca clients.
func NewAlpacaFeed(opts AlpacaOptions) *AlpacaFeed {
	dataOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		dataOpts.BaseURL = opts.DataURL
	}
	tradeOpts := alpaca.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.BaseURL != "" {
		tradeOpts.BaseURL = opts.BaseURL
	}
	return newAlpacaFeed(marketdata.NewClient(dataOpts), alpaca.NewClient(tradeOpts), opts)
}

func newAlpacaFeed(data cryptoData, assets assetLister, opts AlpacaOptions) *AlpacaFeed {
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 200
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.SnapshotBatch <= 0 {
		opts.SnapshotBatch = 200
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AlpacaFeed{
		data:       data,
		assets:     assets,
		limiter:    util.NewRateLimiter(opts.RequestsPerMinute, 10),
		maxRetries: opts.MaxRetries,
		retryDelay: time.Second,
		batch:      opts.SnapshotBatch,
		now:        time.Now,
		log:        opts.Logger.With("component", "alpaca-feed"),
	}
}

// ParseTimeFrame converts "1Min", "15Min", "1Hour", "1Day" (or the short
// forms "1m", "1h", "1d") into an Alpaca TimeFrame and its bar duration.
func ParseTimeFrame(s string) (marketdata.TimeFrame, time.Duration, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	units := []struct {
		suffixes []string
		unit     marketdata.TimeFrameUnit
		dur      time.Duration
	}{
		{[]string{"min", "m"}, marketdata.Min, time.Minute},
		{[]string{"hour", "h"}, marketdata.Hour, time.Hour},
		{[]string{"day", "d"}, marketdata.Day, 24 * time.Hour},
	}
	for _, u := range units {
		for _, suffix := range u.suffixes {
			num, ok := strings.CutSuffix(lower, suffix)
			if !ok {
				continue
			}
			n := 1
			if num != "" {
				v, err := strconv.Atoi(num)
				if err != nil || v <= 0 {
					return marketdata.TimeFrame{}, 0, fmt.Errorf("invalid timeframe %q", s)
				}
				n = v
			}
			return marketdata.NewTimeFrame(n, u.unit), time.Duration(n) * u.dur, nil
		}
	}
	return marketdata.TimeFrame{}, 0, fmt.Errorf("invalid timeframe %q", s)
}

// Bars fetches the most recent limit bars for symbol. The request window is
// twice limit bars wide since crypto bars are skipped for intervals without
// trades.
func (f *AlpacaFeed) Bars(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Bar, error) {
	tf, dur, err := ParseTimeFrame(timeframe)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	end := f.now().UTC()
	start := end.Add(-2 * time.Duration(limit) * dur)

	var raw []marketdata.CryptoBar
	err = util.Retry(ctx, f.maxRetries, f.retryDelay, func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		var ferr error
		raw, ferr = f.data.GetCryptoBars(symbol, marketdata.GetCryptoBarsRequest{
			TimeFrame: tf,
			Start:     start,
			End:       end,
		})
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s bars for %s: %w", timeframe, symbol, err)
	}
	if len(raw) == 0 {
		return nil, ErrNoData
	}

	bars := make([]domain.Bar, len(raw))
	for i, b := range raw {
		bars[i] = domain.Bar{
			Symbol:     symbol,
			Timestamp:  b.Timestamp,
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
			TradeCount: int64(b.TradeCount),
			VWAP:       b.VWAP,
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return Tail(bars, limit), nil
}

// Symbols returns every tradable, active crypto pair, sorted.
func (f *AlpacaFeed) Symbols(ctx context.Context) ([]string, error) {
	var assets []alpaca.Asset
	err := util.Retry(ctx, f.maxRetries, f.retryDelay, func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		var aerr error
		assets, aerr = f.assets.GetAssets(alpaca.GetAssetsRequest{
			Status:     "active",
			AssetClass: "crypto",
		})
		return aerr
	})
	if err != nil {
		return nil, fmt.Errorf("listing crypto assets: %w", err)
	}

	symbols := make([]string, 0, len(assets))
	for _, a := range assets {
		if a.Tradable {
			symbols = append(symbols, a.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// Tickers snapshots every tradable crypto pair.
func (f *AlpacaFeed) Tickers(ctx context.Context) (map[string]domain.Ticker, error) {
	symbols, err := f.Symbols(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.Ticker, len(symbols))
	for start := 0; start < len(symbols); start += f.batch {
		end := min(start+f.batch, len(symbols))
		batch := symbols[start:end]

		var snaps map[string]marketdata.CryptoSnapshot
		err := util.Retry(ctx, f.maxRetries, f.retryDelay, func() error {
			if err := f.limiter.Wait(ctx); err != nil {
				return util.Permanent(err)
			}
			var serr error
			snaps, serr = f.data.GetCryptoSnapshots(batch, marketdata.GetCryptoSnapshotRequest{})
			return serr
		})
		if err != nil {
			return nil, fmt.Errorf("fetching snapshots: %w", err)
		}

		for symbol, snap := range snaps {
			if t, ok := tickerFromSnapshot(symbol, snap); ok {
				out[symbol] = t
			}
		}
	}
	f.log.Info("fetched tickers", "symbols", len(symbols), "tickers", len(out))
	return out, nil
}

// tickerFromSnapshot builds a Ticker from the daily bars of a snapshot.
// ChangePct is measured against the previous daily close, falling back to
// today's open.
func tickerFromSnapshot(symbol string, snap marketdata.CryptoSnapshot) (domain.Ticker, bool) {
	t := domain.Ticker{Symbol: symbol}
	if snap.LatestTrade != nil {
		t.Last = snap.LatestTrade.Price
	}

	daily := snap.DailyBar
	if daily == nil {
		return t, t.Last > 0
	}
	if t.Last == 0 {
		t.Last = daily.Close
	}
	t.High, t.Low, t.HasRange = daily.High, daily.Low, true

	ref := daily.Open
	if snap.PrevDailyBar != nil && snap.PrevDailyBar.Close > 0 {
		ref = snap.PrevDailyBar.Close
	}
	if ref > 0 {
		t.ChangePct = (t.Last/ref - 1) * 100
	}
	return t, true
}

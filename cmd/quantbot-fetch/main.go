// Fetches recent crypto bars from Alpaca into the local parquet cache so that
// backtests can run offline with -from-store.
//
// Usage:
//
//	quantbot-fetch -timeframe 1Hour -limit 1000
//	quantbot-fetch -symbols BTC/USD,ETH/USD
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"quantbot/internal/config"
	"quantbot/internal/feed"
	"quantbot/internal/store"
	"quantbot/internal/util"
)

func main() {
	timeframe := flag.String("timeframe", "", "bar timeframe (default: backtest timeframe from config)")
	limit := flag.Int("limit", 0, "bars per symbol (default: backtest bar limit from config)")
	symbols := flag.String("symbols", "", "comma-separated symbols (default: every tradable pair with the configured quote)")
	workers := flag.Int("workers", 4, "concurrent symbol fetches")
	flag.Parse()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *timeframe == "" {
		*timeframe = cfg.Backtest.Timeframe
	}
	if *limit <= 0 {
		*limit = cfg.Backtest.BarLimit
	}
	if _, _, err := feed.ParseTimeFrame(*timeframe); err != nil {
		log.Fatalf("timeframe: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	alpaca := feed.NewAlpacaFeed(feed.AlpacaOptions{
		APIKey:            cfg.Alpaca.APIKey,
		APISecret:         cfg.Alpaca.APISecret,
		DataURL:           cfg.Alpaca.DataURL,
		BaseURL:           cfg.Alpaca.BaseURL,
		RequestsPerMinute: cfg.Alpaca.RateLimitPerMin,
		MaxRetries:        cfg.Alpaca.MaxRetries,
		Logger:            logger,
	})

	var universe []string
	if *symbols != "" {
		for _, s := range strings.Split(*symbols, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				universe = append(universe, s)
			}
		}
	} else {
		all, err := alpaca.Symbols(ctx)
		if err != nil {
			log.Fatalf("listing symbols: %v", err)
		}
		for _, s := range all {
			if strings.HasSuffix(s, cfg.Ranking.QuoteSuffix) {
				universe = append(universe, s)
			}
		}
	}
	if len(universe) == 0 {
		log.Fatal("no symbols to fetch")
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	cache := feed.NewCaching(alpaca, pstore, store.MarketCrypto, logger)

	slog.Info("starting quantbot-fetch", "symbols", len(universe), "timeframe", *timeframe,
		"limit", *limit, "data_dir", cfg.Storage.DataDir)

	var fetched, empty atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))
	for _, symbol := range universe {
		g.Go(func() error {
			bars, err := cache.Bars(gctx, symbol, *timeframe, *limit)
			if errors.Is(err, feed.ErrNoData) {
				empty.Add(1)
				return nil
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("fetch failed", "symbol", symbol, "error", err)
				return nil
			}
			slog.Debug("cached bars", "symbol", symbol, "bars", len(bars))
			fetched.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("fetch interrupted: %v", err)
	}

	cached, err := pstore.ListSymbols(ctx, store.MarketCrypto, *timeframe)
	if err != nil {
		log.Fatalf("listing cache: %v", err)
	}
	slog.Info("fetch complete", "fetched", fetched.Load(), "empty", empty.Load(),
		"cached_symbols", len(cached))
}

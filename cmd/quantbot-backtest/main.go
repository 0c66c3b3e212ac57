// Screens the crypto universe, backtests the moving-average crossover on every
// symbol that passes, prints the ranked results and records the run.
//
// Usage:
//
//	quantbot-backtest -scg -threshold 5 -limit 10
//	quantbot-backtest -scv -threshold 8 -from-store
//	quantbot-backtest -symbols BTC/USD,ETH/USD
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quantbot/internal/config"
	"quantbot/internal/feed"
	"quantbot/internal/ranker"
	"quantbot/internal/report"
	"quantbot/internal/store"
	"quantbot/internal/strategy"
	"quantbot/internal/util"
)

func main() {
	gainers := flag.Bool("scg", false, "screen by 24h gain")
	volatile := flag.Bool("scv", false, "screen by intraday range")
	threshold := flag.Float64("threshold", 0, "screen threshold in percent (default from config)")
	limit := flag.Int("limit", 0, "maximum number of screened symbols (default from config)")
	symbols := flag.String("symbols", "", "comma-separated symbols to backtest instead of screening")
	fromStore := flag.Bool("from-store", false, "read bars from the local parquet cache instead of Alpaca")
	noSave := flag.Bool("no-save", false, "do not record the run in SQLite")
	flag.Parse()

	if *gainers && *volatile {
		log.Fatal("-scg and -scv are mutually exclusive")
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	switch {
	case *gainers:
		cfg.Backtest.Screen = string(ranker.ScreenGainers)
	case *volatile:
		cfg.Backtest.Screen = string(ranker.ScreenVolatile)
	}
	if *threshold > 0 {
		cfg.Backtest.Threshold = *threshold
	}
	if *limit > 0 {
		cfg.Backtest.Limit = *limit
	}

	logger := util.NewLoggerTo(os.Stderr, cfg.Logging.Level, "text")
	util.SetDefault(logger)

	mode, err := ranker.ParseScreenMode(cfg.Backtest.Screen)
	if err != nil {
		log.Fatalf("screen: %v", err)
	}

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
		tickers, err := alpaca.Tickers(ctx)
		if err != nil {
			log.Fatalf("fetching tickers: %v", err)
		}
		screened := ranker.Screen(tickers, mode, cfg.Backtest.Threshold, cfg.Backtest.Limit, cfg.Ranking.QuoteSuffix)
		slog.Info("screened universe", "mode", string(mode), "threshold", cfg.Backtest.Threshold,
			"tickers", len(tickers), "passed", len(screened))
		universe = ranker.Symbols(screened)
	}
	if len(universe) == 0 {
		fmt.Println("no symbols passed the screen")
		return
	}

	var bars feed.BarSource = alpaca
	if *fromStore {
		bars = feed.NewStoreSource(store.NewParquetStore(cfg.Storage.DataDir), store.MarketCrypto)
	}

	params := strategy.Params{ShortWindow: cfg.Strategy.ShortWindow, LongWindow: cfg.Strategy.LongWindow}
	bt := strategy.NewBacktester(bars, strategy.BacktestOptions{
		Params:    params,
		Timeframe: cfg.Backtest.Timeframe,
		BarLimit:  cfg.Backtest.BarLimit,
		Logger:    logger,
	})

	start := time.Now()
	results, err := bt.Run(ctx, universe)
	if err != nil {
		log.Fatalf("backtest: %v", err)
	}
	report.RenderBacktest(os.Stdout, results)
	slog.Info("backtest complete", "symbols", len(universe), "results", len(results),
		"elapsed", time.Since(start).Round(time.Millisecond).String())

	if *noSave {
		return
	}
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening run store: %v", err)
	}
	defer db.Close()

	run := &store.BacktestRun{
		StartedAt:   start,
		Screen:      string(mode),
		Threshold:   cfg.Backtest.Threshold,
		Timeframe:   cfg.Backtest.Timeframe,
		ShortWindow: cfg.Strategy.ShortWindow,
		LongWindow:  cfg.Strategy.LongWindow,
		Results:     results,
	}
	if err := db.SaveRun(ctx, run); err != nil {
		log.Fatalf("saving run: %v", err)
	}
	slog.Info("run saved", "id", run.ID, "path", cfg.Storage.SQLitePath)
}

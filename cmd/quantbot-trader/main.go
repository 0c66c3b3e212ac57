package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"quantbot/internal/api"
	"quantbot/internal/broker"
	"quantbot/internal/config"
	"quantbot/internal/domain"
	"quantbot/internal/engine"
	"quantbot/internal/feed"
	"quantbot/internal/ranker"
	"quantbot/internal/store"
	"quantbot/internal/strategy"
	"quantbot/internal/strategy/builtins"
	"quantbot/internal/util"
)

func main() {
	strategyName := flag.String("strategy", "", "strategy to trade: momentum or crossover (default from config)")
	sellMode := flag.String("sell-mode", "", "realtime or limit (default from config)")
	budget := flag.Float64("budget", 0, "total budget split across the ranked symbols (default from config)")
	top := flag.Int("top", 0, "number of ranked symbols to trade (default from config)")
	interval := flag.Duration("interval", -1, "time between passes; 0 runs a single pass (default from config)")
	noServer := flag.Bool("no-server", false, "do not start the status API")
	flag.Parse()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *strategyName != "" {
		cfg.Strategy.Name = *strategyName
	}
	if *sellMode != "" {
		cfg.Trading.SellMode = *sellMode
	}
	if *budget > 0 {
		cfg.Trading.Budget = *budget
	}
	if *top > 0 {
		cfg.Ranking.Top = *top
	}
	if *interval >= 0 {
		cfg.Trading.Interval = *interval
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := util.NewLoggerTo(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	mode, err := domain.ParseSellMode(cfg.Trading.SellMode)
	if err != nil {
		log.Fatalf("sell mode: %v", err)
	}
	params := strategy.Params{
		MomentumPeriod: cfg.Strategy.MomentumPeriod,
		ShortWindow:    cfg.Strategy.ShortWindow,
		LongWindow:     cfg.Strategy.LongWindow,
	}
	strat, err := builtins.NewRegistry(params).Lookup(cfg.Strategy.Name)
	if err != nil {
		log.Fatalf("strategy: %v", err)
	}

	alpaca := feed.NewAlpacaFeed(feed.AlpacaOptions{
		APIKey:            cfg.Alpaca.APIKey,
		APISecret:         cfg.Alpaca.APISecret,
		DataURL:           cfg.Alpaca.DataURL,
		BaseURL:           cfg.Alpaca.BaseURL,
		RequestsPerMinute: cfg.Alpaca.RateLimitPerMin,
		MaxRetries:        cfg.Alpaca.MaxRetries,
		Logger:            logger,
	})
	var bars feed.BarSource = alpaca
	if cfg.Trading.CacheBars {
		bars = feed.NewCaching(alpaca, store.NewParquetStore(cfg.Storage.DataDir), store.MarketCrypto, logger)
	}

	sim := broker.NewSimulator(broker.SimulatorOptions{
		TargetProfit: cfg.Trading.TargetProfit,
		StopLoss:     cfg.Trading.StopLoss,
		Precision:    cfg.Trading.PricePrecision,
		Logger:       logger,
	})
	positions := engine.NewPositionManager(engine.PositionOptions{
		Mode:        mode,
		Planner:     sim,
		ExitOnPrice: cfg.Trading.LimitExitOnPrice,
		Logger:      logger,
	})

	rk := ranker.New(bars, strat, ranker.Options{
		QuoteSuffix: cfg.Ranking.QuoteSuffix,
		Timeframe:   cfg.Trading.Timeframe,
		BarLimit:    cfg.Trading.BarLimit,
		Workers:     cfg.Ranking.Workers,
		Logger:      logger,
	})
	eng := engine.NewEngine(bars, strat, positions, sim, engine.Options{
		Timeframe: cfg.Trading.Timeframe,
		BarLimit:  cfg.Trading.BarLimit,
		Workers:   cfg.Trading.Workers,
		Logger:    logger,
	})

	status := api.NewServer(cfg.Server.Addr(), positions, sim, logger)
	trader := engine.NewTrader(alpaca, rk, eng, engine.TraderOptions{
		Top:         cfg.Ranking.Top,
		Budget:      cfg.Trading.Budget,
		OnRank:      status.SetRanking,
		OnDecisions: status.SetDecisions,
		Logger:      logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	slog.Info("starting quantbot-trader",
		"strategy", strat.Kind().String(),
		"sell_mode", string(mode),
		"budget", cfg.Trading.Budget,
		"top", cfg.Ranking.Top,
		"interval", cfg.Trading.Interval.String(),
	)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		// The API lives only as long as the trade loop.
		defer stop()
		return trader.Loop(gctx, cfg.Trading.Interval)
	})
	if !*noServer && cfg.Trading.Interval > 0 {
		g.Go(func() error {
			return status.ListenAndServe(gctx)
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("trader error: %v", err)
	}

	slog.Info("quantbot-trader stopped", "open_positions", positions.Len())
}

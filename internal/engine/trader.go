package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quantbot/internal/domain"
	"quantbot/internal/feed"
	"quantbot/internal/ranker"
	"quantbot/internal/util"
)

// TraderOptions configures a Trader.
type TraderOptions struct {
	Top    int
	Budget float64
	// OnRank, when set, receives every ranking before trading starts.
	OnRank func([]domain.SymbolScore)
	// OnDecisions, when set, receives the decisions of every pass.
	OnDecisions func([]domain.Decision)
	Logger      *slog.Logger
}

// Trader runs the full cycle: snapshot tickers, rank, then trade the top
// symbols.
type Trader struct {
	tickers feed.TickerSource
	ranker  *ranker.Ranker
	engine  *Engine
	opts    TraderOptions
	log     *slog.Logger
}

// NewTrader creates a Trader.
func NewTrader(tickers feed.TickerSource, r *ranker.Ranker, e *Engine, opts TraderOptions) *Trader {
	if opts.Top <= 0 {
		opts.Top = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Trader{
		tickers: tickers,
		ranker:  r,
		engine:  e,
		opts:    opts,
		log:     opts.Logger.With("component", "trader"),
	}
}

// RunOnce executes a single rank-and-trade pass. Held symbols are evaluated
// on every pass even when they drop out of the ranking.
func (t *Trader) RunOnce(ctx context.Context) ([]domain.Decision, error) {
	snap, err := t.tickers.Tickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching tickers: %w", err)
	}

	top, err := t.ranker.Rank(ctx, snap, t.opts.Top)
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	if t.opts.OnRank != nil {
		t.opts.OnRank(top)
	}
	if len(top) == 0 {
		t.log.Warn("no ranked symbols, checking held positions only", "open_positions", t.engine.Positions().Len())
	}

	decisions, err := t.engine.Run(ctx, ranker.Symbols(top), t.opts.Budget)
	if err != nil {
		return nil, err
	}
	if t.opts.OnDecisions != nil {
		t.opts.OnDecisions(decisions)
	}
	return decisions, nil
}

// Loop runs a pass on every interval boundary until ctx is cancelled. A
// non-positive interval runs a single pass. Failed passes are logged and the
// loop continues.
func (t *Trader) Loop(ctx context.Context, interval time.Duration) error {
	for {
		start := time.Now()
		if _, err := t.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if interval <= 0 {
				return err
			}
			t.log.Error("trade pass failed", "error", err)
		} else {
			t.log.Info("trade pass complete", "elapsed", time.Since(start).String(),
				"open_positions", t.engine.Positions().Len())
		}
		if interval <= 0 {
			return nil
		}

		if err := util.SleepUntil(ctx, util.NextTick(time.Now(), interval)); err != nil {
			return err
		}
	}
}

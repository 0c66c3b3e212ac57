// Package engine runs the trading decision loop: it evaluates each selected
// symbol with the active strategy, drives the position state machine and
// hands the resulting orders to a broker.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"quantbot/internal/broker"
	"quantbot/internal/domain"
	"quantbot/internal/feed"
	"quantbot/internal/metrics"
	"quantbot/internal/strategy"
)

// Options configures an Engine.
type Options struct {
	Timeframe string
	BarLimit  int
	// Workers > 1 evaluates symbols in parallel.
	Workers int
	Logger  *slog.Logger
}

// Engine evaluates symbols and applies the resulting decisions.
type Engine struct {
	source    feed.BarSource
	strat     strategy.Strategy
	positions *PositionManager
	broker    broker.Broker
	timeframe string
	limit     int
	workers   int
	log       *slog.Logger
	now       func() time.Time
}

// NewEngine creates a new Engine wired with the given dependencies.
func NewEngine(
	source feed.BarSource,
	strat strategy.Strategy,
	positions *PositionManager,
	b broker.Broker,
	opts Options,
) *Engine {
	if opts.Timeframe == "" {
		opts.Timeframe = "1Min"
	}
	if opts.BarLimit <= 0 {
		opts.BarLimit = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		source:    source,
		strat:     strat,
		positions: positions,
		broker:    b,
		timeframe: opts.Timeframe,
		limit:     opts.BarLimit,
		workers:   opts.Workers,
		log:       opts.Logger.With("component", "engine"),
		now:       time.Now,
	}
}

// Positions returns the engine's position manager.
func (e *Engine) Positions() *PositionManager {
	return e.positions
}

// Run executes one trade pass. Every held symbol is evaluated first, whether
// or not it appears in symbols, so open positions always get their Sell and
// exit checks. The remaining budget (budget minus the cost of positions still
// open) is then split equally across the symbols not held, which are
// evaluated for entries. Decisions for held symbols come first, then the
// others in input order; symbols without data are skipped. The only error
// returned is the context's.
func (e *Engine) Run(ctx context.Context, symbols []string, budget float64) ([]domain.Decision, error) {
	held := make(map[string]bool)
	var heldSymbols []string
	for _, p := range e.positions.List() {
		held[p.Symbol] = true
		heldSymbols = append(heldSymbols, p.Symbol)
	}

	exits, err := e.pass(ctx, heldSymbols, 0)
	if err != nil {
		return nil, err
	}

	var fresh []string
	seen := make(map[string]bool)
	for _, symbol := range symbols {
		if held[symbol] || seen[symbol] {
			continue
		}
		seen[symbol] = true
		fresh = append(fresh, symbol)
	}

	deployed := Deployed(e.positions.List())
	allocation := Allocation(budget-deployed, len(fresh))
	e.log.Info("trade pass", "held", len(heldSymbols), "candidates", len(fresh), "budget", budget,
		"deployed", deployed, "allocation", allocation,
		"strategy", e.strat.Kind().String(), "mode", e.positions.Mode())

	entries, err := e.pass(ctx, fresh, allocation)
	if err != nil {
		return nil, err
	}
	return append(exits, entries...), nil
}

// pass evaluates symbols with a shared allocation, keeping input order.
func (e *Engine) pass(ctx context.Context, symbols []string, allocation float64) ([]domain.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type slot struct {
		d  domain.Decision
		ok bool
	}
	slots := make([]slot, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, symbol := range symbols {
		g.Go(func() error {
			d, ok, err := e.step(gctx, symbol, allocation)
			if err != nil {
				return err
			}
			slots[i] = slot{d: d, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	decisions := make([]domain.Decision, 0, len(symbols))
	for _, s := range slots {
		if s.ok {
			decisions = append(decisions, s.d)
		}
	}
	return decisions, nil
}

// step evaluates one symbol. ok is false when the symbol was skipped.
func (e *Engine) step(ctx context.Context, symbol string, allocation float64) (domain.Decision, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Decision{}, false, err
	}

	bars, err := e.source.Bars(ctx, symbol, e.timeframe, e.limit)
	if err != nil || len(bars) == 0 {
		if isCtxErr(err) {
			return domain.Decision{}, false, err
		}
		metrics.SymbolFailuresTotal.WithLabelValues(metrics.StageTrade).Inc()
		e.log.Warn("no data, skipping", "symbol", symbol, "error", err)
		return domain.Decision{}, false, nil
	}
	price := bars[len(bars)-1].Close

	// Exit orders were placed at entry, so a level hit needs no new order.
	if tr, pos := e.positions.CheckExit(symbol, price); tr == domain.TransitionClosed {
		d := e.decision(domain.Signal{Symbol: symbol, Action: domain.ActionSell}, tr, price)
		e.log.Info("position exited at level", "symbol", symbol, "entry", pos.EntryPrice, "price", price)
		return d, true, nil
	}

	sig := e.strat.Evaluate(symbol, bars)
	tr, pos := e.positions.Apply(sig, price, allocation)

	tr, err = e.place(ctx, tr, pos, price)
	if err != nil {
		if isCtxErr(err) {
			return domain.Decision{}, false, err
		}
		metrics.SymbolFailuresTotal.WithLabelValues(metrics.StageTrade).Inc()
		e.log.Error("order placement failed", "symbol", symbol, "transition", tr, "error", err)
	}

	return e.decision(sig, tr, price), true, nil
}

// place hands the orders implied by a transition to the broker. When the
// market order itself fails the transition is undone and TransitionNone is
// returned, so the table never holds a position the broker did not fill.
// A failed exit placement keeps the position; its levels are already stored.
func (e *Engine) place(ctx context.Context, tr domain.Transition, pos domain.Position, price float64) (domain.Transition, error) {
	switch tr {
	case domain.TransitionOpened:
		if _, err := e.broker.MarketBuy(ctx, pos.Symbol, price, pos.Qty); err != nil {
			e.positions.Close(pos.Symbol)
			return domain.TransitionNone, fmt.Errorf("market buy: %w", err)
		}
		if e.positions.Mode() == domain.SellModeLimit {
			if _, err := e.broker.PlaceExit(ctx, pos); err != nil {
				return tr, fmt.Errorf("placing exit: %w", err)
			}
		}
	case domain.TransitionClosed:
		if _, err := e.broker.MarketSell(ctx, pos.Symbol, price, pos.Qty); err != nil {
			if oerr := e.positions.Open(pos.Symbol, pos); oerr != nil {
				e.log.Error("restoring position after failed sell", "symbol", pos.Symbol, "error", oerr)
			}
			return domain.TransitionNone, fmt.Errorf("market sell: %w", err)
		}
	}
	return tr, nil
}

func (e *Engine) decision(sig domain.Signal, tr domain.Transition, price float64) domain.Decision {
	metrics.DecisionsTotal.WithLabelValues(string(sig.Action), string(tr)).Inc()
	e.log.Info("decision", "symbol", sig.Symbol, "action", sig.Action, "score", sig.Score, "transition", tr)
	return domain.Decision{
		Symbol:     sig.Symbol,
		Action:     sig.Action,
		Score:      sig.Score,
		Transition: tr,
		Price:      price,
		Time:       e.now(),
	}
}

func isCtxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

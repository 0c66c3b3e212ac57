package strategy

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"quantbot/internal/domain"
	"quantbot/internal/feed"
	"quantbot/internal/metrics"
)

// MinBacktestBars is the shortest series TotalReturn will replay.
const MinBacktestBars = 30

// TotalReturn replays the crossover strategy over bars and returns the
// compounded return as a fraction. The signal computed on bar t-1 sets the
// exposure for bar t, so a bar's own close never decides its own entry.
// Series shorter than MinBacktestBars return 0.
func TotalReturn(bars []domain.Bar, short, long int) float64 {
	return replay(bars, short, long).total
}

type replayResult struct {
	total       float64
	maxDrawdown float64
	exposures   int
}

func replay(bars []domain.Bar, short, long int) replayResult {
	if len(bars) < MinBacktestBars {
		return replayResult{}
	}

	signals := CrossoverSeries(bars, short, long)
	equity, peak := 1.0, 1.0
	var res replayResult

	for t := 1; t < len(bars); t++ {
		pos := signals[t-1]
		if pos == 0 {
			continue
		}
		res.exposures++

		equity *= 1 + float64(pos)*barReturn(bars[t-1].Close, bars[t].Close)
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > res.maxDrawdown {
			res.maxDrawdown = dd
		}
	}
	res.total = equity - 1
	return res
}

// barReturn is the fractional change from prev to cur; a zero previous close
// contributes nothing.
func barReturn(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return cur/prev - 1
}

// Evaluate builds a full BacktestResult for one symbol.
func Evaluate(symbol string, bars []domain.Bar, short, long int) domain.BacktestResult {
	r := replay(bars, short, long)
	return domain.BacktestResult{
		Symbol:      symbol,
		TotalReturn: r.total,
		MaxDrawdown: r.maxDrawdown,
		Exposures:   r.exposures,
		Bars:        len(bars),
	}
}

// SortResults orders results by total return, highest first. Ties keep
// their input order.
func SortResults(results []domain.BacktestResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalReturn > results[j].TotalReturn
	})
}

// Backtester replays historical bars through the crossover strategy for a
// list of symbols.
type Backtester struct {
	source    feed.BarSource
	params    Params
	timeframe string
	limit     int
	log       *slog.Logger
}

// BacktestOptions configures a Backtester.
type BacktestOptions struct {
	Params    Params
	Timeframe string
	BarLimit  int
	Logger    *slog.Logger
}

// NewBacktester creates a Backtester that reads bars from source.
func NewBacktester(source feed.BarSource, opts BacktestOptions) *Backtester {
	if opts.Timeframe == "" {
		opts.Timeframe = "1Hour"
	}
	if opts.BarLimit <= 0 {
		opts.BarLimit = 1000
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Backtester{
		source:    source,
		params:    opts.Params.WithDefaults(),
		timeframe: opts.Timeframe,
		limit:     opts.BarLimit,
		log:       opts.Logger.With("component", "backtest"),
	}
}

// Run backtests each symbol and returns the results sorted by total return,
// highest first. Symbols whose bars cannot be fetched are logged and left
// out. The only error returned is the context's.
func (bt *Backtester) Run(ctx context.Context, symbols []string) ([]domain.BacktestResult, error) {
	bt.log.Info("backtesting", "symbols", len(symbols), "timeframe", bt.timeframe)

	results := make([]domain.BacktestResult, 0, len(symbols))
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, err := bt.source.Bars(ctx, symbol, bt.timeframe, bt.limit)
		if err != nil || len(bars) == 0 {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			metrics.SymbolFailuresTotal.WithLabelValues(metrics.StageBacktest).Inc()
			bt.log.Warn("no data, skipping", "symbol", symbol, "error", err)
			continue
		}

		res := Evaluate(symbol, bars, bt.params.ShortWindow, bt.params.LongWindow)
		bt.log.Info("backtest result", "symbol", symbol, "total_return", res.TotalReturn, "bars", res.Bars)
		results = append(results, res)
	}

	SortResults(results)
	return results, nil
}

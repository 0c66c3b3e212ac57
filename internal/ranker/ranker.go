// Package ranker scores a universe of symbols with a strategy and selects the
// best candidates.
package ranker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"quantbot/internal/domain"
	"quantbot/internal/feed"
	"quantbot/internal/metrics"
	"quantbot/internal/strategy"
)

// DefaultQuoteSuffix is the quote currency a symbol must end with to be
// ranked.
const DefaultQuoteSuffix = "/USD"

// Options configures a Ranker.
type Options struct {
	QuoteSuffix string
	Timeframe   string
	BarLimit    int
	Workers     int
	Logger      *slog.Logger
}

// Ranker scores symbols through a Strategy and keeps the top K.
type Ranker struct {
	source      feed.BarSource
	strat       strategy.Strategy
	quoteSuffix string
	timeframe   string
	limit       int
	workers     int
	log         *slog.Logger
}

// New creates a Ranker reading bars from source.
func New(source feed.BarSource, strat strategy.Strategy, opts Options) *Ranker {
	if opts.QuoteSuffix == "" {
		opts.QuoteSuffix = DefaultQuoteSuffix
	}
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
	return &Ranker{
		source:      source,
		strat:       strat,
		quoteSuffix: opts.QuoteSuffix,
		timeframe:   opts.Timeframe,
		limit:       opts.BarLimit,
		workers:     opts.Workers,
		log:         opts.Logger.With("component", "ranker"),
	}
}

// Strategy returns the strategy the ranker scores with.
func (r *Ranker) Strategy() strategy.Strategy {
	return r.strat
}

// slot holds one symbol's outcome. Slots are indexed by encounter order so
// parallel scoring keeps a deterministic candidate order.
type slot struct {
	score domain.SymbolScore
	ok    bool
}

// Rank scores every ticker whose symbol carries the quote suffix and returns
// at most k of them, best first. Symbols that fail to fetch or score are
// dropped. An empty universe yields an empty, non-nil result. The only error
// returned is the context's.
func (r *Ranker) Rank(ctx context.Context, tickers map[string]domain.Ticker, k int) ([]domain.SymbolScore, error) {
	symbols := FilterQuote(tickers, r.quoteSuffix)
	if len(symbols) == 0 || k <= 0 {
		r.log.Info("nothing to rank", "tickers", len(tickers), "k", k)
		return []domain.SymbolScore{}, nil
	}

	slots := make([]slot, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, symbol := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score, err := r.score(gctx, symbol)
			if err != nil {
				if isCtxErr(err) {
					return err
				}
				metrics.SymbolFailuresTotal.WithLabelValues(metrics.StageRank).Inc()
				r.log.Warn("error scoring symbol", "symbol", symbol, "error", err)
				return nil
			}
			slots[i] = slot{score: domain.SymbolScore{Symbol: symbol, Score: score}, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]domain.SymbolScore, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			candidates = append(candidates, s.score)
		}
	}

	top := TopK(candidates, k)
	r.log.Info("ranked symbols", "universe", len(symbols), "scored", len(candidates), "selected", len(top))
	return top, nil
}

func (r *Ranker) score(ctx context.Context, symbol string) (score float64, err error) {
	bars, err := r.source.Bars(ctx, symbol, r.timeframe, r.limit)
	if err != nil {
		return 0, fmt.Errorf("fetching bars: %w", err)
	}
	if len(bars) == 0 {
		return 0, feed.ErrNoData
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("strategy %s panicked: %v", r.strat.Kind(), p)
		}
	}()
	sig := r.strat.Evaluate(symbol, bars)
	return r.strat.RankScore(sig), nil
}

// FilterQuote returns the symbols of tickers ending in suffix, in lexical
// order.
func FilterQuote(tickers map[string]domain.Ticker, suffix string) []string {
	symbols := make([]string, 0, len(tickers))
	for symbol := range tickers {
		if strings.HasSuffix(symbol, suffix) {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

// TopK sorts scores descending, keeping the input order of ties, and returns
// the first k. The input slice is reordered in place.
func TopK(scores []domain.SymbolScore, k int) []domain.SymbolScore {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	if k < 0 {
		k = 0
	}
	if len(scores) > k {
		scores = scores[:k]
	}
	return scores
}

func isCtxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

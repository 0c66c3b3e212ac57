package ranker

import (
	"context"
	"errors"
	"testing"
	"time"

	"quantbot/internal/domain"
	"quantbot/internal/feed"
	"quantbot/internal/strategy"
	"quantbot/internal/strategy/builtins"
)

// lastCloseStrategy scores a series by its last close and panics on a
// negative close.
type lastCloseStrategy struct{}

var _ strategy.Strategy = lastCloseStrategy{}

func (lastCloseStrategy) Kind() strategy.Kind { return strategy.KindMomentum }
func (lastCloseStrategy) Evaluate(symbol string, bars []domain.Bar) domain.Signal {
	c := bars[len(bars)-1].Close
	if c < -100 {
		panic("bad close")
	}
	return domain.Signal{Symbol: symbol, Action: domain.ActionHold, Score: c}
}
func (lastCloseStrategy) RankScore(sig domain.Signal) float64 { return sig.Score }

func seriesSource(closes map[string]float64, fail ...string) feed.BarSource {
	failing := map[string]bool{}
	for _, s := range fail {
		failing[s] = true
	}
	return feed.BarSourceFunc(func(_ context.Context, symbol, _ string, _ int) ([]domain.Bar, error) {
		if failing[symbol] {
			return nil, errors.New("exchange unavailable")
		}
		c, ok := closes[symbol]
		if !ok {
			return nil, nil
		}
		return []domain.Bar{{Symbol: symbol, Timestamp: time.Unix(0, 0), Close: c}}, nil
	})
}

func tickersFor(symbols ...string) map[string]domain.Ticker {
	out := make(map[string]domain.Ticker, len(symbols))
	for _, s := range symbols {
		out[s] = domain.Ticker{Symbol: s}
	}
	return out
}

func TestRankTopK(t *testing.T) {
	src := seriesSource(map[string]float64{"A/USD": 5, "B/USD": -2, "C/USD": 8})
	for _, workers := range []int{1, 4} {
		r := New(src, lastCloseStrategy{}, Options{Workers: workers})
		got, err := r.Rank(context.Background(), tickersFor("A/USD", "B/USD", "C/USD"), 2)
		if err != nil {
			t.Fatalf("Rank returned error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("workers=%d: Rank returned %d scores, want 2", workers, len(got))
		}
		if got[0] != (domain.SymbolScore{Symbol: "C/USD", Score: 8}) || got[1] != (domain.SymbolScore{Symbol: "A/USD", Score: 5}) {
			t.Errorf("workers=%d: Rank = %+v, want [C/USD:8 A/USD:5]", workers, got)
		}
	}
}

func TestRankFewerThanK(t *testing.T) {
	src := seriesSource(map[string]float64{"A/USD": 1, "B/USD": 2})
	got, err := New(src, lastCloseStrategy{}, Options{}).Rank(context.Background(), tickersFor("A/USD", "B/USD"), 5)
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	if len(got) != 2 || got[0].Symbol != "B/USD" {
		t.Errorf("Rank = %+v, want [B/USD A/USD]", got)
	}
}

func TestRankEmptyUniverse(t *testing.T) {
	r := New(seriesSource(nil), lastCloseStrategy{}, Options{})
	got, err := r.Rank(context.Background(), nil, 5)
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Rank(empty) = %#v, want empty non-nil slice", got)
	}
}

func TestRankFiltersQuoteSuffix(t *testing.T) {
	src := seriesSource(map[string]float64{"BTC/USD": 1, "BTC/USDT": 100, "ETH/BTC": 50})
	got, err := New(src, lastCloseStrategy{}, Options{}).Rank(context.Background(), tickersFor("BTC/USD", "BTC/USDT", "ETH/BTC"), 5)
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "BTC/USD" {
		t.Errorf("Rank = %+v, want only BTC/USD", got)
	}

	got, _ = New(src, lastCloseStrategy{}, Options{QuoteSuffix: "/USDT"}).Rank(context.Background(), tickersFor("BTC/USD", "BTC/USDT"), 5)
	if len(got) != 1 || got[0].Symbol != "BTC/USDT" {
		t.Errorf("Rank with /USDT suffix = %+v, want only BTC/USDT", got)
	}
}

func TestRankIsolatesFailures(t *testing.T) {
	// NOBARS/USD has no series at all; DOWN/USD fails to fetch.
	src := seriesSource(map[string]float64{"A/USD": 3, "PANIC/USD": -1000}, "DOWN/USD")
	got, err := New(src, lastCloseStrategy{}, Options{Workers: 2}).Rank(context.Background(),
		tickersFor("A/USD", "PANIC/USD", "DOWN/USD", "NOBARS/USD"), 5)
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "A/USD" {
		t.Errorf("Rank = %+v, want only A/USD", got)
	}
}

func TestRankStableTies(t *testing.T) {
	src := seriesSource(map[string]float64{"C/USD": 1, "A/USD": 1, "B/USD": 1})
	got, err := New(src, lastCloseStrategy{}, Options{Workers: 3}).Rank(context.Background(), tickersFor("C/USD", "A/USD", "B/USD"), 3)
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	want := []string{"A/USD", "B/USD", "C/USD"}
	for i, w := range want {
		if got[i].Symbol != w {
			t.Errorf("got[%d] = %s, want %s (lexical encounter order)", i, got[i].Symbol, w)
		}
	}
}

func TestRankCrossoverScores(t *testing.T) {
	rising := make([]domain.Bar, 40)
	flat := make([]domain.Bar, 40)
	for i := range rising {
		rising[i] = domain.Bar{Close: float64(i + 1)}
		flat[i] = domain.Bar{Close: 10}
	}
	src := feed.BarSourceFunc(func(_ context.Context, symbol, _ string, _ int) ([]domain.Bar, error) {
		if symbol == "UP/USD" {
			return rising, nil
		}
		return flat, nil
	})

	r := New(src, builtins.NewSMACross(10, 30), Options{})
	got, err := r.Rank(context.Background(), tickersFor("FLAT/USD", "UP/USD"), 2)
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	if got[0] != (domain.SymbolScore{Symbol: "UP/USD", Score: 1}) {
		t.Errorf("got[0] = %+v, want UP/USD:1", got[0])
	}
	// Hold ranks as -1.
	if got[1] != (domain.SymbolScore{Symbol: "FLAT/USD", Score: -1}) {
		t.Errorf("got[1] = %+v, want FLAT/USD:-1", got[1])
	}
}

func TestRankCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := seriesSource(map[string]float64{"A/USD": 1})
	if _, err := New(src, lastCloseStrategy{}, Options{}).Rank(ctx, tickersFor("A/USD"), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Rank error = %v, want context.Canceled", err)
	}
}

func TestTopK(t *testing.T) {
	scores := []domain.SymbolScore{{Symbol: "A", Score: 5}, {Symbol: "B", Score: -2}, {Symbol: "C", Score: 8}}
	got := TopK(scores, 2)
	if len(got) != 2 || got[0].Symbol != "C" || got[1].Symbol != "A" {
		t.Errorf("TopK = %+v, want [C A]", got)
	}
	if got := TopK([]domain.SymbolScore{{Symbol: "A", Score: 1}}, 0); len(got) != 0 {
		t.Errorf("TopK(k=0) = %+v, want empty", got)
	}
}

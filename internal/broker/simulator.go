package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quantbot/internal/domain"
	"quantbot/internal/metrics"
)

// Default exit parameters, as fractions of the entry price.
const (
	DefaultTargetProfit = 0.05
	DefaultStopLoss     = 0.02
	DefaultPrecision    = 12
)

// Compile-time interface check.
var _ Broker = (*Simulator)(nil)

// SimulatorOptions configures a Simulator. Zero fields take the defaults.
type SimulatorOptions struct {
	TargetProfit float64
	StopLoss     float64
	// Precision is the number of significant digits exit prices keep.
	Precision int32
	Logger    *slog.Logger
}

// Simulator implements Broker by logging intents and keeping them in an
// in-memory journal.
type Simulator struct {
	tp        decimal.Decimal
	sl        decimal.Decimal
	precision int32
	log       *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	journal Journal
}

// NewSimulator creates a Simulator with the given options.
func NewSimulator(opts SimulatorOptions) *Simulator {
	if opts.TargetProfit <= 0 {
		opts.TargetProfit = DefaultTargetProfit
	}
	if opts.StopLoss <= 0 {
		opts.StopLoss = DefaultStopLoss
	}
	if opts.Precision <= 0 {
		opts.Precision = DefaultPrecision
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Simulator{
		tp:        decimal.NewFromFloat(opts.TargetProfit),
		sl:        decimal.NewFromFloat(opts.StopLoss),
		precision: opts.Precision,
		log:       opts.Logger.With("component", "simulator"),
		now:       time.Now,
	}
}

// Name returns "simulator".
func (s *Simulator) Name() string {
	return "simulator"
}

// MarketBuy records a simulated market buy.
func (s *Simulator) MarketBuy(ctx context.Context, symbol string, price, qty float64) (domain.OrderIntent, error) {
	return s.market(ctx, domain.OrderSideBuy, symbol, price, qty)
}

// MarketSell records a simulated market sell.
func (s *Simulator) MarketSell(ctx context.Context, symbol string, price, qty float64) (domain.OrderIntent, error) {
	return s.market(ctx, domain.OrderSideSell, symbol, price, qty)
}

func (s *Simulator) market(ctx context.Context, side domain.OrderSide, symbol string, price, qty float64) (domain.OrderIntent, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderIntent{}, err
	}
	if qty <= 0 {
		return domain.OrderIntent{}, fmt.Errorf("%s %s: non-positive quantity %v", side, symbol, qty)
	}

	intent := domain.OrderIntent{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		Price:     price,
		Qty:       qty,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.journal.Orders = append(s.journal.Orders, intent)
	s.mu.Unlock()

	metrics.IntentsTotal.WithLabelValues("market", string(side)).Inc()
	s.log.Info("simulated market order", "id", intent.ID, "side", side, "symbol", symbol, "price", price, "qty", qty)
	return intent, nil
}

// ExitLevels returns entry*(1+tp) and entry*(1-sl), rounded to the configured
// number of significant digits so sub-cent coins keep their scale.
func (s *Simulator) ExitLevels(entry float64) (target, stop float64) {
	e := decimal.NewFromFloat(entry)
	one := decimal.NewFromInt(1)
	target = roundSignificant(e.Mul(one.Add(s.tp)), s.precision).InexactFloat64()
	stop = roundSignificant(e.Mul(one.Sub(s.sl)), s.precision).InexactFloat64()
	return target, stop
}

// roundSignificant rounds d to digits significant digits.
func roundSignificant(d decimal.Decimal, digits int32) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	// d = coefficient * 10^exponent; its leading digit sits at
	// NumDigits()+Exponent()-1.
	places := digits - int32(d.NumDigits()) - d.Exponent()
	return d.Round(places)
}

// PlaceExit records take-profit and stop-loss levels for pos. Levels already
// set on pos are kept; missing ones are derived from the entry price.
func (s *Simulator) PlaceExit(ctx context.Context, pos domain.Position) (domain.ExitIntent, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExitIntent{}, err
	}
	if pos.EntryPrice <= 0 || pos.Qty <= 0 {
		return domain.ExitIntent{}, fmt.Errorf("exit for %s: invalid position (entry %v, qty %v)", pos.Symbol, pos.EntryPrice, pos.Qty)
	}

	target, stop := pos.TargetPrice, pos.StopPrice
	if !pos.HasExitLevels() {
		target, stop = s.ExitLevels(pos.EntryPrice)
	}

	intent := domain.ExitIntent{
		ID:          uuid.NewString(),
		Symbol:      pos.Symbol,
		TargetPrice: target,
		StopPrice:   stop,
		Qty:         pos.Qty,
		CreatedAt:   s.now(),
	}

	s.mu.Lock()
	s.journal.Exits = append(s.journal.Exits, intent)
	s.mu.Unlock()

	metrics.IntentsTotal.WithLabelValues("exit", string(domain.OrderSideSell)).Inc()
	s.log.Info("simulated exit orders", "id", intent.ID, "symbol", pos.Symbol,
		"target", target, "stop", stop, "qty", pos.Qty)
	return intent, nil
}

// Intents returns a copy of the journal.
func (s *Simulator) Intents() Journal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Journal{
		Orders: append([]domain.OrderIntent(nil), s.journal.Orders...),
		Exits:  append([]domain.ExitIntent(nil), s.journal.Exits...),
	}
}

// Reset clears the journal.
func (s *Simulator) Reset() {
	s.mu.Lock()
	s.journal = Journal{}
	s.mu.Unlock()
}

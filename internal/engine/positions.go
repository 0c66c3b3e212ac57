package engine

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"quantbot/internal/domain"
	"quantbot/internal/metrics"
)

// ErrPositionExists is returned by Open when the symbol already has an open
// position.
var ErrPositionExists = errors.New("position already open")

// ExitPlanner computes take-profit and stop-loss levels for an entry price.
type ExitPlanner interface {
	ExitLevels(entry float64) (target, stop float64)
}

// PositionOptions configures a PositionManager.
type PositionOptions struct {
	Mode domain.SellMode
	// Planner sets exit levels on positions opened in limit mode. Nil leaves
	// them unset.
	Planner ExitPlanner
	// ExitOnPrice enables CheckExit. When false, limit-mode positions stay
	// open until the process exits.
	ExitOnPrice bool
	Logger      *slog.Logger
}

// PositionManager owns the table of open positions and runs the per-symbol
// state machine. It is the only writer of the table. Transitions for the
// same symbol are serialized; different symbols never block each other
// beyond the brief table lock.
type PositionManager struct {
	mode        domain.SellMode
	planner     ExitPlanner
	exitOnPrice bool
	log         *slog.Logger
	now         func() time.Time

	mu    sync.RWMutex
	table map[string]domain.Position

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewPositionManager creates an empty PositionManager. An empty mode means
// realtime.
func NewPositionManager(opts PositionOptions) *PositionManager {
	if opts.Mode == "" {
		opts.Mode = domain.SellModeRealtime
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &PositionManager{
		mode:        opts.Mode,
		planner:     opts.Planner,
		exitOnPrice: opts.ExitOnPrice,
		log:         opts.Logger.With("component", "positions"),
		now:         time.Now,
		table:       make(map[string]domain.Position),
		locks:       make(map[string]*sync.Mutex),
	}
}

// Mode returns the sell mode positions are managed under.
func (pm *PositionManager) Mode() domain.SellMode {
	return pm.mode
}

// symbolLock returns the mutex serializing transitions for symbol.
func (pm *PositionManager) symbolLock(symbol string) *sync.Mutex {
	pm.locksMu.Lock()
	defer pm.locksMu.Unlock()
	l, ok := pm.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		pm.locks[symbol] = l
	}
	return l
}

// ---------------------------------------------------------------------------
// Table access
// ---------------------------------------------------------------------------

// Open records pos as the open position for symbol.
func (pm *PositionManager) Open(symbol string, pos domain.Position) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if _, ok := pm.table[symbol]; ok {
		return ErrPositionExists
	}
	pos.Symbol = symbol
	pm.table[symbol] = pos
	metrics.OpenPositions.Set(float64(len(pm.table)))
	return nil
}

// Close removes and returns the open position for symbol.
func (pm *PositionManager) Close(symbol string) (domain.Position, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pos, ok := pm.table[symbol]
	if ok {
		delete(pm.table, symbol)
		metrics.OpenPositions.Set(float64(len(pm.table)))
	}
	return pos, ok
}

// Get returns the open position for symbol, if any.
func (pm *PositionManager) Get(symbol string) (domain.Position, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	pos, ok := pm.table[symbol]
	return pos, ok
}

// List returns a copy of all open positions ordered by symbol.
func (pm *PositionManager) List() []domain.Position {
	pm.mu.RLock()
	out := make([]domain.Position, 0, len(pm.table))
	for _, p := range pm.table {
		out = append(out, p)
	}
	pm.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Len returns the number of open positions.
func (pm *PositionManager) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.table)
}

// ---------------------------------------------------------------------------
// State machine
// ---------------------------------------------------------------------------

// Apply runs one decision through the state machine for sig.Symbol at the
// given price. It returns the transition taken and the position that was
// opened or closed (zero for TransitionNone).
//
//	no position + Buy              -> open, qty = allocation/price
//	open + Sell (realtime mode)    -> close
//	anything else                  -> no-op
//
// A non-positive price or allocation cannot size a position and is a no-op.
func (pm *PositionManager) Apply(sig domain.Signal, price, allocation float64) (domain.Transition, domain.Position) {
	l := pm.symbolLock(sig.Symbol)
	l.Lock()
	defer l.Unlock()

	current, open := pm.Get(sig.Symbol)

	switch {
	case !open && sig.Action == domain.ActionBuy:
		if price <= 0 || allocation <= 0 {
			pm.log.Warn("cannot size position", "symbol", sig.Symbol, "price", price, "allocation", allocation)
			return domain.TransitionNone, domain.Position{}
		}
		pos := domain.Position{
			Symbol:     sig.Symbol,
			EntryPrice: price,
			Qty:        allocation / price,
			EntryTime:  pm.now(),
		}
		if pm.mode == domain.SellModeLimit && pm.planner != nil {
			pos.TargetPrice, pos.StopPrice = pm.planner.ExitLevels(price)
		}
		if err := pm.Open(sig.Symbol, pos); err != nil {
			// Open was called directly for this symbol outside Apply.
			return domain.TransitionNone, domain.Position{}
		}
		pm.log.Info("opened position", "symbol", sig.Symbol, "entry", price, "qty", pos.Qty, "mode", pm.mode)
		return domain.TransitionOpened, pos

	case open && sig.Action == domain.ActionSell && pm.mode == domain.SellModeRealtime:
		pos, _ := pm.Close(sig.Symbol)
		pm.log.Info("closed position", "symbol", sig.Symbol, "entry", current.EntryPrice, "exit", price)
		return domain.TransitionClosed, pos

	case open && sig.Action == domain.ActionSell:
		pm.log.Debug("sell ignored in limit mode", "symbol", sig.Symbol,
			"target", current.TargetPrice, "stop", current.StopPrice)
	}
	return domain.TransitionNone, domain.Position{}
}

// CheckExit closes a limit-mode position whose price has reached its target
// or fallen to its stop. It is a no-op unless ExitOnPrice was set.
func (pm *PositionManager) CheckExit(symbol string, price float64) (domain.Transition, domain.Position) {
	if !pm.exitOnPrice || price <= 0 {
		return domain.TransitionNone, domain.Position{}
	}

	l := pm.symbolLock(symbol)
	l.Lock()
	defer l.Unlock()

	current, open := pm.Get(symbol)
	if !open || !current.HasExitLevels() {
		return domain.TransitionNone, domain.Position{}
	}

	hitTarget := current.TargetPrice > 0 && price >= current.TargetPrice
	hitStop := current.StopPrice > 0 && price <= current.StopPrice
	if !hitTarget && !hitStop {
		return domain.TransitionNone, domain.Position{}
	}

	pos, _ := pm.Close(symbol)
	pm.log.Info("exit level reached", "symbol", symbol, "price", price,
		"target", current.TargetPrice, "stop", current.StopPrice, "take_profit", hitTarget)
	return domain.TransitionClosed, pos
}

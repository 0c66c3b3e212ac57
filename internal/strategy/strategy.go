// Package strategy defines the Strategy interface for the signal engine, the
// closed set of strategy kinds, and a Registry keyed by kind. The indicator
// functions in this package are pure so the live loop and the backtester share
// them.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"quantbot/internal/domain"
)

// Kind identifies one of the built-in strategy variants.
type Kind int

const (
	KindMomentum Kind = iota + 1
	KindCrossover
)

// Kinds lists every strategy variant in declaration order.
var Kinds = []Kind{KindMomentum, KindCrossover}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMomentum:
		return "momentum"
	case KindCrossover:
		return "crossover"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a configuration name into a Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(strings.TrimSpace(name), k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}

// Params groups the tunable windows for the built-in strategies.
type Params struct {
	MomentumPeriod int
	ShortWindow    int
	LongWindow     int
}

// WithDefaults fills zero fields with the default windows.
func (p Params) WithDefaults() Params {
	if p.MomentumPeriod <= 0 {
		p.MomentumPeriod = DefaultMomentumPeriod
	}
	if p.ShortWindow <= 0 {
		p.ShortWindow = DefaultShortWindow
	}
	if p.LongWindow <= 0 {
		p.LongWindow = DefaultLongWindow
	}
	return p
}

// Strategy is the interface that all signal strategies implement.
type Strategy interface {
	// Kind returns the variant this strategy implements.
	Kind() Kind

	// Evaluate turns a bar series into a decision. It must not fail: empty or
	// short series produce a Hold signal with a neutral score.
	Evaluate(symbol string, bars []domain.Bar) domain.Signal

	// RankScore maps a signal to the score used for cross-sectional ranking.
	RankScore(sig domain.Signal) float64
}

// Registry holds strategies keyed by kind.
type Registry struct {
	strategies map[Kind]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[Kind]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Kind().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Kind()] = s
}

// Get retrieves a strategy by kind. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(k Kind) (Strategy, bool) {
	s, ok := r.strategies[k]
	return s, ok
}

// Lookup resolves a configuration name to a registered strategy.
func (r *Registry) Lookup(name string) (Strategy, error) {
	k, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	s, ok := r.Get(k)
	if !ok {
		return nil, fmt.Errorf("strategy %s not registered", k)
	}
	return s, nil
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for k := range r.strategies {
		names = append(names, k.String())
	}
	sort.Strings(names)
	return names
}

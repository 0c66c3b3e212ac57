package builtins

import (
	"fmt"

	"quantbot/internal/strategy"
)

// New builds the strategy for kind using params, with defaults applied.
func New(kind strategy.Kind, params strategy.Params) (strategy.Strategy, error) {
	p := params.WithDefaults()
	switch kind {
	case strategy.KindMomentum:
		return NewMomentum(p.MomentumPeriod), nil
	case strategy.KindCrossover:
		return NewSMACross(p.ShortWindow, p.LongWindow), nil
	default:
		return nil, fmt.Errorf("no built-in strategy for %s", kind)
	}
}

// NewRegistry returns a registry holding every built-in strategy.
func NewRegistry(params strategy.Params) *strategy.Registry {
	r := strategy.NewRegistry()
	for _, k := range strategy.Kinds {
		s, err := New(k, params)
		if err != nil {
			// Kinds and New are kept in lockstep.
			panic(err)
		}
		r.Register(s)
	}
	return r
}

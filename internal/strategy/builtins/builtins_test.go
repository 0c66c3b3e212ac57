package builtins

import (
	"testing"
	"time"

	"quantbot/internal/domain"
	"quantbot/internal/strategy"
)

func bars(closes ...float64) []domain.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Bar, len(closes))
	for i, c := range closes {
		out[i] = domain.Bar{Symbol: "SOL/USD", Timestamp: start.Add(time.Duration(i) * time.Hour), Close: c}
	}
	return out
}

func ramp(n int, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)*step
	}
	return out
}

func TestMomentumEvaluate(t *testing.T) {
	m := NewMomentum(14)

	tests := []struct {
		name      string
		closes    []float64
		wantScore float64
		want      domain.Action
	}{
		{"insufficient", ramp(10, 1), 0, domain.ActionHold},
		{"rising", ramp(20, 1), 14, domain.ActionBuy},
		{"falling", ramp(20, -1), -14, domain.ActionSell},
		{"flat", ramp(20, 0), 0, domain.ActionHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := m.Evaluate("SOL/USD", bars(tt.closes...))
			if sig.Action != tt.want {
				t.Errorf("Action = %v, want %v", sig.Action, tt.want)
			}
			if sig.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v", sig.Score, tt.wantScore)
			}
			if m.RankScore(sig) != tt.wantScore {
				t.Errorf("RankScore = %v, want raw score %v", m.RankScore(sig), tt.wantScore)
			}
			if sig.Symbol != "SOL/USD" {
				t.Errorf("Symbol = %q", sig.Symbol)
			}
		})
	}
}

func TestSMACrossEvaluate(t *testing.T) {
	s := NewSMACross(10, 30)

	tests := []struct {
		name     string
		closes   []float64
		want     domain.Action
		wantRank float64
	}{
		{"empty", nil, domain.ActionHold, -1},
		{"flat", ramp(40, 0), domain.ActionHold, -1},
		{"rising", ramp(40, 1), domain.ActionBuy, 1},
		{"falling", ramp(40, -1), domain.ActionSell, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := s.Evaluate("SOL/USD", bars(tt.closes...))
			if sig.Action != tt.want {
				t.Errorf("Action = %v, want %v", sig.Action, tt.want)
			}
			if sig.Score != strategy.ActionScore(tt.want) {
				t.Errorf("Score = %v, want %v", sig.Score, strategy.ActionScore(tt.want))
			}
			if got := s.RankScore(sig); got != tt.wantRank {
				t.Errorf("RankScore = %v, want %v", got, tt.wantRank)
			}
		})
	}
}

func TestNew(t *testing.T) {
	for _, k := range strategy.Kinds {
		s, err := New(k, strategy.Params{})
		if err != nil {
			t.Fatalf("New(%s) returned error: %v", k, err)
		}
		if s.Kind() != k {
			t.Errorf("New(%s).Kind() = %s", k, s.Kind())
		}
	}
	if _, err := New(strategy.Kind(42), strategy.Params{}); err == nil {
		t.Error("New(unknown kind) returned nil error")
	}
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(strategy.Params{})
	names := r.List()
	if len(names) != 2 || names[0] != "crossover" || names[1] != "momentum" {
		t.Errorf("registry names = %v, want [crossover momentum]", names)
	}
	s, err := r.Lookup("momentum")
	if err != nil {
		t.Fatalf("Lookup(momentum): %v", err)
	}
	if s.Kind() != strategy.KindMomentum {
		t.Errorf("Lookup(momentum).Kind() = %s", s.Kind())
	}
}

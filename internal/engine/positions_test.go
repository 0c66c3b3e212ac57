package engine

import (
	"math/rand"
	"sync"
	"testing"

	"quantbot/internal/domain"
)

type fixedPlanner struct{}

func (fixedPlanner) ExitLevels(entry float64) (float64, float64) {
	return entry * 1.05, entry * 0.98
}

func sig(symbol string, a domain.Action) domain.Signal {
	return domain.Signal{Symbol: symbol, Action: a}
}

func TestApplyTransitions(t *testing.T) {
	tests := []struct {
		name   string
		mode   domain.SellMode
		open   bool
		action domain.Action
		want   domain.Transition
	}{
		{"realtime flat buy", domain.SellModeRealtime, false, domain.ActionBuy, domain.TransitionOpened},
		{"realtime flat sell", domain.SellModeRealtime, false, domain.ActionSell, domain.TransitionNone},
		{"realtime flat hold", domain.SellModeRealtime, false, domain.ActionHold, domain.TransitionNone},
		{"realtime open buy", domain.SellModeRealtime, true, domain.ActionBuy, domain.TransitionNone},
		{"realtime open sell", domain.SellModeRealtime, true, domain.ActionSell, domain.TransitionClosed},
		{"realtime open hold", domain.SellModeRealtime, true, domain.ActionHold, domain.TransitionNone},
		{"limit flat buy", domain.SellModeLimit, false, domain.ActionBuy, domain.TransitionOpened},
		{"limit open buy", domain.SellModeLimit, true, domain.ActionBuy, domain.TransitionNone},
		{"limit open sell", domain.SellModeLimit, true, domain.ActionSell, domain.TransitionNone},
		{"limit open hold", domain.SellModeLimit, true, domain.ActionHold, domain.TransitionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := NewPositionManager(PositionOptions{Mode: tt.mode})
			if tt.open {
				if err := pm.Open("BTC/USD", domain.Position{EntryPrice: 10, Qty: 1}); err != nil {
					t.Fatalf("Open: %v", err)
				}
			}
			got, _ := pm.Apply(sig("BTC/USD", tt.action), 50, 1000)
			if got != tt.want {
				t.Errorf("Apply = %s, want %s", got, tt.want)
			}
			_, isOpen := pm.Get("BTC/USD")
			wantOpen := (tt.open && got != domain.TransitionClosed) || got == domain.TransitionOpened
			if isOpen != wantOpen {
				t.Errorf("position open = %v, want %v", isOpen, wantOpen)
			}
		})
	}
}

func TestApplyOpensSizedPosition(t *testing.T) {
	pm := NewPositionManager(PositionOptions{})
	tr, pos := pm.Apply(sig("ETH/USD", domain.ActionBuy), 50, 1000)
	if tr != domain.TransitionOpened {
		t.Fatalf("Apply = %s, want opened", tr)
	}
	if pos.EntryPrice != 50 || pos.Qty != 20 || pos.Symbol != "ETH/USD" {
		t.Errorf("opened position = %+v, want entry 50 qty 20", pos)
	}
	if pos.HasExitLevels() {
		t.Errorf("realtime position has exit levels: %+v", pos)
	}
	if got, _ := pm.Get("ETH/USD"); got != pos {
		t.Errorf("table holds %+v, want %+v", got, pos)
	}
}

func TestApplyLimitModeSetsExitLevels(t *testing.T) {
	pm := NewPositionManager(PositionOptions{Mode: domain.SellModeLimit, Planner: fixedPlanner{}})
	_, pos := pm.Apply(sig("ETH/USD", domain.ActionBuy), 100, 1000)
	if pos.TargetPrice != 105 || pos.StopPrice != 98 {
		t.Errorf("exit levels = (%v, %v), want (105, 98)", pos.TargetPrice, pos.StopPrice)
	}
}

func TestApplyCannotSize(t *testing.T) {
	pm := NewPositionManager(PositionOptions{})
	for _, c := range []struct{ price, alloc float64 }{{0, 1000}, {-1, 1000}, {50, 0}} {
		if tr, _ := pm.Apply(sig("X/USD", domain.ActionBuy), c.price, c.alloc); tr != domain.TransitionNone {
			t.Errorf("Apply(price %v, alloc %v) = %s, want none", c.price, c.alloc, tr)
		}
	}
	if pm.Len() != 0 {
		t.Errorf("Len = %d, want 0", pm.Len())
	}
}

func TestOpenDuplicate(t *testing.T) {
	pm := NewPositionManager(PositionOptions{})
	if err := pm.Open("A/USD", domain.Position{EntryPrice: 1, Qty: 1}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := pm.Open("A/USD", domain.Position{EntryPrice: 2, Qty: 1}); err != ErrPositionExists {
		t.Errorf("second Open error = %v, want ErrPositionExists", err)
	}
	if _, ok := pm.Close("A/USD"); !ok {
		t.Error("Close returned false for open position")
	}
	if _, ok := pm.Close("A/USD"); ok {
		t.Error("Close returned true for closed position")
	}
}

func TestList(t *testing.T) {
	pm := NewPositionManager(PositionOptions{})
	for _, s := range []string{"C/USD", "A/USD", "B/USD"} {
		pm.Apply(sig(s, domain.ActionBuy), 10, 100)
	}
	list := pm.List()
	if len(list) != 3 || list[0].Symbol != "A/USD" || list[2].Symbol != "C/USD" {
		t.Errorf("List = %+v, want sorted A,B,C", list)
	}
}

func TestSinglePositionPerSymbol(t *testing.T) {
	actions := []domain.Action{domain.ActionBuy, domain.ActionSell, domain.ActionHold}
	rng := rand.New(rand.NewSource(7))

	for _, mode := range []domain.SellMode{domain.SellModeRealtime, domain.SellModeLimit} {
		pm := NewPositionManager(PositionOptions{Mode: mode})
		open := false
		for i := 0; i < 500; i++ {
			a := actions[rng.Intn(len(actions))]
			tr, _ := pm.Apply(sig("SOL/USD", a), 20, 100)
			switch tr {
			case domain.TransitionOpened:
				if open {
					t.Fatalf("%s: opened a second position at step %d", mode, i)
				}
				open = true
			case domain.TransitionClosed:
				if !open {
					t.Fatalf("%s: closed a missing position at step %d", mode, i)
				}
				open = false
			}
			if pm.Len() > 1 {
				t.Fatalf("%s: %d positions for one symbol", mode, pm.Len())
			}
		}
	}
}

func TestConcurrentApplySameSymbol(t *testing.T) {
	pm := NewPositionManager(PositionOptions{})
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr, _ := pm.Apply(sig("BTC/USD", domain.ActionBuy), 100, 1000); tr == domain.TransitionOpened {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if opened != 1 {
		t.Errorf("concurrent Buy opened %d positions, want 1", opened)
	}
}

func TestCheckExit(t *testing.T) {
	newPM := func(enabled bool) *PositionManager {
		pm := NewPositionManager(PositionOptions{Mode: domain.SellModeLimit, Planner: fixedPlanner{}, ExitOnPrice: enabled})
		pm.Apply(sig("ETH/USD", domain.ActionBuy), 100, 1000)
		return pm
	}

	if tr, _ := newPM(false).CheckExit("ETH/USD", 200); tr != domain.TransitionNone {
		t.Errorf("disabled CheckExit = %s, want none", tr)
	}

	tests := []struct {
		price float64
		want  domain.Transition
	}{
		{100, domain.TransitionNone},
		{104.9, domain.TransitionNone},
		{105, domain.TransitionClosed},
		{98.5, domain.TransitionNone},
		{98, domain.TransitionClosed},
		{50, domain.TransitionClosed},
	}
	for _, tt := range tests {
		pm := newPM(true)
		tr, pos := pm.CheckExit("ETH/USD", tt.price)
		if tr != tt.want {
			t.Errorf("CheckExit(%v) = %s, want %s", tt.price, tr, tt.want)
		}
		if tr == domain.TransitionClosed {
			if pos.EntryPrice != 100 || pm.Len() != 0 {
				t.Errorf("CheckExit(%v) closed %+v, %d left", tt.price, pos, pm.Len())
			}
		}
	}

	if tr, _ := newPM(true).CheckExit("BTC/USD", 1); tr != domain.TransitionNone {
		t.Errorf("CheckExit on symbol without position = %s, want none", tr)
	}
}

func TestAllocation(t *testing.T) {
	tests := []struct {
		budget float64
		n      int
		want   float64
	}{
		{1000, 4, 250},
		{1000, 0, 0},
		{0, 3, 0},
		{-5, 3, 0},
		{90, 3, 30},
	}
	for _, tt := range tests {
		if got := Allocation(tt.budget, tt.n); got != tt.want {
			t.Errorf("Allocation(%v, %d) = %v, want %v", tt.budget, tt.n, got, tt.want)
		}
	}
}

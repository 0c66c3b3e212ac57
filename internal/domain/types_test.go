package domain

import (
	"testing"
	"time"
)

func TestTypesExist(t *testing.T) {
	// Verify Bar can be instantiated with zero values.
	bar := Bar{}
	if bar.Symbol != "" {
		t.Error("expected empty Symbol for zero-value Bar")
	}
	if !bar.Timestamp.IsZero() {
		t.Error("expected zero Timestamp for zero-value Bar")
	}
	if bar.Open != 0 || bar.High != 0 || bar.Low != 0 || bar.Close != 0 {
		t.Error("expected zero OHLC values for zero-value Bar")
	}

	// Verify enum constants are defined correctly.
	if ActionBuy != "buy" || ActionSell != "sell" || ActionHold != "hold" {
		t.Error("Action constants have unexpected values")
	}
	if SellModeRealtime != "realtime" || SellModeLimit != "limit" {
		t.Error("SellMode constants have unexpected values")
	}
	if OrderSideBuy != "buy" {
		t.Errorf("OrderSideBuy = %q, want %q", OrderSideBuy, "buy")
	}
}

func TestCloses(t *testing.T) {
	now := time.Now()
	bars := []Bar{
		{Symbol: "BTC/USD", Timestamp: now, Close: 1},
		{Symbol: "BTC/USD", Timestamp: now.Add(time.Minute), Close: 2},
		{Symbol: "BTC/USD", Timestamp: now.Add(2 * time.Minute), Close: 3},
	}
	got := Closes(bars)
	if len(got) != 3 {
		t.Fatalf("Closes returned %d values, want 3", len(got))
	}
	for i, want := range []float64{1, 2, 3} {
		if got[i] != want {
			t.Errorf("Closes()[%d] = %v, want %v", i, got[i], want)
		}
	}

	if got := Closes(nil); len(got) != 0 {
		t.Errorf("Closes(nil) = %v, want empty", got)
	}
}

func TestPositionHasExitLevels(t *testing.T) {
	p := Position{Symbol: "ETH/USD", EntryPrice: 100, Qty: 1}
	if p.HasExitLevels() {
		t.Error("position without levels reported HasExitLevels")
	}
	p.TargetPrice = 105
	p.StopPrice = 98
	if !p.HasExitLevels() {
		t.Error("position with levels reported !HasExitLevels")
	}
}

func TestParseSellMode(t *testing.T) {
	tests := []struct {
		in      string
		want    SellMode
		wantErr bool
	}{
		{"realtime", SellModeRealtime, false},
		{" LIMIT ", SellModeLimit, false},
		{"market", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSellMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSellMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSellMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Package metrics exposes Prometheus collectors for the decision engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Failure stages.
const (
	StageRank     = "rank"
	StageTrade    = "trade"
	StageBacktest = "backtest"
)

var (
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quantbot_decisions_total", Help: "Strategy decisions by action and resulting transition"},
		[]string{"action", "transition"},
	)
	SymbolFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quantbot_symbol_failures_total", Help: "Symbols dropped because their data could not be fetched or scored"},
		[]string{"stage"},
	)
	IntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quantbot_intents_total", Help: "Simulated order intents"},
		[]string{"kind", "side"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "quantbot_open_positions", Help: "Currently open simulated positions"},
	)
)

func init() {
	prometheus.MustRegister(DecisionsTotal, SymbolFailuresTotal, IntentsTotal, OpenPositions)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

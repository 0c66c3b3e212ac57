// Package broker turns trading decisions into order intents. The only
// implementation is an in-memory simulator; nothing leaves the process.
package broker

import (
	"context"

	"quantbot/internal/domain"
)

// Broker abstracts order placement for the decision engine. Implementations
// never mutate the position table.
type Broker interface {
	// Name returns the broker identifier (e.g. "simulator").
	Name() string

	// MarketBuy records a market buy of qty at price.
	MarketBuy(ctx context.Context, symbol string, price, qty float64) (domain.OrderIntent, error)

	// MarketSell records a market sell of qty at price.
	MarketSell(ctx context.Context, symbol string, price, qty float64) (domain.OrderIntent, error)

	// PlaceExit records the take-profit and stop-loss orders for pos.
	PlaceExit(ctx context.Context, pos domain.Position) (domain.ExitIntent, error)

	// ExitLevels returns the target and stop prices for an entry price.
	ExitLevels(entry float64) (target, stop float64)
}

// Journal is a snapshot of every intent a broker has recorded.
type Journal struct {
	Orders []domain.OrderIntent `json:"orders"`
	Exits  []domain.ExitIntent  `json:"exits"`
}

package engine

import "quantbot/internal/domain"

// Allocation splits budget evenly across n symbols. It returns 0 when there
// is nothing to allocate to.
func Allocation(budget float64, n int) float64 {
	if n <= 0 || budget <= 0 {
		return 0
	}
	return budget / float64(n)
}

// Deployed is the capital tied up in positions, at their entry prices.
func Deployed(positions []domain.Position) float64 {
	var total float64
	for _, p := range positions {
		total += p.EntryPrice * p.Qty
	}
	return total
}

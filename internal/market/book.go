package market

import "time"

// BookLevel is one resting price level of an order book side.
type BookLevel struct {
	Price    float64
	Quantity float64
}

// Trade is one executed trade print. AggressorIsBuyer reports which side
// crossed the spread (the taker).
type Trade struct {
	Price            float64
	Quantity         float64
	Time             time.Time
	AggressorIsBuyer bool
}

// BookView is the raw order book state as delivered by the feed: bids sorted
// price-descending, asks price-ascending.
type BookView struct {
	Symbol string
	Bids   []BookLevel
	Asks   []BookLevel
	Time   time.Time
}

// DepthWithin sums resting quantity across at most topN levels of a side.
func DepthWithin(levels []BookLevel, topN int) float64 {
	if topN > len(levels) {
		topN = len(levels)
	}
	var total float64
	for _, lvl := range levels[:topN] {
		total += lvl.Quantity
	}
	return total
}

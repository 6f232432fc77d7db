package market

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrCrossedBook   = errors.New("order book is crossed")
	ErrEmptyBook     = errors.New("order book side is empty")
	ErrStaleSnapshot = errors.New("snapshot timestamp is not monotonic")
)

// MarketSnapshot is the immutable per-tick view the decision pipeline runs on.
// It is created by the Assembler, never mutated, and discarded after the tick.
type MarketSnapshot struct {
	Symbol    string
	Bids      []BookLevel // price descending
	Asks      []BookLevel // price ascending
	Trades    []Trade     // bounded recent window, oldest first
	BestBid   float64
	BestAsk   float64
	Mid       float64
	Spread    float64
	SpreadPct float64
	Time      time.Time
}

// Assembler merges a raw book view and the recent-trade window into a
// MarketSnapshot, rejecting crossed or empty books and out-of-order updates.
// It remembers the last accepted timestamp per symbol.
type Assembler struct {
	mu       sync.Mutex
	lastTime map[string]time.Time
}

func NewAssembler() *Assembler {
	return &Assembler{lastTime: make(map[string]time.Time)}
}

func (a *Assembler) Assemble(view BookView, trades []Trade) (MarketSnapshot, error) {
	if len(view.Bids) == 0 || len(view.Asks) == 0 {
		return MarketSnapshot{}, fmt.Errorf("assemble %s: %w", view.Symbol, ErrEmptyBook)
	}
	bestBid := view.Bids[0].Price
	bestAsk := view.Asks[0].Price
	if bestBid >= bestAsk {
		return MarketSnapshot{}, fmt.Errorf("assemble %s: bid %.8f >= ask %.8f: %w", view.Symbol, bestBid, bestAsk, ErrCrossedBook)
	}

	a.mu.Lock()
	last, seen := a.lastTime[view.Symbol]
	if seen && view.Time.Before(last) {
		a.mu.Unlock()
		return MarketSnapshot{}, fmt.Errorf("assemble %s: %s before %s: %w", view.Symbol, view.Time, last, ErrStaleSnapshot)
	}
	a.lastTime[view.Symbol] = view.Time
	a.mu.Unlock()

	mid := (bestBid + bestAsk) / 2
	spread := bestAsk - bestBid
	snap := MarketSnapshot{
		Symbol:    view.Symbol,
		Bids:      append([]BookLevel(nil), view.Bids...),
		Asks:      append([]BookLevel(nil), view.Asks...),
		Trades:    append([]Trade(nil), trades...),
		BestBid:   bestBid,
		BestAsk:   bestAsk,
		Mid:       mid,
		Spread:    spread,
		SpreadPct: spread / mid,
		Time:      view.Time,
	}
	return snap, nil
}

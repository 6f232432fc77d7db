// Package strategy holds the pure per-tick decision building blocks: the
// spread/depth admission filter, the position sizer, and the execution style
// policy. Nothing here keeps state between ticks.
package strategy

import (
	"errors"
	"fmt"

	"obx-bot/internal/config"
	"obx-bot/internal/market"
	"obx-bot/internal/signal"
)

var (
	ErrSpreadTooWide     = errors.New("spread exceeds configured maximum")
	ErrInsufficientDepth = errors.New("visible depth cannot absorb order")
)

// CheckSpread rejects a snapshot whose relative spread exceeds MaxSpreadPct.
func CheckSpread(snap market.MarketSnapshot, cfg config.StrategyConfig) error {
	if snap.SpreadPct > cfg.MaxSpreadPct {
		return fmt.Errorf("spread %.6f > %.6f: %w", snap.SpreadPct, cfg.MaxSpreadPct, ErrSpreadTooWide)
	}
	return nil
}

// CheckDepth verifies the side a dir-order would execute against can absorb
// quantity plus the configured buffer inside the top-N levels. A zero quantity
// degenerates to requiring any resting depth at all, which is what the
// pre-sizing invocation uses; the post-sizing invocation passes the actual
// order quantity.
func CheckDepth(snap market.MarketSnapshot, dir signal.Direction, quantity float64, cfg config.StrategyConfig) error {
	visible := market.DepthWithin(executionSide(snap, dir), cfg.TopNLevels)
	if visible <= 0 {
		return fmt.Errorf("no resting depth for %s: %w", dir, ErrInsufficientDepth)
	}
	required := quantity * (1 + cfg.MinDepthBufferPct)
	if visible < required {
		return fmt.Errorf("depth %.6f < required %.6f for %s: %w", visible, required, dir, ErrInsufficientDepth)
	}
	return nil
}

// executionSide returns the book side an aggressive order in dir consumes:
// asks for a buy, bids for a sell. NONE falls back to the thinner side so a
// directionless pre-check is as strict as either direction.
func executionSide(snap market.MarketSnapshot, dir signal.Direction) []market.BookLevel {
	switch dir {
	case signal.Long:
		return snap.Asks
	case signal.Short:
		return snap.Bids
	default:
		if market.DepthWithin(snap.Bids, len(snap.Bids)) < market.DepthWithin(snap.Asks, len(snap.Asks)) {
			return snap.Bids
		}
		return snap.Asks
	}
}

package strategy

import (
	"errors"
	"fmt"
	"math"

	"obx-bot/internal/config"
	"obx-bot/internal/market"
	"obx-bot/internal/signal"
)

var ErrInsufficientSize = errors.New("position size below tradable minimum")

// SizeResult carries the final quantity plus the intermediate caps for
// logging and telemetry.
type SizeResult struct {
	Quantity         float64
	NotionalUSD      float64
	DepthCapQty      float64
	RiskCapQty       float64
	AdverseMove      float64
	EstimatedRiskUSD float64
	RefPrice         float64
}

// Size computes the order quantity for a confirmed direction: the lesser of
// the depth cap (a fraction of visible top-N quantity on the execution side)
// and the risk cap (risk budget divided by the estimated adverse move), less
// fees. Degenerate books collapse to ErrInsufficientSize, never an error the
// engine treats as exceptional.
func Size(snap market.MarketSnapshot, dir signal.Direction, equityUSD, minNotionalUSD float64, cfg config.StrategyConfig) (SizeResult, error) {
	if dir != signal.Long && dir != signal.Short {
		return SizeResult{}, fmt.Errorf("size requires a direction: %w", ErrInsufficientSize)
	}
	visible := market.DepthWithin(executionSide(snap, dir), cfg.TopNLevels)
	refPrice := snap.BestAsk
	if dir == signal.Short {
		refPrice = snap.BestBid
	}

	adverseMove := snap.Spread + cfg.SlippageBufferPct*snap.Mid
	res := SizeResult{
		DepthCapQty: cfg.MaxDepthPct * visible,
		AdverseMove: adverseMove,
		RefPrice:    refPrice,
	}
	if adverseMove > 0 {
		res.RiskCapQty = (equityUSD * cfg.MaxRiskPerTradePct) / adverseMove
	}

	qty := math.Min(res.DepthCapQty, res.RiskCapQty) * (1 - cfg.FeePct)
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty <= 0 {
		return res, fmt.Errorf("size collapsed to %.8f: %w", qty, ErrInsufficientSize)
	}
	notional := qty * refPrice
	if notional < minNotionalUSD {
		return res, fmt.Errorf("notional %.2f below minimum %.2f: %w", notional, minNotionalUSD, ErrInsufficientSize)
	}
	res.Quantity = qty
	res.NotionalUSD = notional
	res.EstimatedRiskUSD = qty * adverseMove
	return res, nil
}

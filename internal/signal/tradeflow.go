package signal

import (
	"math"
	"time"

	"obx-bot/internal/config"
	"obx-bot/internal/market"
)

// FlowMetrics summarizes aggressive trade volume inside the configured window.
// Pressure ratios are volume ratios against the opposite side; a one-sided
// tape yields an infinite ratio.
type FlowMetrics struct {
	BuyVolume    float64
	SellVolume   float64
	TotalVolume  float64
	BuyPressure  float64
	SellPressure float64
	Samples      int
	Window       time.Duration
}

// AnalyzeFlow classifies the snapshot's trades by aggressor side, keeping only
// prints within TradeFlowWindow of the snapshot timestamp.
func AnalyzeFlow(snap market.MarketSnapshot, cfg config.StrategyConfig) FlowMetrics {
	cutoff := snap.Time.Add(-cfg.TradeFlowWindow)
	m := FlowMetrics{Window: cfg.TradeFlowWindow}
	for _, trade := range snap.Trades {
		if trade.Time.Before(cutoff) || trade.Time.After(snap.Time) {
			continue
		}
		m.Samples++
		if trade.AggressorIsBuyer {
			m.BuyVolume += trade.Quantity
		} else {
			m.SellVolume += trade.Quantity
		}
	}
	m.TotalVolume = m.BuyVolume + m.SellVolume
	m.BuyPressure = pressureRatio(m.BuyVolume, m.SellVolume)
	m.SellPressure = pressureRatio(m.SellVolume, m.BuyVolume)
	return m
}

// Sufficient reports whether enough prints exist for the flow to confirm a
// signal on its own.
func (m FlowMetrics) Sufficient(minSamples int) bool {
	return m.Samples >= minSamples
}

// Confirms reports whether the tape independently supports dir. An
// insufficient sample never confirms.
func (m FlowMetrics) Confirms(dir Direction, cfg config.StrategyConfig) bool {
	if !m.Sufficient(cfg.MinTradeFlowSamples) {
		return false
	}
	switch dir {
	case Long:
		return m.BuyPressure >= cfg.TradeFlowThreshold
	case Short:
		return m.SellPressure >= cfg.TradeFlowThreshold
	default:
		return false
	}
}

// Momentum is the pressure ratio in the direction of the confirmed signal,
// used by the execution policy to detect a fast move.
func (m FlowMetrics) Momentum(dir Direction) float64 {
	switch dir {
	case Long:
		return m.BuyPressure
	case Short:
		return m.SellPressure
	default:
		return 0
	}
}

func pressureRatio(own, opposite float64) float64 {
	if opposite == 0 {
		if own == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return own / opposite
}

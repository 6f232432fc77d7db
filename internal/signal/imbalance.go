// Package signal derives directional signals from a single market snapshot:
// volume-weighted book imbalance and aggressive trade flow. Everything here is
// a pure function of (snapshot, config).
package signal

import (
	"math"

	"obx-bot/internal/config"
	"obx-bot/internal/market"
)

type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
	None  Direction = "NONE"
)

// TradeSignal is a directional call with the imbalance ratio that produced it.
type TradeSignal struct {
	Direction Direction
	Ratio     float64
	BidVolume float64
	AskVolume float64
}

// Imbalance classifies top-of-book volume imbalance over the top N levels.
// Threshold comparisons are strict: a ratio exactly at a threshold stays NONE.
// A zero ask side with resting bids counts as an infinite ratio (LONG); a book
// with no volume on either side carries no information.
func Imbalance(snap market.MarketSnapshot, cfg config.StrategyConfig) TradeSignal {
	bidVol := market.DepthWithin(snap.Bids, cfg.TopNLevels)
	askVol := market.DepthWithin(snap.Asks, cfg.TopNLevels)

	sig := TradeSignal{Direction: None, BidVolume: bidVol, AskVolume: askVol}
	switch {
	case bidVol == 0 && askVol == 0:
		return sig
	case askVol == 0:
		sig.Ratio = math.Inf(1)
	default:
		sig.Ratio = bidVol / askVol
	}

	switch {
	case sig.Ratio > cfg.ImbalanceLong:
		sig.Direction = Long
	case sig.Ratio < cfg.ImbalanceShort:
		sig.Direction = Short
	}
	return sig
}

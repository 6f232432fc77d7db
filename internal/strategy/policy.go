package strategy

import (
	"obx-bot/internal/config"
	"obx-bot/internal/market"
	"obx-bot/internal/signal"
)

type Style string

const (
	StyleMaker Style = "MAKER"
	StyleTaker Style = "TAKER"
)

// ExecutionChoice is the order style decision. Maker orders carry a limit
// price at the passive best; taker orders cross with no price.
type ExecutionChoice struct {
	Style      Style
	LimitPrice float64
	PostOnly   bool
}

// ChooseExecution picks maker vs taker from spread tightness and momentum.
// A tight spread with calm flow earns the maker rebate; momentum above the
// threshold forces a taker so the order does not miss a fast move. The
// remaining band is a tie broken by PreferMaker. Deterministic given
// (snapshot, momentum, config).
func ChooseExecution(snap market.MarketSnapshot, dir signal.Direction, momentum float64, cfg config.StrategyConfig) ExecutionChoice {
	switch {
	case momentum > cfg.MomentumThreshold:
		return ExecutionChoice{Style: StyleTaker}
	case snap.SpreadPct <= cfg.MakerSpreadThreshold && momentum < cfg.MomentumThreshold:
		return makerChoice(snap, dir, cfg)
	case cfg.PreferMaker:
		return makerChoice(snap, dir, cfg)
	default:
		return ExecutionChoice{Style: StyleTaker}
	}
}

func makerChoice(snap market.MarketSnapshot, dir signal.Direction, cfg config.StrategyConfig) ExecutionChoice {
	price := snap.BestBid
	if dir == signal.Short {
		price = snap.BestAsk
	}
	return ExecutionChoice{Style: StyleMaker, LimitPrice: price, PostOnly: cfg.PreferMaker}
}

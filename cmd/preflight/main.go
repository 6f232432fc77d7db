package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"obx-bot/internal/config"
	"obx-bot/internal/engine"
	"obx-bot/internal/logging"
	"obx-bot/internal/market"
	"obx-bot/internal/metrics"
	"obx-bot/internal/risk"
	"obx-bot/internal/state/sqlite"

	"go.uber.org/zap"
)

const defaultPreflightEnvFile = ".env"

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	skipState := flag.Bool("skip-state", false, "skip the sqlite writability check")
	flag.Parse()

	if err := config.LoadEnv(defaultPreflightEnvFile); err != nil {
		fatal(err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	strat, err := cfg.Strategy.Resolve()
	if err != nil {
		fatal(err)
	}

	fmt.Printf("config ok: %s\n", *configPath)
	fmt.Printf("preset=%s symbol=%s\n", cfg.Strategy.Preset, strat.Symbol)
	fmt.Printf("spread: max_pct=%.6f maker_threshold=%.6f volatility_brake_pct=%.6f\n",
		strat.MaxSpreadPct, strat.MakerSpreadThreshold, strat.MaxVolatilityPct)
	fmt.Printf("signal: imbalance_long=%.4f imbalance_short=%.4f flow_threshold=%.4f flow_window=%s min_samples=%d top_n=%d\n",
		strat.ImbalanceLong, strat.ImbalanceShort, strat.TradeFlowThreshold,
		strat.TradeFlowWindow, strat.MinTradeFlowSamples, strat.TopNLevels)
	fmt.Printf("sizing: max_depth_pct=%.4f max_risk_per_trade_pct=%.4f slippage_buffer_pct=%.6f fee_pct=%.6f depth_buffer_pct=%.4f\n",
		strat.MaxDepthPct, strat.MaxRiskPerTradePct, strat.SlippageBufferPct, strat.FeePct, strat.MinDepthBufferPct)
	fmt.Printf("risk: max_daily_loss_pct=%.4f max_consecutive_losses=%d cooldown=%s\n",
		strat.MaxDailyLossPct, strat.MaxConsecutiveLosses, strat.CooldownAfterLosses)
	fmt.Printf("execution: momentum_threshold=%.4f prefer_maker=%t\n",
		strat.MomentumThreshold, strat.PreferMaker)

	fmt.Println("presets:")
	for _, name := range []string{config.PresetDefault, config.PresetConservative, config.PresetAggressive} {
		printPreset(name)
	}

	if token := os.Getenv(cfg.Gateway.TokenEnv); token == "" {
		fmt.Printf("warning: %s is not set, the bot will refuse to start\n", cfg.Gateway.TokenEnv)
	}

	if !*skipState {
		if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
			fatal(fmt.Errorf("state dir: %w", err))
		}
		store, err := sqlite.New(cfg.State.SQLitePath)
		if err != nil {
			fatal(fmt.Errorf("state store: %w", err))
		}
		_ = store.Close()
		fmt.Printf("state ok: %s\n", cfg.State.SQLitePath)
	}

	decision, err := dryRunDecision(cfg, strat, log)
	if err != nil {
		fatal(err)
	}
	if decision.Trade {
		fmt.Printf("dry run: trade %s qty=%.6f style=%s\n",
			decision.Order.Side, decision.Order.Quantity, decision.Order.Style)
	} else {
		fmt.Printf("dry run: no trade (%s)\n", decision.Reason)
	}
}

func printPreset(name string) {
	var p config.StrategyConfig
	switch name {
	case config.PresetConservative:
		p = config.ConservativeStrategy()
	case config.PresetAggressive:
		p = config.AggressiveStrategy()
	default:
		p = config.DefaultStrategy()
	}
	fmt.Printf("  %-12s max_spread=%.4f risk=%.4f daily_loss=%.4f losses=%d cooldown=%s imbalance=%.2f/%.2f\n",
		name, p.MaxSpreadPct, p.MaxRiskPerTradePct, p.MaxDailyLossPct,
		p.MaxConsecutiveLosses, p.CooldownAfterLosses, p.ImbalanceLong, p.ImbalanceShort)
}

// dryRunDecision pushes one synthetic snapshot through a throwaway pipeline to
// prove the resolved configuration can actually produce decisions.
func dryRunDecision(cfg *config.Config, strat config.StrategyConfig, log *zap.Logger) (engine.TradeDecision, error) {
	riskMgr, err := risk.NewManager(strat, cfg.Account.EquityUSD, risk.NewClock(), nil, log)
	if err != nil {
		return engine.TradeDecision{}, err
	}
	eng, err := engine.New(strat, cfg.Account.MinNotionalUSD, riskMgr, metrics.NewNoop(), log)
	if err != nil {
		return engine.TradeDecision{}, err
	}

	now := time.Now().UTC()
	snap := market.MarketSnapshot{
		Symbol:    strat.Symbol,
		Bids:      syntheticLevels(100.00, -0.01, 40),
		Asks:      syntheticLevels(100.02, 0.01, 40),
		BestBid:   100.00,
		BestAsk:   100.02,
		Mid:       100.01,
		Spread:    0.02,
		SpreadPct: 0.02 / 100.01,
		Time:      now,
	}
	for i := 0; i < 2*strat.MinTradeFlowSamples; i++ {
		snap.Trades = append(snap.Trades, market.Trade{
			Price:            100.01,
			Quantity:         0.5,
			Time:             now.Add(-time.Duration(i) * 100 * time.Millisecond),
			AggressorIsBuyer: i%3 != 0,
		})
	}
	return eng.OnMarketUpdate(snap), nil
}

func syntheticLevels(start, step float64, count int) []market.BookLevel {
	levels := make([]market.BookLevel, 0, count)
	price := start
	for i := 0; i < count; i++ {
		levels = append(levels, market.BookLevel{Price: price, Quantity: 5})
		price += step
	}
	return levels
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

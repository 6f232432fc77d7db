package config

import (
	"errors"
	"fmt"
	"time"
)

// StrategyConfig is the resolved, immutable parameter set the decision pipeline
// runs on. Instances come out of the preset constructors below; nothing mutates
// one after Resolve.
type StrategyConfig struct {
	Symbol string

	ImbalanceLong  float64
	ImbalanceShort float64
	TopNLevels     int

	MaxSpreadPct      float64
	MinDepthBufferPct float64

	TradeFlowThreshold  float64
	TradeFlowWindow     time.Duration
	MinTradeFlowSamples int

	MaxDepthPct        float64
	MaxRiskPerTradePct float64
	SlippageBufferPct  float64
	FeePct             float64

	MaxDailyLossPct      float64
	MaxConsecutiveLosses int
	CooldownAfterLosses  time.Duration
	MaxVolatilityPct     float64

	PreferMaker          bool
	MakerSpreadThreshold float64
	MomentumThreshold    float64
}

const (
	PresetDefault      = "default"
	PresetConservative = "conservative"
	PresetAggressive   = "aggressive"
)

func DefaultStrategy() StrategyConfig {
	return StrategyConfig{
		ImbalanceLong:        1.5,
		ImbalanceShort:       0.67,
		TopNLevels:           20,
		MaxSpreadPct:         0.001,
		MinDepthBufferPct:    0.02,
		TradeFlowThreshold:   1.5,
		TradeFlowWindow:      5 * time.Second,
		MinTradeFlowSamples:  5,
		MaxDepthPct:          0.02,
		MaxRiskPerTradePct:   0.005,
		SlippageBufferPct:    0.001,
		FeePct:               0.001,
		MaxDailyLossPct:      0.02,
		MaxConsecutiveLosses: 3,
		CooldownAfterLosses:  60 * time.Second,
		MaxVolatilityPct:     0.05,
		PreferMaker:          true,
		MakerSpreadThreshold: 0.0005,
		MomentumThreshold:    1.2,
	}
}

func ConservativeStrategy() StrategyConfig {
	cfg := DefaultStrategy()
	cfg.ImbalanceLong = 1.8
	cfg.ImbalanceShort = 0.55
	cfg.MaxSpreadPct = 0.0005
	cfg.MaxDepthPct = 0.01
	cfg.MaxRiskPerTradePct = 0.0025
	cfg.MaxDailyLossPct = 0.01
	cfg.MaxConsecutiveLosses = 2
	cfg.CooldownAfterLosses = 2 * time.Minute
	return cfg
}

func AggressiveStrategy() StrategyConfig {
	cfg := DefaultStrategy()
	cfg.ImbalanceLong = 1.3
	cfg.ImbalanceShort = 0.77
	cfg.MaxSpreadPct = 0.002
	cfg.MaxRiskPerTradePct = 0.01
	cfg.MaxDailyLossPct = 0.04
	cfg.MaxConsecutiveLosses = 4
	cfg.CooldownAfterLosses = 30 * time.Second
	cfg.MomentumThreshold = 1.1
	cfg.PreferMaker = false
	return cfg
}

// StrategySpec is the yaml-facing shape: a preset name plus per-knob overrides.
// Pointer fields distinguish "not set" from an explicit zero.
type StrategySpec struct {
	Symbol string `yaml:"symbol"`
	Preset string `yaml:"preset"`

	ImbalanceLong        *float64       `yaml:"imbalance_long"`
	ImbalanceShort       *float64       `yaml:"imbalance_short"`
	TopNLevels           *int           `yaml:"top_n_levels"`
	MaxSpreadPct         *float64       `yaml:"max_spread_pct"`
	MinDepthBufferPct    *float64       `yaml:"min_depth_buffer_pct"`
	TradeFlowThreshold   *float64       `yaml:"trade_flow_threshold"`
	TradeFlowWindow      *time.Duration `yaml:"trade_flow_window"`
	MinTradeFlowSamples  *int           `yaml:"min_trade_flow_samples"`
	MaxDepthPct          *float64       `yaml:"max_depth_pct"`
	MaxRiskPerTradePct   *float64       `yaml:"max_risk_per_trade_pct"`
	SlippageBufferPct    *float64       `yaml:"slippage_buffer_pct"`
	FeePct               *float64       `yaml:"fee_pct"`
	MaxDailyLossPct      *float64       `yaml:"max_daily_loss_pct"`
	MaxConsecutiveLosses *int           `yaml:"max_consecutive_losses"`
	CooldownAfterLosses  *time.Duration `yaml:"cooldown_after_losses"`
	MaxVolatilityPct     *float64       `yaml:"max_volatility_pct"`
	PreferMaker          *bool          `yaml:"prefer_maker"`
	MakerSpreadThreshold *float64       `yaml:"maker_spread_threshold"`
	MomentumThreshold    *float64       `yaml:"momentum_threshold"`
}

func (s StrategySpec) Resolve() (StrategyConfig, error) {
	var cfg StrategyConfig
	switch s.Preset {
	case "", PresetDefault:
		cfg = DefaultStrategy()
	case PresetConservative:
		cfg = ConservativeStrategy()
	case PresetAggressive:
		cfg = AggressiveStrategy()
	default:
		return StrategyConfig{}, fmt.Errorf("unknown strategy preset %q", s.Preset)
	}
	cfg.Symbol = s.Symbol
	applyOverride(&cfg.ImbalanceLong, s.ImbalanceLong)
	applyOverride(&cfg.ImbalanceShort, s.ImbalanceShort)
	applyOverride(&cfg.TopNLevels, s.TopNLevels)
	applyOverride(&cfg.MaxSpreadPct, s.MaxSpreadPct)
	applyOverride(&cfg.MinDepthBufferPct, s.MinDepthBufferPct)
	applyOverride(&cfg.TradeFlowThreshold, s.TradeFlowThreshold)
	applyOverride(&cfg.TradeFlowWindow, s.TradeFlowWindow)
	applyOverride(&cfg.MinTradeFlowSamples, s.MinTradeFlowSamples)
	applyOverride(&cfg.MaxDepthPct, s.MaxDepthPct)
	applyOverride(&cfg.MaxRiskPerTradePct, s.MaxRiskPerTradePct)
	applyOverride(&cfg.SlippageBufferPct, s.SlippageBufferPct)
	applyOverride(&cfg.FeePct, s.FeePct)
	applyOverride(&cfg.MaxDailyLossPct, s.MaxDailyLossPct)
	applyOverride(&cfg.MaxConsecutiveLosses, s.MaxConsecutiveLosses)
	applyOverride(&cfg.CooldownAfterLosses, s.CooldownAfterLosses)
	applyOverride(&cfg.MaxVolatilityPct, s.MaxVolatilityPct)
	applyOverride(&cfg.PreferMaker, s.PreferMaker)
	applyOverride(&cfg.MakerSpreadThreshold, s.MakerSpreadThreshold)
	applyOverride(&cfg.MomentumThreshold, s.MomentumThreshold)
	return cfg, cfg.Validate()
}

func applyOverride[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (c StrategyConfig) Validate() error {
	if c.Symbol == "" {
		return errors.New("strategy.symbol is required")
	}
	if c.ImbalanceLong <= 0 || c.ImbalanceShort <= 0 {
		return errors.New("imbalance thresholds must be > 0")
	}
	if c.ImbalanceShort >= c.ImbalanceLong {
		return fmt.Errorf("imbalance_short %.4f must be < imbalance_long %.4f", c.ImbalanceShort, c.ImbalanceLong)
	}
	if c.TopNLevels <= 0 {
		return errors.New("top_n_levels must be > 0")
	}
	if c.MaxSpreadPct <= 0 || c.MaxVolatilityPct <= 0 {
		return errors.New("max_spread_pct and max_volatility_pct must be > 0")
	}
	if c.MinDepthBufferPct < 0 {
		return errors.New("min_depth_buffer_pct must be >= 0")
	}
	if c.TradeFlowThreshold <= 0 {
		return errors.New("trade_flow_threshold must be > 0")
	}
	if c.TradeFlowWindow <= 0 {
		return errors.New("trade_flow_window must be > 0")
	}
	if c.MinTradeFlowSamples <= 0 {
		return errors.New("min_trade_flow_samples must be > 0")
	}
	if c.MaxDepthPct <= 0 || c.MaxDepthPct > 1 {
		return errors.New("max_depth_pct must be in (0, 1]")
	}
	if c.MaxRiskPerTradePct <= 0 || c.MaxRiskPerTradePct > 1 {
		return errors.New("max_risk_per_trade_pct must be in (0, 1]")
	}
	if c.SlippageBufferPct < 0 || c.FeePct < 0 || c.FeePct >= 1 {
		return errors.New("slippage_buffer_pct must be >= 0 and fee_pct in [0, 1)")
	}
	if c.MaxDailyLossPct <= 0 || c.MaxDailyLossPct > 1 {
		return errors.New("max_daily_loss_pct must be in (0, 1]")
	}
	if c.MaxConsecutiveLosses <= 0 {
		return errors.New("max_consecutive_losses must be > 0")
	}
	if c.CooldownAfterLosses <= 0 {
		return errors.New("cooldown_after_losses must be > 0")
	}
	if c.MakerSpreadThreshold <= 0 || c.MomentumThreshold <= 0 {
		return errors.New("maker_spread_threshold and momentum_threshold must be > 0")
	}
	return nil
}

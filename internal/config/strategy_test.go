package config

import (
	"testing"
	"time"
)

func TestResolveDefaultPreset(t *testing.T) {
	spec := StrategySpec{Symbol: "BTC-USD"}
	cfg, err := spec.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if cfg.ImbalanceLong != 1.5 || cfg.ImbalanceShort != 0.67 {
		t.Fatalf("unexpected default thresholds: %f/%f", cfg.ImbalanceLong, cfg.ImbalanceShort)
	}
	if cfg.MaxConsecutiveLosses != 3 || cfg.CooldownAfterLosses != 60*time.Second {
		t.Fatalf("unexpected default loss guard: %d/%s", cfg.MaxConsecutiveLosses, cfg.CooldownAfterLosses)
	}
	if !cfg.PreferMaker {
		t.Fatalf("expected default preset to prefer maker")
	}
}

func TestResolveConservativePreset(t *testing.T) {
	spec := StrategySpec{Symbol: "BTC-USD", Preset: PresetConservative}
	cfg, err := spec.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if cfg.MaxSpreadPct != 0.0005 || cfg.MaxDailyLossPct != 0.01 {
		t.Fatalf("unexpected conservative limits: %f/%f", cfg.MaxSpreadPct, cfg.MaxDailyLossPct)
	}
	if cfg.MaxConsecutiveLosses != 2 || cfg.CooldownAfterLosses != 2*time.Minute {
		t.Fatalf("unexpected conservative loss guard: %d/%s", cfg.MaxConsecutiveLosses, cfg.CooldownAfterLosses)
	}
}

func TestResolveAggressivePreset(t *testing.T) {
	spec := StrategySpec{Symbol: "BTC-USD", Preset: PresetAggressive}
	cfg, err := spec.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if cfg.ImbalanceLong != 1.3 || cfg.ImbalanceShort != 0.77 {
		t.Fatalf("unexpected aggressive thresholds: %f/%f", cfg.ImbalanceLong, cfg.ImbalanceShort)
	}
	if cfg.PreferMaker {
		t.Fatalf("expected aggressive preset to prefer taker")
	}
	if cfg.MomentumThreshold != 1.1 {
		t.Fatalf("unexpected aggressive momentum threshold: %f", cfg.MomentumThreshold)
	}
}

func TestResolveOverridesPreset(t *testing.T) {
	maxSpread := 0.0007
	losses := 5
	spec := StrategySpec{
		Symbol:               "BTC-USD",
		Preset:               PresetConservative,
		MaxSpreadPct:         &maxSpread,
		MaxConsecutiveLosses: &losses,
	}
	cfg, err := spec.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if cfg.MaxSpreadPct != 0.0007 {
		t.Fatalf("expected override 0.0007, got %f", cfg.MaxSpreadPct)
	}
	if cfg.MaxConsecutiveLosses != 5 {
		t.Fatalf("expected override 5, got %d", cfg.MaxConsecutiveLosses)
	}
	// untouched knobs keep their preset value
	if cfg.MaxDailyLossPct != 0.01 {
		t.Fatalf("expected conservative daily loss limit, got %f", cfg.MaxDailyLossPct)
	}
}

func TestResolveUnknownPreset(t *testing.T) {
	spec := StrategySpec{Symbol: "BTC-USD", Preset: "reckless"}
	if _, err := spec.Resolve(); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
}

func TestResolveRejectsInvertedImbalanceThresholds(t *testing.T) {
	short := 2.0
	spec := StrategySpec{Symbol: "BTC-USD", ImbalanceShort: &short}
	if _, err := spec.Resolve(); err == nil {
		t.Fatalf("expected error for imbalance_short >= imbalance_long")
	}
}

func TestResolveRequiresSymbol(t *testing.T) {
	if _, err := (StrategySpec{}).Resolve(); err == nil {
		t.Fatalf("expected error for missing symbol")
	}
}

func TestValidateRanges(t *testing.T) {
	cfg := DefaultStrategy()
	cfg.Symbol = "BTC-USD"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid default config, got %v", err)
	}

	bad := cfg
	bad.MaxDepthPct = 1.5
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for max_depth_pct > 1")
	}

	bad = cfg
	bad.TradeFlowWindow = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for zero trade flow window")
	}

	bad = cfg
	bad.FeePct = 1
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for fee_pct >= 1")
	}
}

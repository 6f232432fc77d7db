package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
feed:
  url: wss://feed.example/ws
gateway:
  url: wss://gateway.example/ws
account:
  equity_usd: 10000
strategy:
  symbol: BTC-USD
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.Log.Level)
	}
	if cfg.Feed.ReconnectDelay != 3*time.Second || cfg.Feed.BookDepth != 50 {
		t.Fatalf("unexpected feed defaults: %+v", cfg.Feed)
	}
	if cfg.Gateway.TokenEnv != "OBX_GATEWAY_TOKEN" || cfg.Gateway.SubmitTimeout != 5*time.Second {
		t.Fatalf("unexpected gateway defaults: %+v", cfg.Gateway)
	}
	if cfg.State.SQLitePath != "data/obx-bot.db" {
		t.Fatalf("unexpected state default: %q", cfg.State.SQLitePath)
	}
	if !cfg.Metrics.EnabledValue() || cfg.Metrics.Address != "127.0.0.1:9102" {
		t.Fatalf("unexpected metrics defaults: %+v", cfg.Metrics)
	}
	if cfg.Account.MinNotionalUSD != 10 {
		t.Fatalf("expected default min notional 10, got %f", cfg.Account.MinNotionalUSD)
	}
	if cfg.Strategy.Preset != PresetDefault {
		t.Fatalf("expected default preset, got %q", cfg.Strategy.Preset)
	}
}

func TestLoadMetricsCanBeDisabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
metrics:
  enabled: false
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Metrics.EnabledValue() {
		t.Fatalf("expected metrics disabled")
	}
}

func TestLoadRequiresFeedURL(t *testing.T) {
	_, err := Load(writeConfig(t, `
gateway:
  url: wss://gateway.example/ws
account:
  equity_usd: 10000
strategy:
  symbol: BTC-USD
`))
	if err == nil {
		t.Fatalf("expected error for missing feed url")
	}
}

func TestLoadRequiresPositiveEquity(t *testing.T) {
	_, err := Load(writeConfig(t, `
feed:
  url: wss://feed.example/ws
gateway:
  url: wss://gateway.example/ws
strategy:
  symbol: BTC-USD
`))
	if err == nil {
		t.Fatalf("expected error for missing equity")
	}
}

func TestLoadValidatesStrategy(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
  imbalance_short: 2.5
`))
	if err == nil {
		t.Fatalf("expected error for inverted imbalance thresholds")
	}
}

func TestLoadTelegramEnvOverrides(t *testing.T) {
	t.Setenv("OBX_TELEGRAM_TOKEN", "env-token")
	t.Setenv("OBX_TELEGRAM_CHAT_ID", "env-chat")
	cfg, err := Load(writeConfig(t, minimalConfig+`
telegram:
  enabled: true
  token: file-token
  chat_id: file-chat
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Telegram.Token != "env-token" || cfg.Telegram.ChatID != "env-chat" {
		t.Fatalf("expected env overrides, got %+v", cfg.Telegram)
	}
}

func TestLoadTelegramEnabledRequiresCredentials(t *testing.T) {
	t.Setenv("OBX_TELEGRAM_TOKEN", "")
	t.Setenv("OBX_TELEGRAM_CHAT_ID", "")
	_, err := Load(writeConfig(t, minimalConfig+`
telegram:
  enabled: true
`))
	if err == nil {
		t.Fatalf("expected error for telegram without credentials")
	}
}

func TestLoadStrategyOverridesFromYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
feed:
  url: wss://feed.example/ws
gateway:
  url: wss://gateway.example/ws
account:
  equity_usd: 10000
strategy:
  symbol: BTC-USD
  preset: aggressive
  cooldown_after_losses: 45s
  max_spread_pct: 0.0015
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	strat, err := cfg.Strategy.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if strat.CooldownAfterLosses != 45*time.Second {
		t.Fatalf("expected cooldown 45s, got %s", strat.CooldownAfterLosses)
	}
	if strat.MaxSpreadPct != 0.0015 {
		t.Fatalf("expected max spread 0.0015, got %f", strat.MaxSpreadPct)
	}
	if strat.ImbalanceLong != 1.3 {
		t.Fatalf("expected aggressive base under overrides, got %f", strat.ImbalanceLong)
	}
}

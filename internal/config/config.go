package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	Feed      FeedConfig      `yaml:"feed"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	State     StateConfig     `yaml:"state"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Account   AccountConfig   `yaml:"account"`
	Strategy  StrategySpec    `yaml:"strategy"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type FeedConfig struct {
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	BookDepth      int           `yaml:"book_depth"`
	TradeBuffer    int           `yaml:"trade_buffer"`
}

type GatewayConfig struct {
	URL            string        `yaml:"url"`
	TokenEnv       string        `yaml:"token_env"`
	SubmitTimeout  time.Duration `yaml:"submit_timeout"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

func (m MetricsConfig) EnabledValue() bool {
	return m.Enabled != nil && *m.Enabled
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
	Schema  string `yaml:"schema"`
}

type AccountConfig struct {
	EquityUSD      float64 `yaml:"equity_usd"`
	MinNotionalUSD float64 `yaml:"min_notional_usd"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Feed.ReconnectDelay == 0 {
		cfg.Feed.ReconnectDelay = 3 * time.Second
	}
	if cfg.Feed.PingInterval == 0 {
		cfg.Feed.PingInterval = 15 * time.Second
	}
	if cfg.Feed.BookDepth == 0 {
		cfg.Feed.BookDepth = 50
	}
	if cfg.Feed.TradeBuffer == 0 {
		cfg.Feed.TradeBuffer = 512
	}
	if cfg.Gateway.TokenEnv == "" {
		cfg.Gateway.TokenEnv = "OBX_GATEWAY_TOKEN"
	}
	if cfg.Gateway.SubmitTimeout == 0 {
		cfg.Gateway.SubmitTimeout = 5 * time.Second
	}
	if cfg.Gateway.ReconnectDelay == 0 {
		cfg.Gateway.ReconnectDelay = 3 * time.Second
	}
	if cfg.Gateway.PingInterval == 0 {
		cfg.Gateway.PingInterval = 15 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/obx-bot.db"
	}
	if cfg.Metrics.Enabled == nil {
		enabled := true
		cfg.Metrics.Enabled = &enabled
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9102"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Telemetry.Schema == "" {
		cfg.Telemetry.Schema = "public"
	}
	if cfg.Account.MinNotionalUSD == 0 {
		cfg.Account.MinNotionalUSD = 10
	}
	if cfg.Strategy.Preset == "" {
		cfg.Strategy.Preset = PresetDefault
	}
}

func applyEnvOverrides(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv("OBX_TELEGRAM_TOKEN")); token != "" {
		cfg.Telegram.Token = token
	}
	if chatID := strings.TrimSpace(os.Getenv("OBX_TELEGRAM_CHAT_ID")); chatID != "" {
		cfg.Telegram.ChatID = chatID
	}
}

func validate(cfg *Config) error {
	if cfg.Feed.URL == "" {
		return errors.New("feed.url is required")
	}
	if cfg.Gateway.URL == "" {
		return errors.New("gateway.url is required")
	}
	if cfg.Feed.ReconnectDelay < 0 || cfg.Gateway.ReconnectDelay < 0 {
		return errors.New("reconnect delays must be >= 0")
	}
	if cfg.Feed.BookDepth < 0 || cfg.Feed.TradeBuffer < 0 {
		return errors.New("feed.book_depth and feed.trade_buffer must be >= 0")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /: %q", cfg.Metrics.Path)
	}
	if cfg.Telegram.Enabled && (cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	if cfg.Telemetry.Enabled && strings.TrimSpace(cfg.Telemetry.DSN) == "" {
		return errors.New("telemetry.dsn is required when telemetry is enabled")
	}
	if cfg.Account.EquityUSD <= 0 {
		return errors.New("account.equity_usd must be > 0")
	}
	if cfg.Account.MinNotionalUSD < 0 {
		return errors.New("account.min_notional_usd must be >= 0")
	}
	if _, err := cfg.Strategy.Resolve(); err != nil {
		return err
	}
	return nil
}

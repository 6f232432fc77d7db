package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"obx-bot/internal/alerts"
	"obx-bot/internal/config"
	"obx-bot/internal/engine"
	"obx-bot/internal/exec"
	"obx-bot/internal/gateway"
	"obx-bot/internal/market"
	"obx-bot/internal/metrics"
	"obx-bot/internal/risk"
	"obx-bot/internal/state/sqlite"
	"obx-bot/internal/telemetry"
	"obx-bot/internal/ws"

	"go.uber.org/zap"
)

type App struct {
	cfg   *config.Config
	strat config.StrategyConfig
	log   *zap.Logger

	store     *sqlite.Store
	feed      *market.Feed
	gateway   *gateway.Client
	risk      *risk.Manager
	engine    *engine.Engine
	metrics   *metrics.Metrics
	prom      *metrics.Prometheus
	alerts    *alerts.Telegram
	telemetry *telemetry.Writer
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	strat, err := cfg.Strategy.Resolve()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}

	m := metrics.NewNoop()
	var prom *metrics.Prometheus
	if cfg.Metrics.EnabledValue() {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}

	clock := risk.NewClock()
	saver := risk.NewSnapshotSaver(store, log)
	riskMgr, err := risk.NewManager(strat, cfg.Account.EquityUSD, clock, saver, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := risk.Restore(context.Background(), store, riskMgr); err != nil {
		log.Warn("risk state restore failed", zap.Error(err))
	}

	eng, err := engine.New(strat, cfg.Account.MinNotionalUSD, riskMgr, m, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	feedWS := ws.New(cfg.Feed.URL, cfg.Feed.ReconnectDelay, cfg.Feed.PingInterval, log)
	feed := market.NewFeed(feedWS, market.FeedOptions{
		Symbol:      strat.Symbol,
		BookDepth:   cfg.Feed.BookDepth,
		TradeWindow: strat.TradeFlowWindow,
		TradeBuffer: cfg.Feed.TradeBuffer,
	}, log)

	token := strings.TrimSpace(os.Getenv(cfg.Gateway.TokenEnv))
	if token == "" {
		_ = store.Close()
		return nil, fmt.Errorf("%s is required", cfg.Gateway.TokenEnv)
	}
	gatewayWS := ws.New(cfg.Gateway.URL, cfg.Gateway.ReconnectDelay, cfg.Gateway.PingInterval, log)
	gw := gateway.New(gatewayWS, store, token, cfg.Gateway.SubmitTimeout, log)

	tele, err := telemetry.New(cfg.Telemetry, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		cfg:       cfg,
		strat:     strat,
		log:       log,
		store:     store,
		feed:      feed,
		gateway:   gw,
		risk:      riskMgr,
		engine:    eng,
		metrics:   m,
		prom:      prom,
		alerts:    alerts.NewTelegram(cfg.Telegram, log),
		telemetry: tele,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	if a.telemetry != nil {
		if err := a.telemetry.Start(ctx); err != nil {
			a.log.Warn("telemetry start failed", zap.Error(err))
		} else {
			defer a.telemetry.Close()
		}
	}
	a.serveMetrics(ctx)

	a.gateway.Start(ctx)
	if err := a.feed.Start(ctx); err != nil {
		return err
	}
	a.publishRiskStatus()
	a.log.Info("engine started",
		zap.String("symbol", a.strat.Symbol),
		zap.String("preset", a.cfg.Strategy.Preset),
		zap.Float64("equity_usd", a.cfg.Account.EquityUSD),
	)

	// Single decision worker: snapshots and realized outcomes are consumed by
	// one goroutine, so engine invocation and risk mutation never interleave.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-a.feed.Snapshots():
			a.tick(ctx, snap)
		case outcome := <-a.gateway.Outcomes():
			a.applyOutcome(ctx, outcome)
		}
	}
}

func (a *App) tick(ctx context.Context, snap market.MarketSnapshot) {
	decision := a.engine.OnMarketUpdate(snap)
	a.writeSnapshotTelemetry(snap, decision)
	if !decision.Trade || decision.Order == nil {
		return
	}
	order := *decision.Order
	// Submission is a network round-trip; detach it so the worker keeps
	// consuming ticks. Outcomes re-enter through the worker's select.
	go func() {
		result, err := a.gateway.Submit(ctx, order)
		if err != nil {
			a.metrics.OrdersFailed.Inc()
			a.log.Warn("order submission failed",
				zap.String("cloid", order.ClientOrderID),
				zap.Error(err),
			)
			return
		}
		a.metrics.OrdersPlaced.Inc()
		a.log.Info("order accepted",
			zap.String("order_id", result.OrderID),
			zap.String("cloid", result.ClientOrderID),
			zap.String("status", string(result.Status)),
		)
	}()
}

func (a *App) applyOutcome(ctx context.Context, outcome exec.TradeOutcome) {
	before := a.risk.Status()
	if outcome.PnLUSD >= 0 {
		a.risk.RecordWin(outcome.PnLUSD)
	} else {
		a.risk.RecordLoss(outcome.PnLUSD)
	}
	after := a.risk.Status()
	a.publishRiskStatus()
	a.log.Info("realized outcome",
		zap.String("cloid", outcome.ClientOrderID),
		zap.Float64("pnl_usd", outcome.PnLUSD),
		zap.String("risk_state", string(after.State)),
		zap.Int("consecutive_losses", after.ConsecutiveLosses),
	)

	if after.State == risk.StateCooldown && before.State != risk.StateCooldown {
		a.metrics.CooldownEngaged.Inc()
		a.notify(ctx, fmt.Sprintf("Cooldown engaged after %d consecutive losses (%s remaining)",
			after.ConsecutiveLosses, after.CooldownRemaining.Round(time.Second)))
	}
	if after.State == risk.StateDailyBlocked && before.State != risk.StateDailyBlocked {
		a.metrics.DailyBlockEngaged.Inc()
		a.notify(ctx, fmt.Sprintf("Daily loss limit hit: %.2f%% of equity, trading blocked until next UTC day",
			after.DailyLossPct*100))
	}
}

func (a *App) publishRiskStatus() {
	status := a.risk.Status()
	a.metrics.DailyPnLUSD.Set(status.DailyPnLUSD)
	a.metrics.ConsecutiveLosses.Set(float64(status.ConsecutiveLosses))
	if a.telemetry != nil {
		a.telemetry.WriteRisk(telemetry.RiskRow{
			Time:              time.Now().UTC(),
			State:             string(status.State),
			ConsecutiveLosses: status.ConsecutiveLosses,
			DailyPnLUSD:       status.DailyPnLUSD,
			DailyLossPct:      status.DailyLossPct,
		})
	}
}

func (a *App) writeSnapshotTelemetry(snap market.MarketSnapshot, decision engine.TradeDecision) {
	if a.telemetry == nil {
		return
	}
	label := string(decision.Reason)
	if decision.Trade {
		label = "trade"
	}
	a.telemetry.WriteSnapshot(telemetry.SnapshotRow{
		Time:      snap.Time,
		Symbol:    snap.Symbol,
		BestBid:   snap.BestBid,
		BestAsk:   snap.BestAsk,
		Mid:       snap.Mid,
		SpreadPct: snap.SpreadPct,
		BidDepth:  market.DepthWithin(snap.Bids, a.strat.TopNLevels),
		AskDepth:  market.DepthWithin(snap.Asks, a.strat.TopNLevels),
		Trades:    len(snap.Trades),
		Decision:  label,
	})
}

func (a *App) notify(ctx context.Context, message string) {
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := a.alerts.Send(sendCtx, message); err != nil {
			a.log.Warn("alert send failed", zap.Error(err))
		}
	}()
}

func (a *App) serveMetrics(ctx context.Context) {
	if a.prom == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.prom.Handler())
	server := &http.Server{Addr: a.cfg.Metrics.Address, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}

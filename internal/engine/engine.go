// Package engine orchestrates the per-tick decision pipeline: risk gate,
// spread filter, signal agreement, sizing, post-size re-validation, execution
// policy. Strictly linear, early exit at the first veto, no retries.
package engine

import (
	"errors"
	"time"

	"obx-bot/internal/config"
	"obx-bot/internal/exec"
	"obx-bot/internal/market"
	"obx-bot/internal/metrics"
	"obx-bot/internal/risk"
	"obx-bot/internal/signal"
	"obx-bot/internal/strategy"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reason tags a NoTrade decision with the stage that vetoed it.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonRiskBlocked       Reason = "risk_blocked"
	ReasonVolatilityBrake   Reason = "volatility_brake"
	ReasonSpreadTooWide     Reason = "spread_too_wide"
	ReasonInsufficientDepth Reason = "insufficient_depth"
	ReasonNoSignal          Reason = "no_signal"
	ReasonFlowUnconfirmed   Reason = "flow_unconfirmed"
	ReasonInsufficientSize  Reason = "insufficient_size"
)

// TradeDecision is the total output of one tick: either an order request or a
// tagged NoTrade. Never retained past the tick.
type TradeDecision struct {
	Symbol string
	Trade  bool
	Reason Reason
	Signal signal.TradeSignal
	Flow   signal.FlowMetrics
	Size   strategy.SizeResult
	Order  *exec.OrderRequest
	At     time.Time
}

// Engine holds no state beyond its collaborators. It reads the risk manager
// through CanTrade and never mutates it; realized outcomes are reported by
// the execution layer, not here.
type Engine struct {
	cfg         config.StrategyConfig
	minNotional float64
	risk        *risk.Manager
	metrics     *metrics.Metrics
	log         *zap.Logger
}

func New(cfg config.StrategyConfig, minNotionalUSD float64, riskMgr *risk.Manager, m *metrics.Metrics, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Engine{cfg: cfg, minNotional: minNotionalUSD, risk: riskMgr, metrics: m, log: log}, nil
}

// OnMarketUpdate runs the pipeline over one snapshot. It is synchronous,
// non-blocking, and must be invoked by exactly one worker at a time.
func (e *Engine) OnMarketUpdate(snap market.MarketSnapshot) TradeDecision {
	e.metrics.DecisionsEvaluated.Inc()
	decision := TradeDecision{Symbol: snap.Symbol, At: snap.Time}

	if err := e.risk.CanTrade(snap); err != nil {
		return e.noTrade(decision, riskReason(err), err)
	}
	if err := strategy.CheckSpread(snap, e.cfg); err != nil {
		return e.noTrade(decision, ReasonSpreadTooWide, err)
	}
	if err := strategy.CheckDepth(snap, signal.None, 0, e.cfg); err != nil {
		return e.noTrade(decision, ReasonInsufficientDepth, err)
	}

	decision.Signal = signal.Imbalance(snap, e.cfg)
	decision.Flow = signal.AnalyzeFlow(snap, e.cfg)
	if decision.Signal.Direction == signal.None {
		return e.noTrade(decision, ReasonNoSignal, nil)
	}
	// Agreement rule: the book signal trades only when the tape confirms the
	// same direction, which suppresses spoofed one-sided books.
	if !decision.Flow.Confirms(decision.Signal.Direction, e.cfg) {
		return e.noTrade(decision, ReasonFlowUnconfirmed, nil)
	}
	dir := decision.Signal.Direction

	size, err := strategy.Size(snap, dir, e.risk.EquityUSD(), e.minNotional, e.cfg)
	decision.Size = size
	if err != nil {
		return e.noTrade(decision, ReasonInsufficientSize, err)
	}
	if err := strategy.CheckSpread(snap, e.cfg); err != nil {
		return e.noTrade(decision, ReasonSpreadTooWide, err)
	}
	if err := strategy.CheckDepth(snap, dir, size.Quantity, e.cfg); err != nil {
		return e.noTrade(decision, ReasonInsufficientDepth, err)
	}

	choice := strategy.ChooseExecution(snap, dir, decision.Flow.Momentum(dir), e.cfg)
	order := exec.OrderRequest{
		Symbol:        snap.Symbol,
		Side:          orderSide(dir),
		Style:         exec.Style(choice.Style),
		Price:         choice.LimitPrice,
		Quantity:      size.Quantity,
		PostOnly:      choice.PostOnly,
		ClientOrderID: uuid.NewString(),
	}
	decision.Trade = true
	decision.Order = &order
	e.metrics.SignalsConfirmed.Inc()
	e.log.Info("trade decision",
		zap.String("symbol", snap.Symbol),
		zap.String("direction", string(dir)),
		zap.String("style", string(order.Style)),
		zap.Float64("quantity", order.Quantity),
		zap.Float64("imbalance_ratio", decision.Signal.Ratio),
		zap.Float64("momentum", decision.Flow.Momentum(dir)),
		zap.String("cloid", order.ClientOrderID),
	)
	return decision
}

func (e *Engine) noTrade(decision TradeDecision, reason Reason, cause error) TradeDecision {
	decision.Trade = false
	decision.Reason = reason
	switch reason {
	case ReasonRiskBlocked, ReasonVolatilityBrake:
		e.metrics.RiskVetoes.Inc()
	case ReasonSpreadTooWide, ReasonInsufficientDepth:
		e.metrics.SpreadVetoes.Inc()
	case ReasonNoSignal, ReasonFlowUnconfirmed:
		e.metrics.SignalVetoes.Inc()
	case ReasonInsufficientSize:
		e.metrics.SizeVetoes.Inc()
	}
	if cause != nil {
		e.log.Debug("no trade", zap.String("symbol", decision.Symbol), zap.String("reason", string(reason)), zap.Error(cause))
	} else {
		e.log.Debug("no trade", zap.String("symbol", decision.Symbol), zap.String("reason", string(reason)))
	}
	return decision
}

func riskReason(err error) Reason {
	if errors.Is(err, risk.ErrVolatilityBrake) {
		return ReasonVolatilityBrake
	}
	return ReasonRiskBlocked
}

func orderSide(dir signal.Direction) exec.Side {
	if dir == signal.Short {
		return exec.SideSell
	}
	return exec.SideBuy
}

// Package exec defines the order-submission collaborator contract. The core
// never talks to a transport directly; it hands an OrderRequest to an
// Executor and learns realized outcomes through a separate channel owned by
// the execution layer.
package exec

import (
	"context"
	"fmt"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type Style string

const (
	StyleMaker Style = "MAKER"
	StyleTaker Style = "TAKER"
)

type OrderStatus string

const (
	StatusAcknowledged OrderStatus = "ACKNOWLEDGED"
	StatusFilled       OrderStatus = "FILLED"
	StatusPartial      OrderStatus = "PARTIAL"
	StatusRejected     OrderStatus = "REJECTED"
	StatusCanceled     OrderStatus = "CANCELED"
)

// OrderRequest is the transient order intent produced by one tick. Price is
// meaningful for maker orders only; taker orders cross at market.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Style         Style
	Price         float64
	Quantity      float64
	PostOnly      bool
	ClientOrderID string
}

type OrderResult struct {
	OrderID        string
	ClientOrderID  string
	FilledQuantity float64
	AveragePrice   float64
	Status         OrderStatus
}

// ExecutionError is a submission failure with a venue reason code.
type ExecutionError struct {
	Code    string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed [%s]: %s", e.Code, e.Message)
}

// Executor submits orders asynchronously relative to tick processing. Retry,
// backoff and timeouts live behind this interface, not in the core.
type Executor interface {
	Submit(ctx context.Context, req OrderRequest) (OrderResult, error)
}

// TradeOutcome is a realized round-trip result reported by the execution
// layer once an order's fate is known. It is the only path that may move the
// risk manager's P&L counters.
type TradeOutcome struct {
	ClientOrderID string
	OrderID       string
	PnLUSD        float64
}

// Package gateway is the concrete order-execution collaborator: a
// msgpack-over-websocket session against the internal execution gateway.
// Retry, backoff and submission timeouts live here, outside the decision
// core. Duplicate submissions are prevented by the client-order-id cache and
// by the gateway's own cloid dedup.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"obx-bot/internal/exec"
	"obx-bot/internal/state"
	"obx-bot/internal/ws"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	cloidKeyPrefix = "gateway:cloid:"
	submitAttempts = 5
	initialBackoff = 200 * time.Millisecond
	outcomeBacklog = 256
)

type Client struct {
	ws      *ws.Client
	store   state.Store
	log     *zap.Logger
	token   string
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan inboundFrame
	cloids  map[string]string

	outcomes chan exec.TradeOutcome
}

func New(wsClient *ws.Client, store state.Store, token string, submitTimeout time.Duration, log *zap.Logger) *Client {
	c := &Client{
		ws:       wsClient,
		store:    store,
		log:      log,
		token:    token,
		timeout:  submitTimeout,
		pending:  make(map[string]chan inboundFrame),
		cloids:   make(map[string]string),
		outcomes: make(chan exec.TradeOutcome, outcomeBacklog),
	}
	wsClient.OnOpen(func(ctx context.Context) error {
		frame, err := encodeAuth(c.token)
		if err != nil {
			return err
		}
		return c.ws.SendBinary(ctx, frame)
	})
	return c
}

func (c *Client) Start(ctx context.Context) {
	go func() {
		_ = c.ws.Run(ctx, c.handleFrame)
	}()
}

// Outcomes delivers realized round-trip results as the gateway reports them.
// The app's decision worker is the single consumer.
func (c *Client) Outcomes() <-chan exec.TradeOutcome {
	return c.outcomes
}

// Submit implements exec.Executor with bounded retry. A client order id that
// was already accepted (in memory or in the durable cache) is not re-sent.
func (c *Client) Submit(ctx context.Context, req exec.OrderRequest) (exec.OrderResult, error) {
	if req.ClientOrderID == "" {
		return exec.OrderResult{}, fmt.Errorf("submit %s: client order id is required", req.Symbol)
	}
	if orderID, ok := c.cachedOrderID(ctx, req.ClientOrderID); ok {
		return exec.OrderResult{
			OrderID:       orderID,
			ClientOrderID: req.ClientOrderID,
			Status:        exec.StatusAcknowledged,
		}, nil
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < submitAttempts; attempt++ {
		result, err := c.submitOnce(ctx, req)
		if err == nil {
			c.rememberOrderID(ctx, req.ClientOrderID, result.OrderID)
			return result, nil
		}
		var execErr *exec.ExecutionError
		if errors.As(err, &execErr) {
			// the venue rejected the order; retrying the same request cannot help
			return exec.OrderResult{}, err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return exec.OrderResult{}, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return exec.OrderResult{}, fmt.Errorf("submit %s failed after %d attempts: %w", req.Symbol, submitAttempts, lastErr)
}

func (c *Client) submitOnce(ctx context.Context, req exec.OrderRequest) (exec.OrderResult, error) {
	requestID := uuid.NewString()
	waiter := make(chan inboundFrame, 1)
	c.mu.Lock()
	c.pending[requestID] = waiter
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
	}()

	frame, err := encodeSubmit(requestID, req)
	if err != nil {
		return exec.OrderResult{}, err
	}
	if err := c.ws.SendBinary(ctx, frame); err != nil {
		return exec.OrderResult{}, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return exec.OrderResult{}, ctx.Err()
	case <-timer.C:
		return exec.OrderResult{}, fmt.Errorf("submit %s: no gateway response within %s", req.Symbol, c.timeout)
	case resp := <-waiter:
		if resp.Type == frameOrderError {
			return exec.OrderResult{}, &exec.ExecutionError{Code: resp.Code, Message: resp.Message}
		}
		return exec.OrderResult{
			OrderID:        resp.OrderID,
			ClientOrderID:  req.ClientOrderID,
			FilledQuantity: resp.FilledQty,
			AveragePrice:   resp.AvgPrice,
			Status:         exec.OrderStatus(resp.Status),
		}, nil
	}
}

func (c *Client) handleFrame(msgType websocket.MessageType, data []byte) {
	if msgType != websocket.MessageBinary {
		return
	}
	frame, err := decodeFrame(data)
	if err != nil {
		c.log.Warn("gateway frame decode failed", zap.Error(err))
		return
	}
	switch frame.Type {
	case frameOrderResult, frameOrderError:
		c.mu.Lock()
		waiter, ok := c.pending[frame.ID]
		c.mu.Unlock()
		if !ok {
			c.log.Warn("gateway response without waiter", zap.String("request_id", frame.ID))
			return
		}
		waiter <- frame
	case frameTradeClosed:
		outcome := exec.TradeOutcome{
			ClientOrderID: frame.Cloid,
			OrderID:       frame.OrderID,
			PnLUSD:        frame.PnLUSD,
		}
		select {
		case c.outcomes <- outcome:
		default:
			c.log.Error("outcome backlog full, dropping realized result",
				zap.String("cloid", outcome.ClientOrderID),
				zap.Float64("pnl_usd", outcome.PnLUSD),
			)
		}
	}
}

func (c *Client) cachedOrderID(ctx context.Context, cloid string) (string, bool) {
	c.mu.Lock()
	orderID, ok := c.cloids[cloid]
	c.mu.Unlock()
	if ok {
		return orderID, true
	}
	if c.store == nil {
		return "", false
	}
	orderID, ok, err := c.store.Get(ctx, cloidKeyPrefix+cloid)
	if err != nil {
		c.log.Warn("cloid cache read failed", zap.Error(err))
		return "", false
	}
	if ok {
		c.mu.Lock()
		c.cloids[cloid] = orderID
		c.mu.Unlock()
	}
	return orderID, ok
}

func (c *Client) rememberOrderID(ctx context.Context, cloid, orderID string) {
	if orderID == "" {
		return
	}
	c.mu.Lock()
	c.cloids[cloid] = orderID
	c.mu.Unlock()
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, cloidKeyPrefix+cloid, orderID); err != nil {
		c.log.Warn("cloid cache persist failed", zap.Error(err))
	}
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Client is a reconnecting websocket session. Subscriptions registered with
// Subscribe are replayed after every reconnect, so stream consumers never see
// a connected-but-unsubscribed session.
type Client struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   []any
	onOpen func(ctx context.Context) error
}

func New(url string, reconnectDelay, pingInterval time.Duration, log *zap.Logger) *Client {
	return &Client{url: url, reconnectDelay: reconnectDelay, pingInterval: pingInterval, log: log}
}

// OnOpen registers a hook invoked after each successful (re)connect, before
// subscription replay. The gateway uses it to re-authenticate the session.
func (c *Client) OnOpen(fn func(ctx context.Context) error) {
	c.mu.Lock()
	c.onOpen = fn
	c.mu.Unlock()
}

// Subscribe registers a subscription message and sends it if connected.
func (c *Client) Subscribe(ctx context.Context, sub any) error {
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return writeJSON(ctx, conn, sub)
}

// SendJSON writes a text frame to the current connection.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	conn := c.current()
	if conn == nil {
		return errors.New("ws not connected")
	}
	return writeJSON(ctx, conn, v)
}

// SendBinary writes a binary frame to the current connection.
func (c *Client) SendBinary(ctx context.Context, data []byte) error {
	conn := c.current()
	if conn == nil {
		return errors.New("ws not connected")
	}
	return conn.Write(ctx, websocket.MessageBinary, data)
}

// Run connects and reads frames until ctx is cancelled, reconnecting with a
// fixed delay on read failure. The handler runs on the read goroutine.
func (c *Client) Run(ctx context.Context, handler func(msgType websocket.MessageType, data []byte)) error {
	for {
		if err := c.open(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("ws dial failed", zap.String("url", c.url), zap.Error(err))
		} else {
			err := c.readLoop(ctx, handler)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("ws read loop ended", zap.String("url", c.url), zap.Error(err))
		}
		c.closeConn()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Client) open(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	subs := append([]any(nil), c.subs...)
	onOpen := c.onOpen
	c.mu.Unlock()
	if onOpen != nil {
		if err := onOpen(ctx); err != nil {
			return err
		}
	}
	for _, sub := range subs {
		if err := writeJSON(ctx, conn, sub); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context, handler func(websocket.MessageType, []byte)) error {
	conn := c.current()
	if conn == nil {
		return errors.New("ws not connected")
	}
	pingCtx, stopPing := context.WithCancel(ctx)
	pingDone := make(chan struct{})
	go func() {
		defer close(pingDone)
		c.pingLoop(pingCtx, conn)
	}()
	defer func() {
		stopPing()
		<-pingDone
	}()
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if handler != nil {
			handler(msgType, data)
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	if c.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "reset")
		c.conn = nil
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

package market

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"obx-bot/internal/ws"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// FeedOptions bounds the feed's book subscription and trade window.
type FeedOptions struct {
	Symbol      string
	BookDepth   int
	TradeWindow time.Duration
	TradeBuffer int // hard cap on retained trades, drop-oldest
}

// Feed subscribes to the book and trade channels for one symbol, keeps a
// bounded recent-trade window, and assembles a MarketSnapshot on every book
// update. Snapshots are delivered on a capacity-1 channel with latest-wins
// sampling: if the decision worker is mid-tick, the stale pending snapshot is
// replaced rather than queued, so the worker always sees the freshest book.
type Feed struct {
	ws   *ws.Client
	log  *zap.Logger
	opts FeedOptions
	asm  *Assembler

	mu     sync.Mutex
	trades []Trade

	out      chan MarketSnapshot
	rejected atomic.Uint64
	sampled  atomic.Uint64
}

func NewFeed(wsClient *ws.Client, opts FeedOptions, log *zap.Logger) *Feed {
	if opts.TradeBuffer <= 0 {
		opts.TradeBuffer = 512
	}
	return &Feed{
		ws:   wsClient,
		log:  log,
		opts: opts,
		asm:  NewAssembler(),
		out:  make(chan MarketSnapshot, 1),
	}
}

func (f *Feed) Start(ctx context.Context) error {
	bookSub := map[string]any{
		"op":      "subscribe",
		"channel": "book",
		"symbol":  f.opts.Symbol,
		"depth":   f.opts.BookDepth,
	}
	tradeSub := map[string]any{
		"op":      "subscribe",
		"channel": "trades",
		"symbol":  f.opts.Symbol,
	}
	if err := f.ws.Subscribe(ctx, bookSub); err != nil {
		return err
	}
	if err := f.ws.Subscribe(ctx, tradeSub); err != nil {
		return err
	}
	go func() {
		_ = f.ws.Run(ctx, f.handleFrame)
	}()
	return nil
}

// Snapshots is the single ordered snapshot sequence consumed by the decision
// worker. Exactly one receiver must drain it.
func (f *Feed) Snapshots() <-chan MarketSnapshot {
	return f.out
}

// RejectedCount reports snapshots dropped for invalid input (crossed, empty,
// stale). SampledCount reports snapshots replaced before the worker read them.
func (f *Feed) RejectedCount() uint64 { return f.rejected.Load() }
func (f *Feed) SampledCount() uint64  { return f.sampled.Load() }

func (f *Feed) handleFrame(msgType websocket.MessageType, data []byte) {
	if msgType != websocket.MessageText {
		return
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		f.log.Warn("feed frame decode failed", zap.Error(err))
		return
	}
	switch env.Channel {
	case "book":
		f.handleBook(env.Data)
	case "trades":
		f.handleTrade(env.Data)
	}
}

func (f *Feed) handleBook(data json.RawMessage) {
	view, err := parseBook(data)
	if err != nil {
		f.rejected.Add(1)
		f.log.Warn("book payload rejected", zap.Error(err))
		return
	}
	if view.Symbol != f.opts.Symbol {
		return
	}
	snap, err := f.asm.Assemble(view, f.tradesWithin(view.Time))
	if err != nil {
		f.rejected.Add(1)
		f.log.Warn("snapshot rejected", zap.Error(err))
		return
	}
	f.publish(snap)
}

func (f *Feed) handleTrade(data json.RawMessage) {
	symbol, trade, err := parseTrade(data)
	if err != nil {
		f.log.Warn("trade payload rejected", zap.Error(err))
		return
	}
	if symbol != f.opts.Symbol {
		return
	}
	f.mu.Lock()
	f.trades = append(f.trades, trade)
	f.pruneLocked(trade.Time)
	f.mu.Unlock()
}

func (f *Feed) tradesWithin(now time.Time) []Trade {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruneLocked(now)
	return append([]Trade(nil), f.trades...)
}

func (f *Feed) pruneLocked(now time.Time) {
	cutoff := now.Add(-f.opts.TradeWindow)
	idx := 0
	for idx < len(f.trades) && !f.trades[idx].Time.After(cutoff) {
		idx++
	}
	if idx > 0 {
		f.trades = append(f.trades[:0], f.trades[idx:]...)
	}
	if overflow := len(f.trades) - f.opts.TradeBuffer; overflow > 0 {
		f.trades = append(f.trades[:0], f.trades[overflow:]...)
	}
}

func (f *Feed) publish(snap MarketSnapshot) {
	for {
		select {
		case f.out <- snap:
			return
		default:
		}
		select {
		case <-f.out:
			f.sampled.Add(1)
		default:
		}
	}
}

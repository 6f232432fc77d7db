package market

import (
	"errors"
	"testing"
	"time"
)

func testView(bid, ask float64, at time.Time) BookView {
	return BookView{
		Symbol: "BTC-USD",
		Bids:   []BookLevel{{Price: bid, Quantity: 5}},
		Asks:   []BookLevel{{Price: ask, Quantity: 5}},
		Time:   at,
	}
}

func TestAssembleDerivedFields(t *testing.T) {
	asm := NewAssembler()
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	snap, err := asm.Assemble(testView(100.00, 100.02, at), nil)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if snap.BestBid != 100.00 || snap.BestAsk != 100.02 {
		t.Fatalf("unexpected best prices: %f/%f", snap.BestBid, snap.BestAsk)
	}
	if snap.Mid != 100.01 {
		t.Fatalf("expected mid 100.01, got %f", snap.Mid)
	}
	if snap.SpreadPct != snap.Spread/snap.Mid {
		t.Fatalf("spread pct mismatch: %f vs %f", snap.SpreadPct, snap.Spread/snap.Mid)
	}
}

func TestAssembleRejectsCrossedBook(t *testing.T) {
	asm := NewAssembler()
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	_, err := asm.Assemble(testView(100.02, 100.00, at), nil)
	if !errors.Is(err, ErrCrossedBook) {
		t.Fatalf("expected ErrCrossedBook, got %v", err)
	}
	_, err = asm.Assemble(testView(100.00, 100.00, at), nil)
	if !errors.Is(err, ErrCrossedBook) {
		t.Fatalf("expected locked book to be rejected, got %v", err)
	}
}

func TestAssembleRejectsEmptySide(t *testing.T) {
	asm := NewAssembler()
	view := testView(100.00, 100.02, time.Now())
	view.Asks = nil
	_, err := asm.Assemble(view, nil)
	if !errors.Is(err, ErrEmptyBook) {
		t.Fatalf("expected ErrEmptyBook, got %v", err)
	}
}

func TestAssembleRejectsBackwardsTime(t *testing.T) {
	asm := NewAssembler()
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	if _, err := asm.Assemble(testView(100.00, 100.02, at), nil); err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	_, err := asm.Assemble(testView(100.00, 100.02, at.Add(-time.Millisecond)), nil)
	if !errors.Is(err, ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot, got %v", err)
	}
	// equal timestamps are allowed, only strictly older ones are rejected
	if _, err := asm.Assemble(testView(100.00, 100.02, at), nil); err != nil {
		t.Fatalf("expected equal timestamp to pass, got %v", err)
	}
}

func TestAssembleCopiesInputs(t *testing.T) {
	asm := NewAssembler()
	view := testView(100.00, 100.02, time.Now())
	trades := []Trade{{Price: 100.01, Quantity: 1, Time: view.Time}}
	snap, err := asm.Assemble(view, trades)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	view.Bids[0].Quantity = 999
	trades[0].Quantity = 999
	if snap.Bids[0].Quantity != 5 || snap.Trades[0].Quantity != 1 {
		t.Fatalf("snapshot must not alias caller slices")
	}
}

func TestDepthWithin(t *testing.T) {
	levels := []BookLevel{{Price: 100, Quantity: 1}, {Price: 99, Quantity: 2}, {Price: 98, Quantity: 4}}
	if got := DepthWithin(levels, 2); got != 3 {
		t.Fatalf("expected depth 3 over top 2 levels, got %f", got)
	}
	if got := DepthWithin(levels, 10); got != 7 {
		t.Fatalf("expected full depth 7, got %f", got)
	}
	if got := DepthWithin(nil, 5); got != 0 {
		t.Fatalf("expected zero depth for empty side, got %f", got)
	}
}

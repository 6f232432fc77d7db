package market

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseBook(t *testing.T) {
	raw := json.RawMessage(`{
		"symbol": "BTC-USD",
		"bids": [["100.00", "1.5"], ["99.99", "0"], ["99.98", "2"]],
		"asks": [["100.02", "3"]],
		"ts": 1756382400000
	}`)
	view, err := parseBook(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if view.Symbol != "BTC-USD" {
		t.Fatalf("unexpected symbol %q", view.Symbol)
	}
	// zero-quantity levels are dropped
	if len(view.Bids) != 2 || len(view.Asks) != 1 {
		t.Fatalf("unexpected level counts: %d/%d", len(view.Bids), len(view.Asks))
	}
	if view.Bids[0].Price != 100.00 || view.Bids[0].Quantity != 1.5 {
		t.Fatalf("unexpected top bid: %+v", view.Bids[0])
	}
	want := time.UnixMilli(1756382400000).UTC()
	if !view.Time.Equal(want) {
		t.Fatalf("expected time %s, got %s", want, view.Time)
	}
}

func TestParseBookMissingSymbol(t *testing.T) {
	if _, err := parseBook(json.RawMessage(`{"bids": [], "asks": []}`)); err == nil {
		t.Fatalf("expected error for missing symbol")
	}
}

func TestParseBookBadPrice(t *testing.T) {
	raw := json.RawMessage(`{"symbol": "BTC-USD", "bids": [["-1", "1"]], "asks": []}`)
	if _, err := parseBook(raw); err == nil {
		t.Fatalf("expected error for non-positive price")
	}
}

func TestParseTrade(t *testing.T) {
	raw := json.RawMessage(`{
		"symbol": "BTC-USD",
		"price": "100.01",
		"qty": "0.25",
		"ts": 1756382400500,
		"aggressorIsBuyer": true
	}`)
	symbol, trade, err := parseTrade(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if symbol != "BTC-USD" {
		t.Fatalf("unexpected symbol %q", symbol)
	}
	if trade.Price != 100.01 || trade.Quantity != 0.25 || !trade.AggressorIsBuyer {
		t.Fatalf("unexpected trade: %+v", trade)
	}
}

func TestParseTradeRejectsNonPositiveQty(t *testing.T) {
	raw := json.RawMessage(`{"symbol": "BTC-USD", "price": "100", "qty": "0", "ts": 1}`)
	if _, _, err := parseTrade(raw); err == nil {
		t.Fatalf("expected error for zero quantity")
	}
}

package gateway

import (
	"testing"

	"obx-bot/internal/exec"

	"github.com/vmihailenco/msgpack/v5"
)

func TestEncodeAuth(t *testing.T) {
	data, err := encodeAuth("secret")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var frame map[string]any
	if err := msgpack.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if frame["type"] != "auth" || frame["token"] != "secret" {
		t.Fatalf("unexpected auth frame: %v", frame)
	}

	if _, err := encodeAuth(""); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestEncodeSubmit(t *testing.T) {
	req := exec.OrderRequest{
		Symbol:        "BTC-USD",
		Side:          exec.SideBuy,
		Style:         exec.StyleMaker,
		Price:         100.00,
		Quantity:      1.5,
		PostOnly:      true,
		ClientOrderID: "cloid-1",
	}
	data, err := encodeSubmit("req-1", req)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var frame map[string]any
	if err := msgpack.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if frame["type"] != "order.submit" || frame["id"] != "req-1" {
		t.Fatalf("unexpected envelope: %v", frame)
	}
	order, ok := frame["order"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested order map, got %T", frame["order"])
	}
	if order["symbol"] != "BTC-USD" || order["side"] != "BUY" || order["style"] != "MAKER" {
		t.Fatalf("unexpected order fields: %v", order)
	}
	if order["price"] != float64(100) || order["qty"] != 1.5 {
		t.Fatalf("unexpected numeric fields: %v", order)
	}
	if order["post_only"] != true || order["cloid"] != "cloid-1" {
		t.Fatalf("unexpected order flags: %v", order)
	}
}

func TestEncodeSubmitRequiresIDs(t *testing.T) {
	req := exec.OrderRequest{Symbol: "BTC-USD", ClientOrderID: "cloid-1"}
	if _, err := encodeSubmit("", req); err == nil {
		t.Fatalf("expected error for empty request id")
	}
	req.ClientOrderID = ""
	if _, err := encodeSubmit("req-1", req); err == nil {
		t.Fatalf("expected error for empty client order id")
	}
}

func TestDecodeFrame(t *testing.T) {
	data, err := msgpack.Marshal(map[string]any{
		"type":       frameOrderResult,
		"id":         "req-1",
		"order_id":   "o-9",
		"filled_qty": 1.5,
		"avg_price":  100.01,
		"status":     "FILLED",
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	frame, err := decodeFrame(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if frame.Type != frameOrderResult || frame.OrderID != "o-9" || frame.FilledQty != 1.5 {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestDecodeFrameMissingType(t *testing.T) {
	data, err := msgpack.Marshal(map[string]any{"id": "req-1"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if _, err := decodeFrame(data); err == nil {
		t.Fatalf("expected error for missing type")
	}
}

func TestDecodeFrameGarbage(t *testing.T) {
	if _, err := decodeFrame([]byte{0xc1}); err == nil {
		t.Fatalf("expected error for invalid msgpack")
	}
}

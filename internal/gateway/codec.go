package gateway

import (
	"bytes"
	"errors"

	"obx-bot/internal/exec"

	"github.com/vmihailenco/msgpack/v5"
)

// Outbound frames are encoded field by field so the wire layout is explicit
// and stable; inbound frames are small enough to unmarshal into one struct.

func encodeAuth(token string) ([]byte, error) {
	if token == "" {
		return nil, errors.New("gateway token is required")
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeMapLen(2); err != nil {
		return nil, err
	}
	if err := encodeStringField(enc, "type", "auth"); err != nil {
		return nil, err
	}
	if err := encodeStringField(enc, "token", token); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeSubmit(requestID string, req exec.OrderRequest) ([]byte, error) {
	if requestID == "" {
		return nil, errors.New("request id is required")
	}
	if req.ClientOrderID == "" {
		return nil, errors.New("client order id is required")
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeMapLen(3); err != nil {
		return nil, err
	}
	if err := encodeStringField(enc, "type", "order.submit"); err != nil {
		return nil, err
	}
	if err := encodeStringField(enc, "id", requestID); err != nil {
		return nil, err
	}
	if err := enc.EncodeString("order"); err != nil {
		return nil, err
	}
	if err := encodeOrder(enc, req); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeOrder(enc *msgpack.Encoder, req exec.OrderRequest) error {
	if err := enc.EncodeMapLen(7); err != nil {
		return err
	}
	if err := encodeStringField(enc, "symbol", req.Symbol); err != nil {
		return err
	}
	if err := encodeStringField(enc, "side", string(req.Side)); err != nil {
		return err
	}
	if err := encodeStringField(enc, "style", string(req.Style)); err != nil {
		return err
	}
	if err := enc.EncodeString("price"); err != nil {
		return err
	}
	if err := enc.EncodeFloat64(req.Price); err != nil {
		return err
	}
	if err := enc.EncodeString("qty"); err != nil {
		return err
	}
	if err := enc.EncodeFloat64(req.Quantity); err != nil {
		return err
	}
	if err := enc.EncodeString("post_only"); err != nil {
		return err
	}
	if err := enc.EncodeBool(req.PostOnly); err != nil {
		return err
	}
	return encodeStringField(enc, "cloid", req.ClientOrderID)
}

func encodeStringField(enc *msgpack.Encoder, key, value string) error {
	if err := enc.EncodeString(key); err != nil {
		return err
	}
	return enc.EncodeString(value)
}

const (
	frameOrderResult = "order.result"
	frameOrderError  = "order.error"
	frameTradeClosed = "trade.closed"
)

type inboundFrame struct {
	Type      string  `msgpack:"type"`
	ID        string  `msgpack:"id"`
	OrderID   string  `msgpack:"order_id"`
	Cloid     string  `msgpack:"cloid"`
	FilledQty float64 `msgpack:"filled_qty"`
	AvgPrice  float64 `msgpack:"avg_price"`
	Status    string  `msgpack:"status"`
	Code      string  `msgpack:"code"`
	Message   string  `msgpack:"message"`
	PnLUSD    float64 `msgpack:"pnl_usd"`
}

func decodeFrame(data []byte) (inboundFrame, error) {
	var frame inboundFrame
	if err := msgpack.Unmarshal(data, &frame); err != nil {
		return inboundFrame{}, err
	}
	if frame.Type == "" {
		return inboundFrame{}, errors.New("frame missing type")
	}
	return frame, nil
}

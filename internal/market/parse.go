package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Feed wire format: every frame is an envelope tagging a channel, with
// price/quantity fields as strings the way most venues ship them.

type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type bookPayload struct {
	Symbol string      `json:"symbol"`
	Bids   [][2]string `json:"bids"`
	Asks   [][2]string `json:"asks"`
	TimeMS int64       `json:"ts"`
}

type tradePayload struct {
	Symbol           string `json:"symbol"`
	Price            string `json:"price"`
	Quantity         string `json:"qty"`
	TimeMS           int64  `json:"ts"`
	AggressorIsBuyer bool   `json:"aggressorIsBuyer"`
}

func parseBook(data json.RawMessage) (BookView, error) {
	var payload bookPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return BookView{}, err
	}
	if payload.Symbol == "" {
		return BookView{}, errors.New("book payload missing symbol")
	}
	bids, err := parseLevels(payload.Bids)
	if err != nil {
		return BookView{}, fmt.Errorf("book bids: %w", err)
	}
	asks, err := parseLevels(payload.Asks)
	if err != nil {
		return BookView{}, fmt.Errorf("book asks: %w", err)
	}
	return BookView{
		Symbol: payload.Symbol,
		Bids:   bids,
		Asks:   asks,
		Time:   time.UnixMilli(payload.TimeMS).UTC(),
	}, nil
}

func parseTrade(data json.RawMessage) (string, Trade, error) {
	var payload tradePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", Trade{}, err
	}
	if payload.Symbol == "" {
		return "", Trade{}, errors.New("trade payload missing symbol")
	}
	price, err := parsePositiveFloat(payload.Price)
	if err != nil {
		return "", Trade{}, fmt.Errorf("trade price: %w", err)
	}
	qty, err := parsePositiveFloat(payload.Quantity)
	if err != nil {
		return "", Trade{}, fmt.Errorf("trade qty: %w", err)
	}
	trade := Trade{
		Price:            price,
		Quantity:         qty,
		Time:             time.UnixMilli(payload.TimeMS).UTC(),
		AggressorIsBuyer: payload.AggressorIsBuyer,
	}
	return payload.Symbol, trade, nil
}

func parseLevels(raw [][2]string) ([]BookLevel, error) {
	levels := make([]BookLevel, 0, len(raw))
	for _, pair := range raw {
		price, err := parsePositiveFloat(pair[0])
		if err != nil {
			return nil, err
		}
		qty, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			return nil, err
		}
		if qty <= 0 {
			// zero-quantity levels are removals in delta feeds; the feed here
			// ships full views, so they are simply skipped
			continue
		}
		levels = append(levels, BookLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}

func parsePositiveFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("expected positive value, got %s", s)
	}
	return v, nil
}

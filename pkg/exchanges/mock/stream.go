package mock

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/unifex/exchange-adapter/pkg/meta"
	"github.com/unifex/exchange-adapter/pkg/stream"
	"github.com/unifex/exchange-adapter/pkg/types"
)

// The mock venue's wire format: every push message carries a "channel"
// discriminator, subscribe requests are {"op","symbols","channels"}.

type envelope struct {
	Channel string `json:"channel"`
}

func channelOf(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return env.Channel
}

// Protocol builds the mock venue's subscribe payloads.
type Protocol struct{}

type subscribeRequest struct {
	Op       string   `json:"op"`
	Symbols  []string `json:"symbols"`
	Channels []string `json:"channels"`
}

func channels(kinds []meta.Event) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k.String())
	}
	return out
}

func (Protocol) SubscribeMessage(symbols []string, kinds []meta.Event) (interface{}, error) {
	return subscribeRequest{Op: "subscribe", Symbols: symbols, Channels: channels(kinds)}, nil
}

func (Protocol) UnsubscribeMessage(symbols []string, kinds []meta.Event) (interface{}, error) {
	return subscribeRequest{Op: "unsubscribe", Symbols: symbols, Channels: channels(kinds)}, nil
}

type balanceMessage struct {
	Channel string `json:"channel"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
	Free    string `json:"free"`
	Locked  string `json:"locked"`
	TS      int64  `json:"ts"`
}

type orderMessage struct {
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
	Side    string `json:"side"`
	Status  string `json:"status"`
	Price   string `json:"price"`
	Qty     string `json:"qty"`
	Filled  string `json:"filled"`
	OrderID string `json:"order_id"`
	ADL     bool   `json:"adl"`
	TS      int64  `json:"ts"`
}

type tickerMessage struct {
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
	Bid     string `json:"bid"`
	Ask     string `json:"ask"`
	TS      int64  `json:"ts"`
}

type positionMessage struct {
	Channel    string `json:"channel"`
	Symbol     string `json:"symbol"`
	NetQty     string `json:"net_qty"`
	EntryPrice string `json:"entry_price"`
	TS         int64  `json:"ts"`
}

func dec(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad decimal %q: %w", s, err)
	}
	return d, nil
}

// Rules returns the mock venue's message classifier.
func Rules() []stream.Rule {
	return []stream.Rule{
		{
			Kind:  meta.EventBalance,
			Match: func(raw []byte) bool { return channelOf(raw) == "balance" },
			Parse: parseBalance,
		},
		{
			Kind:  meta.EventOrder,
			Match: func(raw []byte) bool { return channelOf(raw) == "order" },
			Parse: parseOrder,
		},
		{
			Kind:  meta.EventPosition,
			Match: func(raw []byte) bool { return channelOf(raw) == "position" },
			Parse: parsePosition,
		},
		{
			Kind:  meta.EventTicker,
			Match: func(raw []byte) bool { return channelOf(raw) == "ticker" },
			Parse: parseTicker,
		},
	}
}

func parseBalance(raw []byte) ([]any, error) {
	var m balanceMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	balance, err := dec(m.Balance)
	if err != nil {
		return nil, err
	}
	free, err := dec(m.Free)
	if err != nil {
		return nil, err
	}
	locked, err := dec(m.Locked)
	if err != nil {
		return nil, err
	}

	return []any{types.Balance{
		Asset:   m.Asset,
		Balance: balance,
		Free:    free,
		Locked:  locked,
		Kind:    types.UpdateFull,
		TS:      m.TS,
	}}, nil
}

func parseOrder(raw []byte) ([]any, error) {
	var m orderMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	price, err := dec(m.Price)
	if err != nil {
		return nil, err
	}
	qty, err := dec(m.Qty)
	if err != nil {
		return nil, err
	}
	filled, err := dec(m.Filled)
	if err != nil {
		return nil, err
	}

	return []any{types.OrderSnapshot{
		ExchSymbol:   m.Symbol,
		Price:        price,
		Qty:          qty,
		FilledQty:    filled,
		Side:         meta.ParseOrderSide(m.Side),
		Status:       meta.ParseOrderStatus(m.Status),
		OrderID:      m.OrderID,
		ADL:          m.ADL,
		ExchUpdateTS: m.TS,
	}}, nil
}

func parsePosition(raw []byte) ([]any, error) {
	var m positionMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	netQty, err := dec(m.NetQty)
	if err != nil {
		return nil, err
	}
	entry, err := dec(m.EntryPrice)
	if err != nil {
		return nil, err
	}

	return []any{types.Position{
		ExchSymbol: m.Symbol,
		NetQty:     netQty,
		EntryPrice: entry,
		TS:         m.TS,
	}}, nil
}

func parseTicker(raw []byte) ([]any, error) {
	var m tickerMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	bid, err := dec(m.Bid)
	if err != nil {
		return nil, err
	}
	ask, err := dec(m.Ask)
	if err != nil {
		return nil, err
	}

	return []any{types.Ticker{
		ExchSymbol: m.Symbol,
		Bid:        bid,
		Ask:        ask,
		TS:         m.TS,
	}}, nil
}

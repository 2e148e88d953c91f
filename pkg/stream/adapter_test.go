package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifex/exchange-adapter/pkg/eventbus"
	"github.com/unifex/exchange-adapter/pkg/logging"
	"github.com/unifex/exchange-adapter/pkg/meta"
	"github.com/unifex/exchange-adapter/pkg/types"
	"github.com/unifex/exchange-adapter/pkg/websocket"
)

// jsonProtocol emits {"op":"subscribe","symbols":[...]} style payloads.
type jsonProtocol struct{}

func (jsonProtocol) SubscribeMessage(symbols []string, kinds []meta.Event) (interface{}, error) {
	sort.Strings(symbols)
	return map[string]any{"op": "subscribe", "symbols": symbols}, nil
}

func (jsonProtocol) UnsubscribeMessage(symbols []string, kinds []meta.Event) (interface{}, error) {
	sort.Strings(symbols)
	return map[string]any{"op": "unsubscribe", "symbols": symbols}, nil
}

func testAccount() meta.AccountMeta {
	return meta.AccountMeta{
		Exchange:    meta.ExchangeMock,
		AccountType: meta.AccountNormal,
		MarketType:  meta.MarketUPerp,
	}
}

// collector subscribes to kinds and records messages in order.
type collector struct {
	mu   sync.Mutex
	msgs []eventbus.Message
}

func (c *collector) listen(bus eventbus.Bus, kinds ...meta.Event) {
	for _, k := range kinds {
		bus.Subscribe(k, func(msg eventbus.Message) {
			c.mu.Lock()
			c.msgs = append(c.msgs, msg)
			c.mu.Unlock()
		})
	}
}

func (c *collector) byKind(kind meta.Event) []eventbus.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []eventbus.Message
	for _, m := range c.msgs {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

type balancePayload struct {
	Channel string `json:"channel"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
	Free    string `json:"free"`
	Locked  string `json:"locked"`
}

func balanceRule() Rule {
	return Rule{
		Kind: meta.EventBalance,
		Match: func(raw []byte) bool {
			var p balancePayload
			return json.Unmarshal(raw, &p) == nil && p.Channel == "balance"
		},
		Parse: func(raw []byte) ([]any, error) {
			var p balancePayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			return []any{types.Balance{
				Asset:   p.Asset,
				Balance: decimal.RequireFromString(p.Balance),
				Free:    decimal.RequireFromString(p.Free),
				Locked:  decimal.RequireFromString(p.Locked),
				Kind:    types.UpdateFull,
			}}, nil
		},
	}
}

type orderPayload struct {
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
	Side    string `json:"side"`
	Status  string `json:"status"`
	Filled  string `json:"filled"`
	ADL     bool   `json:"adl"`
}

func orderRule() Rule {
	return Rule{
		Kind: meta.EventOrder,
		Match: func(raw []byte) bool {
			var p orderPayload
			return json.Unmarshal(raw, &p) == nil && p.Channel == "order"
		},
		Parse: func(raw []byte) ([]any, error) {
			var p orderPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			return []any{types.OrderSnapshot{
				ExchSymbol: p.Symbol,
				Side:       meta.ParseOrderSide(p.Side),
				Status:     meta.ParseOrderStatus(p.Status),
				FilledQty:  decimal.RequireFromString(p.Filled),
				ADL:        p.ADL,
			}}, nil
		},
	}
}

func newTestAdapter(t *testing.T, bus eventbus.Bus, rules ...Rule) (*Adapter, *websocket.MockConnector) {
	t.Helper()
	conn := websocket.NewMockConnector()
	a, err := NewAdapter(&Options{
		Connector:         conn,
		Bus:               bus,
		Account:           testAccount(),
		Protocol:          jsonProtocol{},
		Rules:             rules,
		Logger:            logging.NewNop(),
		ReconnectDelay:    time.Millisecond,
		ReconnectAttempts: 3,
	})
	require.NoError(t, err)
	return a, conn
}

func TestStartLifecycle(t *testing.T) {
	bus := eventbus.New(logging.NewNop())
	col := &collector{}
	col.listen(bus, meta.EventConnected)

	a, conn := newTestAdapter(t, bus)
	assert.Equal(t, Disconnected, a.State())

	require.NoError(t, a.Start(context.Background()))
	assert.Equal(t, Streaming, a.State())
	assert.Equal(t, 1, conn.ConnectCalls)
	assert.Len(t, col.byKind(meta.EventConnected), 1)
}

func TestModifySubscribedSymbols(t *testing.T) {
	bus := eventbus.New(logging.NewNop())
	a, conn := newTestAdapter(t, bus)
	require.NoError(t, a.Start(context.Background()))

	require.NoError(t, a.ModifySubscribedSymbols([]string{"BTCUSDT", "ETHUSDT"}))
	sent := conn.Sent()
	require.Len(t, sent, 1)
	assert.JSONEq(t, `{"op":"subscribe","symbols":["BTCUSDT","ETHUSDT"]}`, string(sent[0]))

	t.Run("identical call issues nothing", func(t *testing.T) {
		require.NoError(t, a.ModifySubscribedSymbols([]string{"ETHUSDT", "BTCUSDT"}))
		assert.Len(t, conn.Sent(), 1)
	})

	t.Run("diff issues subscribe and unsubscribe", func(t *testing.T) {
		require.NoError(t, a.ModifySubscribedSymbols([]string{"BTCUSDT", "SOLUSDT"}))
		sent := conn.Sent()
		require.Len(t, sent, 3)
		assert.JSONEq(t, `{"op":"subscribe","symbols":["SOLUSDT"]}`, string(sent[1]))
		assert.JSONEq(t, `{"op":"unsubscribe","symbols":["ETHUSDT"]}`, string(sent[2]))
	})

	t.Run("remembered set is replaced", func(t *testing.T) {
		got := a.SubscribedSymbols()
		sort.Strings(got)
		assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, got)
	})
}

func TestClassifierDispatch(t *testing.T) {
	bus := eventbus.New(logging.NewNop())
	col := &collector{}
	col.listen(bus, meta.EventBalance)

	a, conn := newTestAdapter(t, bus, balanceRule(), orderRule())
	require.NoError(t, a.Start(context.Background()))
	defer a.Close()

	conn.Inject([]byte(`{"channel":"balance","asset":"USDT","balance":"100","free":"80","locked":"20"}`))

	msgs := col.byKind(meta.EventBalance)
	require.Len(t, msgs, 1)
	b, ok := msgs[0].Payload.(types.Balance)
	require.True(t, ok)
	assert.Equal(t, "USDT", b.Asset)
	assert.True(t, b.Balance.Equal(decimal.NewFromInt(100)))
	assert.True(t, b.Free.Equal(decimal.NewFromInt(80)))
	assert.True(t, b.Locked.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, testAccount(), msgs[0].Account)

	t.Run("heartbeats are dropped silently", func(t *testing.T) {
		conn.Inject([]byte(`{"op":"pong"}`))
		assert.Len(t, col.byKind(meta.EventBalance), 1)
	})

	t.Run("unwanted kinds are not published", func(t *testing.T) {
		conn.Inject([]byte(`{"channel":"order","symbol":"BTCUSDT","side":"BUY","status":"FILLED","filled":"1"}`))
		assert.Empty(t, col.byKind(meta.EventOrder))
	})
}

func TestADLLiquidationLayering(t *testing.T) {
	bus := eventbus.New(logging.NewNop())
	col := &collector{}
	col.listen(bus, meta.EventOrder, meta.EventLiquidation)

	a, conn := newTestAdapter(t, bus, orderRule())
	require.NoError(t, a.Start(context.Background()))
	defer a.Close()

	t.Run("filled ADL sell publishes negated liquidation on top of order", func(t *testing.T) {
		conn.Inject([]byte(`{"channel":"order","symbol":"BTCUSDT","side":"SELL","status":"FILLED","filled":"0.5","adl":true}`))

		require.Len(t, col.byKind(meta.EventOrder), 1)
		liqs := col.byKind(meta.EventLiquidation)
		require.Len(t, liqs, 1)
		liq := liqs[0].Payload.(types.Liquidation)
		assert.Equal(t, "BTCUSDT", liq.ExchSymbol)
		assert.True(t, liq.Qty.Equal(decimal.NewFromFloat(-0.5)))
	})

	t.Run("buy side keeps positive quantity", func(t *testing.T) {
		conn.Inject([]byte(`{"channel":"order","symbol":"BTCUSDT","side":"BUY","status":"FILLED","filled":"0.25","adl":true}`))
		liqs := col.byKind(meta.EventLiquidation)
		require.Len(t, liqs, 2)
		assert.True(t, liqs[1].Payload.(types.Liquidation).Qty.Equal(decimal.NewFromFloat(0.25)))
	})

	t.Run("non-terminal ADL update is not a liquidation", func(t *testing.T) {
		conn.Inject([]byte(`{"channel":"order","symbol":"BTCUSDT","side":"SELL","status":"PARTIALLY_FILLED","filled":"0.1","adl":true}`))
		assert.Len(t, col.byKind(meta.EventLiquidation), 2)
	})

	t.Run("filled order without marker is not a liquidation", func(t *testing.T) {
		conn.Inject([]byte(`{"channel":"order","symbol":"BTCUSDT","side":"SELL","status":"FILLED","filled":"0.1"}`))
		assert.Len(t, col.byKind(meta.EventLiquidation), 2)
	})
}

func TestReconnectReplaysSubscriptions(t *testing.T) {
	bus := eventbus.New(logging.NewNop())
	col := &collector{}
	col.listen(bus, meta.EventConnected, meta.EventDisconnected)

	a, conn := newTestAdapter(t, bus)
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.ModifySubscribedSymbols([]string{"BTCUSDT"}))

	conn.Drop(errors.New("peer reset"))

	require.Eventually(t, func() bool {
		return a.State() == Streaming
	}, 2*time.Second, 10*time.Millisecond)

	assert.Len(t, col.byKind(meta.EventDisconnected), 1)
	assert.Len(t, col.byKind(meta.EventConnected), 2)

	sent := conn.Sent()
	require.GreaterOrEqual(t, len(sent), 2)
	assert.JSONEq(t, `{"op":"subscribe","symbols":["BTCUSDT"]}`, string(sent[len(sent)-1]),
		"full subscription set replayed on reconnect")
}

func TestCloseIsIdempotent(t *testing.T) {
	bus := eventbus.New(logging.NewNop())
	a, conn := newTestAdapter(t, bus)

	t.Run("close before connect", func(t *testing.T) {
		fresh, _ := newTestAdapter(t, bus)
		assert.NoError(t, fresh.Close())
		assert.NoError(t, fresh.Close())
		assert.Equal(t, Closed, fresh.State())
	})

	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Equal(t, Closed, a.State())
	assert.GreaterOrEqual(t, conn.CloseCalls, 1)

	t.Run("operations after close fail", func(t *testing.T) {
		assert.ErrorIs(t, a.Start(context.Background()), ErrClosed)
		assert.ErrorIs(t, a.ModifySubscribedSymbols([]string{"X"}), ErrClosed)
	})

	t.Run("drop after close does not reconnect", func(t *testing.T) {
		conn.Drop(errors.New("late drop"))
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, Closed, a.State())
	})
}

func TestParseFailureStopsDispatchForMessage(t *testing.T) {
	bus := eventbus.New(logging.NewNop())
	col := &collector{}
	col.listen(bus, meta.EventBalance)

	bad := Rule{
		Kind:  meta.EventBalance,
		Match: func(raw []byte) bool { return true },
		Parse: func(raw []byte) ([]any, error) { return nil, fmt.Errorf("malformed") },
	}

	a, conn := newTestAdapter(t, bus, bad)
	require.NoError(t, a.Start(context.Background()))
	defer a.Close()

	conn.Inject([]byte(`{"channel":"balance"}`))
	assert.Empty(t, col.byKind(meta.EventBalance))
}

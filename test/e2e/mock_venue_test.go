package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifex/exchange-adapter/pkg/adapter"
	"github.com/unifex/exchange-adapter/pkg/cache"
	"github.com/unifex/exchange-adapter/pkg/eventbus"
	"github.com/unifex/exchange-adapter/pkg/exchanges"
	"github.com/unifex/exchange-adapter/pkg/exchanges/mock"
	"github.com/unifex/exchange-adapter/pkg/instruments"
	"github.com/unifex/exchange-adapter/pkg/logging"
	"github.com/unifex/exchange-adapter/pkg/meta"
	"github.com/unifex/exchange-adapter/pkg/types"
	"github.com/unifex/exchange-adapter/pkg/websocket"
)

var mockAccount = meta.AccountMeta{
	Exchange:    meta.ExchangeMock,
	AccountType: meta.AccountNormal,
	MarketType:  meta.MarketSpot,
	AccountName: "main",
}

func seededRegistry(t *testing.T) *instruments.Registry {
	t.Helper()
	r := instruments.NewRegistry(&instruments.Options{Logger: logging.NewNop()})
	require.NoError(t, r.Sync(meta.ExchangeMock, meta.MarketSpot, mock.Listings()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.WaitReady(ctx, mockAccount.Exchange, mockAccount.MarketType))
	return r
}

// TestMockVenue_Rest drives the whole REST surface end to end through the
// factory: registry lookup, guarded order lifecycle, cache-first reads and
// the Unsupported tag for operations the venue never implements.
func TestMockVenue_Rest(t *testing.T) {
	registry := seededRegistry(t)

	store, err := cache.NewMemory()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, cache.PutJSON(ctx, store, cache.PricesKey(mockAccount.Market()),
		map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(65000)}))

	rest, err := exchanges.NewRestAdapter(&exchanges.RestOptions{
		Account:  mockAccount,
		Registry: registry,
		Cache:    store,
		Logger:   logging.NewNop(),
	})
	require.NoError(t, err)
	defer rest.Close()

	t.Run("order lifecycle", func(t *testing.T) {
		placed := rest.PlaceOrder(ctx, types.PlaceOrderInstruction{
			ExchSymbol: "BTCUSDT",
			Type:       meta.TypeLimit,
			Side:       meta.SideBuy,
			Price:      decimal.NewFromInt(50000),
			Qty:        decimal.NewFromFloat(0.01),
		})
		require.True(t, placed.IsSuccess(), placed.Msg())
		require.NotEmpty(t, placed.Data().OrderID)

		open := rest.SyncOpenOrders(ctx, "BTCUSDT")
		require.True(t, open.IsSuccess())
		require.Len(t, open.Data(), 1)
		assert.Equal(t, meta.StatusLive, open.Data()[0].Status)

		canceled := rest.CancelOrder(ctx, types.CancelOrderInstruction{
			ExchSymbol: "BTCUSDT",
			OrderID:    placed.Data().OrderID,
		})
		require.True(t, canceled.IsSuccess())
		assert.Equal(t, meta.StatusCanceled, canceled.Data().Status)

		after := rest.SyncOpenOrders(ctx, "BTCUSDT")
		require.True(t, after.IsSuccess())
		assert.Empty(t, after.Data())
	})

	t.Run("cache-first price", func(t *testing.T) {
		px := rest.GetPrice(ctx, "BTCUSDT", true)
		require.True(t, px.IsSuccess(), px.Msg())
		assert.True(t, px.Data().Equal(decimal.NewFromInt(65000)))

		miss := rest.GetPrice(ctx, "ETHUSDT", true)
		assert.True(t, miss.IsError())
	})

	t.Run("unsupported operation", func(t *testing.T) {
		res := rest.GetFundingRate(ctx, "BTCUSDT")
		assert.True(t, res.IsUnsupported())
	})

	t.Run("history pagination", func(t *testing.T) {
		hist := rest.GetOrderHistory(ctx, adapter.HistoryRequest{
			ExchSymbol: "BTCUSDT",
			Limit:      10,
		})
		require.True(t, hist.IsSuccess())
		require.NotEmpty(t, hist.Data())
		assert.Equal(t, meta.StatusCanceled, hist.Data()[0].Status)
	})
}

// TestMockVenue_Stream runs the full streaming path: factory assembly, the
// subscribe handshake, then a synthetic full balance snapshot for USDT that
// must surface as exactly one BALANCE event with balance=100, free=80,
// locked=20.
func TestMockVenue_Stream(t *testing.T) {
	conn := websocket.NewMockConnector()
	bus := eventbus.New(logging.NewNop())

	balances := make(chan types.Balance, 8)
	orders := make(chan types.OrderSnapshot, 8)
	bus.Subscribe(meta.EventBalance, func(msg eventbus.Message) {
		balances <- msg.Payload.(types.Balance)
	})
	bus.Subscribe(meta.EventOrder, func(msg eventbus.Message) {
		orders <- msg.Payload.(types.OrderSnapshot)
	})
	connected := make(chan struct{}, 1)
	bus.Subscribe(meta.EventConnected, func(eventbus.Message) {
		connected <- struct{}{}
	})

	stm, err := exchanges.NewStreamAdapter(&exchanges.StreamOptions{
		Account:   mockAccount,
		Config:    types.DefaultWSConfig("wss://mock.invalid/ws"),
		Bus:       bus,
		Connector: conn,
		Logger:    logging.NewNop(),
	})
	require.NoError(t, err)
	defer stm.Close()

	ctx := context.Background()
	require.NoError(t, stm.Start(ctx))
	require.NoError(t, stm.ModifySubscribedSymbols([]string{"BTCUSDT"}))

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("no CONNECTED event")
	}
	require.NotEmpty(t, conn.Sent(), "expected a subscribe request on the wire")

	conn.Inject([]byte(`{"channel":"balance","asset":"USDT","balance":"100","free":"80","locked":"20","ts":1700000000000}`))

	select {
	case bal := <-balances:
		assert.Equal(t, "USDT", bal.Asset)
		assert.True(t, bal.Balance.Equal(decimal.NewFromInt(100)))
		assert.True(t, bal.Free.Equal(decimal.NewFromInt(80)))
		assert.True(t, bal.Locked.Equal(decimal.NewFromInt(20)))
		assert.Equal(t, types.UpdateFull, bal.Kind)
	case <-time.After(time.Second):
		t.Fatal("no BALANCE event")
	}

	select {
	case bal := <-balances:
		t.Fatalf("unexpected second balance event: %+v", bal)
	case <-time.After(50 * time.Millisecond):
	}

	conn.Inject([]byte(`{"channel":"order","symbol":"BTCUSDT","side":"BUY","status":"FILLED","price":"65000","qty":"0.01","filled":"0.01","order_id":"abc","ts":1700000000001}`))

	select {
	case ord := <-orders:
		assert.Equal(t, "BTCUSDT", ord.ExchSymbol)
		assert.Equal(t, meta.SideBuy, ord.Side)
		assert.Equal(t, meta.StatusFilled, ord.Status)
	case <-time.After(time.Second):
		t.Fatal("no ORDER event")
	}
}

package main

import (
	"context"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/unifex/exchange-adapter/pkg/cache"
	"github.com/unifex/exchange-adapter/pkg/config"
	"github.com/unifex/exchange-adapter/pkg/eventbus"
	"github.com/unifex/exchange-adapter/pkg/exchanges"
	"github.com/unifex/exchange-adapter/pkg/exchanges/mock"
	"github.com/unifex/exchange-adapter/pkg/instruments"
	"github.com/unifex/exchange-adapter/pkg/logging"
	"github.com/unifex/exchange-adapter/pkg/meta"
	"github.com/unifex/exchange-adapter/pkg/types"
	"github.com/unifex/exchange-adapter/pkg/websocket"
)

// A full walkthrough against the built-in mock venue: seed the instrument
// registry, build a guarded REST adapter through the factory, run an order
// lifecycle, then stream synthetic account events over the bus.
func main() {
	logger := logging.NewLogger(logging.WithLevel(logging.DEBUG))

	if err := config.Load(".env"); err != nil {
		logger.Error("loading environment", logging.Error(err))
		os.Exit(1)
	}

	account := meta.AccountMeta{
		Exchange:    meta.ExchangeMock,
		AccountType: meta.AccountNormal,
		MarketType:  meta.MarketSpot,
		AccountName: "main",
	}

	// Instrument universe. Real venues feed this from their listings
	// endpoint; the mock venue ships a static one.
	registry := instruments.NewRegistry(&instruments.Options{Logger: logger})
	if err := registry.Sync(meta.ExchangeMock, meta.MarketSpot, mock.Listings()); err != nil {
		logger.Error("syncing instruments", logging.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := registry.WaitReady(ctx, account.Exchange, account.MarketType); err != nil {
		logger.Error("registry not ready", logging.Error(err))
		os.Exit(1)
	}

	store, err := cache.NewMemory()
	if err != nil {
		logger.Error("building cache", logging.Error(err))
		os.Exit(1)
	}

	rest, err := exchanges.NewRestAdapter(&exchanges.RestOptions{
		Account:     account,
		Credentials: config.CredentialsFor(meta.ExchangeMock),
		Registry:    registry,
		Cache:       store,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("building rest adapter", logging.Error(err))
		os.Exit(1)
	}
	defer rest.Close()

	placed := rest.PlaceOrder(ctx, types.PlaceOrderInstruction{
		ExchSymbol: "BTCUSDT",
		Type:       meta.TypeLimit,
		Side:       meta.SideBuy,
		Price:      decimal.NewFromInt(50000),
		Qty:        decimal.NewFromFloat(0.01),
	})
	if !placed.IsSuccess() {
		logger.Error("order rejected", logging.String("msg", placed.Msg()))
		os.Exit(1)
	}
	logger.Info("order placed", logging.String("order_id", placed.Data().OrderID))

	if canceled := rest.CancelOrder(ctx, types.CancelOrderInstruction{
		ExchSymbol: "BTCUSDT",
		OrderID:    placed.Data().OrderID,
	}); canceled.IsSuccess() {
		logger.Info("order canceled", logging.String("status", string(canceled.Data().Status)))
	}

	// Streaming side. The mock venue needs no network; inject frames
	// straight into the transport.
	bus := eventbus.New(logger)
	bus.Subscribe(meta.EventBalance, func(msg eventbus.Message) {
		bal := msg.Payload.(types.Balance)
		logger.Info("balance update",
			logging.String("asset", bal.Asset),
			logging.String("free", bal.Free.String()))
	})

	conn := websocket.NewMockConnector()
	stm, err := exchanges.NewStreamAdapter(&exchanges.StreamOptions{
		Account:   account,
		Config:    types.DefaultWSConfig("wss://mock.invalid/ws"),
		Bus:       bus,
		Connector: conn,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("building stream adapter", logging.Error(err))
		os.Exit(1)
	}
	defer stm.Close()

	if err := stm.Start(ctx); err != nil {
		logger.Error("starting stream", logging.Error(err))
		os.Exit(1)
	}
	if err := stm.ModifySubscribedSymbols([]string{"BTCUSDT"}); err != nil {
		logger.Error("subscribing", logging.Error(err))
		os.Exit(1)
	}

	conn.Inject([]byte(`{"channel":"balance","asset":"USDT","balance":"100","free":"80","locked":"20","ts":1700000000000}`))

	time.Sleep(100 * time.Millisecond)
	logger.Info("done")
}

// Package exchange-adapter provides a unified trading and streaming layer over
// cryptocurrency exchanges.
//
// The library normalizes venue-specific symbols, precisions and wire formats
// into one vocabulary, so applications can trade and consume account state
// across exchanges without per-venue branching.
//
// Core pieces:
//
//   - result: a three-state envelope (Success, Error, Unsupported) returned by
//     every adapter operation. Unsupported is a first-class outcome, not an
//     error, which lets callers fall back to another path without string
//     matching.
//
//   - instruments: the symbol unification registry. It maps native exchange
//     symbols to unified and generic forms, derives delivery-contract aliases
//     (current/next quarter and friends) from expiry timestamps, and gates
//     reads behind a per-market ready signal.
//
//   - adapter: the guarded REST surface. A venue backend implements the
//     Backend contract; the Wrapper adds panic containment, cache-first reads,
//     order-unit validation and the fast-path/native-path submit helpers.
//
//   - stream: the streaming state machine. It owns connection lifecycle,
//     subscription diffing, reconnection with replay, and a rule-based
//     classifier that turns venue push frames into typed events on the bus.
//
//   - eventbus: in-process fan-out keyed by event kind (BALANCE, ORDER,
//     POSITION, TICKER, LIQUIDATION, CONNECTED, DISCONNECTED).
//
//   - exchanges: the factory. Venue packages register REST and stream
//     builders at init; accounts resolve to adapters through an explicit
//     lookup table.
//
// Basic REST usage:
//
//	registry := instruments.NewRegistry(&instruments.Options{Logger: logger})
//	registry.Sync(meta.ExchangeMock, meta.MarketSpot, mock.Listings())
//
//	rest, err := exchanges.NewRestAdapter(&exchanges.RestOptions{
//	    Account:  account,
//	    Registry: registry,
//	    Logger:   logger,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rest.Close()
//
//	res := rest.PlaceOrder(ctx, types.PlaceOrderInstruction{
//	    ExchSymbol: "BTCUSDT",
//	    Type:       meta.TypeLimit,
//	    Side:       meta.SideBuy,
//	    Price:      decimal.NewFromInt(50000),
//	    Qty:        decimal.NewFromFloat(0.01),
//	})
//	switch {
//	case res.IsSuccess():
//	    fmt.Println("order id:", res.Data().OrderID)
//	case res.IsUnsupported():
//	    // venue cannot do this; try another route
//	default:
//	    fmt.Println("failed:", res.Msg())
//	}
//
// Streaming usage:
//
//	bus := eventbus.New(logger)
//	bus.Subscribe(meta.EventBalance, func(msg eventbus.Message) {
//	    bal := msg.Payload.(types.Balance)
//	    fmt.Println(bal.Asset, bal.Free)
//	})
//
//	stm, err := exchanges.NewStreamAdapter(&exchanges.StreamOptions{
//	    Account: account,
//	    Config:  types.DefaultWSConfig(wsURL),
//	    Bus:     bus,
//	    Logger:  logger,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stm.Close()
//
//	stm.Start(ctx)
//	stm.ModifySubscribedSymbols([]string{"BTCUSDT"})
//
// The pkg/exchanges/mock package ships a complete synthetic venue used by the
// examples and the end-to-end tests; it exercises every contract without
// touching a network.
package exchangeadapter

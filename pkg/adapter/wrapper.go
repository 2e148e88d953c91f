package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/unifex/exchange-adapter/pkg/cache"
	"github.com/unifex/exchange-adapter/pkg/eventbus"
	"github.com/unifex/exchange-adapter/pkg/instruments"
	"github.com/unifex/exchange-adapter/pkg/logging"
	"github.com/unifex/exchange-adapter/pkg/meta"
	"github.com/unifex/exchange-adapter/pkg/result"
	"github.com/unifex/exchange-adapter/pkg/types"
)

// Options configures a Wrapper.
type Options struct {
	// Backend is the native REST binding. Required.
	Backend Backend

	// Fast is the generic multi-exchange order path, tried before the
	// native one by the Submit helpers. Optional.
	Fast FastOrderAPI

	// Registry supplies instrument metadata. Optional; order placement
	// validation works without it.
	Registry *instruments.Registry

	// Cache enables cache-first reads. Optional.
	Cache cache.Reader

	// Bus receives ORDER events for order state returned by the Submit
	// helpers. Optional.
	Bus eventbus.Bus

	Logger logging.Logger
}

// Wrapper exposes the tagged-result operation surface over one account's
// native Backend. Every method is total over the three result variants and
// never raises past the call.
type Wrapper struct {
	backend  Backend
	fast     FastOrderAPI
	registry *instruments.Registry
	cache    cache.Reader
	bus      eventbus.Bus
	logger   logging.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewWrapper wraps a backend.
func NewWrapper(opts *Options) (*Wrapper, error) {
	if opts == nil || opts.Backend == nil {
		return nil, errors.New("adapter: backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Wrapper{
		backend:  opts.Backend,
		fast:     opts.Fast,
		registry: opts.Registry,
		cache:    opts.Cache,
		bus:      opts.Bus,
		logger:   logger,
	}, nil
}

// Meta identifies the wrapped account.
func (w *Wrapper) Meta() meta.AccountMeta { return w.backend.Meta() }

// Registry returns the instrument registry shared with this wrapper, nil if
// none was attached.
func (w *Wrapper) Registry() *instruments.Registry { return w.registry }

func (w *Wrapper) cachedJSON(ctx context.Context, key string, v any) error {
	if w.cache == nil {
		return fmt.Errorf("no cache attached for %s", key)
	}
	return cache.GetJSON(ctx, w.cache, key, v)
}

// GetAssets returns the account's balances. With fromCache the lookup goes
// to the external cache under the account's composite key; a miss surfaces
// as Error, never as an empty result.
func (w *Wrapper) GetAssets(ctx context.Context, fromCache bool) result.Result[types.Balances] {
	if fromCache {
		return result.Guard(w.logger, "get_assets", func() (types.Balances, error) {
			var b types.Balances
			if err := w.cachedJSON(ctx, cache.BalancesKey(w.Meta()), &b); err != nil {
				return nil, err
			}
			return b, nil
		})
	}
	return result.Guard(w.logger, "get_assets", func() (types.Balances, error) {
		return w.backend.GetAssets(ctx)
	})
}

// GetPositions returns the account's open positions, optionally from cache.
func (w *Wrapper) GetPositions(ctx context.Context, fromCache bool) result.Result[types.Positions] {
	if fromCache {
		return result.Guard(w.logger, "get_positions", func() (types.Positions, error) {
			var p types.Positions
			if err := w.cachedJSON(ctx, cache.PositionsKey(w.Meta()), &p); err != nil {
				return nil, err
			}
			return p, nil
		})
	}
	return result.Guard(w.logger, "get_positions", func() (types.Positions, error) {
		return w.backend.GetPositions(ctx)
	})
}

// GetAsset returns one asset's balance. A missing asset is a zero balance,
// not an error; a cache miss stays an Error.
func (w *Wrapper) GetAsset(ctx context.Context, asset string, fromCache bool) result.Result[types.Balance] {
	all := w.GetAssets(ctx, fromCache)
	if !all.IsSuccess() {
		return result.Recast[types.Balance](all)
	}
	return result.Ok(all.Data()[asset])
}

// GetPosition returns one symbol's position; flat symbols report zero.
func (w *Wrapper) GetPosition(ctx context.Context, exchSymbol string, fromCache bool) result.Result[types.Position] {
	all := w.GetPositions(ctx, fromCache)
	if !all.IsSuccess() {
		return result.Recast[types.Position](all)
	}
	return result.Ok(all.Data()[exchSymbol])
}

// GetPrice returns one symbol's price, optionally from the cached market
// price table.
func (w *Wrapper) GetPrice(ctx context.Context, exchSymbol string, fromCache bool) result.Result[decimal.Decimal] {
	if fromCache {
		return result.Guard(w.logger, "get_price", func() (decimal.Decimal, error) {
			var prices map[string]decimal.Decimal
			if err := w.cachedJSON(ctx, cache.PricesKey(w.Meta().Market()), &prices); err != nil {
				return decimal.Zero, err
			}
			px, ok := prices[exchSymbol]
			if !ok {
				return decimal.Zero, fmt.Errorf("%w: price %s", cache.ErrMiss, exchSymbol)
			}
			return px, nil
		})
	}
	return result.Guard(w.logger, "get_price", func() (decimal.Decimal, error) {
		return w.backend.GetPrice(ctx, exchSymbol)
	})
}

// GetPrices returns the market's full ticker table.
func (w *Wrapper) GetPrices(ctx context.Context) result.Result[types.Tickers] {
	return result.Guard(w.logger, "get_prices", func() (types.Tickers, error) {
		return w.backend.GetPrices(ctx)
	})
}

// GetOrderBook returns a depth-limited book snapshot.
func (w *Wrapper) GetOrderBook(ctx context.Context, exchSymbol string, depth int) result.Result[types.OrderBook] {
	return result.Guard(w.logger, "get_order_book", func() (types.OrderBook, error) {
		return w.backend.GetOrderBook(ctx, exchSymbol, depth)
	})
}

// GetAccountInfo returns account capabilities and configuration.
func (w *Wrapper) GetAccountInfo(ctx context.Context) result.Result[types.AccountInfo] {
	return result.Guard(w.logger, "get_account_info", func() (types.AccountInfo, error) {
		return w.backend.GetAccountInfo(ctx)
	})
}

// GetTradeHistory returns fills matching req, draining pagination inside the
// backend.
func (w *Wrapper) GetTradeHistory(ctx context.Context, req HistoryRequest) result.Result[[]types.Trade] {
	return result.Guard(w.logger, "get_trade_history", func() ([]types.Trade, error) {
		return w.backend.GetTradeHistory(ctx, req)
	})
}

// GetOrderHistory returns historical orders matching req.
func (w *Wrapper) GetOrderHistory(ctx context.Context, req HistoryRequest) result.Result[[]types.OrderSnapshot] {
	return result.Guard(w.logger, "get_order_history", func() ([]types.OrderSnapshot, error) {
		return w.backend.GetOrderHistory(ctx, req)
	})
}

// PlaceOrder validates the quantity units and submits the order. Supplying
// both a base quantity and a quote notional, or a notional outside a
// spot/margin market order, is an Error result, not a degraded order.
func (w *Wrapper) PlaceOrder(ctx context.Context, inst types.PlaceOrderInstruction) result.Result[types.OrderResponse] {
	if err := w.validateOrderUnits(inst); err != nil {
		return result.Fail[types.OrderResponse](err.Error())
	}
	return result.Guard(w.logger, "place_order", func() (types.OrderResponse, error) {
		return w.backend.PlaceOrder(ctx, inst)
	})
}

func (w *Wrapper) validateOrderUnits(inst types.PlaceOrderInstruction) error {
	hasQty := inst.Qty.IsPositive()
	hasQuote := inst.QuoteQty.IsPositive()

	if hasQty && hasQuote {
		return fmt.Errorf("order %s: qty and quote_qty are mutually exclusive", inst.ExchSymbol)
	}
	if !hasQty && !hasQuote {
		return fmt.Errorf("order %s: one of qty or quote_qty is required", inst.ExchSymbol)
	}
	if hasQuote {
		if inst.Type != meta.TypeMarket {
			return fmt.Errorf("order %s: quote_qty is only valid for market orders", inst.ExchSymbol)
		}
		if mt := w.Meta().MarketType; mt != meta.MarketSpot && mt != meta.MarketMargin {
			return fmt.Errorf("order %s: quote_qty is only valid on spot/margin, not %s", inst.ExchSymbol, mt)
		}
	}
	return nil
}

// CancelOrder cancels via the native path.
func (w *Wrapper) CancelOrder(ctx context.Context, inst types.CancelOrderInstruction) result.Result[types.OrderSnapshot] {
	return result.Guard(w.logger, "cancel_order", func() (types.OrderSnapshot, error) {
		return w.backend.CancelOrder(ctx, inst)
	})
}

// CancelAll cancels every open order on the symbol, returning the count.
func (w *Wrapper) CancelAll(ctx context.Context, exchSymbol string) result.Result[int] {
	return result.Guard(w.logger, "cancel_all", func() (int, error) {
		return w.backend.CancelAll(ctx, exchSymbol)
	})
}

// SyncOrder queries one order via the native path.
func (w *Wrapper) SyncOrder(ctx context.Context, inst types.SyncOrderInstruction) result.Result[types.OrderSnapshot] {
	return result.Guard(w.logger, "sync_order", func() (types.OrderSnapshot, error) {
		return w.backend.SyncOrder(ctx, inst)
	})
}

// SyncOpenOrders lists the symbol's open orders via the native path.
func (w *Wrapper) SyncOpenOrders(ctx context.Context, exchSymbol string) result.Result[[]types.OrderSnapshot] {
	return result.Guard(w.logger, "sync_open_orders", func() ([]types.OrderSnapshot, error) {
		return w.backend.SyncOpenOrders(ctx, exchSymbol)
	})
}

// publishOrder forwards a known order state onto the bus.
func (w *Wrapper) publishOrder(snap types.OrderSnapshot) {
	if w.bus == nil {
		return
	}
	w.bus.Publish(eventbus.Message{
		Kind:    meta.EventOrder,
		Account: w.Meta(),
		Payload: snap,
	})
}

// SubmitPlaceOrder tries the fast path first and falls back to the native
// path only when the fast path reports Unsupported. A genuine Error is
// surfaced as is, never retried on the other path. Exactly one result is
// returned.
func (w *Wrapper) SubmitPlaceOrder(ctx context.Context, inst types.PlaceOrderInstruction) result.Result[types.OrderResponse] {
	if err := w.validateOrderUnits(inst); err != nil {
		return result.Fail[types.OrderResponse](err.Error())
	}
	if w.fast != nil {
		res := result.Guard(w.logger, "place_order_fast", func() (types.OrderResponse, error) {
			return w.fast.PlaceOrder(ctx, inst)
		})
		if !res.IsUnsupported() {
			return res
		}
	}
	return w.PlaceOrder(ctx, inst)
}

// SubmitCancelOrder is the dual-path variant of CancelOrder. The resulting
// order state is published as an ORDER event.
func (w *Wrapper) SubmitCancelOrder(ctx context.Context, inst types.CancelOrderInstruction) result.Result[types.OrderSnapshot] {
	var res result.Result[types.OrderSnapshot]
	if w.fast != nil {
		res = result.Guard(w.logger, "cancel_order_fast", func() (types.OrderSnapshot, error) {
			return w.fast.CancelOrder(ctx, inst)
		})
		if res.IsUnsupported() {
			res = w.CancelOrder(ctx, inst)
		}
	} else {
		res = w.CancelOrder(ctx, inst)
	}
	if res.IsSuccess() {
		w.publishOrder(res.Data())
	}
	return res
}

// SubmitCancelAll is the dual-path variant of CancelAll.
func (w *Wrapper) SubmitCancelAll(ctx context.Context, exchSymbol string) result.Result[int] {
	if w.fast != nil {
		res := result.Guard(w.logger, "cancel_all_fast", func() (int, error) {
			return w.fast.CancelAll(ctx, exchSymbol)
		})
		if !res.IsUnsupported() {
			return res
		}
	}
	return w.CancelAll(ctx, exchSymbol)
}

// SubmitSyncOrder is the dual-path variant of SyncOrder. The synced order
// state is published as an ORDER event.
func (w *Wrapper) SubmitSyncOrder(ctx context.Context, inst types.SyncOrderInstruction) result.Result[types.OrderSnapshot] {
	var res result.Result[types.OrderSnapshot]
	if w.fast != nil {
		res = result.Guard(w.logger, "sync_order_fast", func() (types.OrderSnapshot, error) {
			return w.fast.SyncOrder(ctx, inst)
		})
		if res.IsUnsupported() {
			res = w.SyncOrder(ctx, inst)
		}
	} else {
		res = w.SyncOrder(ctx, inst)
	}
	if res.IsSuccess() {
		w.publishOrder(res.Data())
	}
	return res
}

// SubmitSyncOpenOrders is the dual-path variant of SyncOpenOrders. Each open
// order is published as an ORDER event.
func (w *Wrapper) SubmitSyncOpenOrders(ctx context.Context, exchSymbol string) result.Result[[]types.OrderSnapshot] {
	var res result.Result[[]types.OrderSnapshot]
	if w.fast != nil {
		res = result.Guard(w.logger, "sync_open_orders_fast", func() ([]types.OrderSnapshot, error) {
			return w.fast.SyncOpenOrders(ctx, exchSymbol)
		})
		if res.IsUnsupported() {
			res = w.SyncOpenOrders(ctx, exchSymbol)
		}
	} else {
		res = w.SyncOpenOrders(ctx, exchSymbol)
	}
	if res.IsSuccess() {
		for _, snap := range res.Data() {
			w.publishOrder(snap)
		}
	}
	return res
}

// GetFundingFee returns funding settlements matching req.
func (w *Wrapper) GetFundingFee(ctx context.Context, req HistoryRequest) result.Result[[]types.FundingFee] {
	return result.Guard(w.logger, "get_funding_fee", func() ([]types.FundingFee, error) {
		return w.backend.GetFundingFee(ctx, req)
	})
}

// GetFundingRate returns the symbol's current funding state.
func (w *Wrapper) GetFundingRate(ctx context.Context, exchSymbol string) result.Result[types.FundingRate] {
	return result.Guard(w.logger, "get_funding_rate", func() (types.FundingRate, error) {
		return w.backend.GetFundingRate(ctx, exchSymbol)
	})
}

// GetFundingRates returns funding state for every perp symbol on the market.
func (w *Wrapper) GetFundingRates(ctx context.Context) result.Result[types.FundingRates] {
	return result.Guard(w.logger, "get_funding_rates", func() (types.FundingRates, error) {
		return w.backend.GetFundingRates(ctx)
	})
}

// GetCommissionRate returns the symbol's fee rates, optionally from cache.
func (w *Wrapper) GetCommissionRate(ctx context.Context, exchSymbol string, fromCache bool) result.Result[types.CommissionRate] {
	if fromCache {
		return result.Guard(w.logger, "get_commission_rate", func() (types.CommissionRate, error) {
			var cr types.CommissionRate
			if err := w.cachedJSON(ctx, cache.CommissionKey(w.Meta(), exchSymbol), &cr); err != nil {
				return types.CommissionRate{}, err
			}
			return cr, nil
		})
	}
	return result.Guard(w.logger, "get_commission_rate", func() (types.CommissionRate, error) {
		return w.backend.GetCommissionRate(ctx, exchSymbol)
	})
}

// UniversalTransfer moves an asset between the exchange's account types.
func (w *Wrapper) UniversalTransfer(ctx context.Context, req TransferRequest) result.Result[types.TransferResponse] {
	return result.Guard(w.logger, "universal_transfer", func() (types.TransferResponse, error) {
		return w.backend.UniversalTransfer(ctx, req)
	})
}

// SetSymbolLeverage configures the symbol's leverage.
func (w *Wrapper) SetSymbolLeverage(ctx context.Context, exchSymbol string, leverage decimal.Decimal) result.Result[bool] {
	return result.Guard(w.logger, "set_symbol_leverage", func() (bool, error) {
		if err := w.backend.SetSymbolLeverage(ctx, exchSymbol, leverage); err != nil {
			return false, err
		}
		return true, nil
	})
}

// SetMarginMode configures cross or isolated margin.
func (w *Wrapper) SetMarginMode(ctx context.Context, mode meta.MarginMode) result.Result[bool] {
	return result.Guard(w.logger, "set_margin_mode", func() (bool, error) {
		if err := w.backend.SetMarginMode(ctx, mode); err != nil {
			return false, err
		}
		return true, nil
	})
}

// SetPositionMode configures one-way or hedged positions.
func (w *Wrapper) SetPositionMode(ctx context.Context, mode meta.PositionMode) result.Result[bool] {
	return result.Guard(w.logger, "set_position_mode", func() (bool, error) {
		if err := w.backend.SetPositionMode(ctx, mode); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Close releases the backend session. Safe to call more than once.
func (w *Wrapper) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.backend.Close()
	})
	return w.closeErr
}

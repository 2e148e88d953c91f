// Package adapter defines the uniform REST operation surface shared by all
// exchanges. Concrete venues implement Backend for the subset of operations
// they offer; Wrapper turns a Backend into the guarded tagged-result surface
// callers consume, with dual-path order management and cache-first reads.
package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/unifex/exchange-adapter/pkg/meta"
	"github.com/unifex/exchange-adapter/pkg/result"
	"github.com/unifex/exchange-adapter/pkg/types"
)

// HistoryRequest parameterizes paginated history queries. Cursor is the
// opaque continuation token from the previous page, empty on the first call.
type HistoryRequest struct {
	ExchSymbol string
	StartTS    int64
	EndTS      int64
	Limit      int
	Cursor     string
}

// ResolveWindow fills missing time bounds: an empty EndTS becomes now, an
// empty StartTS becomes EndTS minus lookBack. Explicit bounds are kept.
func (r HistoryRequest) ResolveWindow(lookBack time.Duration, now time.Time) HistoryRequest {
	if r.EndTS == 0 {
		r.EndTS = now.UnixMilli()
	}
	if r.StartTS == 0 && lookBack > 0 {
		r.StartTS = r.EndTS - lookBack.Milliseconds()
	}
	return r
}

// TransferRequest moves an asset between account types on one exchange.
type TransferRequest struct {
	Asset  string
	Amount decimal.Decimal
	From   meta.AccountType
	To     meta.AccountType
}

// Backend is the per-exchange REST binding. Implementations return plain
// (value, error) pairs; an operation the venue lacks returns an error
// wrapping result.ErrUnsupported, which UnsupportedBackend provides for
// every operation so concrete bindings only declare what they offer.
type Backend interface {
	Meta() meta.AccountMeta

	GetAssets(ctx context.Context) (types.Balances, error)
	GetPositions(ctx context.Context) (types.Positions, error)
	GetPrice(ctx context.Context, exchSymbol string) (decimal.Decimal, error)
	GetPrices(ctx context.Context) (types.Tickers, error)
	GetOrderBook(ctx context.Context, exchSymbol string, depth int) (types.OrderBook, error)
	GetAccountInfo(ctx context.Context) (types.AccountInfo, error)

	GetTradeHistory(ctx context.Context, req HistoryRequest) ([]types.Trade, error)
	GetOrderHistory(ctx context.Context, req HistoryRequest) ([]types.OrderSnapshot, error)

	PlaceOrder(ctx context.Context, inst types.PlaceOrderInstruction) (types.OrderResponse, error)
	CancelOrder(ctx context.Context, inst types.CancelOrderInstruction) (types.OrderSnapshot, error)
	CancelAll(ctx context.Context, exchSymbol string) (int, error)
	SyncOrder(ctx context.Context, inst types.SyncOrderInstruction) (types.OrderSnapshot, error)
	SyncOpenOrders(ctx context.Context, exchSymbol string) ([]types.OrderSnapshot, error)

	GetFundingFee(ctx context.Context, req HistoryRequest) ([]types.FundingFee, error)
	GetFundingRate(ctx context.Context, exchSymbol string) (types.FundingRate, error)
	GetFundingRates(ctx context.Context) (types.FundingRates, error)
	GetCommissionRate(ctx context.Context, exchSymbol string) (types.CommissionRate, error)

	UniversalTransfer(ctx context.Context, req TransferRequest) (types.TransferResponse, error)
	SetSymbolLeverage(ctx context.Context, exchSymbol string, leverage decimal.Decimal) error
	SetMarginMode(ctx context.Context, mode meta.MarginMode) error
	SetPositionMode(ctx context.Context, mode meta.PositionMode) error

	Close() error
}

// FastOrderAPI is the alternate order-management path backed by a generic
// multi-exchange client. Wrapper tries it first and falls back to the native
// Backend only when it reports unsupported.
type FastOrderAPI interface {
	PlaceOrder(ctx context.Context, inst types.PlaceOrderInstruction) (types.OrderResponse, error)
	CancelOrder(ctx context.Context, inst types.CancelOrderInstruction) (types.OrderSnapshot, error)
	CancelAll(ctx context.Context, exchSymbol string) (int, error)
	SyncOrder(ctx context.Context, inst types.SyncOrderInstruction) (types.OrderSnapshot, error)
	SyncOpenOrders(ctx context.Context, exchSymbol string) ([]types.OrderSnapshot, error)
}

// UnsupportedBackend returns an unsupported error from every operation.
// Concrete backends embed it and override what their venue offers.
type UnsupportedBackend struct {
	Account meta.AccountMeta
}

func (u UnsupportedBackend) unsupported(op string) error {
	return result.Unsupportedf("%s: %s", u.Account, op)
}

func (u UnsupportedBackend) Meta() meta.AccountMeta { return u.Account }

func (u UnsupportedBackend) GetAssets(context.Context) (types.Balances, error) {
	return nil, u.unsupported("get_assets")
}

func (u UnsupportedBackend) GetPositions(context.Context) (types.Positions, error) {
	return nil, u.unsupported("get_positions")
}

func (u UnsupportedBackend) GetPrice(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, u.unsupported("get_price")
}

func (u UnsupportedBackend) GetPrices(context.Context) (types.Tickers, error) {
	return nil, u.unsupported("get_prices")
}

func (u UnsupportedBackend) GetOrderBook(context.Context, string, int) (types.OrderBook, error) {
	return types.OrderBook{}, u.unsupported("get_order_book")
}

func (u UnsupportedBackend) GetAccountInfo(context.Context) (types.AccountInfo, error) {
	return types.AccountInfo{}, u.unsupported("get_account_info")
}

func (u UnsupportedBackend) GetTradeHistory(context.Context, HistoryRequest) ([]types.Trade, error) {
	return nil, u.unsupported("get_trade_history")
}

func (u UnsupportedBackend) GetOrderHistory(context.Context, HistoryRequest) ([]types.OrderSnapshot, error) {
	return nil, u.unsupported("get_order_history")
}

func (u UnsupportedBackend) PlaceOrder(context.Context, types.PlaceOrderInstruction) (types.OrderResponse, error) {
	return types.OrderResponse{}, u.unsupported("place_order")
}

func (u UnsupportedBackend) CancelOrder(context.Context, types.CancelOrderInstruction) (types.OrderSnapshot, error) {
	return types.OrderSnapshot{}, u.unsupported("cancel_order")
}

func (u UnsupportedBackend) CancelAll(context.Context, string) (int, error) {
	return 0, u.unsupported("cancel_all")
}

func (u UnsupportedBackend) SyncOrder(context.Context, types.SyncOrderInstruction) (types.OrderSnapshot, error) {
	return types.OrderSnapshot{}, u.unsupported("sync_order")
}

func (u UnsupportedBackend) SyncOpenOrders(context.Context, string) ([]types.OrderSnapshot, error) {
	return nil, u.unsupported("sync_open_orders")
}

func (u UnsupportedBackend) GetFundingFee(context.Context, HistoryRequest) ([]types.FundingFee, error) {
	return nil, u.unsupported("get_funding_fee")
}

func (u UnsupportedBackend) GetFundingRate(context.Context, string) (types.FundingRate, error) {
	return types.FundingRate{}, u.unsupported("get_funding_rate")
}

func (u UnsupportedBackend) GetFundingRates(context.Context) (types.FundingRates, error) {
	return nil, u.unsupported("get_funding_rates")
}

func (u UnsupportedBackend) GetCommissionRate(context.Context, string) (types.CommissionRate, error) {
	return types.CommissionRate{}, u.unsupported("get_commission_rate")
}

func (u UnsupportedBackend) UniversalTransfer(context.Context, TransferRequest) (types.TransferResponse, error) {
	return types.TransferResponse{}, u.unsupported("universal_transfer")
}

func (u UnsupportedBackend) SetSymbolLeverage(context.Context, string, decimal.Decimal) error {
	return u.unsupported("set_symbol_leverage")
}

func (u UnsupportedBackend) SetMarginMode(context.Context, meta.MarginMode) error {
	return u.unsupported("set_margin_mode")
}

func (u UnsupportedBackend) SetPositionMode(context.Context, meta.PositionMode) error {
	return u.unsupported("set_position_mode")
}

func (u UnsupportedBackend) Close() error { return nil }

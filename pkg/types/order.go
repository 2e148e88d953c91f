package types

import (
	"github.com/shopspring/decimal"

	"github.com/unifex/exchange-adapter/pkg/meta"
)

// OrderSnapshot is the normalized view of one order's state, from either a
// REST query or a push update.
type OrderSnapshot struct {
	ExchSymbol string

	Price     decimal.Decimal
	Qty       decimal.Decimal
	AvgPrice  decimal.Decimal
	FilledQty decimal.Decimal
	LeftQty   decimal.Decimal

	Fee    decimal.Decimal
	FeeCcy string

	Side        meta.OrderSide
	TimeInForce meta.TimeInForce
	Type        meta.OrderType
	Status      meta.OrderStatus

	ReduceOnly bool

	OrderID       string
	ClientOrderID string

	RejectedReason string

	ExchUpdateTS  int64
	LocalUpdateTS int64
	PlaceAckTS    int64

	// ADL is set on push updates carrying the exchange's auto-deleveraging
	// marker.
	ADL bool
}

// Trade is one normalized fill.
type Trade struct {
	CreateTS int64
	FillTS   int64
	Side     meta.OrderSide
	TradeID  string
	OrderID  string
	Price    decimal.Decimal
	Qty      decimal.Decimal
	Turnover decimal.Decimal
	Fee      decimal.Decimal
	FeeCcy   string
	IsMaker  bool
}

// PlaceOrderInstruction describes one order to submit. Qty is the base-asset
// quantity; QuoteQty is a quote-asset notional and is only valid for market
// orders on spot/margin where the venue supports it. Exactly one of the two
// must be set.
type PlaceOrderInstruction struct {
	ExchSymbol string

	Type        meta.OrderType
	Side        meta.OrderSide
	TimeInForce meta.TimeInForce

	Price    decimal.Decimal
	Qty      decimal.Decimal
	QuoteQty decimal.Decimal

	TakeProfitPrice decimal.Decimal
	StopLossPrice   decimal.Decimal

	ReduceOnly bool

	ClientOrderID string

	Extras map[string]string
}

// CancelOrderInstruction identifies one order to cancel. Either OrderID or
// ClientOrderID must be set.
type CancelOrderInstruction struct {
	ExchSymbol    string
	OrderID       string
	ClientOrderID string
}

// SyncOrderInstruction identifies one order to query.
type SyncOrderInstruction struct {
	ExchSymbol    string
	OrderID       string
	ClientOrderID string
}

// OrderResponse acknowledges an accepted order.
type OrderResponse struct {
	OrderID string
}

// Liquidation is an ADL-driven forced reduction, derived from an order
// update that reached FILLED with the ADL marker set. Qty is signed: a
// sell-side ADL carries a negative quantity.
type Liquidation struct {
	ExchSymbol string
	Qty        decimal.Decimal
}

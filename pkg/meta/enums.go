// Package meta defines the shared vocabulary of the adapter layer: exchange
// and market identifiers, order enumerations, and the account/market metadata
// attached to every normalized record and event.
//
// Every enumeration is backed by an explicit finite mapping table with an
// UNKNOWN sentinel. Exchange-native vocabularies are converted through these
// tables by the per-exchange parsers; nothing in this package coerces strings
// reflectively.
package meta

import "strings"

// ExchangeName identifies a supported venue.
type ExchangeName string

const (
	ExchangeUnknown ExchangeName = "UNKNOWN"
	ExchangeBinance ExchangeName = "BINANCE"
	ExchangeBybit   ExchangeName = "BYBIT"
	ExchangeOKX     ExchangeName = "OKX"
	ExchangeGate    ExchangeName = "GATE"
	ExchangeKucoin  ExchangeName = "KUCOIN"
	ExchangeBitget  ExchangeName = "BITGET"
	ExchangeDeribit ExchangeName = "DERIBIT"
	ExchangeCoinex  ExchangeName = "COINEX"
	ExchangeMock    ExchangeName = "MOCK"
)

var exchangeNames = map[string]ExchangeName{
	"BINANCE": ExchangeBinance,
	"BYBIT":   ExchangeBybit,
	"OKX":     ExchangeOKX,
	"GATE":    ExchangeGate,
	"KUCOIN":  ExchangeKucoin,
	"BITGET":  ExchangeBitget,
	"DERIBIT": ExchangeDeribit,
	"COINEX":  ExchangeCoinex,
	"MOCK":    ExchangeMock,
}

// ParseExchangeName maps a string to a known exchange, ExchangeUnknown otherwise.
func ParseExchangeName(s string) ExchangeName {
	if e, ok := exchangeNames[s]; ok {
		return e
	}
	return ExchangeUnknown
}

func (e ExchangeName) String() string { return string(e) }

// MarketType is the trading product category.
type MarketType string

const (
	MarketUnknown MarketType = "UNKNOWN"
	MarketSpot    MarketType = "SPOT"
	MarketMargin  MarketType = "MARGIN"
	// MarketUPerp is a USDT/USDC-margined perpetual contract.
	MarketUPerp MarketType = "UPERP"
	// MarketCPerp is a coin-margined (inverse) perpetual contract.
	MarketCPerp MarketType = "CPERP"
	// MarketUDelivery is a USDT-margined delivery (dated) contract.
	MarketUDelivery MarketType = "UDELIVERY"
	// MarketCDelivery is a coin-margined delivery (dated) contract.
	MarketCDelivery MarketType = "CDELIVERY"
)

var marketTypes = map[string]MarketType{
	"SPOT":      MarketSpot,
	"SP":        MarketSpot,
	"MARGIN":    MarketMargin,
	"UPERP":     MarketUPerp,
	"UFUTURES":  MarketUPerp,
	"CPERP":     MarketCPerp,
	"CFUTURES":  MarketCPerp,
	"UDELIVERY": MarketUDelivery,
	"CDELIVERY": MarketCDelivery,
}

// ParseMarketType maps a string (including legacy aliases) to a market type.
func ParseMarketType(s string) MarketType {
	if m, ok := marketTypes[s]; ok {
		return m
	}
	return MarketUnknown
}

func (m MarketType) String() string { return string(m) }

// IsDerivative reports whether the market type carries a contract rather than
// the underlying asset.
func (m MarketType) IsDerivative() bool {
	switch m {
	case MarketUPerp, MarketCPerp, MarketUDelivery, MarketCDelivery:
		return true
	}
	return false
}

// IsDelivery reports whether contracts of this market type expire.
func (m MarketType) IsDelivery() bool {
	return m == MarketUDelivery || m == MarketCDelivery
}

// IsInverse reports whether contracts are coin-margined.
func (m MarketType) IsInverse() bool {
	return m == MarketCPerp || m == MarketCDelivery
}

// AccountType distinguishes venue account models.
type AccountType string

const (
	AccountUnknown AccountType = "UNKNOWN"
	AccountNormal  AccountType = "NORMAL"
	AccountUnified AccountType = "UNIFIED"
	AccountFund    AccountType = "FUND"
)

var accountTypes = map[string]AccountType{
	"NORMAL":  AccountNormal,
	"UNIFIED": AccountUnified,
	"FUND":    AccountFund,
}

// ParseAccountType maps a string to an account type, AccountUnknown otherwise.
func ParseAccountType(s string) AccountType {
	if a, ok := accountTypes[s]; ok {
		return a
	}
	return AccountUnknown
}

func (a AccountType) String() string { return string(a) }

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideUnknown OrderSide = "UNKNOWN"
	SideBuy     OrderSide = "BUY"
	SideSell    OrderSide = "SELL"
)

var orderSides = map[string]OrderSide{
	"BUY":  SideBuy,
	"buy":  SideBuy,
	"SELL": SideSell,
	"sell": SideSell,
}

// ParseOrderSide maps an exchange side string (either case) to an OrderSide.
func ParseOrderSide(s string) OrderSide {
	if v, ok := orderSides[s]; ok {
		return v
	}
	return SideUnknown
}

// Sign is +1 for buys, -1 for sells, 0 for unknown.
func (s OrderSide) Sign() int {
	switch s {
	case SideBuy:
		return 1
	case SideSell:
		return -1
	}
	return 0
}

// Opposite returns the other side; unknown stays unknown.
func (s OrderSide) Opposite() OrderSide {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	}
	return SideUnknown
}

// OrderStatus is the unified order lifecycle state.
type OrderStatus string

const (
	StatusUnknown         OrderStatus = "UNKNOWN"
	StatusPending         OrderStatus = "PENDING"
	StatusLive            OrderStatus = "LIVE"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusNotFound        OrderStatus = "NOT_FOUND"
)

// IsOpen reports whether the order can still trade.
func (s OrderStatus) IsOpen() bool {
	return s == StatusLive || s == StatusPartiallyFilled
}

// IsTerminal reports whether the order has reached a final state.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusRejected
}

var orderStatuses = map[string]OrderStatus{
	"PENDING":          StatusPending,
	"NEW":              StatusLive,
	"LIVE":             StatusLive,
	"OPEN":             StatusLive,
	"PARTIALLY_FILLED": StatusPartiallyFilled,
	"PARTIAL_FILLED":   StatusPartiallyFilled,
	"FILLED":           StatusFilled,
	"CANCELED":         StatusCanceled,
	"CANCELLED":        StatusCanceled,
	"REJECTED":         StatusRejected,
	"EXPIRED":          StatusCanceled,
	"NOT_FOUND":        StatusNotFound,
}

// ParseOrderStatus maps an exchange status string to an OrderStatus.
func ParseOrderStatus(s string) OrderStatus {
	if v, ok := orderStatuses[strings.ToUpper(s)]; ok {
		return v
	}
	return StatusUnknown
}

// OrderType is limit or market.
type OrderType string

const (
	TypeUnknown OrderType = "UNKNOWN"
	TypeLimit   OrderType = "LIMIT"
	TypeMarket  OrderType = "MARKET"
)

var orderTypes = map[string]OrderType{
	"LIMIT":  TypeLimit,
	"limit":  TypeLimit,
	"MARKET": TypeMarket,
	"market": TypeMarket,
}

// ParseOrderType maps an exchange order-type string to an OrderType.
func ParseOrderType(s string) OrderType {
	if v, ok := orderTypes[s]; ok {
		return v
	}
	return TypeUnknown
}

// TimeInForce is the unified time-in-force vocabulary. GTX is post-only.
type TimeInForce string

const (
	TIFUnknown TimeInForce = "UNKNOWN"
	TIFGTC     TimeInForce = "GTC"
	TIFIOC     TimeInForce = "IOC"
	TIFFOK     TimeInForce = "FOK"
	TIFGTX     TimeInForce = "GTX"
)

var timeInForces = map[string]TimeInForce{
	"GTC":       TIFGTC,
	"IOC":       TIFIOC,
	"FOK":       TIFFOK,
	"GTX":       TIFGTX,
	"PO":        TIFGTX,
	"post_only": TIFGTX,
}

// ParseTimeInForce maps an exchange TIF string to a TimeInForce.
func ParseTimeInForce(s string) TimeInForce {
	if v, ok := timeInForces[s]; ok {
		return v
	}
	return TIFUnknown
}

// MarginMode selects cross or isolated margin.
type MarginMode string

const (
	MarginCross    MarginMode = "CROSS"
	MarginIsolated MarginMode = "ISOLATED"
)

// PositionMode selects one-way or hedged positions.
type PositionMode string

const (
	PositionOneWay PositionMode = "ONE_WAY"
	PositionHedge  PositionMode = "HEDGE"
)

// InstStatus is the trading status of an instrument.
type InstStatus string

const (
	InstUnknown InstStatus = "UNKNOWN"
	// InstTrading means the instrument accepts orders.
	InstTrading InstStatus = "TRADING"
	// InstDelisting means still tradable but scheduled for removal.
	InstDelisting InstStatus = "DELISTING"
	// InstUntradable means listed but suspended.
	InstUntradable InstStatus = "UNTRADABLE"
	// InstOffline means the instrument disappeared from a metadata sync.
	// Offline instruments are kept so historical references stay valid.
	InstOffline InstStatus = "OFFLINE"
)

// IsTradable reports whether orders may be placed on the instrument.
func (s InstStatus) IsTradable() bool {
	return s == InstTrading || s == InstDelisting
}

// ContractType tags a delivery contract with its expiry bucket.
type ContractType string

const (
	ContractUnknown ContractType = "UNKNOWN"
	// ContractCQ expires at the current-quarter anchor.
	ContractCQ ContractType = "CQ"
	// ContractNQ expires at the next-quarter anchor.
	ContractNQ ContractType = "NQ"
	ContractCW ContractType = "CW"
	ContractNW ContractType = "NW"
	ContractCM ContractType = "CM"
	ContractNM ContractType = "NM"
)

// Event is the kind of a domain event published on the bus.
type Event string

const (
	EventBook         Event = "BOOK"
	EventTicker       Event = "TICKER"
	EventKline        Event = "KLINE"
	EventFundingRate  Event = "FUNDING_RATE"
	EventBalance      Event = "BALANCE"
	EventPosition     Event = "POSITION"
	EventOrder        Event = "ORDER"
	EventUserTrade    Event = "USER_TRADE"
	EventLiquidation  Event = "LIQUIDATION"
	EventConnected    Event = "CONNECTED"
	EventDisconnected Event = "DISCONNECTED"
)

func (e Event) String() string { return string(e) }

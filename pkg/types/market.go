package types

import "github.com/shopspring/decimal"

// Ticker is the top-of-book quote for one symbol.
type Ticker struct {
	ExchSymbol string
	Bid        decimal.Decimal
	Ask        decimal.Decimal
	BidQty     decimal.Decimal
	AskQty     decimal.Decimal
	IndexPrice decimal.Decimal
	TS         int64
	UpdateTS   int64
}

// Mid returns the midpoint of the quote.
func (t Ticker) Mid() decimal.Decimal {
	return t.Bid.Add(t.Ask).Div(decimal.NewFromInt(2))
}

// Tickers is keyed by native symbol.
type Tickers map[string]Ticker

// PriceLevel is one (price, quantity) rung of a book side.
type PriceLevel struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// BookUpdateKind distinguishes full book snapshots from incremental diffs.
type BookUpdateKind string

const (
	BookSnapshot BookUpdateKind = "snapshot"
	BookDelta    BookUpdateKind = "delta"
)

// OrderBook is a depth snapshot or delta for one symbol. Bids are ordered
// best-first descending, asks best-first ascending.
type OrderBook struct {
	ExchSymbol string
	Bids       []PriceLevel
	Asks       []PriceLevel
	ExchSeq    int64
	ExchTS     int64
	RecvTS     int64
	Kind       BookUpdateKind
}

// BestBid returns the top bid level, false if the side is empty.
func (b *OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the top ask level, false if the side is empty.
func (b *OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// FundingRate is the current funding state of one perpetual.
type FundingRate struct {
	FundingRate  decimal.Decimal
	FundingTS    int64
	IntervalHour int
	Cap          decimal.Decimal
	Floor        decimal.Decimal
}

// FundingRates is keyed by native symbol.
type FundingRates map[string]FundingRate

// Kline is one OHLCV candle.
type Kline struct {
	StartTS  int64
	Open     decimal.Decimal
	Close    decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Volume   decimal.Decimal
	Turnover decimal.Decimal
}

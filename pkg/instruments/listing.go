package instruments

import "github.com/shopspring/decimal"

// Listing is the normalized metadata record a per-exchange parser produces
// for one native symbol. The registry derives unified identifiers from it;
// it never sees raw exchange JSON.
type Listing struct {
	ExchSymbol string

	BaseAsset  string
	QuoteAsset string

	TickSize         decimal.Decimal
	LotSize          decimal.Decimal
	MinOrderSize     decimal.Decimal
	MinOrderNotional decimal.Decimal

	QtyMultiplier   decimal.Decimal
	TradeInNotional bool
	MarginTrading   bool

	// Tradable is the venue's own trading flag; false maps to UNTRADABLE.
	Tradable bool

	// ExpiryMS is the contract settlement instant in UTC milliseconds, zero
	// for non-delivery products.
	ExpiryMS int64
}

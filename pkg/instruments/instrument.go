// Package instruments implements the symbol unification engine: the
// process-wide registry mapping each venue's native symbols and contract
// metadata to canonical cross-exchange identifiers, including delivery-date
// derivation for futures and trading-status tracking across metadata syncs.
package instruments

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/unifex/exchange-adapter/pkg/meta"
)

// QuoteAssets is the default set of quote currencies the registry accepts.
var QuoteAssets = []string{"USDT", "USD", "USDC", "FDUSD", "USDE", "BFUSD", "USD1"}

// usdClassAssets collapse to "USD" in generic symbols.
var usdClassAssets = map[string]bool{
	"USDT":  true,
	"USDC":  true,
	"BUSD":  true,
	"FDUSD": true,
}

// ToGenericAsset collapses a USD-class quote asset to "USD".
func ToGenericAsset(asset string) string {
	if usdClassAssets[asset] {
		return "USD"
	}
	return asset
}

// Instrument is one tradable contract on one (exchange, market-type).
// (Exchange, MarketType, ExchSymbol) is a unique key; UnifiedSymbol is stable
// across exchanges for the same underlying pair.
type Instrument struct {
	ExchSymbol string
	Exchange   meta.ExchangeName
	MarketType meta.MarketType

	BaseAsset  string
	QuoteAsset string

	// UnifiedSymbol is BASE_QUOTE upper-cased, adjusted by the per-exchange
	// override table, with a _YYMMDD suffix for delivery contracts.
	UnifiedSymbol string
	// UnifiedBaseAsset is the base portion of UnifiedSymbol.
	UnifiedBaseAsset string
	// GenericSymbol is UnifiedBaseAsset joined with the quote collapsed to
	// its currency class.
	GenericSymbol string

	TickSize         decimal.Decimal
	LotSize          decimal.Decimal
	MinOrderSize     decimal.Decimal
	MinOrderNotional decimal.Decimal

	// QtyMultiplier converts native lot units into canonical base units.
	QtyMultiplier decimal.Decimal
	// PriceMultiplier converts native tick units into canonical price units.
	PriceMultiplier int64

	// TradeInNotional marks inverse contracts quoted in contract value.
	TradeInNotional bool
	MarginTrading   bool

	Status        meta.InstStatus
	ContractTypes []meta.ContractType
}

// finalize fills the derived symbol fields from UnifiedSymbol and QuoteAsset.
func (i *Instrument) finalize() {
	i.UnifiedBaseAsset = strings.SplitN(i.UnifiedSymbol, "_", 2)[0]
	i.GenericSymbol = i.UnifiedBaseAsset + "_" + ToGenericAsset(i.QuoteAsset)
	if i.QtyMultiplier.IsZero() {
		i.QtyMultiplier = decimal.NewFromInt(1)
	}
	if i.PriceMultiplier == 0 {
		i.PriceMultiplier = 1
	}
}

// Key identifies the instrument across exchanges.
func (i *Instrument) Key() string {
	return fmt.Sprintf("%s|%s|%s", i.UnifiedSymbol, i.MarketType, i.Exchange)
}

// IsTradable reports whether orders can still be placed.
func (i *Instrument) IsTradable() bool {
	return i.Status.IsTradable()
}

// IsDelivery reports whether the instrument carries delivery-contract tags.
func (i *Instrument) IsDelivery() bool {
	return len(i.ContractTypes) > 0
}

func (i *Instrument) priceMultiplierDec() decimal.Decimal {
	return decimal.NewFromInt(i.PriceMultiplier)
}

// UnifiedTickSize is the tick size in canonical price units.
func (i *Instrument) UnifiedTickSize() decimal.Decimal {
	return i.TickSize.Div(i.priceMultiplierDec())
}

// UnifiedLotSize is the lot size in canonical base units.
func (i *Instrument) UnifiedLotSize() decimal.Decimal {
	return i.LotSize.Mul(i.priceMultiplierDec()).Mul(i.QtyMultiplier)
}

// UnifiedMinOrderSize is the minimum order size in canonical base units.
func (i *Instrument) UnifiedMinOrderSize() decimal.Decimal {
	return i.MinOrderSize.Mul(i.priceMultiplierDec()).Mul(i.QtyMultiplier)
}

func (i *Instrument) String() string {
	return fmt.Sprintf("Instrument(%s %s-%s unified=%s status=%s)",
		i.ExchSymbol, i.Exchange, i.MarketType, i.UnifiedSymbol, i.Status)
}

package types

import (
	"github.com/shopspring/decimal"

	"github.com/unifex/exchange-adapter/pkg/meta"
)

// UpdateKind distinguishes a full snapshot from an incremental delta.
type UpdateKind string

const (
	UpdateFull  UpdateKind = "full"
	UpdateDelta UpdateKind = "delta"
)

// Balance is one asset's balance on one account.
type Balance struct {
	Asset    string
	Balance  decimal.Decimal
	Free     decimal.Decimal
	Borrowed decimal.Decimal
	Locked   decimal.Decimal
	Kind     UpdateKind
	TS       int64
}

// Balances is keyed by asset.
type Balances map[string]Balance

// Apply merges one balance update into the collection. A zero total balance
// removes the entry; callers observing the collection after an update will
// not see flat assets.
func (b Balances) Apply(upd Balance) {
	if upd.Balance.IsZero() {
		delete(b, upd.Asset)
		return
	}
	b[upd.Asset] = upd
}

// Position is one symbol's net position on one derivative account.
type Position struct {
	ExchSymbol    string
	NetQty        decimal.Decimal
	EntryPrice    decimal.Decimal
	Value         decimal.Decimal
	UnrealizedPnl decimal.Decimal
	LiqPrice      decimal.Decimal
	TS            int64
}

// Positions is keyed by native symbol.
type Positions map[string]Position

// Apply merges one position update into the collection. A zero net quantity
// removes the entry rather than retaining a flat record.
func (p Positions) Apply(upd Position) {
	if upd.NetQty.IsZero() {
		delete(p, upd.ExchSymbol)
		return
	}
	p[upd.ExchSymbol] = upd
}

// AccountInfo reports account-level capabilities and configuration.
type AccountInfo struct {
	CanTrade    bool
	CanDeposit  bool
	CanWithdraw bool

	PositionMode meta.PositionMode
	MarginMode   meta.MarginMode

	UpdateTS int64
}

// CommissionRate holds the maker/taker fee rates for one symbol.
type CommissionRate struct {
	Maker decimal.Decimal
	Taker decimal.Decimal
}

// FundingFee is one funding settlement on a perpetual position.
type FundingFee struct {
	Pnl decimal.Decimal
	TS  int64
}

// Leverage holds the configured long/short leverage for one symbol.
type Leverage struct {
	Long  decimal.Decimal
	Short decimal.Decimal
}

// TransferResponse acknowledges a universal transfer.
type TransferResponse struct {
	ApplyID string
}

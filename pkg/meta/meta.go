package meta

import (
	"fmt"
	"strings"
)

// MarketMeta identifies one market on one exchange. Immutable after
// construction; attached to every market-stream event.
type MarketMeta struct {
	Exchange   ExchangeName
	MarketType MarketType
}

func (m MarketMeta) String() string {
	return fmt.Sprintf("%s-%s", m.Exchange, m.MarketType)
}

// Key returns the registry key for this (exchange, market-type) pair.
func (m MarketMeta) Key() string { return m.String() }

// ParseMarketMeta parses the "EXCHANGE-MARKETTYPE" form produced by String.
func ParseMarketMeta(s string) (MarketMeta, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return MarketMeta{}, fmt.Errorf("malformed market meta %q", s)
	}
	m := MarketMeta{
		Exchange:   ParseExchangeName(parts[0]),
		MarketType: ParseMarketType(parts[1]),
	}
	if m.Exchange == ExchangeUnknown || m.MarketType == MarketUnknown {
		return MarketMeta{}, fmt.Errorf("unknown exchange or market type in %q", s)
	}
	return m, nil
}

// AccountMeta identifies one account on one (exchange, market-type).
// Immutable after construction; owned by the adapter built with it and
// attached to every account-stream event.
type AccountMeta struct {
	Exchange    ExchangeName
	AccountType AccountType
	MarketType  MarketType
	AccountName string
}

func (a AccountMeta) String() string {
	if a.AccountName != "" {
		return fmt.Sprintf("%s-%s-%s-%s", a.Exchange, a.AccountType, a.MarketType, a.AccountName)
	}
	return fmt.Sprintf("%s-%s-%s", a.Exchange, a.AccountType, a.MarketType)
}

// Market projects the account onto its market identity.
func (a AccountMeta) Market() MarketMeta {
	return MarketMeta{Exchange: a.Exchange, MarketType: a.MarketType}
}

// ParseAccountMeta parses "EXCH-ACCTYPE-MARKET[-name]" as produced by String.
func ParseAccountMeta(s string) (AccountMeta, error) {
	parts := strings.SplitN(s, "-", 4)
	if len(parts) < 3 {
		return AccountMeta{}, fmt.Errorf("malformed account meta %q", s)
	}
	a := AccountMeta{
		Exchange:    ParseExchangeName(parts[0]),
		AccountType: ParseAccountType(parts[1]),
		MarketType:  ParseMarketType(parts[2]),
	}
	if len(parts) == 4 {
		a.AccountName = parts[3]
	}
	if a.Exchange == ExchangeUnknown || a.MarketType == MarketUnknown {
		return AccountMeta{}, fmt.Errorf("unknown exchange or market type in %q", s)
	}
	return a, nil
}

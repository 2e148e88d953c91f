package mock

import (
	"github.com/shopspring/decimal"

	"github.com/unifex/exchange-adapter/pkg/adapter"
	"github.com/unifex/exchange-adapter/pkg/exchanges"
	"github.com/unifex/exchange-adapter/pkg/instruments"
	"github.com/unifex/exchange-adapter/pkg/meta"
	"github.com/unifex/exchange-adapter/pkg/types"
)

func init() {
	exchanges.RegisterRest(meta.ExchangeMock,
		func(account meta.AccountMeta, _ types.Credentials, _ types.RestConfig, _ exchanges.RestDeps) (adapter.Backend, error) {
			return NewBackend(account), nil
		})

	exchanges.RegisterStream(meta.ExchangeMock,
		func(meta.AccountMeta, types.Credentials, types.WSConfig) (exchanges.StreamBinding, error) {
			return exchanges.StreamBinding{Protocol: Protocol{}, Rules: Rules()}, nil
		})
}

// Listings returns the venue's small instrument universe, suitable for
// seeding a registry via Sync.
func Listings() []instruments.Listing {
	return []instruments.Listing{
		{
			ExchSymbol:       "BTCUSDT",
			BaseAsset:        "BTC",
			QuoteAsset:       "USDT",
			TickSize:         decimal.NewFromFloat(0.1),
			LotSize:          decimal.NewFromFloat(0.001),
			MinOrderSize:     decimal.NewFromFloat(0.001),
			MinOrderNotional: decimal.NewFromInt(5),
			Tradable:         true,
		},
		{
			ExchSymbol:       "ETHUSDT",
			BaseAsset:        "ETH",
			QuoteAsset:       "USDT",
			TickSize:         decimal.NewFromFloat(0.01),
			LotSize:          decimal.NewFromFloat(0.01),
			MinOrderSize:     decimal.NewFromFloat(0.01),
			MinOrderNotional: decimal.NewFromInt(5),
			Tradable:         true,
		},
		{
			ExchSymbol:   "SOLUSDT",
			BaseAsset:    "SOL",
			QuoteAsset:   "USDT",
			TickSize:     decimal.NewFromFloat(0.001),
			LotSize:      decimal.NewFromFloat(0.1),
			MinOrderSize: decimal.NewFromFloat(0.1),
			Tradable:     true,
		},
	}
}

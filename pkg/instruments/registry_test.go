package instruments

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifex/exchange-adapter/pkg/meta"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
}

func newTestRegistry() *Registry {
	return NewRegistry(&Options{Now: fixedNow})
}

func spotListing(symbol, base, quote string) Listing {
	return Listing{
		ExchSymbol:   symbol,
		BaseAsset:    base,
		QuoteAsset:   quote,
		TickSize:     decimal.NewFromFloat(0.01),
		LotSize:      decimal.NewFromFloat(0.001),
		MinOrderSize: decimal.NewFromFloat(0.001),
		Tradable:     true,
	}
}

func TestSyncDerivesSymbols(t *testing.T) {
	r := newTestRegistry()

	err := r.Sync(meta.ExchangeBinance, meta.MarketSpot, []Listing{
		spotListing("BTCUSDT", "BTC", "USDT"),
		spotListing("ETHUSDC", "eth", "usdc"),
	})
	require.NoError(t, err)

	btc := r.ByNative(meta.ExchangeBinance, meta.MarketSpot, "BTCUSDT")
	require.NotNil(t, btc)
	assert.Equal(t, "BTC_USDT", btc.UnifiedSymbol)
	assert.Equal(t, "BTC_USD", btc.GenericSymbol)
	assert.Equal(t, "BTC", btc.UnifiedBaseAsset)
	assert.Equal(t, meta.InstTrading, btc.Status)

	t.Run("case is normalized", func(t *testing.T) {
		eth := r.ByNative(meta.ExchangeBinance, meta.MarketSpot, "ETHUSDC")
		require.NotNil(t, eth)
		assert.Equal(t, "ETH_USDC", eth.UnifiedSymbol)
		assert.Equal(t, "ETH_USD", eth.GenericSymbol)
	})

	t.Run("all three indexes resolve", func(t *testing.T) {
		assert.Same(t, btc, r.ByUnified(meta.ExchangeBinance, meta.MarketSpot, "BTC_USDT"))
		assert.Same(t, btc, r.ByGeneric(meta.ExchangeBinance, meta.MarketSpot, "BTC_USD"))
	})

	t.Run("non-quote listings are skipped", func(t *testing.T) {
		err := r.Sync(meta.ExchangeBinance, meta.MarketSpot, []Listing{spotListing("BTCETH", "BTC", "ETH")})
		require.NoError(t, err)
		assert.Nil(t, r.ByNative(meta.ExchangeBinance, meta.MarketSpot, "BTCETH"))
	})
}

func TestRoundTripSymbolMapping(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Sync(meta.ExchangeBybit, meta.MarketUPerp, []Listing{
		spotListing("BTCUSDT", "BTC", "USDT"),
		spotListing("1000PEPEUSDT", "1000PEPE", "USDT"),
	}))

	for _, native := range []string{"BTCUSDT", "1000PEPEUSDT"} {
		unified := r.UnifiedSymbol(meta.ExchangeBybit, meta.MarketUPerp, native)
		require.NotEmpty(t, unified)
		assert.Equal(t, native, r.NativeSymbol(meta.ExchangeBybit, meta.MarketUPerp, unified))
	}
}

func TestSymbolOverrides(t *testing.T) {
	r := newTestRegistry()
	r.SetSymbolOverrides(meta.ExchangeKucoin, meta.MarketSpot, map[string]string{
		"XBT_USDT": "BTC_USDT",
	})

	require.NoError(t, r.Sync(meta.ExchangeKucoin, meta.MarketSpot, []Listing{
		spotListing("XBT-USDT", "XBT", "USDT"),
	}))

	inst := r.ByNative(meta.ExchangeKucoin, meta.MarketSpot, "XBT-USDT")
	require.NotNil(t, inst)
	assert.Equal(t, "BTC_USDT", inst.UnifiedSymbol)
	assert.Equal(t, "BTC_USD", inst.GenericSymbol)
}

func TestDeliverySync(t *testing.T) {
	r := newTestRegistry()
	cq := time.Date(2024, 6, 28, 8, 0, 0, 0, time.UTC).UnixMilli()
	nq := time.Date(2024, 9, 27, 8, 0, 0, 0, time.UTC).UnixMilli()
	odd := time.Date(2024, 8, 2, 8, 0, 0, 0, time.UTC).UnixMilli()

	cqListing := spotListing("BTCUSDT_240628", "BTC", "USDT")
	cqListing.ExpiryMS = cq
	nqListing := spotListing("BTCUSDT_240927", "BTC", "USDT")
	nqListing.ExpiryMS = nq
	oddListing := spotListing("BTCUSDT_240802", "BTC", "USDT")
	oddListing.ExpiryMS = odd

	require.NoError(t, r.Sync(meta.ExchangeBinance, meta.MarketUDelivery, []Listing{cqListing, nqListing, oddListing}))

	cur := r.ByNative(meta.ExchangeBinance, meta.MarketUDelivery, "BTCUSDT_240628")
	require.NotNil(t, cur)
	assert.Equal(t, "BTC_USDT_240628", cur.UnifiedSymbol)
	assert.Equal(t, []meta.ContractType{meta.ContractCQ}, cur.ContractTypes)
	assert.True(t, cur.IsDelivery())

	next := r.ByNative(meta.ExchangeBinance, meta.MarketUDelivery, "BTCUSDT_240927")
	require.NotNil(t, next)
	assert.Equal(t, []meta.ContractType{meta.ContractNQ}, next.ContractTypes)

	t.Run("off-calendar contract is ignored", func(t *testing.T) {
		assert.Nil(t, r.ByNative(meta.ExchangeBinance, meta.MarketUDelivery, "BTCUSDT_240802"))
	})

	t.Run("delivery listing without expiry is an error", func(t *testing.T) {
		bad := spotListing("BTCUSDT_BAD", "BTC", "USDT")
		err := r.Sync(meta.ExchangeBinance, meta.MarketUDelivery, []Listing{bad})
		assert.Error(t, err)
	})
}

func TestOfflineTagging(t *testing.T) {
	r := newTestRegistry()

	require.NoError(t, r.Sync(meta.ExchangeGate, meta.MarketSpot, []Listing{
		spotListing("BTC_USDT", "BTC", "USDT"),
		spotListing("ETH_USDT", "ETH", "USDT"),
	}))

	// ETH absent from the next pull.
	require.NoError(t, r.Sync(meta.ExchangeGate, meta.MarketSpot, []Listing{
		spotListing("BTC_USDT", "BTC", "USDT"),
	}))

	eth := r.ByNative(meta.ExchangeGate, meta.MarketSpot, "ETH_USDT")
	require.NotNil(t, eth, "offline instruments stay resolvable")
	assert.Equal(t, meta.InstOffline, eth.Status)
	assert.False(t, eth.IsTradable())

	t.Run("offline is monotonic across further syncs", func(t *testing.T) {
		require.NoError(t, r.Sync(meta.ExchangeGate, meta.MarketSpot, []Listing{
			spotListing("BTC_USDT", "BTC", "USDT"),
		}))
		assert.Equal(t, meta.InstOffline, r.ByNative(meta.ExchangeGate, meta.MarketSpot, "ETH_USDT").Status)
	})

	t.Run("relisting restores trading status", func(t *testing.T) {
		require.NoError(t, r.Sync(meta.ExchangeGate, meta.MarketSpot, []Listing{
			spotListing("BTC_USDT", "BTC", "USDT"),
			spotListing("ETH_USDT", "ETH", "USDT"),
		}))
		assert.Equal(t, meta.InstTrading, r.ByNative(meta.ExchangeGate, meta.MarketSpot, "ETH_USDT").Status)
	})
}

func TestPriceMultiplierByAsset(t *testing.T) {
	r := newTestRegistry()
	r.SetPriceMultipliers(meta.ExchangeOKX, meta.MarketUPerp, map[string]int64{
		"SHIB_USDT": 1000,
		"SHIB_USDC": 1000,
	})

	require.NoError(t, r.Sync(meta.ExchangeOKX, meta.MarketUPerp, []Listing{
		spotListing("SHIB-USDT-SWAP", "SHIB", "USDT"),
		spotListing("SHIB-USDC-SWAP", "SHIB", "USDC"),
		spotListing("BTC-USDT-SWAP", "BTC", "USDT"),
	}))

	t.Run("agreeing instruments resolve", func(t *testing.T) {
		pm, ok, err := r.PriceMultiplierByAsset(meta.ExchangeOKX, meta.MarketUPerp, "SHIB")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(1000), pm)
	})

	t.Run("quote asset is always 1", func(t *testing.T) {
		pm, ok, err := r.PriceMultiplierByAsset(meta.ExchangeOKX, meta.MarketUPerp, "USDT")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(1), pm)
	})

	t.Run("unknown asset", func(t *testing.T) {
		_, ok, err := r.PriceMultiplierByAsset(meta.ExchangeOKX, meta.MarketUPerp, "DOGE")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("disagreement fails loudly", func(t *testing.T) {
		r.SetPriceMultipliers(meta.ExchangeOKX, meta.MarketUPerp, map[string]int64{
			"SHIB_USDT": 1000,
			"SHIB_USDC": 100,
		})
		require.NoError(t, r.Sync(meta.ExchangeOKX, meta.MarketUPerp, []Listing{
			spotListing("SHIB-USDT-SWAP", "SHIB", "USDT"),
			spotListing("SHIB-USDC-SWAP", "SHIB", "USDC"),
		}))

		_, _, err := r.PriceMultiplierByAsset(meta.ExchangeOKX, meta.MarketUPerp, "SHIB")
		assert.ErrorIs(t, err, ErrAmbiguousMultiplier)
	})
}

func TestReadyGate(t *testing.T) {
	r := newTestRegistry()

	assert.False(t, r.Ready(meta.ExchangeBinance, meta.MarketSpot))

	t.Run("wait times out before first sync", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := r.WaitReady(ctx, meta.ExchangeBinance, meta.MarketSpot)
		assert.ErrorIs(t, err, ErrNotReady)
	})

	require.NoError(t, r.Sync(meta.ExchangeBinance, meta.MarketSpot, []Listing{
		spotListing("BTCUSDT", "BTC", "USDT"),
	}))

	assert.True(t, r.Ready(meta.ExchangeBinance, meta.MarketSpot))
	assert.NoError(t, r.WaitReady(context.Background(), meta.ExchangeBinance, meta.MarketSpot))

	t.Run("waiter unblocks on sync", func(t *testing.T) {
		done := make(chan error, 1)
		go func() {
			done <- r.WaitReady(context.Background(), meta.ExchangeBybit, meta.MarketSpot)
		}()

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, r.Sync(meta.ExchangeBybit, meta.MarketSpot, []Listing{
			spotListing("BTCUSDT", "BTC", "USDT"),
		}))

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("waiter did not unblock")
		}
	})
}

func TestUnifiedAssetByNativeAsset(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Sync(meta.ExchangeGate, meta.MarketSpot, []Listing{
		spotListing("XBT_USDT", "XBT", "USDT"),
	}))

	// Quote assets map through the generic table.
	assert.Equal(t, "USD", r.UnifiedAssetByNativeAsset(meta.ExchangeGate, meta.MarketSpot, "USDT"))
	// Listed base assets follow the instrument's unified base asset.
	assert.Equal(t, "XBT", r.UnifiedAssetByNativeAsset(meta.ExchangeGate, meta.MarketSpot, "xbt"))
	// Unknown assets map to themselves.
	assert.Equal(t, "DOGE", r.UnifiedAssetByNativeAsset(meta.ExchangeGate, meta.MarketSpot, "DOGE"))
}

func TestMarkReadyWithoutSync(t *testing.T) {
	r := newTestRegistry()
	assert.False(t, r.Ready(meta.ExchangeOKX, meta.MarketSpot))

	r.MarkReady(meta.ExchangeOKX, meta.MarketSpot)
	r.MarkReady(meta.ExchangeOKX, meta.MarketSpot)
	assert.True(t, r.Ready(meta.ExchangeOKX, meta.MarketSpot))
	assert.NoError(t, r.WaitReady(context.Background(), meta.ExchangeOKX, meta.MarketSpot))
}

func TestUnifiedSizes(t *testing.T) {
	inst := &Instrument{
		ExchSymbol:      "SHIBUSDT",
		Exchange:        meta.ExchangeBinance,
		MarketType:      meta.MarketUPerp,
		BaseAsset:       "SHIB",
		QuoteAsset:      "USDT",
		UnifiedSymbol:   "SHIB_USDT",
		TickSize:        decimal.NewFromFloat(0.000001),
		LotSize:         decimal.NewFromInt(1),
		MinOrderSize:    decimal.NewFromInt(1),
		PriceMultiplier: 1000,
	}
	inst.finalize()

	assert.True(t, inst.UnifiedTickSize().Equal(decimal.NewFromFloat(0.000000001)))
	assert.True(t, inst.UnifiedLotSize().Equal(decimal.NewFromInt(1000)))
}

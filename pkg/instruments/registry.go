package instruments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/unifex/exchange-adapter/pkg/logging"
	"github.com/unifex/exchange-adapter/pkg/meta"
)

var (
	// ErrAmbiguousMultiplier is returned when instruments sharing an asset
	// disagree on price multiplier. The lookup fails loudly; picking one
	// silently would corrupt downstream position and fee math.
	ErrAmbiguousMultiplier = errors.New("asset has multiple price multipliers")

	// ErrNotReady is returned when a blocking wait on a market's first sync
	// is cancelled.
	ErrNotReady = errors.New("instruments not initialized")
)

// Options configures a Registry.
type Options struct {
	// QuoteAssets restricts syncs to listings quoted in these currencies.
	// Defaults to QuoteAssets.
	QuoteAssets []string

	Logger logging.Logger

	// Now supplies the clock used for delivery-date derivation.
	Now func() time.Time
}

// Registry is the process-scoped instrument table, keyed by
// (exchange, market-type) and indexed by three alternate keys: unified
// symbol, native symbol, and generic symbol. It is constructed once at
// startup and shared by reference with every adapter. Only Sync mutates it;
// instruments flip to OFFLINE when absent from a fresh pull and are never
// deleted.
type Registry struct {
	mu sync.RWMutex

	byUnified map[string]map[string]*Instrument
	byNative  map[string]map[string]*Instrument
	byGeneric map[string]map[string]*Instrument

	// Per-exchange override tables for divergent naming and price scaling,
	// keyed by market, then by unified-symbol origin.
	symbolOverrides     map[string]map[string]string
	multiplierOverrides map[string]map[string]int64

	ready map[string]chan struct{}

	quoteAssets map[string]bool
	logger      logging.Logger
	now         func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(opts *Options) *Registry {
	if opts == nil {
		opts = &Options{}
	}
	quotes := opts.QuoteAssets
	if len(quotes) == 0 {
		quotes = QuoteAssets
	}
	quoteSet := make(map[string]bool, len(quotes))
	for _, q := range quotes {
		quoteSet[q] = true
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Registry{
		byUnified:           make(map[string]map[string]*Instrument),
		byNative:            make(map[string]map[string]*Instrument),
		byGeneric:           make(map[string]map[string]*Instrument),
		symbolOverrides:     make(map[string]map[string]string),
		multiplierOverrides: make(map[string]map[string]int64),
		ready:               make(map[string]chan struct{}),
		quoteAssets:         quoteSet,
		logger:              logger,
		now:                 now,
	}
}

func marketKey(exchange meta.ExchangeName, marketType meta.MarketType) string {
	return meta.MarketMeta{Exchange: exchange, MarketType: marketType}.Key()
}

// SetSymbolOverrides installs the per-exchange unified-symbol override table
// for one market: origin symbol to canonical symbol.
func (r *Registry) SetSymbolOverrides(exchange meta.ExchangeName, marketType meta.MarketType, overrides map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbolOverrides[marketKey(exchange, marketType)] = overrides
}

// SetPriceMultipliers installs the per-exchange price multiplier table for
// one market, keyed by unified-symbol origin.
func (r *Registry) SetPriceMultipliers(exchange meta.ExchangeName, marketType meta.MarketType, multipliers map[string]int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.multiplierOverrides[marketKey(exchange, marketType)] = multipliers
}

// Sync ingests one market's fresh listing pull. It derives unified and
// generic symbols, computes delivery tags for futures, files each qualifying
// instrument under the three lookup tables, flips absent symbols to OFFLINE,
// and releases the market's ready gate on first completion. Syncs are
// idempotent per symbol.
func (r *Registry) Sync(exchange meta.ExchangeName, marketType meta.MarketType, listings []Listing) error {
	key := marketKey(exchange, marketType)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := make(map[string]bool, len(r.byNative[key]))
	for sym := range r.byNative[key] {
		prev[sym] = true
	}

	curr := make(map[string]bool, len(listings))
	for _, l := range listings {
		inst, ok, err := r.buildLocked(exchange, marketType, key, l, now)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		r.addLocked(key, inst)
		curr[inst.ExchSymbol] = true
	}

	r.setOfflineLocked(key, prev, curr)
	r.markReadyLocked(key)
	return nil
}

func (r *Registry) markReadyLocked(key string) {
	gate, ok := r.ready[key]
	if !ok {
		gate = make(chan struct{})
		r.ready[key] = gate
	}
	select {
	case <-gate:
	default:
		close(gate)
	}
}

// MarkReady opens the market's ready gate without a sync, for callers that
// seed instruments through another channel. Idempotent.
func (r *Registry) MarkReady(exchange meta.ExchangeName, marketType meta.MarketType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markReadyLocked(marketKey(exchange, marketType))
}

func (r *Registry) buildLocked(exchange meta.ExchangeName, marketType meta.MarketType, key string, l Listing, now time.Time) (*Instrument, bool, error) {
	quote := strings.ToUpper(l.QuoteAsset)
	if !r.quoteAssets[quote] {
		return nil, false, nil
	}
	base := strings.ToUpper(l.BaseAsset)

	origin := base + "_" + quote
	unified := origin
	if ov, ok := r.symbolOverrides[key][origin]; ok {
		unified = ov
	}

	var contractTypes []meta.ContractType
	if marketType.IsDelivery() {
		if l.ExpiryMS == 0 {
			return nil, false, fmt.Errorf("delivery listing %s has no expiry", l.ExchSymbol)
		}
		ct, ok := ClassifyDelivery(l.ExpiryMS, now)
		if !ok {
			// Expiry outside the canonical quarter set: not an error, the
			// contract is simply not tracked.
			return nil, false, nil
		}
		contractTypes = append(contractTypes, ct)
		unified = unified + "_" + DeliverySuffix(l.ExpiryMS)
	}

	status := meta.InstTrading
	if !l.Tradable {
		status = meta.InstUntradable
	}

	priceMultiplier := int64(1)
	if pm, ok := r.multiplierOverrides[key][origin]; ok {
		priceMultiplier = pm
	}

	inst := &Instrument{
		ExchSymbol:       l.ExchSymbol,
		Exchange:         exchange,
		MarketType:       marketType,
		BaseAsset:        base,
		QuoteAsset:       quote,
		UnifiedSymbol:    unified,
		TickSize:         l.TickSize,
		LotSize:          l.LotSize,
		MinOrderSize:     l.MinOrderSize,
		MinOrderNotional: l.MinOrderNotional,
		QtyMultiplier:    l.QtyMultiplier,
		PriceMultiplier:  priceMultiplier,
		TradeInNotional:  l.TradeInNotional,
		MarginTrading:    l.MarginTrading,
		Status:           status,
		ContractTypes:    contractTypes,
	}
	inst.finalize()
	return inst, true, nil
}

func (r *Registry) addLocked(key string, inst *Instrument) {
	if r.byUnified[key] == nil {
		r.byUnified[key] = make(map[string]*Instrument)
		r.byNative[key] = make(map[string]*Instrument)
		r.byGeneric[key] = make(map[string]*Instrument)
	}
	r.byUnified[key][inst.UnifiedSymbol] = inst
	r.byNative[key][inst.ExchSymbol] = inst
	r.byGeneric[key][inst.GenericSymbol] = inst
}

func (r *Registry) setOfflineLocked(key string, prev, curr map[string]bool) {
	for sym := range prev {
		if curr[sym] {
			continue
		}
		inst := r.byNative[key][sym]
		if inst == nil || inst.Status == meta.InstOffline {
			continue
		}
		inst.Status = meta.InstOffline
		r.logger.Info("instrument offline",
			logging.String("market", key),
			logging.String("unified_symbol", inst.UnifiedSymbol),
		)
	}
}

// Ready reports whether the market has completed at least one sync.
func (r *Registry) Ready(exchange meta.ExchangeName, marketType meta.MarketType) bool {
	r.mu.RLock()
	gate, ok := r.ready[marketKey(exchange, marketType)]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case <-gate:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the market's first sync completes or ctx expires.
func (r *Registry) WaitReady(ctx context.Context, exchange meta.ExchangeName, marketType meta.MarketType) error {
	key := marketKey(exchange, marketType)

	r.mu.Lock()
	gate, ok := r.ready[key]
	if !ok {
		gate = make(chan struct{})
		r.ready[key] = gate
	}
	r.mu.Unlock()

	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %w", ErrNotReady, key, ctx.Err())
	}
}

// ByUnified looks up one instrument by unified symbol, nil if absent.
func (r *Registry) ByUnified(exchange meta.ExchangeName, marketType meta.MarketType, unified string) *Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byUnified[marketKey(exchange, marketType)][unified]
}

// ByNative looks up one instrument by exchange-native symbol, nil if absent.
func (r *Registry) ByNative(exchange meta.ExchangeName, marketType meta.MarketType, native string) *Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byNative[marketKey(exchange, marketType)][native]
}

// ByGeneric looks up one instrument by generic symbol, nil if absent.
func (r *Registry) ByGeneric(exchange meta.ExchangeName, marketType meta.MarketType, generic string) *Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byGeneric[marketKey(exchange, marketType)][generic]
}

// UnifiedSymbol maps a native symbol to its unified symbol, "" if unknown.
func (r *Registry) UnifiedSymbol(exchange meta.ExchangeName, marketType meta.MarketType, native string) string {
	if inst := r.ByNative(exchange, marketType, native); inst != nil {
		return inst.UnifiedSymbol
	}
	return ""
}

// NativeSymbol maps a unified symbol to its native symbol, "" if unknown.
func (r *Registry) NativeSymbol(exchange meta.ExchangeName, marketType meta.MarketType, unified string) string {
	if inst := r.ByUnified(exchange, marketType, unified); inst != nil {
		return inst.ExchSymbol
	}
	return ""
}

// Market returns a copy of the market's instrument table keyed by native
// symbol.
func (r *Registry) Market(exchange meta.ExchangeName, marketType meta.MarketType) map[string]*Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.byNative[marketKey(exchange, marketType)]
	out := make(map[string]*Instrument, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// ByAsset returns the market's instruments whose base asset matches, keyed
// by native symbol.
func (r *Registry) ByAsset(exchange meta.ExchangeName, marketType meta.MarketType, asset string) map[string]*Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Instrument)
	for sym, inst := range r.byNative[marketKey(exchange, marketType)] {
		if inst.BaseAsset == asset {
			out[sym] = inst
		}
	}
	return out
}

// UnifiedAssetByNativeAsset maps an exchange-native asset name to its unified
// form. Quote assets map through the generic-asset table; other assets follow
// the unified base asset of the instruments listing them. An asset unknown to
// the market maps to itself.
func (r *Registry) UnifiedAssetByNativeAsset(exchange meta.ExchangeName, marketType meta.MarketType, asset string) string {
	asset = strings.ToUpper(asset)
	if r.quoteAssets[asset] {
		return ToGenericAsset(asset)
	}
	for _, inst := range r.ByAsset(exchange, marketType, asset) {
		return inst.UnifiedBaseAsset
	}
	return asset
}

// PriceMultiplierByAsset resolves the price multiplier for an asset. Quote
// assets are always 1. When multiple instruments share the asset they must
// agree; disagreement is a data-integrity error, never resolved by picking
// one. An unknown asset returns (0, false, nil).
func (r *Registry) PriceMultiplierByAsset(exchange meta.ExchangeName, marketType meta.MarketType, asset string) (int64, bool, error) {
	if r.quoteAssets[asset] {
		return 1, true, nil
	}

	insts := r.ByAsset(exchange, marketType, asset)
	if len(insts) == 0 {
		return 0, false, nil
	}

	multipliers := make(map[int64]bool)
	var last int64
	for _, inst := range insts {
		multipliers[inst.PriceMultiplier] = true
		last = inst.PriceMultiplier
	}
	if len(multipliers) > 1 {
		return 0, false, fmt.Errorf("%w: %s in %s", ErrAmbiguousMultiplier, asset, marketKey(exchange, marketType))
	}
	return last, true, nil
}

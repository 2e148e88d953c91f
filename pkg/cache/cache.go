// Package cache provides the optional external key-value source for
// pre-computed balances, positions, prices and commission rates. Reads are
// explicit about absence: a miss returns ErrMiss, never an empty result.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/unifex/exchange-adapter/pkg/meta"
)

// ErrMiss is returned when a key is not present in the cache.
var ErrMiss = errors.New("cache miss")

// Reader is the read-only view adapters consume.
type Reader interface {
	// Get returns the raw value for key, ErrMiss if absent.
	Get(ctx context.Context, key string) ([]byte, error)
}

// Writer is implemented by stores that can be populated, used by the tiered
// front cache and by synthetic venues.
type Writer interface {
	Set(ctx context.Context, key string, value []byte) error
}

// Store combines both directions.
type Store interface {
	Reader
	Writer
}

// Composite key builders. Every cached record is filed under the owning
// account so multi-account processes never collide.

func BalancesKey(account meta.AccountMeta) string {
	return fmt.Sprintf("balances:%s", account)
}

func PositionsKey(account meta.AccountMeta) string {
	return fmt.Sprintf("positions:%s", account)
}

func PricesKey(market meta.MarketMeta) string {
	return fmt.Sprintf("prices:%s", market)
}

func CommissionKey(account meta.AccountMeta, exchSymbol string) string {
	return fmt.Sprintf("commission:%s:%s", account, exchSymbol)
}

// GetJSON reads key and decodes it into v. A miss propagates as ErrMiss.
func GetJSON(ctx context.Context, r Reader, key string, v any) error {
	raw, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, w Writer, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return w.Set(ctx, key, raw)
}

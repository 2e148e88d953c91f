// Package mock implements a synthetic in-memory venue. It backs the example
// program and the end-to-end tests with deterministic REST and stream
// behavior, and registers itself with the factory under the MOCK exchange.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/unifex/exchange-adapter/pkg/adapter"
	"github.com/unifex/exchange-adapter/pkg/meta"
	"github.com/unifex/exchange-adapter/pkg/types"
)

// historyPageSize is the venue's page limit for history queries.
const historyPageSize = 100

// Backend is the mock venue's REST binding. It declares the common read and
// order operations; everything else stays unsupported.
type Backend struct {
	adapter.UnsupportedBackend

	mu         sync.Mutex
	balances   types.Balances
	positions  types.Positions
	prices     map[string]decimal.Decimal
	open       map[string]types.OrderSnapshot
	history    []types.OrderSnapshot
	trades     []types.Trade
	commission types.CommissionRate
	leverage   map[string]decimal.Decimal
}

// NewBackend creates an empty venue for the given account.
func NewBackend(account meta.AccountMeta) *Backend {
	return &Backend{
		UnsupportedBackend: adapter.UnsupportedBackend{Account: account},
		balances:           types.Balances{},
		positions:          types.Positions{},
		prices:             map[string]decimal.Decimal{},
		open:               map[string]types.OrderSnapshot{},
		commission: types.CommissionRate{
			Maker: decimal.NewFromFloat(0.0002),
			Taker: decimal.NewFromFloat(0.0005),
		},
		leverage: map[string]decimal.Decimal{},
	}
}

// SeedBalance installs one asset balance.
func (b *Backend) SeedBalance(bal types.Balance) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances.Apply(bal)
}

// SeedPosition installs one position.
func (b *Backend) SeedPosition(pos types.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions.Apply(pos)
}

// SeedPrice installs one symbol price.
func (b *Backend) SeedPrice(exchSymbol string, px decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[exchSymbol] = px
}

// SeedTrades appends fills to the venue's trade log.
func (b *Backend) SeedTrades(trades ...types.Trade) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trades = append(b.trades, trades...)
}

func (b *Backend) GetAssets(context.Context) (types.Balances, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(types.Balances, len(b.balances))
	for k, v := range b.balances {
		out[k] = v
	}
	return out, nil
}

func (b *Backend) GetPositions(context.Context) (types.Positions, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(types.Positions, len(b.positions))
	for k, v := range b.positions {
		out[k] = v
	}
	return out, nil
}

func (b *Backend) GetPrice(_ context.Context, exchSymbol string) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	px, ok := b.prices[exchSymbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for %s", exchSymbol)
	}
	return px, nil
}

func (b *Backend) GetPrices(context.Context) (types.Tickers, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	spread := decimal.NewFromFloat(0.0001)
	out := make(types.Tickers, len(b.prices))
	for sym, px := range b.prices {
		half := px.Mul(spread)
		out[sym] = types.Ticker{
			ExchSymbol: sym,
			Bid:        px.Sub(half),
			Ask:        px.Add(half),
			TS:         time.Now().UnixMilli(),
		}
	}
	return out, nil
}

// PlaceOrder fills market orders at the seeded price immediately; limit
// orders rest as open.
func (b *Backend) PlaceOrder(_ context.Context, inst types.PlaceOrderInstruction) (types.OrderResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Market fills and quote-notional conversion need a marked price; a
	// resting limit order does not.
	px, havePx := b.prices[inst.ExchSymbol]
	if !havePx && (inst.Type == meta.TypeMarket || inst.QuoteQty.IsPositive()) {
		return types.OrderResponse{}, fmt.Errorf("no price for %s", inst.ExchSymbol)
	}

	qty := inst.Qty
	if qty.IsZero() && inst.QuoteQty.IsPositive() {
		qty = inst.QuoteQty.Div(px)
	}

	clientID := inst.ClientOrderID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	snap := types.OrderSnapshot{
		ExchSymbol:    inst.ExchSymbol,
		Price:         inst.Price,
		Qty:           qty,
		Side:          inst.Side,
		TimeInForce:   inst.TimeInForce,
		Type:          inst.Type,
		OrderID:       uuid.NewString(),
		ClientOrderID: clientID,
		PlaceAckTS:    time.Now().UnixMilli(),
	}

	if inst.Type == meta.TypeMarket {
		snap.Status = meta.StatusFilled
		snap.AvgPrice = px
		snap.FilledQty = qty
		b.history = append(b.history, snap)
		b.trades = append(b.trades, types.Trade{
			FillTS:   snap.PlaceAckTS,
			Side:     snap.Side,
			TradeID:  uuid.NewString(),
			OrderID:  snap.OrderID,
			Price:    px,
			Qty:      qty,
			Turnover: px.Mul(qty),
			Fee:      px.Mul(qty).Mul(b.commission.Taker),
			FeeCcy:   "USDT",
		})
	} else {
		snap.Status = meta.StatusLive
		snap.LeftQty = qty
		b.open[snap.OrderID] = snap
	}

	return types.OrderResponse{OrderID: snap.OrderID}, nil
}

func (b *Backend) findLocked(orderID, clientOrderID string) (types.OrderSnapshot, bool) {
	if snap, ok := b.open[orderID]; ok {
		return snap, true
	}
	for _, snap := range b.open {
		if clientOrderID != "" && snap.ClientOrderID == clientOrderID {
			return snap, true
		}
	}
	return types.OrderSnapshot{}, false
}

func (b *Backend) CancelOrder(_ context.Context, inst types.CancelOrderInstruction) (types.OrderSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, ok := b.findLocked(inst.OrderID, inst.ClientOrderID)
	if !ok {
		return types.OrderSnapshot{}, fmt.Errorf("order not found: %s%s", inst.OrderID, inst.ClientOrderID)
	}

	delete(b.open, snap.OrderID)
	snap.Status = meta.StatusCanceled
	b.history = append(b.history, snap)
	return snap, nil
}

func (b *Backend) CancelAll(_ context.Context, exchSymbol string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int
	for id, snap := range b.open {
		if snap.ExchSymbol != exchSymbol {
			continue
		}
		delete(b.open, id)
		snap.Status = meta.StatusCanceled
		b.history = append(b.history, snap)
		n++
	}
	return n, nil
}

func (b *Backend) SyncOrder(_ context.Context, inst types.SyncOrderInstruction) (types.OrderSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if snap, ok := b.findLocked(inst.OrderID, inst.ClientOrderID); ok {
		return snap, nil
	}
	for i := len(b.history) - 1; i >= 0; i-- {
		if b.history[i].OrderID == inst.OrderID ||
			(inst.ClientOrderID != "" && b.history[i].ClientOrderID == inst.ClientOrderID) {
			return b.history[i], nil
		}
	}
	return types.OrderSnapshot{Status: meta.StatusNotFound}, nil
}

func (b *Backend) SyncOpenOrders(_ context.Context, exchSymbol string) ([]types.OrderSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []types.OrderSnapshot
	for _, snap := range b.open {
		if snap.ExchSymbol == exchSymbol {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlaceAckTS < out[j].PlaceAckTS })
	return out, nil
}

// GetOrderHistory drains the venue's cursored history pages.
func (b *Backend) GetOrderHistory(ctx context.Context, req adapter.HistoryRequest) ([]types.OrderSnapshot, error) {
	return adapter.Collect(ctx, historyPageSize, func(_ context.Context, cursor string, limit int) (adapter.Page[types.OrderSnapshot], error) {
		return b.orderPage(req, cursor, limit)
	})
}

func inWindow(ts, startTS, endTS int64) bool {
	if startTS > 0 && ts < startTS {
		return false
	}
	if endTS > 0 && ts > endTS {
		return false
	}
	return true
}

func (b *Backend) orderPage(req adapter.HistoryRequest, cursor string, limit int) (adapter.Page[types.OrderSnapshot], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	offset := 0
	if cursor != "" {
		var err error
		offset, err = strconv.Atoi(cursor)
		if err != nil {
			return adapter.Page[types.OrderSnapshot]{}, fmt.Errorf("bad cursor %q: %w", cursor, err)
		}
	}

	var matched []types.OrderSnapshot
	for _, snap := range b.history {
		if req.ExchSymbol != "" && snap.ExchSymbol != req.ExchSymbol {
			continue
		}
		if !inWindow(snap.PlaceAckTS, req.StartTS, req.EndTS) {
			continue
		}
		matched = append(matched, snap)
	}

	if offset >= len(matched) {
		return adapter.Page[types.OrderSnapshot]{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return adapter.Page[types.OrderSnapshot]{
		Items:      matched[offset:end],
		NextCursor: strconv.Itoa(end),
		HasMore:    end < len(matched),
	}, nil
}

// GetTradeHistory drains the venue's fills the same way.
func (b *Backend) GetTradeHistory(ctx context.Context, req adapter.HistoryRequest) ([]types.Trade, error) {
	return adapter.Collect(ctx, historyPageSize, func(_ context.Context, cursor string, limit int) (adapter.Page[types.Trade], error) {
		return b.tradePage(req, cursor, limit)
	})
}

func (b *Backend) tradePage(req adapter.HistoryRequest, cursor string, limit int) (adapter.Page[types.Trade], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	offset := 0
	if cursor != "" {
		var err error
		offset, err = strconv.Atoi(cursor)
		if err != nil {
			return adapter.Page[types.Trade]{}, fmt.Errorf("bad cursor %q: %w", cursor, err)
		}
	}

	var matched []types.Trade
	for _, tr := range b.trades {
		if !inWindow(tr.FillTS, req.StartTS, req.EndTS) {
			continue
		}
		matched = append(matched, tr)
	}

	if offset >= len(matched) {
		return adapter.Page[types.Trade]{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return adapter.Page[types.Trade]{
		Items:      matched[offset:end],
		NextCursor: strconv.Itoa(end),
		HasMore:    end < len(matched),
	}, nil
}

// GetOrderBook synthesizes a book around the seeded price, one tick of
// spread, flat size per level.
func (b *Backend) GetOrderBook(_ context.Context, exchSymbol string, depth int) (types.OrderBook, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	px, ok := b.prices[exchSymbol]
	if !ok {
		return types.OrderBook{}, fmt.Errorf("no price for %s", exchSymbol)
	}
	if depth <= 0 {
		depth = 10
	}

	step := px.Mul(decimal.NewFromFloat(0.0001))
	size := decimal.NewFromInt(1)
	book := types.OrderBook{
		ExchSymbol: exchSymbol,
		ExchTS:     time.Now().UnixMilli(),
		RecvTS:     time.Now().UnixMilli(),
		Kind:       types.BookSnapshot,
	}
	for i := 1; i <= depth; i++ {
		delta := step.Mul(decimal.NewFromInt(int64(i)))
		book.Bids = append(book.Bids, types.PriceLevel{Price: px.Sub(delta), Qty: size})
		book.Asks = append(book.Asks, types.PriceLevel{Price: px.Add(delta), Qty: size})
	}
	return book, nil
}

func (b *Backend) GetAccountInfo(context.Context) (types.AccountInfo, error) {
	return types.AccountInfo{
		CanTrade:     true,
		CanDeposit:   true,
		CanWithdraw:  true,
		PositionMode: meta.PositionOneWay,
		MarginMode:   meta.MarginCross,
		UpdateTS:     time.Now().UnixMilli(),
	}, nil
}

func (b *Backend) GetCommissionRate(context.Context, string) (types.CommissionRate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commission, nil
}

func (b *Backend) SetSymbolLeverage(_ context.Context, exchSymbol string, leverage decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leverage[exchSymbol] = leverage
	return nil
}

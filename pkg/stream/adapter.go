package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"

	"github.com/unifex/exchange-adapter/pkg/eventbus"
	"github.com/unifex/exchange-adapter/pkg/logging"
	"github.com/unifex/exchange-adapter/pkg/meta"
	"github.com/unifex/exchange-adapter/pkg/types"
	"github.com/unifex/exchange-adapter/pkg/websocket"
)

// ErrClosed is returned by operations on a closed adapter.
var ErrClosed = errors.New("stream adapter closed")

// Options configures an Adapter.
type Options struct {
	Connector websocket.Connector
	Bus       eventbus.Bus
	Account   meta.AccountMeta
	Protocol  Protocol
	Rules     []Rule

	Logger logging.Logger

	// ReconnectDelay is the base backoff after an unsolicited drop.
	ReconnectDelay time.Duration
	// ReconnectAttempts bounds one reconnection episode.
	ReconnectAttempts uint
}

// Adapter owns one transport connection and the subscription state for one
// account or market stream. Messages are classified and published strictly
// in arrival order.
type Adapter struct {
	conn     websocket.Connector
	bus      eventbus.Bus
	account  meta.AccountMeta
	protocol Protocol
	rules    []Rule
	logger   logging.Logger

	reconnectDelay    time.Duration
	reconnectAttempts uint

	mu      sync.Mutex
	state   State
	symbols map[string]bool
}

// NewAdapter creates an adapter in the Disconnected state.
func NewAdapter(opts *Options) (*Adapter, error) {
	if opts == nil || opts.Connector == nil {
		return nil, errors.New("stream: connector is required")
	}
	if opts.Bus == nil {
		return nil, errors.New("stream: event bus is required")
	}
	if opts.Protocol == nil {
		return nil, errors.New("stream: protocol is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}
	attempts := opts.ReconnectAttempts
	if attempts == 0 {
		attempts = 5
	}

	a := &Adapter{
		conn:              opts.Connector,
		bus:               opts.Bus,
		account:           opts.Account,
		protocol:          opts.Protocol,
		rules:             opts.Rules,
		logger:            logger,
		reconnectDelay:    delay,
		reconnectAttempts: attempts,
		state:             Disconnected,
		symbols:           make(map[string]bool),
	}

	a.conn.OnMessage(a.handleMessage)
	a.conn.OnDisconnected(a.handleDisconnect)
	return a, nil
}

// State returns the current lifecycle state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// SubscribedSymbols returns a copy of the remembered symbol set.
func (a *Adapter) SubscribedSymbols() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, 0, len(a.symbols))
	for s := range a.symbols {
		out = append(out, s)
	}
	return out
}

// Start connects the transport, replays the remembered subscription set, and
// publishes a CONNECTED event on success.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.state == Closed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.state = Connecting
	a.mu.Unlock()

	if err := a.conn.Connect(ctx); err != nil {
		a.setState(Disconnected)
		return fmt.Errorf("stream connect: %w", err)
	}

	if err := a.resubscribe(); err != nil {
		a.setState(Disconnected)
		_ = a.conn.Close()
		return err
	}

	a.setState(Streaming)
	a.bus.Publish(eventbus.Message{Kind: meta.EventConnected, Account: a.account})
	return nil
}

func (a *Adapter) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// resubscribe replays the full remembered symbol set for the registered
// event kinds. No partial-resubscribe optimization: every reconnect replays
// everything.
func (a *Adapter) resubscribe() error {
	a.setState(Subscribing)

	a.mu.Lock()
	symbols := make([]string, 0, len(a.symbols))
	for s := range a.symbols {
		symbols = append(symbols, s)
	}
	a.mu.Unlock()

	if len(symbols) == 0 {
		return nil
	}
	return a.sendSubscribe(symbols)
}

func (a *Adapter) sendSubscribe(symbols []string) error {
	payload, err := a.protocol.SubscribeMessage(symbols, a.bus.RegisteredEvents())
	if err != nil {
		return fmt.Errorf("building subscribe message: %w", err)
	}
	if err := a.conn.Send(payload); err != nil {
		return fmt.Errorf("sending subscribe: %w", err)
	}
	return nil
}

func (a *Adapter) sendUnsubscribe(symbols []string) error {
	payload, err := a.protocol.UnsubscribeMessage(symbols, a.bus.RegisteredEvents())
	if err != nil {
		return fmt.Errorf("building unsubscribe message: %w", err)
	}
	if err := a.conn.Send(payload); err != nil {
		return fmt.Errorf("sending unsubscribe: %w", err)
	}
	return nil
}

// ModifySubscribedSymbols reconciles the remembered set with newSet by
// set-difference: subscribe for the additions, unsubscribe for the removals,
// each only when non-empty. Repeating an identical call issues nothing.
func (a *Adapter) ModifySubscribedSymbols(newSet []string) error {
	a.mu.Lock()
	if a.state == Closed {
		a.mu.Unlock()
		return ErrClosed
	}

	next := make(map[string]bool, len(newSet))
	for _, s := range newSet {
		next[s] = true
	}

	var added, removed []string
	for s := range next {
		if !a.symbols[s] {
			added = append(added, s)
		}
	}
	for s := range a.symbols {
		if !next[s] {
			removed = append(removed, s)
		}
	}
	streaming := a.state == Streaming
	a.mu.Unlock()

	if streaming {
		if len(added) > 0 {
			if err := a.sendSubscribe(added); err != nil {
				return err
			}
		}
		if len(removed) > 0 {
			if err := a.sendUnsubscribe(removed); err != nil {
				return err
			}
		}
	}

	a.mu.Lock()
	a.symbols = next
	a.mu.Unlock()
	return nil
}

// handleMessage classifies one raw message. Only kinds someone subscribed to
// on the bus are attempted; the first matching rule wins. Unmatched messages
// are dropped silently.
func (a *Adapter) handleMessage(raw []byte) {
	wanted := make(map[meta.Event]bool)
	for _, k := range a.bus.RegisteredEvents() {
		wanted[k] = true
	}

	for _, rule := range a.rules {
		if !wanted[rule.Kind] && !(rule.Kind == meta.EventOrder && wanted[meta.EventLiquidation]) {
			continue
		}
		if !rule.Match(raw) {
			continue
		}

		records, err := rule.Parse(raw)
		if err != nil {
			a.logger.Error("parsing stream message",
				logging.String("kind", rule.Kind.String()),
				logging.Error(err),
			)
			return
		}

		for _, rec := range records {
			if wanted[rule.Kind] {
				a.bus.Publish(eventbus.Message{
					Kind:    rule.Kind,
					Account: a.account,
					Payload: rec,
				})
			}
			if rule.Kind == meta.EventOrder && wanted[meta.EventLiquidation] {
				a.publishLiquidation(rec)
			}
		}
		return
	}
}

// publishLiquidation layers a LIQUIDATION event on top of an ORDER update
// that carries the ADL marker and reached a terminal filled state. The
// quantity is signed: sell-side deleveraging flips it negative.
func (a *Adapter) publishLiquidation(rec any) {
	snap, ok := rec.(types.OrderSnapshot)
	if !ok || !snap.ADL || snap.Status != meta.StatusFilled {
		return
	}

	qty := snap.FilledQty
	if snap.Side == meta.SideSell {
		qty = qty.Neg()
	}

	a.bus.Publish(eventbus.Message{
		Kind:    meta.EventLiquidation,
		Account: a.account,
		Payload: types.Liquidation{ExchSymbol: snap.ExchSymbol, Qty: qty},
	})
}

// handleDisconnect reacts to an unsolicited transport drop: publish
// DISCONNECTED, enter Reconnecting, and re-run the connect/subscribe
// sequence with backoff.
func (a *Adapter) handleDisconnect(cause error) {
	a.mu.Lock()
	if a.state == Closed {
		a.mu.Unlock()
		return
	}
	a.state = Reconnecting
	a.mu.Unlock()

	a.logger.Warn("stream disconnected",
		logging.String("account", a.account.String()),
		logging.Error(cause),
	)
	a.bus.Publish(eventbus.Message{Kind: meta.EventDisconnected, Account: a.account})

	err := retry.Do(
		func() error {
			if a.State() == Closed {
				return retry.Unrecoverable(ErrClosed)
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			return a.Start(ctx)
		},
		retry.Attempts(a.reconnectAttempts),
		retry.Delay(a.reconnectDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			a.logger.Warn("reconnection attempt failed",
				logging.Int("attempt", int(n+1)),
				logging.Error(err),
			)
		}),
	)
	if err != nil && !errors.Is(err, ErrClosed) {
		a.logger.Error("reconnection failed", logging.Error(err))
		a.setState(Disconnected)
	}
}

// Close shuts the adapter down. Idempotent; safe before a successful Start.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.state == Closed {
		a.mu.Unlock()
		return nil
	}
	a.state = Closed
	a.mu.Unlock()

	return a.conn.Close()
}

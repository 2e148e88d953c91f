// Package exchanges resolves (exchange, market-type, account-type) to
// concrete adapter instances. Venue bindings register themselves into a
// closed table at init; selection is an explicit lookup, never reflection.
package exchanges

import (
	"fmt"
	"sort"
	"sync"

	"github.com/unifex/exchange-adapter/pkg/adapter"
	"github.com/unifex/exchange-adapter/pkg/cache"
	"github.com/unifex/exchange-adapter/pkg/eventbus"
	"github.com/unifex/exchange-adapter/pkg/instruments"
	"github.com/unifex/exchange-adapter/pkg/logging"
	"github.com/unifex/exchange-adapter/pkg/meta"
	"github.com/unifex/exchange-adapter/pkg/stream"
	"github.com/unifex/exchange-adapter/pkg/types"
	"github.com/unifex/exchange-adapter/pkg/websocket"
)

// RestDeps carries the shared collaborators a REST binding may use.
type RestDeps struct {
	Registry *instruments.Registry
	Cache    cache.Reader
	Logger   logging.Logger
}

// RestBuilder constructs one venue's native REST backend.
type RestBuilder func(account meta.AccountMeta, creds types.Credentials, cfg types.RestConfig, deps RestDeps) (adapter.Backend, error)

// StreamBinding is one venue's streaming protocol: the subscribe message
// builder plus the classifier rules for its push payloads.
type StreamBinding struct {
	Protocol stream.Protocol
	Rules    []stream.Rule
}

// StreamBuilder constructs one venue's stream binding.
type StreamBuilder func(account meta.AccountMeta, creds types.Credentials, cfg types.WSConfig) (StreamBinding, error)

var (
	mu             sync.RWMutex
	restBuilders   = make(map[meta.ExchangeName]RestBuilder)
	streamBuilders = make(map[meta.ExchangeName]StreamBuilder)
)

// RegisterRest installs a venue's REST builder. Called from venue package
// init functions.
func RegisterRest(exchange meta.ExchangeName, b RestBuilder) {
	mu.Lock()
	defer mu.Unlock()
	restBuilders[exchange] = b
}

// RegisterStream installs a venue's stream builder.
func RegisterStream(exchange meta.ExchangeName, b StreamBuilder) {
	mu.Lock()
	defer mu.Unlock()
	streamBuilders[exchange] = b
}

func known[T any](m map[meta.ExchangeName]T) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

// RestOptions parameterizes NewRestAdapter.
type RestOptions struct {
	Account     meta.AccountMeta
	Credentials types.Credentials
	Config      types.RestConfig

	// Fast is the optional generic order path tried before the native one.
	Fast adapter.FastOrderAPI

	Registry *instruments.Registry
	Cache    cache.Reader
	Logger   logging.Logger
}

// NewRestAdapter resolves the account's exchange to its registered backend
// and wraps it in the guarded tagged-result surface.
func NewRestAdapter(opts *RestOptions) (*adapter.Wrapper, error) {
	if opts == nil {
		return nil, fmt.Errorf("exchanges: options are required")
	}

	mu.RLock()
	build, ok := restBuilders[opts.Account.Exchange]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("exchanges: no rest binding for %s (known: %v)",
			opts.Account.Exchange, known(restBuilders))
	}

	backend, err := build(opts.Account, opts.Credentials, opts.Config, RestDeps{
		Registry: opts.Registry,
		Cache:    opts.Cache,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("exchanges: building %s backend: %w", opts.Account.Exchange, err)
	}

	return adapter.NewWrapper(&adapter.Options{
		Backend:  backend,
		Fast:     opts.Fast,
		Registry: opts.Registry,
		Cache:    opts.Cache,
		Logger:   opts.Logger,
	})
}

// StreamOptions parameterizes NewStreamAdapter.
type StreamOptions struct {
	Account     meta.AccountMeta
	Credentials types.Credentials
	Config      types.WSConfig

	Bus eventbus.Bus

	// Connector overrides the transport, used by synthetic venues and
	// tests. When nil a real WebSocket connector is dialed from Config.URL.
	Connector websocket.Connector

	Logger logging.Logger
}

// NewStreamAdapter resolves the account's exchange to its registered stream
// binding and assembles the state machine around it.
func NewStreamAdapter(opts *StreamOptions) (*stream.Adapter, error) {
	if opts == nil {
		return nil, fmt.Errorf("exchanges: options are required")
	}

	mu.RLock()
	build, ok := streamBuilders[opts.Account.Exchange]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("exchanges: no stream binding for %s (known: %v)",
			opts.Account.Exchange, known(streamBuilders))
	}

	binding, err := build(opts.Account, opts.Credentials, opts.Config)
	if err != nil {
		return nil, fmt.Errorf("exchanges: building %s stream binding: %w", opts.Account.Exchange, err)
	}

	conn := opts.Connector
	if conn == nil {
		conn = websocket.NewConnector(opts.Config, opts.Logger)
	}

	return stream.NewAdapter(&stream.Options{
		Connector: conn,
		Bus:       opts.Bus,
		Account:   opts.Account,
		Protocol:  binding.Protocol,
		Rules:     binding.Rules,
		Logger:    opts.Logger,
	})
}

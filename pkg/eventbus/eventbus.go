// Package eventbus provides the process-wide typed publish/subscribe
// register used to deliver normalized stream events.
package eventbus

import (
	"sync"

	"github.com/unifex/exchange-adapter/pkg/logging"
	"github.com/unifex/exchange-adapter/pkg/meta"
)

// Message is one published event. Payload holds the normalized record;
// Account identifies the owning account/market.
type Message struct {
	Kind    meta.Event
	Account meta.AccountMeta
	Payload any
}

// Handler consumes one published message. Handlers for one publish run
// concurrently with no ordering guarantee between them.
type Handler func(msg Message)

// Subscription detaches one handler from the bus. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Bus is a typed fan-out register keyed by event kind. Multiple handlers per
// kind are allowed, duplicates included.
type Bus interface {
	// Subscribe appends handler to kind's handler list and returns a handle
	// for removing it again.
	Subscribe(kind meta.Event, handler Handler) Subscription

	// Publish invokes every handler registered for msg.Kind concurrently and
	// returns once all of them have completed. A message with no handlers is
	// dropped. A slow handler delays this publish, not subsequent ones.
	Publish(msg Message)

	// RegisteredEvents returns the set of kinds with at least one handler,
	// so classifiers only attempt matches someone wants.
	RegisteredEvents() []meta.Event
}

type bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[meta.Event]map[int]Handler
	logger   logging.Logger
}

// New creates an empty bus.
func New(logger logging.Logger) Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &bus{
		handlers: make(map[meta.Event]map[int]Handler),
		logger:   logger,
	}
}

type subscription struct {
	bus  *bus
	kind meta.Event
	id   int
}

func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.handlers[s.kind], s.id)
}

func (b *bus) Subscribe(kind meta.Event, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if handler != nil {
		if b.handlers[kind] == nil {
			b.handlers[kind] = make(map[int]Handler)
		}
		b.handlers[kind][id] = handler
	}
	return &subscription{bus: b, kind: kind, id: id}
}

func (b *bus) Publish(msg Message) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[msg.Kind]))
	for _, h := range b.handlers[msg.Kind] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					b.logger.Error("event handler panicked",
						logging.String("kind", msg.Kind.String()),
						logging.Any("panic", rec),
					)
				}
			}()
			h(msg)
		}(h)
	}
	wg.Wait()
}

func (b *bus) RegisteredEvents() []meta.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	kinds := make([]meta.Event, 0, len(b.handlers))
	for k, hs := range b.handlers {
		if len(hs) > 0 {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

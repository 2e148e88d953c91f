package stream

import "github.com/unifex/exchange-adapter/pkg/meta"

// Rule classifies raw push messages for one event kind. Match is a cheap
// predicate over the raw payload; Parse runs only on match and emits the
// normalized records, each published individually. A message matching no
// rule is dropped silently; heartbeats and acks carry no domain event.
type Rule struct {
	Kind  meta.Event
	Match func(raw []byte) bool
	Parse func(raw []byte) ([]any, error)
}

// Protocol builds the venue's subscribe wire messages. Implemented by the
// per-exchange stream bindings.
type Protocol interface {
	// SubscribeMessage returns the payload subscribing symbols to kinds.
	SubscribeMessage(symbols []string, kinds []meta.Event) (interface{}, error)

	// UnsubscribeMessage returns the payload removing symbols.
	UnsubscribeMessage(symbols []string, kinds []meta.Event) (interface{}, error)
}

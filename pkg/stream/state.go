// Package stream implements the streaming adapter: one transport connection,
// a remembered subscription set reconciled by set-difference, and a message
// classifier that normalizes push payloads into domain events on the bus.
package stream

// State is the adapter's connection lifecycle state.
type State int

const (
	// Disconnected is the initial state, before Start.
	Disconnected State = iota
	// Connecting covers the transport dial.
	Connecting
	// Subscribing covers replaying the remembered subscription set.
	Subscribing
	// Streaming is the steady state: messages are classified and published.
	Streaming
	// Reconnecting follows an unsolicited drop.
	Reconnecting
	// Closed is terminal; Close was called.
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Subscribing:
		return "SUBSCRIBING"
	case Streaming:
		return "STREAMING"
	case Reconnecting:
		return "RECONNECTING"
	case Closed:
		return "CLOSED"
	default:
		return "INVALID"
	}
}

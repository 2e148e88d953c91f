package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockConnector is an in-memory Connector for tests. Messages are injected
// with Inject, outbound payloads are recorded, and Drop simulates an
// unsolicited disconnect.
type MockConnector struct {
	mu        sync.Mutex
	connected bool

	onMessage      func([]byte)
	onDisconnected func(error)

	sent [][]byte

	ConnectCalls int
	CloseCalls   int

	// ConnectErr, when set, is returned by Connect.
	ConnectErr error
	// SendErr, when set, is returned by Send.
	SendErr error
}

// NewMockConnector creates a disconnected mock.
func NewMockConnector() *MockConnector {
	return &MockConnector{}
}

func (m *MockConnector) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ConnectCalls++
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.connected = true
	return nil
}

func (m *MockConnector) Send(message interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("websocket not connected")
	}
	if m.SendErr != nil {
		return m.SendErr
	}

	switch v := message.(type) {
	case []byte:
		m.sent = append(m.sent, v)
	case string:
		m.sent = append(m.sent, []byte(v))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		m.sent = append(m.sent, data)
	}
	return nil
}

func (m *MockConnector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	m.connected = false
	return nil
}

func (m *MockConnector) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockConnector) OnMessage(fn func([]byte)) { m.onMessage = fn }

func (m *MockConnector) OnDisconnected(fn func(error)) { m.onDisconnected = fn }

// Inject delivers a raw message as if read from the wire.
func (m *MockConnector) Inject(message []byte) {
	m.mu.Lock()
	fn := m.onMessage
	connected := m.connected
	m.mu.Unlock()

	if connected && fn != nil {
		fn(message)
	}
}

// Drop simulates the connection dropping without Close.
func (m *MockConnector) Drop(err error) {
	m.mu.Lock()
	m.connected = false
	fn := m.onDisconnected
	m.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}

// Sent returns a copy of the recorded outbound payloads.
func (m *MockConnector) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

// Package websocket provides the transport underneath the stream adapters:
// one connection with ping/pong keep-alive, a write lock, and callback
// registration for message, connected and disconnected events. Reconnection
// policy lives a layer up, in the stream state machine.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/gorilla/websocket"

	"github.com/unifex/exchange-adapter/pkg/logging"
	"github.com/unifex/exchange-adapter/pkg/types"
)

// Connector manages one WebSocket connection.
type Connector interface {
	// Connect establishes the connection, retrying transient dial failures.
	Connect(ctx context.Context) error

	// Send writes a message to the connection. []byte payloads go out as is,
	// anything else is marshaled to JSON.
	Send(message interface{}) error

	// Close cleanly closes the connection. Idempotent; safe before Connect.
	Close() error

	// IsConnected reports the current connection status.
	IsConnected() bool

	// OnMessage registers the inbound message callback. Must be called
	// before Connect.
	OnMessage(fn func(message []byte))

	// OnDisconnected registers the callback invoked when the connection
	// drops without Close being called.
	OnDisconnected(fn func(err error))
}

// Metrics holds connection and message statistics.
type Metrics struct {
	ConnectedTime time.Time
	MessageCount  int64
	DialCount     int64
	ErrorCount    int64
}

type connector struct {
	config types.WSConfig

	conn    *websocket.Conn
	writeMu sync.Mutex

	onMessage      func([]byte)
	onDisconnected func(error)

	mu        sync.Mutex
	connected bool
	done      chan struct{}
	closed    bool

	metrics   Metrics
	metricsMu sync.RWMutex

	logger logging.Logger
}

// NewConnector creates a connector for the given endpoint configuration.
func NewConnector(config types.WSConfig, logger logging.Logger) Connector {
	if logger == nil {
		logger = logging.NewLogger()
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = 10 * time.Second
	}
	if config.ReconnectInterval <= 0 {
		config.ReconnectInterval = time.Second
	}
	return &connector{
		config: config,
		logger: logger,
	}
}

func (c *connector) OnMessage(fn func([]byte)) { c.onMessage = fn }

func (c *connector) OnDisconnected(fn func(error)) { c.onDisconnected = fn }

// GetMetrics returns the current connection metrics.
func (c *connector) GetMetrics() Metrics {
	c.metricsMu.RLock()
	defer c.metricsMu.RUnlock()
	return c.metrics
}

// Connect establishes the connection and starts the read and heartbeat
// routines.
func (c *connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("context already cancelled: %w", ctx.Err())
	}

	c.logger.Debug("attempting websocket connection",
		logging.String("url", c.config.URL),
		logging.Duration("heartbeat", c.config.HeartbeatInterval),
	)

	var conn *websocket.Conn
	err := retry.Do(
		func() error {
			dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
			var err error
			conn, _, err = dialer.DialContext(ctx, c.config.URL, nil)
			if err != nil {
				c.metricsMu.Lock()
				c.metrics.ErrorCount++
				c.metricsMu.Unlock()
			}
			return err
		},
		retry.Attempts(3),
		retry.Delay(c.config.ReconnectInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("connection attempt failed",
				logging.Int("attempt", int(n+1)),
				logging.Error(err),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.config.URL, err)
	}

	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})
	c.closed = false

	c.metricsMu.Lock()
	c.metrics.ConnectedTime = time.Now()
	c.metrics.DialCount++
	c.metricsMu.Unlock()

	go c.readPump()
	go c.heartbeat()

	c.logger.Info("websocket connected", logging.String("url", c.config.URL))
	return nil
}

// readPump continuously reads messages until the connection drops or Close
// is called.
func (c *connector) readPump() {
	var readErr error

	defer func() {
		c.mu.Lock()
		c.connected = false
		if c.conn != nil {
			_ = c.conn.Close()
		}
		wasClosed := c.closed
		if !c.closed {
			close(c.done)
			c.closed = true
		}
		c.mu.Unlock()

		// Unsolicited drop: let the owner decide about reconnection.
		if !wasClosed && c.onDisconnected != nil {
			c.onDisconnected(readErr)
		}
	}()

	deadline := c.config.HeartbeatTimeout
	if deadline <= 0 {
		deadline = c.config.HeartbeatInterval * 3
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", logging.Error(err))
				c.metricsMu.Lock()
				c.metrics.ErrorCount++
				c.metricsMu.Unlock()
			}
			readErr = err
			return
		}

		c.metricsMu.Lock()
		c.metrics.MessageCount++
		c.metricsMu.Unlock()

		if c.onMessage != nil {
			c.onMessage(message)
		}
	}
}

// heartbeat sends periodic pings to keep the connection alive.
func (c *connector) heartbeat() {
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			if !c.IsConnected() {
				c.writeMu.Unlock()
				return
			}
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send implements Connector.
func (c *connector) Send(message interface{}) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return fmt.Errorf("websocket not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if data, ok := message.([]byte); ok {
		return c.conn.WriteMessage(websocket.TextMessage, data)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// IsConnected implements Connector.
func (c *connector) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close implements Connector.
func (c *connector) Close() error {
	c.mu.Lock()
	wasClosed := c.closed
	if !c.closed && c.done != nil {
		close(c.done)
		c.closed = true
	}
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	if wasClosed || conn == nil {
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closed connection"))

	// Give the close frame a moment on the wire.
	time.Sleep(100 * time.Millisecond)

	err := conn.Close()
	if err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return err
	}
	return nil
}

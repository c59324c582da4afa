// Package feed maintains the live subscription to the upstream token
// trade feed and normalizes raw payloads into canonical trades.
package feed

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"solana-signal-engine/internal/observability"
)

// ClientConfig configures feed connection behavior.
type ClientConfig struct {
	// ReconnectDelay is the fixed delay before a reconnect attempt.
	// Reconnection deliberately uses no exponential backoff and no retry
	// cap; the upstream feed is assumed to be a single reliable provider.
	ReconnectDelay time.Duration
	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds outgoing control and subscribe writes.
	WriteTimeout time.Duration
	// PingInterval is the interval for keepalive ping frames.
	PingInterval time.Duration
}

// DefaultClientConfig returns default feed connection configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectDelay:   3 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// Handlers are the connection lifecycle callbacks.
type Handlers struct {
	// OnConnect runs after the subscription is established.
	OnConnect func()
	// OnMessage runs for every raw feed message.
	OnMessage func(message []byte)
	// OnDisconnect runs when the connection drops for any reason other
	// than an explicit Stop.
	OnDisconnect func(err error)
}

// subscribeRequest is sent once per connection to start the trade stream.
type subscribeRequest struct {
	Method string `json:"method"`
}

const subscribeTokenTrade = "subscribeTokenTrade"

// withDefaults fills zero-valued fields from DefaultClientConfig, so a
// caller may set only the knobs it cares about.
func (c ClientConfig) withDefaults() ClientConfig {
	def := DefaultClientConfig()
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = def.ReconnectDelay
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	return c
}

// Client owns one WebSocket connection to the trade feed. Start and Stop
// are idempotent; a dropped connection schedules exactly one fixed-delay
// reconnect, which performs Stop then Start.
type Client struct {
	endpoint string
	config   ClientConfig
	handlers Handlers
	logger   *log.Logger

	mu               sync.Mutex
	conn             *websocket.Conn
	done             chan struct{} // per-session; replaced on every Start
	started          bool
	reconnectPending bool
	reconnectTimer   *time.Timer
	wg               sync.WaitGroup
}

// NewClient creates a feed client. It does not connect until Start.
// Zero-valued config fields take their defaults.
func NewClient(endpoint string, config *ClientConfig, handlers Handlers, logger *log.Logger) *Client {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = config.withDefaults()
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Client{
		endpoint: endpoint,
		config:   cfg,
		handlers: handlers,
		logger:   logger,
	}
}

// Start opens the connection and subscribes to the trade stream. It is a
// no-op when already connected. A failed dial schedules a reconnect and
// returns the error.
func (c *Client) Start() error {
	c.mu.Lock()

	if c.started {
		c.mu.Unlock()
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.Dial(c.endpoint, nil)
	if err != nil {
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return fmt.Errorf("websocket dial: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(subscribeRequest{Method: subscribeTokenTrade}); err != nil {
		conn.Close()
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return fmt.Errorf("write subscribe: %w", err)
	}

	c.conn = conn
	c.started = true
	c.done = make(chan struct{})
	done := c.done

	c.wg.Add(2)
	go c.readLoop(conn, done)
	go c.pingLoop(conn, done)

	c.mu.Unlock()

	c.logger.Printf("[feed] connected to %s", c.endpoint)
	if c.handlers.OnConnect != nil {
		c.handlers.OnConnect()
	}
	return nil
}

// Stop tears down the connection and clears any pending reconnect, so a
// later Start behaves like a fresh start. Safe to call in any state.
func (c *Client) Stop() {
	c.mu.Lock()

	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.reconnectPending = false

	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	close(c.done)
	// Invalidate the session so a read failure racing this Stop cannot
	// schedule a reconnect for a connection the caller just tore down.
	c.done = nil

	conn := c.conn
	c.conn = nil
	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// IsConnected reports whether a live connection is held.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started && c.conn != nil
}

// readLoop reads messages until the connection drops or Stop closes it.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer c.wg.Done()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return // explicit Stop
			default:
			}

			c.logger.Printf("[feed] connection lost: %v", err)
			if c.handlers.OnDisconnect != nil {
				c.handlers.OnDisconnect(err)
			}
			c.dropSession(done)
			return
		}

		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(message)
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *Client) pingLoop(conn *websocket.Conn, done chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				// Connection might be dead; the reader handles reconnect.
				return
			}
		}
	}
}

// dropSession tears down a session that lost its connection and arms
// the reconnect timer. A Stop or newer Start has already replaced the
// session, so a late drop from a dead session does nothing.
func (c *Client) dropSession(session chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != session {
		return
	}
	c.started = false
	close(c.done)
	c.done = nil
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the reconnect timer. The pending flag
// guarantees at most one scheduled reconnect at a time.
func (c *Client) scheduleReconnectLocked() {
	if c.reconnectPending {
		return
	}
	c.reconnectPending = true
	observability.RecordReconnect()
	c.logger.Printf("[feed] reconnecting in %s", c.config.ReconnectDelay)
	c.reconnectTimer = time.AfterFunc(c.config.ReconnectDelay, c.reconnect)
}

// reconnect runs from the reconnect timer: full Stop then Start. A failed
// Start has already scheduled the next attempt.
func (c *Client) reconnect() {
	c.mu.Lock()
	if !c.reconnectPending {
		// Stop cancelled the reconnect between timer fire and here.
		c.mu.Unlock()
		return
	}
	c.reconnectPending = false
	c.reconnectTimer = nil
	c.mu.Unlock()

	c.Stop()
	if err := c.Start(); err != nil {
		c.logger.Printf("[feed] reconnect failed: %v", err)
	}
}

package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Subprotocol is the GraphQL over WebSocket protocol name.
const Subprotocol = "graphql-transport-ws"

// ErrSubscriptionClosed is returned when the connection is gone.
var ErrSubscriptionClosed = errors.New("subscription client closed")

// Message types of the graphql-transport-ws protocol.
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

// SubscriptionConfig configures SubscriptionClient behavior.
type SubscriptionConfig struct {
	// HandshakeTimeout bounds the dial and the connection_ack wait.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending protocol pings.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// InitPayload is sent with connection_init (usually auth headers).
	InitPayload map[string]any
}

// DefaultSubscriptionConfig returns default configuration.
func DefaultSubscriptionConfig() SubscriptionConfig {
	return SubscriptionConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// Message is one result delivered on a subscription.
type Message struct {
	Data   json.RawMessage
	Errors Errors
}

// SubscriptionClient multiplexes GraphQL subscriptions over one WebSocket.
type SubscriptionClient struct {
	config SubscriptionConfig

	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
	nextID  atomic.Uint64

	subs   map[string]*subscription
	subsMu sync.RWMutex

	errMu sync.Mutex
	err   error

	done chan struct{}
	wg   sync.WaitGroup
}

type subscription struct {
	ch   chan Message
	stop chan struct{}
	once sync.Once
}

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Dial connects to endpoint and completes the connection_init handshake.
func Dial(ctx context.Context, endpoint string, header http.Header, config *SubscriptionConfig) (*SubscriptionClient, error) {
	cfg := DefaultSubscriptionConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		Subprotocols:     []string{Subprotocol},
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &SubscriptionClient{
		config: cfg,
		conn:   conn,
		subs:   make(map[string]*subscription),
		done:   make(chan struct{}),
	}

	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

func (c *SubscriptionClient) handshake() error {
	var payload json.RawMessage
	if c.config.InitPayload != nil {
		raw, err := json.Marshal(c.config.InitPayload)
		if err != nil {
			return fmt.Errorf("marshal init payload: %w", err)
		}
		payload = raw
	}
	if err := c.write(wsMessage{Type: msgConnectionInit, Payload: payload}); err != nil {
		return fmt.Errorf("write connection_init: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.config.HandshakeTimeout))
	defer c.conn.SetReadDeadline(time.Time{})

	for {
		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("wait for connection_ack: %w", err)
		}
		switch msg.Type {
		case msgConnectionAck:
			return nil
		case msgPing:
			if err := c.write(wsMessage{Type: msgPong}); err != nil {
				return fmt.Errorf("write pong: %w", err)
			}
		default:
			return fmt.Errorf("unexpected %q before connection_ack", msg.Type)
		}
	}
}

// Subscription is a live subscription. C is closed when the server
// completes it, on error, or when the client shuts down.
type Subscription struct {
	ID     string
	C      <-chan Message
	client *SubscriptionClient
	sub    *subscription
}

// Close stops the subscription.
func (s *Subscription) Close() {
	s.sub.once.Do(func() { close(s.sub.stop) })
	if s.client.remove(s.ID) && !s.client.closed.Load() {
		s.client.write(wsMessage{ID: s.ID, Type: msgComplete})
	}
}

// Subscribe starts operation and returns its result stream.
func (c *SubscriptionClient) Subscribe(ctx context.Context, operation, query string, variables map[string]any) (*Subscription, error) {
	if c.closed.Load() {
		return nil, ErrSubscriptionClosed
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(request{Query: query, OperationName: operation, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal subscribe: %w", err)
	}

	id := strconv.FormatUint(c.nextID.Add(1), 10)
	sub := &subscription{ch: make(chan Message, 16), stop: make(chan struct{})}

	c.subsMu.Lock()
	c.subs[id] = sub
	c.subsMu.Unlock()

	if err := c.write(wsMessage{ID: id, Type: msgSubscribe, Payload: payload}); err != nil {
		c.remove(id)
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	return &Subscription{ID: id, C: sub.ch, client: c, sub: sub}, nil
}

// Err returns the error that ended the read loop, if any.
func (c *SubscriptionClient) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close closes the WebSocket connection and all subscriptions.
func (c *SubscriptionClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	c.conn.Close()

	c.wg.Wait()
	c.removeAll()
	return nil
}

func (c *SubscriptionClient) write(msg wsMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(msg)
}

// remove closes and forgets subscription id. Reports whether it existed.
func (c *SubscriptionClient) remove(id string) bool {
	c.subsMu.RLock()
	sub, ok := c.subs[id]
	c.subsMu.RUnlock()
	if !ok {
		return false
	}

	// Release a reader blocked in deliver before taking the write lock.
	sub.once.Do(func() { close(sub.stop) })

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if _, still := c.subs[id]; !still {
		return false
	}
	delete(c.subs, id)
	close(sub.ch)
	return true
}

func (c *SubscriptionClient) removeAll() {
	c.subsMu.RLock()
	ids := make([]string, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	c.subsMu.RUnlock()

	for _, id := range ids {
		c.remove(id)
	}
}

// readLoop reads messages and dispatches them to subscribers.
func (c *SubscriptionClient) readLoop() {
	defer c.wg.Done()

	for {
		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if !c.closed.Load() {
				c.errMu.Lock()
				c.err = fmt.Errorf("websocket read: %w", err)
				c.errMu.Unlock()
				c.removeAll()
			}
			return
		}
		c.handleMessage(msg)
	}
}

func (c *SubscriptionClient) handleMessage(msg wsMessage) {
	switch msg.Type {
	case msgNext:
		var payload response
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			payload.Errors = Errors{{Message: "decode payload: " + err.Error()}}
		}
		c.deliver(msg.ID, Message{Data: payload.Data, Errors: payload.Errors})
	case msgError:
		var errs Errors
		if err := json.Unmarshal(msg.Payload, &errs); err != nil {
			errs = Errors{{Message: "decode error payload: " + err.Error()}}
		}
		c.deliver(msg.ID, Message{Errors: errs})
		c.remove(msg.ID)
	case msgComplete:
		c.remove(msg.ID)
	case msgPing:
		c.write(wsMessage{Type: msgPong})
	}
}

// deliver blocks until the subscriber takes msg, stops, or the client closes.
func (c *SubscriptionClient) deliver(id string, msg Message) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	sub, ok := c.subs[id]
	if !ok {
		return
	}
	select {
	case sub.ch <- msg:
	case <-sub.stop:
	case <-c.done:
	}
}

// pingLoop sends protocol pings to keep the connection alive.
func (c *SubscriptionClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			// A dead connection surfaces as a read error.
			c.write(wsMessage{Type: msgPing})
		}
	}
}

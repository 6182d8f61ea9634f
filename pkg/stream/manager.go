// Package stream is the client side of the realtime channel: it owns
// the single long-lived websocket a session holds, dispatches pushed
// events to per-category handlers, and reconciles them with REST
// snapshots through the Store.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
	ErrUnauthorized     = errors.New("connection rejected: unauthorized")
)

// Handler processes one pushed event. Handlers run to completion on a
// single dispatch goroutine; no two handlers ever interleave within
// one client process.
type Handler func(event Event)

// Options configures the connection manager.
type Options struct {
	// URL is the websocket endpoint, e.g. ws://host:8084/ws.
	URL string
	// Credential is the bearer credential presented at handshake time.
	Credential string

	HandshakeTimeout time.Duration
	// EventBuffer bounds how many undispatched events may queue before
	// the read loop blocks.
	EventBuffer int
}

type subscription struct {
	handler Handler
	token   uint64
}

// Manager owns exactly one connection for the client session. It is
// established once an authenticated session exists and torn down when
// it ends; an authentication change re-establishes it with the new
// credential.
type Manager struct {
	opts  Options
	store *Store

	mu        sync.Mutex
	subs      map[string]subscription
	nextToken uint64
	conn      *websocket.Conn
	connected bool

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewManager creates a manager bound to a reconciliation store. The
// store's roster handler is installed automatically on every connect
// and stays active for the connection's lifetime.
func NewManager(opts Options, store *Store) *Manager {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	return &Manager{
		opts:  opts,
		store: store,
		subs:  make(map[string]subscription),
	}
}

// Connect dials the gateway with the session credential. On success
// the dispatch loop starts and the roster handler is live.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.connected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.mu.Unlock()

	u, err := url.Parse(m.opts.URL)
	if err != nil {
		return fmt.Errorf("invalid stream url: %w", err)
	}
	q := u.Query()
	q.Set("token", m.opts.Credential)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: m.opts.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return fmt.Errorf("failed to connect: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	m.connected = true
	m.events = make(chan Event, m.opts.EventBuffer)
	m.done = make(chan struct{})
	// Always-on roster handler: the online set must track the server
	// for the whole life of the connection, independent of views.
	m.subs[EventRosterUpdate] = subscription{handler: m.store.HandleRosterEvent, token: m.token()}
	m.mu.Unlock()

	m.wg.Add(2)
	go m.readLoop(conn)
	go m.dispatchLoop()

	return nil
}

func (m *Manager) token() uint64 {
	m.nextToken++
	return m.nextToken
}

// Subscribe installs the handler for an event category and returns a
// scoped subscription whose Close unconditionally uninstalls it. A
// second Subscribe for the same category replaces the prior handler,
// and closing a superseded subscription is a no-op — a stale close can
// never tear down a newer handler.
func (m *Manager) Subscribe(eventType string, handler Handler) *Subscription {
	m.mu.Lock()
	tok := m.token()
	m.subs[eventType] = subscription{handler: handler, token: tok}
	m.mu.Unlock()
	return &Subscription{manager: m, eventType: eventType, token: tok}
}

// Unsubscribe removes whatever handler is installed for the category.
func (m *Manager) Unsubscribe(eventType string) {
	m.mu.Lock()
	delete(m.subs, eventType)
	m.mu.Unlock()
}

func (m *Manager) unsubscribeToken(eventType string, token uint64) {
	m.mu.Lock()
	if sub, ok := m.subs[eventType]; ok && sub.token == token {
		delete(m.subs, eventType)
	}
	m.mu.Unlock()
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	defer func() {
		close(m.events)
		m.wg.Done()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			continue // skip malformed frames
		}
		select {
		case m.events <- event:
		case <-m.done:
			return
		}
	}
}

// dispatchLoop is the client's single cooperative event loop: one
// event at a time, each handler run to completion before the next.
func (m *Manager) dispatchLoop() {
	defer m.wg.Done()

	for event := range m.events {
		m.mu.Lock()
		sub, ok := m.subs[event.Type]
		m.mu.Unlock()
		if ok {
			sub.handler(event)
		}
	}
}

// IsConnected reports whether the manager currently holds a live
// connection.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Reconnect tears down the current connection and dials again with a
// new credential. Used when the authentication state changes.
func (m *Manager) Reconnect(ctx context.Context, credential string) error {
	m.Close()
	m.mu.Lock()
	m.opts.Credential = credential
	m.mu.Unlock()
	return m.Connect(ctx)
}

// Close tears down the connection and waits for the loops to drain.
// View-scoped subscriptions survive a close so a reconnect resumes
// dispatching to them.
func (m *Manager) Close() {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return
	}
	m.connected = false
	conn := m.conn
	m.conn = nil
	close(m.done)
	m.mu.Unlock()

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()
	m.wg.Wait()
}

// Subscription is an owned handle to one installed handler. Disposal
// unsubscribes; the caller cannot forget the teardown half of the
// pair.
type Subscription struct {
	manager   *Manager
	eventType string
	token     uint64
	once      sync.Once
}

// Close uninstalls the handler. Safe to call more than once, and a
// no-op when a newer subscription has already replaced this one.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.manager.unsubscribeToken(s.eventType, s.token)
	})
}

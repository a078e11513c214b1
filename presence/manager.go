// Package presence owns the session-wide presence socket: one connection
// per authenticated session, linear reconnect backoff, and the status table
// fed by server broadcasts.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lovewire/contract"
	"lovewire/domain"
	"lovewire/domain/event"
	"lovewire/transport"
	"lovewire/wire"
)

// Manager holds the single presence connection. It implements
// contract.Worker: Run connects for the lifetime of the context and tears
// the channel down on cancellation.
type Manager struct {
	log     *slog.Logger
	dialer  contract.Dialer
	tokens  contract.TokenSource
	table   *Table
	events  contract.EventSink
	baseURL string
	backoff transport.Backoff

	mu        sync.Mutex
	state     domain.ConnState
	sock      contract.Socket
	gen       int
	attempts  int
	reconnect *time.Timer
	closed    bool

	// wmu serializes socket writes: gorilla supports at most one
	// concurrent writer, and the post-open announce, heartbeat ticks, and
	// the closing handshake come from different goroutines.
	wmu sync.Mutex
}

func NewManager(
	log *slog.Logger,
	dialer contract.Dialer,
	tokens contract.TokenSource,
	table *Table,
	events contract.EventSink,
	baseURL string,
	backoff transport.Backoff,
) *Manager {
	return &Manager{
		log:     log,
		dialer:  dialer,
		tokens:  tokens,
		table:   table,
		events:  events,
		baseURL: baseURL,
		backoff: backoff,
	}
}

// Run keeps the presence channel alive until ctx ends.
func (m *Manager) Run(ctx context.Context) error {
	m.Connect()
	<-ctx.Done()
	m.Close()
	return ctx.Err()
}

// Connect opens the presence socket. A fresh explicit connect resets the
// reconnect attempt counter; reconnects scheduled internally do not.
func (m *Manager) Connect() {
	m.mu.Lock()
	m.attempts = 0
	m.closed = false
	m.mu.Unlock()
	m.connect()
}

func (m *Manager) connect() {
	token := m.tokens.AccessToken()
	if token == "" {
		m.log.Debug("no access token, presence connect skipped")
		return
	}

	m.mu.Lock()
	if m.closed || m.state == domain.StateConnecting || m.state == domain.StateOpen {
		m.mu.Unlock()
		return
	}
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	m.setState(domain.StateConnecting)
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	go m.dial(gen, token)
}

func (m *Manager) dial(gen int, token string) {
	endpoint := transport.PresenceURL(m.baseURL, token)
	sock, err := m.dialer.Dial(context.Background(), endpoint)
	if err != nil {
		m.log.Warn("presence dial failed", "err", err)
		m.handleClose(gen)
		return
	}

	m.mu.Lock()
	if gen != m.gen || m.closed {
		m.mu.Unlock()
		_ = sock.Close()
		return
	}
	m.sock = sock
	m.setState(domain.StateOpen)
	m.mu.Unlock()

	m.log.Info("presence socket connected")
	if err := m.writeJSON(sock, wire.OnlinePresence()); err != nil {
		m.log.Warn("presence announce failed", "err", err)
	}
	m.publish(event.ConnectionStateChanged{Channel: event.ChannelPresence, State: domain.StateOpen})

	m.readPump(gen, sock)
}

// readPump ingests status broadcasts until the socket dies, then hands over
// to the close handler. Malformed frames are logged and dropped; they never
// close the socket.
func (m *Manager) readPump(gen int, sock contract.Socket) {
	for {
		_, raw, err := sock.ReadMessage()
		if err != nil {
			break
		}
		frame, err := wire.DecodeUserStatus(raw)
		if err != nil {
			m.log.Warn("discarding malformed presence frame", "err", err)
			continue
		}
		if frame.Type != wire.TypeUserStatus {
			continue
		}
		status := frame.ToDomain()
		m.table.Upsert(status)
		m.publish(event.UserStatusChanged{Status: status})
	}
	m.handleClose(gen)
}

// handleClose schedules the next reconnect with growing backoff. The
// attempt counter increments when the timer fires, never when a reconnect
// succeeds, so consecutive delays are non-decreasing up to the cap.
func (m *Manager) handleClose(gen int) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.sock = nil
	m.setState(domain.StateClosed)
	if m.closed {
		m.mu.Unlock()
		return
	}
	delay := m.backoff.Delay(m.attempts)
	m.log.Info("presence socket closed, reconnecting", "delay", delay, "attempt", m.attempts)
	if m.reconnect != nil {
		m.reconnect.Stop()
	}
	m.reconnect = time.AfterFunc(delay, func() {
		m.mu.Lock()
		m.attempts++
		m.mu.Unlock()
		m.connect()
	})
	m.mu.Unlock()

	m.publish(event.ConnectionStateChanged{Channel: event.ChannelPresence, State: domain.StateClosed})
}

// Close tears the channel down with a normal closure and cancels any
// pending reconnect. Used on logout and shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	sock := m.sock
	m.sock = nil
	m.gen++
	if sock != nil {
		m.setState(domain.StateClosing)
	}
	m.setState(domain.StateIdle)
	m.mu.Unlock()

	if sock != nil {
		m.wmu.Lock()
		transport.CloseNormally(sock, "logout")
		m.wmu.Unlock()
	}
	m.publish(event.ConnectionStateChanged{Channel: event.ChannelPresence, State: domain.StateIdle})
}

// SendHeartbeat writes a heartbeat frame if the socket is open, and is
// silently dropped otherwise. The heartbeat worker calls this on its tick.
func (m *Manager) SendHeartbeat() {
	m.mu.Lock()
	sock := m.sock
	open := m.state == domain.StateOpen
	m.mu.Unlock()
	if !open || sock == nil {
		return
	}
	if err := m.writeJSON(sock, wire.Heartbeat{Type: wire.TypeHeartbeat}); err != nil {
		m.log.Warn("heartbeat send failed", "err", err)
	}
}

func (m *Manager) writeJSON(sock contract.Socket, v any) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	return sock.WriteJSON(v)
}

func (m *Manager) State() domain.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// setState must be called with m.mu held.
func (m *Manager) setState(next domain.ConnState) {
	if m.state == next {
		return
	}
	if !domain.Legal(m.state, next) {
		m.log.Warn("illegal presence state transition", "from", m.state, "to", next)
		return
	}
	m.state = next
}

func (m *Manager) publish(e event.DomainEvent) {
	if m.events == nil {
		return
	}
	_ = m.events.Consume(context.Background(), e)
}

package presence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"lovewire/contract"
	"lovewire/domain"
	"lovewire/domain/event"
	"lovewire/transport"
	"lovewire/wire"
)

type fakeSocket struct {
	mu      sync.Mutex
	writes  []any
	closes  [][]byte
	inbound chan []byte
	done    chan struct{}
	once    sync.Once

	// Overlap detection: writeDelay widens the write window so a second
	// writer entering concurrently trips the flag.
	writeDelay time.Duration
	writing    atomic.Int32
	overlapped atomic.Bool
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	select {
	case raw := <-s.inbound:
		return websocket.TextMessage, raw, nil
	case <-s.done:
		return 0, nil, net.ErrClosed
	}
}

func (s *fakeSocket) WriteJSON(v any) error {
	if s.writing.Add(1) > 1 {
		s.overlapped.Store(true)
	}
	if s.writeDelay > 0 {
		time.Sleep(s.writeDelay)
	}
	s.writing.Add(-1)

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return net.ErrClosed
	default:
	}
	s.writes = append(s.writes, v)
	return nil
}

func (s *fakeSocket) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if messageType == websocket.CloseMessage {
		s.closes = append(s.closes, data)
	}
	return nil
}

func (s *fakeSocket) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *fakeSocket) push(raw string) {
	s.inbound <- []byte(raw)
}

func (s *fakeSocket) writeLog() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.writes))
	copy(out, s.writes)
	return out
}

func (s *fakeSocket) closeFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.closes)
}

type fakeDialer struct {
	mu         sync.Mutex
	failures   int
	writeDelay time.Duration
	dials      []string
	sockets    []*fakeSocket
}

func (d *fakeDialer) Dial(_ context.Context, endpoint string) (contract.Socket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, endpoint)
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("connection refused")
	}
	sock := newFakeSocket()
	sock.writeDelay = d.writeDelay
	d.sockets = append(d.sockets, sock)
	return sock, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

func (d *fakeDialer) dialURL(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[i]
}

func (d *fakeDialer) socket(i int) *fakeSocket {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.sockets) {
		return nil
	}
	return d.sockets[i]
}

type staticTokens string

func (t staticTokens) AccessToken() string { return string(t) }

type captureSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (c *captureSink) Consume(_ context.Context, e event.DomainEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captureSink) snapshot() []event.DomainEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.DomainEvent, len(c.events))
	copy(out, c.events)
	return out
}

func newTestManager(dialer contract.Dialer, backoff transport.Backoff) (*Manager, *Table, *captureSink) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	table := NewTable()
	sink := &captureSink{}
	m := NewManager(log, dialer, staticTokens("tok"), table, sink, "http://example.com", backoff)
	return m, table, sink
}

func waitOpen(t *testing.T, m *Manager) {
	t.Helper()
	require.Eventually(t, func() bool {
		return m.State() == domain.StateOpen
	}, time.Second, 5*time.Millisecond)
}

func TestManager_ConnectAnnouncesOnline(t *testing.T) {
	req := require.New(t)
	dialer := &fakeDialer{}
	m, _, sink := newTestManager(dialer, transport.LinearBackoff{Base: time.Hour, Cap: time.Hour})

	m.Connect()
	waitOpen(t, m)

	sock := dialer.socket(0)
	req.NotNil(sock)
	req.Eventually(func() bool { return len(sock.writeLog()) == 1 }, time.Second, 5*time.Millisecond)
	req.Equal(wire.OnlinePresence(), sock.writeLog()[0])
	req.Contains(dialer.dialURL(0), "/my-ws/presence/?token=tok")

	req.Eventually(func() bool {
		for _, e := range sink.snapshot() {
			if evt, ok := e.(event.ConnectionStateChanged); ok &&
				evt.Channel == event.ChannelPresence && evt.State == domain.StateOpen {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	m.Close()
}

func TestManager_NoTokenNoDial(t *testing.T) {
	req := require.New(t)
	dialer := &fakeDialer{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(log, dialer, staticTokens(""), NewTable(), nil, "http://example.com",
		transport.LinearBackoff{Base: time.Hour, Cap: time.Hour})

	m.Connect()
	time.Sleep(20 * time.Millisecond)
	req.Zero(dialer.dialCount())
	req.Equal(domain.StateIdle, m.State())
}

func TestManager_StatusBroadcastsLastWriteWins(t *testing.T) {
	req := require.New(t)
	dialer := &fakeDialer{}
	m, table, sink := newTestManager(dialer, transport.LinearBackoff{Base: time.Hour, Cap: time.Hour})

	m.Connect()
	waitOpen(t, m)
	sock := dialer.socket(0)

	sock.push(`{"type":"user_status","user_id":"u1","name":"Nora","is_online":true,"last_seen":null}`)
	sock.push(`{"type":"user_status","user_id":"u1","name":"Nora","is_online":false,"last_seen":"2026-02-14T20:00:00Z"}`)

	req.Eventually(func() bool {
		status, ok := table.Get("u1")
		return ok && !status.IsOnline && status.LastSeen != nil
	}, time.Second, 5*time.Millisecond)

	statusEvents := 0
	for _, e := range sink.snapshot() {
		if _, ok := e.(event.UserStatusChanged); ok {
			statusEvents++
		}
	}
	req.Equal(2, statusEvents)

	m.Close()
}

func TestManager_MalformedFrameDoesNotKillSocket(t *testing.T) {
	req := require.New(t)
	dialer := &fakeDialer{}
	m, table, _ := newTestManager(dialer, transport.LinearBackoff{Base: time.Hour, Cap: time.Hour})

	m.Connect()
	waitOpen(t, m)
	sock := dialer.socket(0)

	sock.push(`{"type": not-json`)
	sock.push(`{"type":"user_status","user_id":"u2","name":"Ben","is_online":true}`)

	req.Eventually(func() bool {
		_, ok := table.Get("u2")
		return ok
	}, time.Second, 5*time.Millisecond)
	req.Equal(domain.StateOpen, m.State())

	m.Close()
}

func TestManager_ReconnectsUntilSuccess(t *testing.T) {
	req := require.New(t)
	dialer := &fakeDialer{failures: 2}
	m, _, _ := newTestManager(dialer, transport.LinearBackoff{Base: 5 * time.Millisecond, Cap: 10 * time.Millisecond})

	m.Connect()
	waitOpen(t, m)
	req.Equal(3, dialer.dialCount())

	m.Close()
}

func TestManager_ReconnectsAfterDrop(t *testing.T) {
	req := require.New(t)
	dialer := &fakeDialer{}
	m, table, _ := newTestManager(dialer, transport.LinearBackoff{Base: 5 * time.Millisecond, Cap: 10 * time.Millisecond})

	m.Connect()
	waitOpen(t, m)

	// Server drops the connection; the manager comes back on its own.
	dialer.socket(0).Close()
	req.Eventually(func() bool {
		return dialer.dialCount() == 2 && m.State() == domain.StateOpen
	}, time.Second, 5*time.Millisecond)

	dialer.socket(1).push(`{"type":"user_status","user_id":"u3","name":"Mia","is_online":true}`)
	req.Eventually(func() bool {
		_, ok := table.Get("u3")
		return ok
	}, time.Second, 5*time.Millisecond)

	m.Close()
}

func TestManager_CloseStopsReconnect(t *testing.T) {
	req := require.New(t)
	dialer := &fakeDialer{}
	m, _, _ := newTestManager(dialer, transport.LinearBackoff{Base: 5 * time.Millisecond, Cap: 10 * time.Millisecond})

	m.Connect()
	waitOpen(t, m)
	sock := dialer.socket(0)

	m.Close()
	req.Equal(domain.StateIdle, m.State())
	req.Eventually(func() bool { return sock.closeFrames() == 1 }, time.Second, 5*time.Millisecond)

	// No reconnect fires after an explicit close.
	time.Sleep(50 * time.Millisecond)
	req.Equal(1, dialer.dialCount())
}

func TestManager_HeartbeatOnlyWhenOpen(t *testing.T) {
	req := require.New(t)
	dialer := &fakeDialer{}
	m, _, _ := newTestManager(dialer, transport.LinearBackoff{Base: time.Hour, Cap: time.Hour})

	// Disconnected: dropped without panicking.
	m.SendHeartbeat()

	m.Connect()
	waitOpen(t, m)
	sock := dialer.socket(0)
	req.Eventually(func() bool { return len(sock.writeLog()) == 1 }, time.Second, 5*time.Millisecond)

	m.SendHeartbeat()
	writes := sock.writeLog()
	req.Len(writes, 2)
	req.Equal(wire.Heartbeat{Type: wire.TypeHeartbeat}, writes[1])

	// Once the socket dies, ticks are dropped again.
	sock.Close()
	req.Eventually(func() bool { return m.State() == domain.StateClosed }, time.Second, 5*time.Millisecond)
	m.SendHeartbeat()
	req.Len(sock.writeLog(), 2)

	m.Close()
}

func TestManager_AnnounceAndHeartbeatsSerialized(t *testing.T) {
	req := require.New(t)
	dialer := &fakeDialer{writeDelay: 2 * time.Millisecond}
	m, _, _ := newTestManager(dialer, transport.LinearBackoff{Base: time.Hour, Cap: time.Hour})

	// Heartbeat ticks race the post-open announce from the dial goroutine.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				m.SendHeartbeat()
			}
		}
	}()

	m.Connect()
	waitOpen(t, m)
	sock := dialer.socket(0)
	req.Eventually(func() bool { return len(sock.writeLog()) >= 3 }, time.Second, 5*time.Millisecond)
	close(stop)
	wg.Wait()

	req.False(sock.overlapped.Load(), "socket writes must never overlap")
	announces := 0
	for _, w := range sock.writeLog() {
		if frame, ok := w.(wire.PresenceUpdate); ok && frame == wire.OnlinePresence() {
			announces++
		}
	}
	req.Equal(1, announces)

	m.Close()
}

func TestManager_RunTearsDownOnCancel(t *testing.T) {
	req := require.New(t)
	dialer := &fakeDialer{}
	m, _, _ := newTestManager(dialer, transport.LinearBackoff{Base: time.Hour, Cap: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitOpen(t, m)
	cancel()

	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	req.Equal(domain.StateIdle, m.State())
}

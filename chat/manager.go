// Package chat owns the per-conversation chat socket. Exactly one socket
// exists at a time; switching the active conversation replaces it. Inbound
// frames feed the message store, outbound sends are optimistic with a
// poll-retry once the socket opens.
package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"lovewire/contract"
	"lovewire/domain"
	"lovewire/domain/event"
	"lovewire/projection"
	"lovewire/transport"
	"lovewire/wire"
)

const defaultSendPoll = 100 * time.Millisecond

// Manager is the chat channel manager. All mutation of the socket binding
// goes through SetActiveConversation and Connect; everything else only
// reads.
type Manager struct {
	log     *slog.Logger
	dialer  contract.Dialer
	tokens  contract.TokenSource
	store   *projection.MessageStore
	events  contract.EventSink
	baseURL string
	backoff transport.Backoff
	poll    time.Duration

	mu        sync.Mutex
	state     domain.ConnState
	sock      contract.Socket
	active    string // bound conversation id, empty when none
	gen       int
	reconnect *time.Timer

	// wmu serializes socket writes: gorilla supports at most one
	// concurrent writer, and deliver goroutines, MarkAsRead, and the
	// closing handshake all write from their own goroutines.
	wmu sync.Mutex
}

func NewManager(
	log *slog.Logger,
	dialer contract.Dialer,
	tokens contract.TokenSource,
	store *projection.MessageStore,
	events contract.EventSink,
	baseURL string,
	backoff transport.Backoff,
) *Manager {
	return &Manager{
		log:     log,
		dialer:  dialer,
		tokens:  tokens,
		store:   store,
		events:  events,
		baseURL: baseURL,
		backoff: backoff,
		poll:    defaultSendPoll,
	}
}

// SetActiveConversation is the single mutation point of the binding. A new
// id replaces the current socket; an empty id closes it and clears the
// binding. A deactivation also cancels any pending reconnect, so no socket
// outlives its conversation.
func (m *Manager) SetActiveConversation(id string) {
	m.mu.Lock()
	if id == m.active {
		m.mu.Unlock()
		return
	}
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	m.active = id
	sock := m.sock
	m.sock = nil
	m.gen++
	if sock != nil {
		m.setState(domain.StateClosing)
	}
	m.setState(domain.StateIdle)
	m.mu.Unlock()

	if sock != nil {
		m.closeNormally(sock, "switching conversation")
	}
	if id == "" {
		m.publish(event.ConnectionStateChanged{Channel: event.ChannelChat, State: domain.StateIdle})
		return
	}
	m.Connect(id)
}

// Connect opens a chat socket scoped to conversationID, rebinding to it.
// No-op when that conversation is already CONNECTING or OPEN.
func (m *Manager) Connect(conversationID string) {
	if conversationID == "" {
		return
	}
	token := m.tokens.AccessToken()
	if token == "" {
		m.log.Debug("no access token, chat connect skipped")
		return
	}

	m.mu.Lock()
	if m.active == conversationID &&
		(m.state == domain.StateConnecting || m.state == domain.StateOpen) {
		m.mu.Unlock()
		return
	}
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	old := m.sock
	m.sock = nil
	m.active = conversationID
	m.gen++
	gen := m.gen
	if old != nil {
		m.setState(domain.StateClosing)
		m.setState(domain.StateClosed)
	}
	m.setState(domain.StateConnecting)
	m.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	go m.dial(gen, conversationID, token)
}

func (m *Manager) dial(gen int, conversationID, token string) {
	endpoint := transport.ChatURL(m.baseURL, conversationID, token)
	sock, err := m.dialer.Dial(context.Background(), endpoint)
	if err != nil {
		m.log.Warn("chat dial failed", "conversation_id", conversationID, "err", err)
		m.handleClose(gen, conversationID)
		return
	}

	m.mu.Lock()
	if gen != m.gen || m.active != conversationID {
		m.mu.Unlock()
		_ = sock.Close()
		return
	}
	m.sock = sock
	m.setState(domain.StateOpen)
	m.mu.Unlock()

	m.log.Info("chat socket connected", "conversation_id", conversationID)
	m.publish(event.ConnectionStateChanged{
		Channel:        event.ChannelChat,
		ConversationID: conversationID,
		State:          domain.StateOpen,
	})

	m.readPump(gen, conversationID, sock)
}

// readPump appends inbound messages until the socket dies. Frames flagged
// is_sent_by_me are dropped: the server does not echo a sender's own sends,
// and the optimistic local entry already covers them.
func (m *Manager) readPump(gen int, conversationID string, sock contract.Socket) {
	for {
		_, raw, err := sock.ReadMessage()
		if err != nil {
			break
		}
		frame, err := wire.DecodeChatMessage(raw)
		if err != nil {
			m.log.Warn("discarding malformed chat frame", "err", err)
			continue
		}
		if frame.IsSentByMe {
			continue
		}
		msg, err := frame.ToDomain(conversationID)
		if err != nil {
			m.log.Warn("discarding chat frame", "err", err)
			continue
		}
		m.store.Append(conversationID, msg)
		m.publish(event.MessageReceived{Message: msg})
	}
	m.handleClose(gen, conversationID)
}

// handleClose schedules a fixed-delay reconnect for the same conversation,
// unless it has since been deactivated.
func (m *Manager) handleClose(gen int, conversationID string) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.sock = nil
	m.setState(domain.StateClosed)
	if m.active != conversationID {
		m.mu.Unlock()
		return
	}
	delay := m.backoff.Delay(0)
	m.log.Info("chat socket closed, reconnecting", "conversation_id", conversationID, "delay", delay)
	m.reconnect = time.AfterFunc(delay, func() {
		m.mu.Lock()
		still := m.active == conversationID
		m.mu.Unlock()
		if still {
			m.Connect(conversationID)
		}
	})
	m.mu.Unlock()

	m.publish(event.ConnectionStateChanged{
		Channel:        event.ChannelChat,
		ConversationID: conversationID,
		State:          domain.StateClosed,
	})
}

// SendText appends an optimistic local entry immediately and delivers the
// frame once the socket bound to conversationID is open, reconnecting
// lazily if needed. Delivery is fire-and-forget: the poll loop gives up
// when the conversation is deactivated or ctx ends.
//
// The provisional id is never reconciled with the server-assigned one; the
// server's self-echo suppression is what keeps the view duplicate-free.
func (m *Manager) SendText(ctx context.Context, text, conversationID string) domain.Message {
	local := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Text:           lo.ToPtr(text),
		SentAt:         time.Now().UTC(),
		IsSentByMe:     true,
	}
	m.store.Append(conversationID, local)
	m.publish(event.MessageQueued{Message: local})

	m.mu.Lock()
	ready := m.active == conversationID && m.state == domain.StateOpen && m.sock != nil
	m.mu.Unlock()
	if !ready {
		m.Connect(conversationID)
	}

	go m.deliver(ctx, wire.TextMessage{
		Type:           wire.TypeTextMessage,
		Text:           text,
		ConversationID: conversationID,
	})
	return local
}

func (m *Manager) deliver(ctx context.Context, frame wire.TextMessage) {
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()
	for {
		m.mu.Lock()
		if m.active != frame.ConversationID {
			m.mu.Unlock()
			m.log.Debug("conversation deactivated before delivery",
				"conversation_id", frame.ConversationID)
			return
		}
		sock := m.sock
		open := m.state == domain.StateOpen && sock != nil
		m.mu.Unlock()

		if open {
			if err := m.writeJSON(sock, frame); err != nil {
				m.log.Warn("chat send failed", "err", err)
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// MarkAsRead signals read-state for conversationID. Silently dropped when
// the socket is not open; the signal is not queued.
func (m *Manager) MarkAsRead(conversationID string) {
	m.mu.Lock()
	sock := m.sock
	open := m.state == domain.StateOpen && m.active == conversationID
	m.mu.Unlock()
	if !open || sock == nil {
		return
	}
	frame := wire.MarkAsRead{Type: wire.TypeMarkAsRead, ConversationID: conversationID}
	if err := m.writeJSON(sock, frame); err != nil {
		m.log.Warn("mark as read failed", "err", err)
	}
}

func (m *Manager) writeJSON(sock contract.Socket, v any) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	return sock.WriteJSON(v)
}

func (m *Manager) closeNormally(sock contract.Socket, reason string) {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	transport.CloseNormally(sock, reason)
}

func (m *Manager) ActiveConversation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
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
		m.log.Warn("illegal chat state transition", "from", m.state, "to", next)
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

// Package services wires navigation to the realtime core. The session
// binder is the only component that moves the active conversation.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"lovewire/domain"
	"lovewire/projection"
	"lovewire/repositories"
)

// ChatChannel is the slice of the chat manager the binder drives.
type ChatChannel interface {
	SetActiveConversation(id string)
	MarkAsRead(conversationID string)
}

// ThreadAPI is the slice of the REST client the binder consumes.
type ThreadAPI interface {
	Thread(ctx context.Context, threadID string) (domain.Thread, error)
	GetOrCreateThread(ctx context.Context, otherUserID string) (domain.Thread, error)
	History(ctx context.Context, conversationID string) ([]domain.Message, error)
}

// SessionService binds the current conversation to the chat channel as the
// user navigates, and feeds fetched history into the message store.
type SessionService struct {
	log   *slog.Logger
	chat  ChatChannel
	api   ThreadAPI
	store *projection.MessageStore
	cache repositories.IMessageCache // nil disables warm start

	mu       sync.Mutex
	bound    string
	detached bool
}

func NewSessionService(
	log *slog.Logger,
	chat ChatChannel,
	api ThreadAPI,
	store *projection.MessageStore,
	cache repositories.IMessageCache,
) *SessionService {
	return &SessionService{log: log, chat: chat, api: api, store: store, cache: cache}
}

// Bind activates conversationID: connects the chat channel, signals
// read-state, warm-starts the view from the local cache, then fetches the
// thread and its history. REST failures are returned for the caller to
// surface as a transient notification; the socket stays connected either
// way.
func (s *SessionService) Bind(ctx context.Context, conversationID string) (domain.Thread, error) {
	s.mu.Lock()
	s.bound = conversationID
	s.detached = false
	s.mu.Unlock()

	s.chat.SetActiveConversation(conversationID)
	s.chat.MarkAsRead(conversationID)

	if s.cache != nil {
		cached, err := s.cache.GetMessages(conversationID)
		switch {
		case err != nil:
			s.log.Warn("message cache read failed", "conversation_id", conversationID, "err", err)
		case len(cached) > 0:
			s.store.MergeHistory(conversationID, cached)
		}
	}

	thread, err := s.api.Thread(ctx, conversationID)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("fetch thread: %w", err)
	}
	history, err := s.api.History(ctx, conversationID)
	if err != nil {
		return thread, fmt.Errorf("fetch history: %w", err)
	}
	s.store.MergeHistory(conversationID, history)
	return thread, nil
}

// StartConversation get-or-creates the thread pairing the session with
// otherUserID, then binds it.
func (s *SessionService) StartConversation(ctx context.Context, otherUserID string) (domain.Thread, error) {
	thread, err := s.api.GetOrCreateThread(ctx, otherUserID)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("get or create thread: %w", err)
	}
	if _, err := s.Bind(ctx, thread.ID); err != nil {
		return thread, err
	}
	return thread, nil
}

// Unbind releases the binding lazily: the conversation keeps its socket
// until the next Bind or Reset, so an in-flight send is not interrupted by
// a transient unmount. Clearing waits for the next explicit navigation
// action.
func (s *SessionService) Unbind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = true
}

// Reset is the explicit navigation-away action: it clears the binding and
// closes the chat socket.
func (s *SessionService) Reset() {
	s.mu.Lock()
	s.bound = ""
	s.detached = false
	s.mu.Unlock()
	s.chat.SetActiveConversation("")
}

// Bound returns the bound conversation id and whether the binder has been
// lazily detached from it.
func (s *SessionService) Bound() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound, s.detached
}

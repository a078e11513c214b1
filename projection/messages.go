// Package projection builds local conversation views from REST history and
// socket traffic. Handles ordering; does not talk to sockets or the UI.
package projection

import (
	"sort"
	"sync"

	"lovewire/domain"
)

// MessageStore maps a conversation id to its merged message sequence. The
// base sequence comes from the history fetch; live messages arrive over the
// socket or from optimistic local sends. Ordering is resolved at read time,
// so it does not matter whether the history fetch or the socket connect
// finishes first.
//
// There is no deduplication beyond the self-echo suppression done by the
// chat manager: a double Append stays doubled.
type MessageStore struct {
	mu      sync.RWMutex
	history map[string][]domain.Message
	live    map[string][]domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		history: make(map[string][]domain.Message),
		live:    make(map[string][]domain.Message),
	}
}

// MergeHistory stores the fetched base sequence for a conversation,
// replacing any earlier base. Live messages are untouched.
func (s *MessageStore) MergeHistory(conversationID string, history []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := make([]domain.Message, len(history))
	copy(base, history)
	s.history[conversationID] = base
}

// Append adds a socket-delivered or locally queued message.
func (s *MessageStore) Append(conversationID string, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[conversationID] = append(s.live[conversationID], msg)
}

// View returns history plus live messages ordered by SentAt ascending,
// ties kept in arrival order. The result is a copy.
func (s *MessageStore) View(conversationID string) []domain.Message {
	s.mu.RLock()
	base := s.history[conversationID]
	live := s.live[conversationID]
	merged := make([]domain.Message, 0, len(base)+len(live))
	merged = append(merged, base...)
	merged = append(merged, live...)
	s.mu.RUnlock()

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].SentAt.Before(merged[j].SentAt)
	})
	return merged
}

// Last returns the newest message of a conversation, if any. Used for
// thread previews.
func (s *MessageStore) Last(conversationID string) (domain.Message, bool) {
	view := s.View(conversationID)
	if len(view) == 0 {
		return domain.Message{}, false
	}
	return view[len(view)-1], true
}

//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_cache.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"lovewire/domain"
)

type IMessageCache interface {
	StoreMessage(msg domain.Message) error
	GetMessages(conversationID string) ([]domain.Message, error)
}

// MessageCache is a warm-start render cache on BadgerDB: the session binder
// loads it into the message store before the REST history lands, and the
// cache sink keeps it fed from live traffic. The REST history stays
// authoritative; nothing here promises delivery across restarts.
type MessageCache struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageCache(db *badger.DB, log *slog.Logger, limitMessages *int) MessageCache {
	return MessageCache{db: db, log: log, limitMessages: limitMessages}
}

// cachedMessage is the on-disk shape. SentAt is stored as nanoseconds so it
// also pads into the key for lexicographic ordering.
type cachedMessage struct {
	ID           string  `json:"id"`
	Conversation string  `json:"conversation_id"`
	SenderID     string  `json:"sender_id"`
	Text         *string `json:"text"`
	Image        *string `json:"image"`
	VoiceMessage *string `json:"voice_message"`
	ReplyTo      *string `json:"reply_to"`
	SentAt       int64   `json:"sent_at"`
	IsRead       bool    `json:"is_read"`
	IsSentByMe   bool    `json:"is_sent_by_me"`
}

// StoreMessage persists one message. The key is formatted as
// "msg:{conversation}:{timestamp_padded}:{id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the message id as a collision
//     disconnector if two messages land on the same nanosecond.
func (c MessageCache) StoreMessage(msg domain.Message) error {
	key := fmt.Sprintf("msg:%s:%019d:%s", msg.ConversationID, msg.SentAt.UnixNano(), msg.ID)
	raw, err := json.Marshal(fromDomain(msg))
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
}

// GetMessages retrieves the cached tail of a conversation in chronological
// order. The scan runs newest-first so the limit keeps the most recent
// entries, then the result is reversed.
func (c MessageCache) GetMessages(conversationID string) ([]domain.Message, error) {
	var rawMessages [][]byte
	err := c.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", conversationID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key for this conversation, then
		// walk backwards.
		seekKey := append([]byte{}, prefix...)
		seekKey = append(seekKey, []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if c.limitMessages != nil && len(rawMessages) == *c.limitMessages {
				c.log.Debug(fmt.Sprintf("Maximum of %d cached messages reached", *c.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				rawMessages = append(rawMessages, append([]byte{}, value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(rawMessages))
	for i := len(rawMessages) - 1; i >= 0; i-- {
		var cached cachedMessage
		if err := json.Unmarshal(rawMessages[i], &cached); err != nil {
			return nil, err
		}
		messages = append(messages, toDomain(cached))
	}
	return messages, nil
}

func fromDomain(msg domain.Message) cachedMessage {
	return cachedMessage{
		ID:           msg.ID,
		Conversation: msg.ConversationID,
		SenderID:     msg.SenderID,
		Text:         msg.Text,
		Image:        msg.Image,
		VoiceMessage: msg.VoiceMessage,
		ReplyTo:      msg.ReplyTo,
		SentAt:       msg.SentAt.UnixNano(),
		IsRead:       msg.IsRead,
		IsSentByMe:   msg.IsSentByMe,
	}
}

func toDomain(cached cachedMessage) domain.Message {
	return domain.Message{
		ID:             cached.ID,
		ConversationID: cached.Conversation,
		SenderID:       cached.SenderID,
		Text:           cached.Text,
		Image:          cached.Image,
		VoiceMessage:   cached.VoiceMessage,
		ReplyTo:        cached.ReplyTo,
		SentAt:         time.Unix(0, cached.SentAt).UTC(),
		IsRead:         cached.IsRead,
		IsSentByMe:     cached.IsSentByMe,
	}
}

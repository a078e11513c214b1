// Package wire defines the JSON frames exchanged on the two socket
// channels. Field names follow the server contract; the rest of the module
// works on domain types and only touches these at the channel edges.
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"lovewire/domain"
)

const (
	TypePresenceUpdate = "presence_update"
	TypeHeartbeat      = "heartbeat"
	TypeUserStatus     = "user_status"
	TypeTextMessage    = "text_message"
	TypeMarkAsRead     = "mark_as_read"
)

// PresenceUpdate announces the session's own status. Sent once, right after
// the presence socket opens.
type PresenceUpdate struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

func OnlinePresence() PresenceUpdate {
	return PresenceUpdate{Type: TypePresenceUpdate, Status: "online"}
}

// Heartbeat is the periodic liveness ping on the presence channel.
type Heartbeat struct {
	Type string `json:"type"`
}

// UserStatus is the server's presence broadcast.
type UserStatus struct {
	Type     string  `json:"type"`
	UserID   string  `json:"user_id"`
	Name     string  `json:"name"`
	IsOnline bool    `json:"is_online"`
	LastSeen *string `json:"last_seen"`
}

// TextMessage is the outbound chat send.
type TextMessage struct {
	Type           string `json:"type"`
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id"`
}

// MarkAsRead signals read-state for a whole conversation.
type MarkAsRead struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

// ChatMessage is the inbound chat frame. The same shape comes back as rows
// of the REST history endpoint.
type ChatMessage struct {
	ID           string  `json:"id"`
	SenderID     string  `json:"sender_id"`
	Text         *string `json:"text"`
	Image        *string `json:"image"`
	VoiceMessage *string `json:"voice_message"`
	SentAt       string  `json:"sent_at"`
	IsRead       bool    `json:"is_read"`
	ReplyTo      *string `json:"reply_to"`
	IsSentByMe   bool    `json:"is_sent_by_me"`
}

func DecodeChatMessage(raw []byte) (ChatMessage, error) {
	var f ChatMessage
	if err := json.Unmarshal(raw, &f); err != nil {
		return ChatMessage{}, fmt.Errorf("decode chat frame: %w", err)
	}
	return f, nil
}

func DecodeUserStatus(raw []byte) (UserStatus, error) {
	var f UserStatus
	if err := json.Unmarshal(raw, &f); err != nil {
		return UserStatus{}, fmt.Errorf("decode presence frame: %w", err)
	}
	return f, nil
}

// ToDomain converts an inbound frame into a stored message. The frame
// itself does not carry the conversation; the socket it arrived on does.
func (f ChatMessage) ToDomain(conversationID string) (domain.Message, error) {
	sentAt, err := time.Parse(time.RFC3339Nano, f.SentAt)
	if err != nil {
		return domain.Message{}, fmt.Errorf("parse sent_at %q: %w", f.SentAt, err)
	}
	return domain.Message{
		ID:             f.ID,
		ConversationID: conversationID,
		SenderID:       f.SenderID,
		Text:           f.Text,
		Image:          f.Image,
		VoiceMessage:   f.VoiceMessage,
		ReplyTo:        f.ReplyTo,
		SentAt:         sentAt,
		IsRead:         f.IsRead,
		IsSentByMe:     f.IsSentByMe,
	}, nil
}

// ToDomain converts a presence broadcast. A malformed last_seen is treated
// as absent rather than discarding the whole frame.
func (f UserStatus) ToDomain() domain.Status {
	var lastSeen *time.Time
	if f.LastSeen != nil {
		if t, err := time.Parse(time.RFC3339Nano, *f.LastSeen); err == nil {
			lastSeen = &t
		}
	}
	return domain.Status{
		UserID:   f.UserID,
		Name:     f.Name,
		IsOnline: f.IsOnline,
		LastSeen: lastSeen,
	}
}

// Package domain contains core concepts of the messaging client.
// Messages are immutable once appended; the projection layer owns ordering.
package domain

import "time"

// Message represents one chat entry, whether it arrived over the socket,
// came back in REST history, or was queued optimistically before the server
// confirmed it.
type Message struct {
	ID             string // server id, or a locally generated provisional id
	ConversationID string
	SenderID       string // empty for optimistic local entries
	Text           *string
	Image          *string
	VoiceMessage   *string
	ReplyTo        *string
	SentAt         time.Time // sole sort key of a conversation view
	IsRead         bool      // server-authoritative
	IsSentByMe     bool
}

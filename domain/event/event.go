// Package event defines the domain events published by the channel
// managers. Consumers subscribe through the fanout worker and only ever see
// copies; they never touch the sockets or the stores directly.
package event

import "lovewire/domain"

// Channel identifies which of the two socket channels an event came from.
type Channel string

const (
	ChannelChat     Channel = "chat"
	ChannelPresence Channel = "presence"
)

type DomainEvent interface {
	Name() string
}

// MessageReceived is published for every inbound chat frame that survives
// self-echo suppression.
type MessageReceived struct {
	Message domain.Message
}

func (MessageReceived) Name() string { return "message_received" }

// MessageQueued is published when an outbound send is appended
// optimistically, before the socket delivers it.
type MessageQueued struct {
	Message domain.Message
}

func (MessageQueued) Name() string { return "message_queued" }

// UserStatusChanged is published for every presence broadcast ingested into
// the status table.
type UserStatusChanged struct {
	Status domain.Status
}

func (UserStatusChanged) Name() string { return "user_status_changed" }

// ConnectionStateChanged tracks channel lifecycle moves. ConversationID is
// empty for the presence channel.
type ConnectionStateChanged struct {
	Channel        Channel
	ConversationID string
	State          domain.ConnState
}

func (ConnectionStateChanged) Name() string { return "connection_state_changed" }

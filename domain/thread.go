package domain

import "time"

// Participant is the other user of a thread as the list view needs it.
type Participant struct {
	UserID   string
	Name     string
	Avatar   string
	IsOnline bool
}

// Thread is a persistent pairing of two users. Created server-side through
// the get-or-create REST call; becomes active when the session binder
// selects it.
type Thread struct {
	ID          string
	Participant Participant
	LastMessage *string
	UpdatedAt   time.Time
}

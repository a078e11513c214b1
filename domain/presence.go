package domain

import "time"

// Status is the last-known presence of a user. Entries are written only by
// the presence channel manager and never expire: a user who drops without a
// close frame stays online until a later broadcast corrects it.
type Status struct {
	UserID   string
	Name     string
	IsOnline bool
	LastSeen *time.Time
}

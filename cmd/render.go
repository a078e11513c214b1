package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gookit/color"

	"lovewire/domain/event"
)

// renderSink prints live traffic to the terminal. It is a read-only
// consumer on the fanout; it never touches the sockets or the stores.
type renderSink struct {
	selfID string
}

func newRenderSink(selfID string) *renderSink {
	return &renderSink{selfID: selfID}
}

func (r *renderSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageReceived:
		text := "[attachment]"
		if evt.Message.Text != nil {
			text = *evt.Message.Text
		}
		color.FgCyan.Printf("[%s] %s: %s\n",
			evt.Message.SentAt.Format(time.TimeOnly), evt.Message.SenderID, text)
	case event.MessageQueued:
		text := ""
		if evt.Message.Text != nil {
			text = *evt.Message.Text
		}
		color.FgGray.Printf("[%s] me: %s\n",
			evt.Message.SentAt.Format(time.TimeOnly), text)
	case event.UserStatusChanged:
		name := evt.Status.Name
		if evt.Status.UserID == r.selfID {
			name += " (you)"
		}
		if evt.Status.IsOnline {
			color.Success.Printf("%s is now online\n", name)
		} else {
			fmt.Printf("%s went offline\n", name)
		}
	}
	return nil
}

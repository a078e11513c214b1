// Package sink holds event consumers wired into the fanout worker.
package sink

import (
	"context"
	"log/slog"

	"lovewire/domain/event"
	"lovewire/repositories"
)

// CacheSink persists message traffic so a conversation can render before
// its REST history lands. Both inbound frames and optimistic local sends
// are cached.
type CacheSink struct {
	cache repositories.IMessageCache
	log   *slog.Logger
}

func NewCacheSink(cache repositories.IMessageCache, log *slog.Logger) CacheSink {
	return CacheSink{cache: cache, log: log}
}

func (s CacheSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageReceived:
		return s.cache.StoreMessage(evt.Message)
	case event.MessageQueued:
		return s.cache.StoreMessage(evt.Message)
	default:
		return nil
	}
}

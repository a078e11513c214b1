package workers

import (
	"context"
	"log/slog"
	"sync"

	"lovewire/contract"
	"lovewire/domain/event"
)

// EventFanout broadcasts domain events to in-process consumers.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering, durability, or retries; it is not a message broker. Intended
// for observability and side effects (UI, cache, logs), not for core
// logic. Safe for concurrent use.
type EventFanout struct {
	log    *slog.Logger
	events chan event.DomainEvent

	mu    sync.RWMutex
	sinks []contract.EventSink
}

func NewEventFanout(log *slog.Logger, bufferSize int) *EventFanout {
	return &EventFanout{log: log, events: make(chan event.DomainEvent, bufferSize)}
}

// Subscribe registers read-only consumers. Sinks added after Run started
// receive only subsequent events.
func (w *EventFanout) Subscribe(sinks ...contract.EventSink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sinks = append(w.sinks, sinks...)
}

// Consume implements contract.EventSink, so the channel managers publish
// straight into the fanout. Non-blocking: when the buffer is full the event
// is dropped.
func (w *EventFanout) Consume(_ context.Context, e event.DomainEvent) error {
	select {
	case w.events <- e:
	default:
		w.log.Debug("fanout buffer full, event dropped", "event", e.Name())
	}
	return nil
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return ctx.Err()
		case e := <-w.events:
			w.fanout(ctx, e)
		}
	}
}

func (w *EventFanout) fanout(ctx context.Context, e event.DomainEvent) {
	w.mu.RLock()
	sinks := make([]contract.EventSink, len(w.sinks))
	copy(sinks, w.sinks)
	w.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Consume(ctx, e); err != nil {
			w.log.Warn("event sink failed", "event", e.Name(), "err", err)
		}
	}
}

package workers

import (
	"context"
	"log/slog"
	"time"
)

// Pulser is the channel the heartbeat keeps alive. The implementation
// decides whether its socket is open; a closed socket skips the beat.
type Pulser interface {
	SendHeartbeat()
}

// HeartbeatWorker writes a liveness ping on the presence channel at a fixed
// interval. It never connects or reconnects anything; it only pulses.
type HeartbeatWorker struct {
	log      *slog.Logger
	pulser   Pulser
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, pulser Pulser, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, pulser: pulser, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting presence heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.pulser.SendHeartbeat()
		}
	}
}

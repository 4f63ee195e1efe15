package jobs

import (
	"context"
	"log/slog"
	"time"
)

const DefaultRelayInterval = 10 * time.Second

type Relayer interface {
	Run(ctx context.Context) (int, error)
}

// EventRelayJob publishes triggers the API stored but could not publish.
type EventRelayJob struct {
	relayer Relayer
	p       periodic
}

func NewEventRelayJob(relayer Relayer, interval time.Duration) *EventRelayJob {
	if interval <= 0 {
		interval = DefaultRelayInterval
	}
	j := &EventRelayJob{relayer: relayer}
	j.p = periodic{name: "event_relay", interval: interval, tick: j.relay}
	return j
}

func (j *EventRelayJob) Start(ctx context.Context) { j.p.start(ctx) }

func (j *EventRelayJob) Stop() { j.p.stop() }

func (j *EventRelayJob) relay(ctx context.Context) {
	if _, err := j.relayer.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Event relay failed", "error", err)
	}
}

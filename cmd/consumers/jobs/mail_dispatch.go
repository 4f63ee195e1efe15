package jobs

import (
	"context"
	"log/slog"
	"time"
)

const DefaultMailDispatchInterval = 30 * time.Second

type Dispatcher interface {
	DispatchBatch(ctx context.Context) (int, error)
}

// MailDispatchJob drains the mail outbox.
type MailDispatchJob struct {
	dispatcher Dispatcher
	p          periodic
}

func NewMailDispatchJob(dispatcher Dispatcher, interval time.Duration) *MailDispatchJob {
	if interval <= 0 {
		interval = DefaultMailDispatchInterval
	}
	j := &MailDispatchJob{dispatcher: dispatcher}
	j.p = periodic{name: "mail_dispatch", interval: interval, tick: j.dispatch}
	return j
}

func (j *MailDispatchJob) Start(ctx context.Context) { j.p.start(ctx) }

func (j *MailDispatchJob) Stop() { j.p.stop() }

func (j *MailDispatchJob) dispatch(ctx context.Context) {
	if _, err := j.dispatcher.DispatchBatch(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Mail dispatch failed", "error", err)
	}
}

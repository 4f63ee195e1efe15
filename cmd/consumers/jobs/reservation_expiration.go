package jobs

import (
	"context"
	"log/slog"
	"time"
)

const DefaultSweepInterval = 24 * time.Hour

type Sweeper interface {
	Run(ctx context.Context) (int, error)
}

// ReservationExpirationJob expires stale pending reservations on a schedule.
type ReservationExpirationJob struct {
	sweeper Sweeper
	p       periodic
}

func NewReservationExpirationJob(sweeper Sweeper, interval time.Duration) *ReservationExpirationJob {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	j := &ReservationExpirationJob{sweeper: sweeper}
	j.p = periodic{name: "reservation_expiration", interval: interval, tick: j.sweep}
	return j
}

func (j *ReservationExpirationJob) Start(ctx context.Context) { j.p.start(ctx) }

func (j *ReservationExpirationJob) Stop() { j.p.stop() }

func (j *ReservationExpirationJob) sweep(ctx context.Context) {
	// Errors are already logged and stored by the sweeper.
	n, err := j.sweeper.Run(ctx)
	if err != nil {
		return
	}
	if n > 0 {
		slog.Info("Reservation expiration pass finished", "expired", n)
	}
}

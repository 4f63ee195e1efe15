package service

import (
	"context"
	"time"

	"ticketline/internal/cache"
	"ticketline/internal/logger"
	"ticketline/internal/metrics"
	"ticketline/internal/models"
	"ticketline/internal/retry"
)

const (
	DefaultSweepMaxAge    = 7 * 24 * time.Hour
	DefaultSweepBatchSize = 500
)

type SweepConfig struct {
	MaxAge    time.Duration
	BatchSize int
}

// SweepService expires pending reservations that were never confirmed.
type SweepService struct {
	rt           Runtime
	reservations ReservationStore
	cfg          SweepConfig
}

func NewSweepService(rt Runtime, reservations ReservationStore, cfg SweepConfig) *SweepService {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultSweepMaxAge
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultSweepBatchSize
	}
	return &SweepService{rt: rt, reservations: reservations, cfg: cfg}
}

// Run expires at most one batch and returns the number of reservations moved.
func (s *SweepService) Run(ctx context.Context) (int, error) {
	var processed int
	err := s.rt.Recorder.MeasureExecutionTime(ctx, metrics.CleanupProcessed, nil, func(ctx context.Context) error {
		now := s.rt.now()
		cutoff := now.Add(-s.cfg.MaxAge)

		ids, err := retry.Value(ctx, func(ctx context.Context) ([]string, error) {
			return s.reservations.ExpirePending(ctx, cutoff, s.cfg.BatchSize)
		}, s.rt.Retry...)
		if err != nil {
			logger.WithContext(ctx).Error("Reservation sweep failed", "error", err)
			s.rt.logError(ctx, models.ErrorLog{Type: models.ErrorTypeCleanup, Error: err.Error()})
			return err
		}

		processed = len(ids)
		if processed == 0 {
			logger.WithContext(ctx).Debug("No stale pending reservations")
			return nil
		}

		s.rt.Recorder.Record(ctx, metrics.CleanupProcessed, float64(processed), nil)
		if s.rt.Logs != nil {
			if err := s.rt.Logs.InsertCleanup(context.WithoutCancel(ctx), processed, now); err != nil {
				logger.WithContext(ctx).Warn("Failed to write cleanup log", "error", err)
			}
		}
		for _, id := range ids {
			s.rt.invalidate(ctx, cache.ReservationKey(id))
		}
		logger.WithContext(ctx).Info("Expired stale pending reservations", "count", processed, "cutoff", cutoff)
		return nil
	})
	return processed, err
}

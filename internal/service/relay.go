package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ticketline/internal/logger"
	"ticketline/internal/metrics"
	"ticketline/internal/models"
)

const (
	DefaultRelayGrace       = 30 * time.Second
	DefaultRelayBatchSize   = 100
	DefaultRelayMaxAttempts = 10
	DefaultRelayLease       = time.Minute
)

var errNoPublisher = errors.New("no publisher configured")

type RelayConfig struct {
	// Grace leaves fresh rows to the request that wrote them.
	Grace       time.Duration
	BatchSize   int
	MaxAttempts int
	Lease       time.Duration
}

// EventRelayService publishes stored triggers that were not published when
// they were written.
type EventRelayService struct {
	rt     Runtime
	outbox EventOutboxStore
	cfg    RelayConfig
}

func NewEventRelayService(rt Runtime, outbox EventOutboxStore, cfg RelayConfig) *EventRelayService {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultRelayGrace
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultRelayBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRelayMaxAttempts
	}
	if cfg.Lease <= 0 {
		cfg.Lease = DefaultRelayLease
	}
	return &EventRelayService{rt: rt, outbox: outbox, cfg: cfg}
}

// Run publishes one batch and returns how many triggers went out.
func (s *EventRelayService) Run(ctx context.Context) (int, error) {
	if s.rt.Publisher == nil {
		return 0, errNoPublisher
	}

	events, err := s.outbox.ClaimUnpublished(ctx, s.rt.now().Add(-s.cfg.Grace), s.cfg.BatchSize, s.cfg.Lease)
	if err != nil {
		return 0, fmt.Errorf("claim unpublished triggers: %w", err)
	}

	published := 0
	for _, evt := range events {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		if err := s.rt.Publisher.Publish(ctx, evt.Subject, json.RawMessage(evt.Payload)); err != nil {
			s.failed(ctx, evt, err)
			continue
		}
		if err := s.outbox.MarkPublished(ctx, evt.ID); err != nil {
			logger.WithContext(ctx).Warn("Failed to mark trigger published", "id", evt.ID, "error", err)
		}
		published++
	}

	if len(events) > 0 {
		logger.WithContext(ctx).Info("Relayed stored triggers", "claimed", len(events), "published", published)
	}
	return published, nil
}

func (s *EventRelayService) failed(ctx context.Context, evt models.OutboxEvent, err error) {
	log := logger.WithContext(ctx).With("id", evt.ID, "subject", evt.Subject, "attempt", evt.Attempts)
	if evt.Attempts < s.cfg.MaxAttempts {
		log.Warn("Trigger relay failed", "error", err)
		if markErr := s.outbox.MarkFailed(ctx, evt.ID, err); markErr != nil {
			log.Error("Failed to record relay error", "error", markErr)
		}
		return
	}

	log.Error("Giving up on trigger", "error", err)
	if markErr := s.outbox.Abandon(ctx, evt.ID, err); markErr != nil {
		log.Error("Failed to abandon trigger", "error", markErr)
	}

	entry := models.ErrorLog{Error: fmt.Sprintf("relay %s after %d attempts: %v", evt.Subject, evt.Attempts, err)}
	switch evt.Subject {
	case models.EventReservationCreated:
		var payload models.ReservationCreatedEvent
		_ = json.Unmarshal(evt.Payload, &payload)
		entry.Type = models.ErrorTypeReservationEmail
		entry.ReservationID = payload.ReservationID
		entry.UserID = payload.UserID
		entry.EventID = payload.EventID
		s.rt.Recorder.Record(ctx, metrics.EmailFailed, 1, map[string]string{
			"reservationId": payload.ReservationID,
			"stage":         "relay",
		})
	case models.EventUserCreated:
		var payload models.UserCreatedEvent
		_ = json.Unmarshal(evt.Payload, &payload)
		entry.Type = models.ErrorTypeUserCreation
		entry.UserID = payload.UID
	default:
		entry.Type = evt.Subject
	}
	s.rt.logError(ctx, entry)
}

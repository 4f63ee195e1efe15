package service

import (
	"context"
	"fmt"

	"ticketline/internal/cache"
	"ticketline/internal/logger"
	"ticketline/internal/metrics"
	"ticketline/internal/models"
	"ticketline/internal/notify"
	"ticketline/internal/ratelimit"
	"ticketline/internal/retry"
)

// NotificationService queues confirmation mail for new reservations.
type NotificationService struct {
	rt           Runtime
	reservations ReservationStore
	users        UserStore
}

func NewNotificationService(rt Runtime, reservations ReservationStore, users UserStore) *NotificationService {
	return &NotificationService{rt: rt, reservations: reservations, users: users}
}

// OnReservationCreated queues the confirmation mail and flags the reservation
// as notified. It never changes the reservation status.
func (s *NotificationService) OnReservationCreated(ctx context.Context, evt models.ReservationCreatedEvent) error {
	labels := map[string]string{"reservationId": evt.ReservationID}
	return s.rt.Recorder.MeasureExecutionTime(ctx, metrics.EmailSent, labels, func(ctx context.Context) error {
		queued, err := s.notify(ctx, evt)
		if err == nil && !queued {
			logger.WithContext(ctx).Debug("Reservation email already queued", "reservation_id", evt.ReservationID)
			return nil
		}
		if err == nil {
			s.rt.Recorder.Record(ctx, metrics.EmailSent, 1, map[string]string{"reservationId": evt.ReservationID})
			return nil
		}

		s.rt.Recorder.Record(ctx, metrics.EmailFailed, 1, map[string]string{"reservationId": evt.ReservationID})
		logger.WithContext(ctx).Error("Failed to queue reservation email",
			"reservation_id", evt.ReservationID,
			"user_id", evt.UserID,
			"error", err)
		s.rt.logError(ctx, models.ErrorLog{
			Type:          models.ErrorTypeReservationEmail,
			ReservationID: evt.ReservationID,
			UserID:        evt.UserID,
			EventID:       evt.EventID,
			Error:         err.Error(),
		})
		return err
	})
}

// notify reports false when an earlier delivery already queued the mail.
func (s *NotificationService) notify(ctx context.Context, evt models.ReservationCreatedEvent) (bool, error) {
	if err := s.rt.Limiter.Check(ctx, ratelimit.KindEmail); err != nil {
		return false, err
	}

	user, err := cache.GetCached(ctx, s.rt.Cache, cache.UserKey(evt.UserID), 0, func(ctx context.Context) (models.User, error) {
		u, err := s.users.GetByID(ctx, evt.UserID)
		if err != nil {
			return models.User{}, err
		}
		return *u, nil
	})
	if err != nil {
		return false, fmt.Errorf("load user %s: %w", evt.UserID, err)
	}

	mail := &models.MailMessage{
		To:       user.Email,
		Template: notify.TemplateReservationConfirmation,
		Data: map[string]string{
			"userName":      displayNameOrDefault(user.DisplayName),
			"eventId":       evt.EventID,
			"date":          evt.Date,
			"reservationId": evt.ReservationID,
		},
	}
	return retry.Value(ctx, func(ctx context.Context) (bool, error) {
		return s.reservations.MarkEmailSent(ctx, evt.ReservationID, mail)
	}, s.rt.Retry...)
}

func displayNameOrDefault(name string) string {
	if name == "" {
		return "Guest"
	}
	return name
}

package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"ticketline/internal/cache"
	apperrors "ticketline/internal/errors"
	"ticketline/internal/logger"
	"ticketline/internal/metrics"
	"ticketline/internal/middleware"
	"ticketline/internal/models"
	"ticketline/internal/ratelimit"
	"ticketline/internal/retry"
)

type CreateReservationInput struct {
	EventID string
	Date    string
	Hold    bool
}

type ReservationService struct {
	rt           Runtime
	reservations ReservationStore
	events       EventStore
	outbox       EventOutboxStore
	newID        func() string
}

func NewReservationService(rt Runtime, reservations ReservationStore, events EventStore, outbox EventOutboxStore) *ReservationService {
	return &ReservationService{
		rt:           rt,
		reservations: reservations,
		events:       events,
		outbox:       outbox,
		newID:        func() string { return uuid.New().String() },
	}
}

// Create reserves one ticket of an event for the caller. With Hold the
// reservation starts pending and must be confirmed by its owner.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (*models.CreateReservationResponse, error) {
	caller, authenticated := middleware.CallerFromContext(ctx)
	labels := map[string]string{"userId": caller.UserID}

	var resp *models.CreateReservationResponse
	err := s.rt.Recorder.MeasureExecutionTime(ctx, metrics.ReservationCreated, labels, func(ctx context.Context) error {
		if !authenticated {
			return apperrors.ErrUnauthorized
		}
		var err error
		resp, err = s.create(ctx, caller, in)
		return err
	})
	return resp, err
}

func (s *ReservationService) create(ctx context.Context, caller middleware.Caller, in CreateReservationInput) (*models.CreateReservationResponse, error) {
	if err := s.rt.Limiter.Check(ctx, ratelimit.KindReservation); err != nil {
		return nil, err
	}

	eventID := strings.TrimSpace(in.EventID)
	date := strings.TrimSpace(in.Date)
	if eventID == "" || date == "" {
		return nil, apperrors.ErrMissingArguments
	}

	// Advisory check; the transaction below re-reads inventory under lock.
	event, err := cache.GetCached(ctx, s.rt.Cache, cache.EventKey(eventID), 0, func(ctx context.Context) (models.Event, error) {
		e, err := s.events.GetByID(ctx, eventID)
		if err != nil {
			return models.Event{}, err
		}
		return *e, nil
	})
	if err == nil && event.AvailableTickets <= 0 {
		err = apperrors.ErrSoldOut
	}
	if err != nil {
		return nil, s.fail(ctx, caller, eventID, err)
	}

	status := models.ReservationConfirmed
	if in.Hold {
		status = models.ReservationPending
	}
	res := &models.Reservation{
		ID:      s.newID(),
		UserID:  caller.UserID,
		EventID: eventID,
		Date:    date,
		Status:  status,
	}
	if err := retry.Do(ctx, func(ctx context.Context) error {
		return s.reservations.Create(ctx, res)
	}, s.rt.Retry...); err != nil {
		return nil, s.fail(ctx, caller, eventID, err)
	}

	s.rt.invalidate(ctx, cache.EventKey(eventID))
	s.rt.Recorder.Record(ctx, metrics.ReservationCreated, 1, map[string]string{
		"eventId": eventID,
		"userId":  caller.UserID,
	})

	// The outbox row was committed with the reservation, so a failed publish
	// only delays the notification until the relay runs.
	if err := s.rt.publishNow(ctx, s.outbox, res.ID, models.EventReservationCreated, models.NewReservationCreatedEvent(res)); err != nil {
		s.rt.Recorder.Record(ctx, metrics.EmailFailed, 1, map[string]string{
			"reservationId": res.ID,
			"stage":         "publish",
		})
		logger.WithContext(ctx).Error("Failed to publish reservation created event, left for relay",
			"error", err,
			"reservation_id", res.ID,
			"event_type", models.EventReservationCreated)
		s.rt.logError(ctx, models.ErrorLog{
			Type:          models.ErrorTypeReservationEmail,
			ReservationID: res.ID,
			UserID:        res.UserID,
			EventID:       res.EventID,
			Error:         "publish " + models.EventReservationCreated + ": " + err.Error(),
		})
	}

	message := "Reservation confirmed"
	if status == models.ReservationPending {
		message = "Reservation held, confirm it to keep the ticket"
	}
	return &models.CreateReservationResponse{
		Success:       true,
		Message:       message,
		ReservationID: res.ID,
	}, nil
}

// fail records the failure and returns err with its original code.
func (s *ReservationService) fail(ctx context.Context, caller middleware.Caller, eventID string, err error) error {
	code := apperrors.CodeOf(err)
	s.rt.Recorder.Record(ctx, metrics.ReservationFailed, 1, map[string]string{
		"eventId": eventID,
		"error":   string(code),
	})

	log := logger.WithContext(ctx).With("event_id", eventID, "code", code)
	if code != apperrors.CodeInternal {
		log.Info("Reservation rejected", "reason", err.Error())
		return err
	}

	log.Error("Reservation failed", "error", err)
	s.rt.logError(ctx, models.ErrorLog{
		Type:    models.ErrorTypeReservation,
		UserID:  caller.UserID,
		EventID: eventID,
		Error:   err.Error(),
	})
	return err
}

// Confirm moves the caller's pending reservation to confirmed.
func (s *ReservationService) Confirm(ctx context.Context, reservationID string) (*models.Reservation, error) {
	return s.transition(ctx, reservationID, models.ReservationConfirmed)
}

// Cancel cancels the caller's pending or confirmed reservation. The ticket is not returned to inventory.
func (s *ReservationService) Cancel(ctx context.Context, reservationID string) (*models.Reservation, error) {
	return s.transition(ctx, reservationID, models.ReservationCancelled)
}

func (s *ReservationService) transition(ctx context.Context, reservationID, to string) (*models.Reservation, error) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	if strings.TrimSpace(reservationID) == "" {
		return nil, apperrors.ErrMissingArguments
	}

	res, err := retry.Value(ctx, func(ctx context.Context) (*models.Reservation, error) {
		return s.reservations.Transition(ctx, reservationID, caller.UserID, to)
	}, s.rt.Retry...)
	if err != nil {
		return nil, err
	}

	s.rt.invalidate(ctx, cache.ReservationKey(reservationID))
	logger.WithContext(ctx).Info("Reservation status changed", "reservation_id", reservationID, "status", to)
	return res, nil
}

// Get returns one of the caller's reservations.
func (s *ReservationService) Get(ctx context.Context, reservationID string) (*models.Reservation, error) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}

	res, err := cache.GetCached(ctx, s.rt.Cache, cache.ReservationKey(reservationID), 0, func(ctx context.Context) (models.Reservation, error) {
		r, err := s.reservations.GetByID(ctx, reservationID)
		if err != nil {
			return models.Reservation{}, err
		}
		return *r, nil
	})
	if err != nil {
		return nil, err
	}
	if res.UserID != caller.UserID {
		return nil, apperrors.ErrReservationNotFound
	}
	return &res, nil
}

// ListMine returns the caller's reservations, newest first.
func (s *ReservationService) ListMine(ctx context.Context) ([]models.Reservation, error) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	return s.reservations.ListByUser(ctx, caller.UserID)
}

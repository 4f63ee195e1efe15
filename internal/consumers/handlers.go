package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/stan.go"

	"ticketline/internal/logger"
	"ticketline/internal/models"
)

const handlerTimeout = 30 * time.Second

type ReservationNotifier interface {
	OnReservationCreated(ctx context.Context, evt models.ReservationCreatedEvent) error
}

type UserProvisioner interface {
	OnUserCreated(ctx context.Context, evt models.UserCreatedEvent) error
}

type Handlers struct {
	notifier    ReservationNotifier
	provisioner UserProvisioner
}

func NewHandlers(notifier ReservationNotifier, provisioner UserProvisioner) *Handlers {
	return &Handlers{notifier: notifier, provisioner: provisioner}
}

// HandleReservationCreated queues the confirmation mail for a new reservation.
func (h *Handlers) HandleReservationCreated(ctx context.Context, data []byte) error {
	var evt models.ReservationCreatedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return fmt.Errorf("failed to unmarshal reservation created event: %w", err)
	}
	if evt.ReservationID == "" || evt.UserID == "" {
		return fmt.Errorf("reservation created event without reservation or user id")
	}

	slog.Debug("Processing reservation created event", "reservation_id", evt.ReservationID)
	return h.notifier.OnReservationCreated(logger.ContextWithUserID(ctx, evt.UserID), evt)
}

// HandleUserCreated provisions the profile of a new account.
func (h *Handlers) HandleUserCreated(ctx context.Context, data []byte) error {
	var evt models.UserCreatedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return fmt.Errorf("failed to unmarshal user created event: %w", err)
	}
	if evt.UID == "" || evt.Email == "" {
		return fmt.Errorf("user created event without uid or email")
	}

	slog.Debug("Processing user created event", "user_id", evt.UID)
	return h.provisioner.OnUserCreated(logger.ContextWithUserID(ctx, evt.UID), evt)
}

// acker is the part of *stan.Msg a handler needs.
type acker interface {
	Ack() error
}

// process runs fn and acks the message whatever the outcome.
func process(subject string, data []byte, msg acker, fn func(ctx context.Context, data []byte) error) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	ctx = logger.ContextWithRequestID(ctx, logger.NewRequestID())

	if err := fn(ctx, data); err != nil {
		logger.WithContext(ctx).Error("Message handler failed", "subject", subject, "error", err)
	}
	if err := msg.Ack(); err != nil {
		logger.WithContext(ctx).Error("Failed to ack message", "subject", subject, "error", err)
	}
}

// MsgHandler adapts fn to a manual-ack NATS Streaming subscription.
func MsgHandler(subject string, fn func(ctx context.Context, data []byte) error) stan.MsgHandler {
	return func(m *stan.Msg) {
		process(subject, m.Data, m, fn)
	}
}

package service

import (
	"context"
	"time"

	"ticketline/internal/cache"
	"ticketline/internal/logger"
	"ticketline/internal/messaging"
	"ticketline/internal/metrics"
	"ticketline/internal/models"
	"ticketline/internal/ratelimit"
	"ticketline/internal/retry"
)

// Storage ports. The Postgres repositories implement them; tests use in-memory fakes.

type EventStore interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, params models.ListEventsParams) ([]models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Availability(ctx context.Context, ids []string) (map[string]int, error)
}

type EventIndex interface {
	Search(ctx context.Context, params models.ListEventsParams) ([]models.Event, error)
	IndexEvent(ctx context.Context, event *models.Event) error
}

type ReservationStore interface {
	Create(ctx context.Context, res *models.Reservation) error
	GetByID(ctx context.Context, id string) (*models.Reservation, error)
	ListByUser(ctx context.Context, userID string) ([]models.Reservation, error)
	Transition(ctx context.Context, id, userID, to string) (*models.Reservation, error)
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	MarkEmailSent(ctx context.Context, reservationID string, mail *models.MailMessage) (bool, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	CreateWithWelcome(ctx context.Context, user *models.User, welcome *models.MailMessage) (bool, error)
}

type OutboxStore interface {
	ClaimUnsent(ctx context.Context, limit, maxAttempts int) ([]models.MailMessage, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, sendErr error) error
}

// EventOutboxStore holds change triggers written with the data they describe.
type EventOutboxStore interface {
	Enqueue(ctx context.Context, id, subject string, payload any) error
	ClaimUnpublished(ctx context.Context, createdBefore time.Time, limit int, lease time.Duration) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, publishErr error) error
	Abandon(ctx context.Context, id string, publishErr error) error
}

type LogStore interface {
	InsertError(ctx context.Context, entry models.ErrorLog) error
	InsertCleanup(ctx context.Context, processed int, at time.Time) error
}

// Runtime holds the components shared by every service. Publisher is nil when
// NATS is not configured; triggers then wait in the outbox for the relay.
type Runtime struct {
	Cache     *cache.Cache
	Limiter   *ratelimit.Registry
	Recorder  *metrics.Recorder
	Publisher messaging.Publisher
	Logs      LogStore
	Retry     []retry.Option
	Now       func() time.Time
}

func (rt Runtime) now() time.Time {
	if rt.Now != nil {
		return rt.Now()
	}
	return time.Now()
}

// logError writes an error_logs row. Failures to do so are only logged.
func (rt Runtime) logError(ctx context.Context, entry models.ErrorLog) {
	if rt.Logs == nil {
		return
	}
	entry.Timestamp = rt.now()
	if err := rt.Logs.InsertError(context.WithoutCancel(ctx), entry); err != nil {
		logger.WithContext(ctx).Error("Failed to write error log", "type", entry.Type, "error", err)
	}
}

// invalidate evicts keys, logging instead of failing the caller.
func (rt Runtime) invalidate(ctx context.Context, keys ...string) {
	if err := rt.Cache.Invalidate(context.WithoutCancel(ctx), keys...); err != nil {
		logger.WithContext(ctx).Warn("Cache invalidation failed", "keys", keys, "error", err)
	}
}

// publishNow sends a trigger that is already stored in the outbox and marks
// it published. Without a publisher it does nothing and the relay picks the
// row up later. A returned error means the row was left for the relay.
func (rt Runtime) publishNow(ctx context.Context, outbox EventOutboxStore, id, subject string, payload any) error {
	if rt.Publisher == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	if err := rt.Publisher.Publish(ctx, subject, payload); err != nil {
		return err
	}
	if err := outbox.MarkPublished(ctx, id); err != nil {
		// The relay will publish it again; consumers tolerate duplicates.
		logger.WithContext(ctx).Warn("Failed to mark trigger published", "id", id, "subject", subject, "error", err)
	}
	return nil
}

type Services struct {
	Events       *EventService
	Reservations *ReservationService
	Users        *UserService
	Notify       *NotificationService
	Sweep        *SweepService
	Mail         *MailDispatchService
	Relay        *EventRelayService
}

type Stores struct {
	Events       EventStore
	Index        EventIndex
	Reservations ReservationStore
	Users        UserStore
	Outbox       OutboxStore
	EventOutbox  EventOutboxStore
}

func NewServices(rt Runtime, stores Stores, sweep SweepConfig, mail MailDispatchConfig, relay RelayConfig) *Services {
	return &Services{
		Events:       NewEventService(rt, stores.Events, stores.Index),
		Reservations: NewReservationService(rt, stores.Reservations, stores.Events, stores.EventOutbox),
		Users:        NewUserService(rt, stores.Users, stores.EventOutbox),
		Notify:       NewNotificationService(rt, stores.Reservations, stores.Users),
		Sweep:        NewSweepService(rt, stores.Reservations, sweep),
		Mail:         NewMailDispatchService(stores.Outbox, mail),
		Relay:        NewEventRelayService(rt, stores.EventOutbox, relay),
	}
}

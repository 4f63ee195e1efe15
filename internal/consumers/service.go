package consumers

import (
	"context"
	"log/slog"

	"github.com/nats-io/stan.go"

	"ticketline/internal/app"
	"ticketline/internal/models"
)

const queueGroup = "consumers"

type ConsumerService struct {
	app      *app.App
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(a *app.App) *ConsumerService {
	return &ConsumerService{
		app:      a,
		handlers: NewHandlers(a.Services.Notify, a.Services.Users),
	}
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	routes := map[string]func(ctx context.Context, data []byte) error{
		models.EventReservationCreated: cs.handlers.HandleReservationCreated,
		models.EventUserCreated:        cs.handlers.HandleUserCreated,
	}
	for subject, fn := range routes {
		sub, err := cs.app.NATS.SubscribeQueue(subject, queueGroup, MsgHandler(subject, fn))
		if err != nil {
			return err
		}
		cs.subs = append(cs.subs, sub)
	}

	slog.Info("All consumers started successfully", "subscriptions", len(cs.subs))
	return nil
}

// Shutdown closes subscriptions without removing their durable state, then the connections.
func (cs *ConsumerService) Shutdown(_ context.Context) error {
	slog.Info("Shutting down consumer service...")

	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			slog.Error("Error closing subscription", "error", err)
		}
	}
	cs.app.Close()
	return nil
}

package repository

import (
	"ticketline/internal/database"
)

type Repositories struct {
	Events       *EventRepository
	Reservations *ReservationRepository
	Users        *UserRepository
	Outbox       *MailOutboxRepository
	EventOutbox  *EventOutboxRepository
	Logs         *LogRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events:       NewEventRepository(db),
		Reservations: NewReservationRepository(db),
		Users:        NewUserRepository(db),
		Outbox:       NewMailOutboxRepository(db),
		EventOutbox:  NewEventOutboxRepository(db),
		Logs:         NewLogRepository(db),
	}
}

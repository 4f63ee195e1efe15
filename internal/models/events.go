package models

import "time"

// NATS Event Types
const (
	EventReservationCreated = "reservation.created"
	EventUserCreated        = "user.created"
)

// ReservationCreatedEvent is published after a reservation commits
type ReservationCreatedEvent struct {
	ReservationID string    `json:"reservation_id"`
	EventID       string    `json:"event_id"`
	UserID        string    `json:"user_id"`
	Date          string    `json:"date"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewReservationCreatedEvent builds the trigger payload of a stored reservation.
func NewReservationCreatedEvent(res *Reservation) ReservationCreatedEvent {
	return ReservationCreatedEvent{
		ReservationID: res.ID,
		EventID:       res.EventID,
		UserID:        res.UserID,
		Date:          res.Date,
		Status:        res.Status,
		Timestamp:     res.CreatedAt,
	}
}

// UserCreatedEvent is published when the auth provider registers an account
type UserCreatedEvent struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Timestamp   time.Time `json:"timestamp"`
}

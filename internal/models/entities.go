package models

import (
	"encoding/json"
	"time"
)

// Reservation statuses
const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationExpired   = "expired"
	ReservationCancelled = "cancelled"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a user profile provisioned from the auth provider
type User struct {
	ID          string    `json:"id" db:"id"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Role        string    `json:"role" db:"role"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Event represents a concert with a finite ticket inventory
type Event struct {
	ID               string    `json:"id" db:"id"`
	Title            string    `json:"title" db:"title"`
	Venue            string    `json:"venue" db:"venue"`
	StartsAt         time.Time `json:"starts_at" db:"starts_at"`
	AvailableTickets int       `json:"available_tickets" db:"available_tickets"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Reservation represents a claim on one ticket of an event
type Reservation struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	EventID   string    `json:"event_id" db:"event_id"`
	Date      string    `json:"date" db:"date"`
	Status    string    `json:"status" db:"status"`
	EmailSent bool      `json:"email_sent" db:"email_sent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CanTransition reports whether a reservation may move from one status to another.
// expired and cancelled are terminal.
func CanTransition(from, to string) bool {
	switch from {
	case ReservationPending:
		return to == ReservationConfirmed || to == ReservationExpired || to == ReservationCancelled
	case ReservationConfirmed:
		return to == ReservationCancelled
	}
	return false
}

// MailMessage is a row of the notification outbox
type MailMessage struct {
	ID        string            `json:"id" db:"id"`
	To        string            `json:"to" db:"recipient"`
	Template  string            `json:"template" db:"template"`
	Data      map[string]string `json:"data" db:"data"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	SentAt    *time.Time        `json:"sent_at" db:"sent_at"`
	Attempts  int               `json:"attempts" db:"attempts"`
	LastError *string           `json:"last_error" db:"last_error"`
}

// OutboxEvent is a change trigger stored in the same transaction as the write
// that caused it. The relay publishes rows the API could not publish itself.
type OutboxEvent struct {
	ID          string          `json:"id" db:"id"`
	Subject     string          `json:"subject" db:"subject"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	PublishedAt *time.Time      `json:"published_at" db:"published_at"`
	Attempts    int             `json:"attempts" db:"attempts"`
}

// Error log types
const (
	ErrorTypeReservation      = "reservation_error"
	ErrorTypeReservationEmail = "reservation_email_error"
	ErrorTypeUserCreation     = "user_creation_error"
	ErrorTypeCleanup          = "cleanup_error"
)

// ErrorLog is a server-side diagnostic record
type ErrorLog struct {
	Type          string    `json:"type" db:"type"`
	ReservationID string    `json:"reservation_id,omitempty" db:"reservation_id"`
	UserID        string    `json:"user_id,omitempty" db:"user_id"`
	EventID       string    `json:"event_id,omitempty" db:"event_id"`
	Error         string    `json:"error" db:"error"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
}

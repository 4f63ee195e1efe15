package models

import (
	"fmt"
	"strings"
	"time"
)

// FlexibleBool - гибкий boolean тип, поддерживающий строки и числа
type FlexibleBool bool

// UnmarshalJSON поддерживает парсинг boolean из строки, числа и boolean
func (fb *FlexibleBool) UnmarshalJSON(data []byte) error {
	// Убираем кавычки
	str := string(data)
	str = strings.Trim(str, `"`)

	switch strings.ToLower(str) {
	case "true", "1", "yes", "on":
		*fb = true
	case "false", "0", "no", "off", "null", "":
		*fb = false
	default:
		return fmt.Errorf("invalid boolean value: %s", str)
	}
	return nil
}

// Bool возвращает bool значение
func (fb FlexibleBool) Bool() bool {
	return bool(fb)
}

// CreateReservationRequest - тело запроса createReservation.
// Presence of eventId and date is checked by the service, not by binding.
type CreateReservationRequest struct {
	EventID string       `json:"eventId"`
	Date    string       `json:"date"`
	Hold    FlexibleBool `json:"hold,omitempty"`
}

// CreateReservationResponse - ответ при успешном бронировании
type CreateReservationResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ReservationID string `json:"reservationId"`
}

// ErrorResponse - структурированная ошибка {code, message}
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ReservationResponse - элемент списка бронирований
type ReservationResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	Date      string    `json:"date"`
	Status    string    `json:"status"`
	EmailSent bool      `json:"emailSent"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListReservationsResponse - список бронирований пользователя
type ListReservationsResponse []ReservationResponse

// NewReservationResponse converts a stored reservation to its API shape
func NewReservationResponse(r Reservation) ReservationResponse {
	return ReservationResponse{
		ID:        r.ID,
		EventID:   r.EventID,
		Date:      r.Date,
		Status:    r.Status,
		EmailSent: r.EmailSent,
		CreatedAt: r.CreatedAt,
	}
}

// CreateEventRequest - модель для создания события
type CreateEventRequest struct {
	Title            string    `json:"title" binding:"required"`
	Venue            string    `json:"venue" binding:"required"`
	StartsAt         time.Time `json:"startsAt" binding:"required"`
	AvailableTickets int       `json:"availableTickets" binding:"min=0"`
}

// CreateEventResponse - модель ответа при создании события
type CreateEventResponse struct {
	ID string `json:"id"`
}

// EventResponse - событие в ответах API
type EventResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Venue            string    `json:"venue"`
	StartsAt         time.Time `json:"startsAt"`
	AvailableTickets int       `json:"availableTickets"`
}

// ListEventsResponse - список событий
type ListEventsResponse []EventResponse

// NewEventResponse converts a stored event to its API shape
func NewEventResponse(e Event) EventResponse {
	return EventResponse{
		ID:               e.ID,
		Title:            e.Title,
		Venue:            e.Venue,
		StartsAt:         e.StartsAt,
		AvailableTickets: e.AvailableTickets,
	}
}

// ListEventsParams - параметры поиска событий
type ListEventsParams struct {
	Query    string
	Date     string
	Page     int
	PageSize int
}

// Normalize applies paging defaults and bounds.
func (p *ListEventsParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// AuthUserHook - payload, который auth-провайдер отправляет при создании аккаунта
type AuthUserHook struct {
	UID         string `json:"uid" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName"`
}

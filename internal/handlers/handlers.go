package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ticketline/internal/errors"
	"ticketline/internal/logger"
	"ticketline/internal/models"
	"ticketline/internal/service"
)

type ReservationAPI interface {
	Create(ctx context.Context, in service.CreateReservationInput) (*models.CreateReservationResponse, error)
	Confirm(ctx context.Context, reservationID string) (*models.Reservation, error)
	Cancel(ctx context.Context, reservationID string) (*models.Reservation, error)
	Get(ctx context.Context, reservationID string) (*models.Reservation, error)
	ListMine(ctx context.Context) ([]models.Reservation, error)
}

type EventAPI interface {
	Get(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, params models.ListEventsParams) ([]models.Event, error)
	Create(ctx context.Context, req models.CreateEventRequest) (*models.Event, error)
	FlushCache(ctx context.Context) error
}

type UserAPI interface {
	Announce(ctx context.Context, hook models.AuthUserHook) error
}

type Handlers struct {
	reservations ReservationAPI
	events       EventAPI
	users        UserAPI
}

func NewHandlers(reservations ReservationAPI, events EventAPI, users UserAPI) *Handlers {
	return &Handlers{
		reservations: reservations,
		events:       events,
		users:        users,
	}
}

// FromServices wires handlers to the service layer.
func FromServices(s *service.Services) *Handlers {
	return NewHandlers(s.Reservations, s.Events, s.Users)
}

// respondError пишет {code, message}. Внутренние причины остаются в логах.
func respondError(c *gin.Context, err error, msg string) {
	pub := apperrors.Public(err)
	status := apperrors.HTTPStatus(pub.Code)

	log := logger.WithContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, "error", err)
	} else {
		log.Debug(msg, "code", pub.Code, "error", err)
	}

	_ = c.Error(err)
	c.JSON(status, models.ErrorResponse{Code: string(pub.Code), Message: pub.Message})
}

// respondBindError reports a malformed request body.
func respondBindError(c *gin.Context, err error) {
	respondError(c, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed request body", err), "Invalid request")
}

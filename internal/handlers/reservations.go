package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketline/internal/models"
	"ticketline/internal/service"
)

// CreateReservation - POST /api/reservations
// Забронировать билет на событие
// @Summary Reserve one ticket
// @Tags reservations
// @Accept json
// @Produce json
// @Param body body models.CreateReservationRequest true "Reservation"
// @Success 201 {object} models.CreateReservationResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 412 {object} models.ErrorResponse "sold out"
// @Failure 429 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/reservations [post]
func (h *Handlers) CreateReservation(c *gin.Context) {
	var req models.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.reservations.Create(c.Request.Context(), service.CreateReservationInput{
		EventID: req.EventID,
		Date:    req.Date,
		Hold:    req.Hold.Bool(),
	})
	if err != nil {
		respondError(c, err, "Failed to create reservation")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListReservations - GET /api/reservations
// Бронирования текущего пользователя
// @Summary List the caller's reservations
// @Tags reservations
// @Produce json
// @Success 200 {array} models.ReservationResponse
// @Security BearerAuth
// @Router /api/reservations [get]
func (h *Handlers) ListReservations(c *gin.Context) {
	list, err := h.reservations.ListMine(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list reservations")
		return
	}

	response := make(models.ListReservationsResponse, 0, len(list))
	for _, r := range list {
		response = append(response, models.NewReservationResponse(r))
	}
	c.JSON(http.StatusOK, response)
}

// GetReservation - GET /api/reservations/:id
// @Summary Get one of the caller's reservations
// @Tags reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} models.ReservationResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/reservations/{id} [get]
func (h *Handlers) GetReservation(c *gin.Context) {
	res, err := h.reservations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get reservation")
		return
	}
	c.JSON(http.StatusOK, models.NewReservationResponse(*res))
}

// ConfirmReservation - PATCH /api/reservations/:id/confirm
// Подтвердить удержанную бронь
// @Summary Confirm a held reservation
// @Tags reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} models.ReservationResponse
// @Failure 412 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/reservations/{id}/confirm [patch]
func (h *Handlers) ConfirmReservation(c *gin.Context) {
	res, err := h.reservations.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to confirm reservation")
		return
	}
	c.JSON(http.StatusOK, models.NewReservationResponse(*res))
}

// CancelReservation - PATCH /api/reservations/:id/cancel
// Отменить бронирование
// @Summary Cancel a reservation
// @Tags reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} models.ReservationResponse
// @Failure 412 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/reservations/{id}/cancel [patch]
func (h *Handlers) CancelReservation(c *gin.Context) {
	res, err := h.reservations.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to cancel reservation")
		return
	}
	c.JSON(http.StatusOK, models.NewReservationResponse(*res))
}

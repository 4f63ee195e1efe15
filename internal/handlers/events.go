package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "ticketline/internal/errors"
	"ticketline/internal/models"
)

// ListEvents - GET /api/events
// Получить список событий
// @Summary List or search events
// @Tags events
// @Produce json
// @Param query query string false "Full-text query"
// @Param date query string false "YYYY-MM-DD"
// @Param page query int false "Page" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {array} models.EventResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/events [get]
func (h *Handlers) ListEvents(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		respondError(c, apperrors.New(apperrors.CodeInvalidArgument, "page must be >= 1"), "Invalid paging")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		respondError(c, apperrors.New(apperrors.CodeInvalidArgument, "pageSize must be between 1 and 100"), "Invalid paging")
		return
	}

	events, err := h.events.List(c.Request.Context(), models.ListEventsParams{
		Query:    c.Query("query"),
		Date:     c.Query("date"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, err, "Failed to list events")
		return
	}

	response := make(models.ListEventsResponse, 0, len(events))
	for _, e := range events {
		response = append(response, models.NewEventResponse(e))
	}
	c.JSON(http.StatusOK, response)
}

// GetEvent - GET /api/events/:id
// @Summary Get an event
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} models.EventResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/events/{id} [get]
func (h *Handlers) GetEvent(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get event")
		return
	}
	c.JSON(http.StatusOK, models.NewEventResponse(*event))
}

// CreateEvent - POST /api/events
// Создать событие (только admin)
// @Summary Create an event (admin)
// @Tags events
// @Accept json
// @Produce json
// @Param body body models.CreateEventRequest true "Event"
// @Success 201 {object} models.CreateEventResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/events [post]
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	event, err := h.events.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create event")
		return
	}

	c.JSON(http.StatusCreated, models.CreateEventResponse{ID: event.ID})
}

// FlushCache - DELETE /api/cache
// Сбросить кэш чтения (только admin)
// @Summary Drop every cached read (admin)
// @Tags admin
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/cache [delete]
func (h *Handlers) FlushCache(c *gin.Context) {
	if err := h.events.FlushCache(c.Request.Context()); err != nil {
		respondError(c, err, "Failed to flush cache")
		return
	}
	c.Status(http.StatusNoContent)
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"ticketline/internal/cache"
	apperrors "ticketline/internal/errors"
	"ticketline/internal/logger"
	"ticketline/internal/middleware"
	"ticketline/internal/models"
)

type EventService struct {
	rt     Runtime
	events EventStore
	index  EventIndex
}

// NewEventService builds the service. index may be nil, listing then reads Postgres.
func NewEventService(rt Runtime, events EventStore, index EventIndex) *EventService {
	return &EventService{rt: rt, events: events, index: index}
}

// Get returns an event through the cache.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.ErrMissingArguments
	}
	event, err := cache.GetCached(ctx, s.rt.Cache, cache.EventKey(id), 0, func(ctx context.Context) (models.Event, error) {
		e, err := s.events.GetByID(ctx, id)
		if err != nil {
			return models.Event{}, err
		}
		return *e, nil
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// List searches the index when configured and falls back to Postgres when it fails.
func (s *EventService) List(ctx context.Context, params models.ListEventsParams) ([]models.Event, error) {
	params.Normalize()
	if params.Date != "" {
		if _, err := time.Parse(time.DateOnly, params.Date); err != nil {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, "date must be YYYY-MM-DD")
		}
	}

	if s.index != nil {
		events, err := s.search(ctx, params)
		if err == nil {
			return events, nil
		}
		logger.WithContext(ctx).Warn("Event search failed, falling back to database", "error", err)
	}
	return s.events.List(ctx, params)
}

// search ranks with the index and takes ticket counts from Postgres, which
// the index does not follow after creation. Hits deleted from Postgres are dropped.
func (s *EventService) search(ctx context.Context, params models.ListEventsParams) ([]models.Event, error) {
	hits, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, e := range hits {
		ids[i] = e.ID
	}
	counts, err := s.events.Availability(ctx, ids)
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(hits))
	for _, e := range hits {
		available, ok := counts[e.ID]
		if !ok {
			continue
		}
		e.AvailableTickets = available
		events = append(events, e)
	}
	return events, nil
}

// FlushCache drops every cached read. Admin only.
func (s *EventService) FlushCache(ctx context.Context) error {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		return apperrors.ErrUnauthorized
	}
	if !caller.IsAdmin() {
		return apperrors.ErrForbidden
	}
	if err := s.rt.Cache.InvalidateAll(ctx); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "failed to flush cache", err)
	}
	logger.WithContext(ctx).Info("Cache flushed", "user_id", caller.UserID)
	return nil
}

// Create adds an event. Admin only.
func (s *EventService) Create(ctx context.Context, req models.CreateEventRequest) (*models.Event, error) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	if !caller.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	title := strings.TrimSpace(req.Title)
	venue := strings.TrimSpace(req.Venue)
	if title == "" || venue == "" || req.StartsAt.IsZero() {
		return nil, apperrors.ErrMissingArguments
	}
	if req.AvailableTickets < 0 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "availableTickets must not be negative")
	}

	event := &models.Event{
		ID:               uuid.New().String(),
		Title:            title,
		Venue:            venue,
		StartsAt:         req.StartsAt.UTC(),
		AvailableTickets: req.AvailableTickets,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	if s.index != nil {
		if err := s.index.IndexEvent(ctx, event); err != nil {
			logger.WithContext(ctx).Error("Failed to index event", "event_id", event.ID, "error", err)
		}
	}
	logger.WithContext(ctx).Info("Event created", "event_id", event.ID, "tickets", event.AvailableTickets)
	return event, nil
}

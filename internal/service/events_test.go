package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ticketline/internal/errors"
	"ticketline/internal/models"
)

type fakeIndex struct {
	indexed   []string
	results   []models.Event
	searchErr error
	searches  int
}

func (f *fakeIndex) Search(_ context.Context, _ models.ListEventsParams) ([]models.Event, error) {
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeIndex) IndexEvent(_ context.Context, e *models.Event) error {
	f.indexed = append(f.indexed, e.ID)
	return nil
}

func TestEventService_Get(t *testing.T) {
	h := newHarness(t, nil)
	h.db.addEvent("e1", 4)
	svc := NewEventService(h.rt, eventStore{db: h.db}, nil)

	for i := 0; i < 3; i++ {
		e, err := svc.Get(context.Background(), "e1")
		require.NoError(t, err)
		assert.Equal(t, 4, e.AvailableTickets)
	}
	assert.Equal(t, 1, h.db.eventReads)

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestEventService_List(t *testing.T) {
	h := newHarness(t, nil)
	h.db.addEvent("e1", 1)
	h.db.addEvent("e2", 1)

	t.Run("database without index", func(t *testing.T) {
		svc := NewEventService(h.rt, eventStore{db: h.db}, nil)
		events, err := svc.List(context.Background(), models.ListEventsParams{})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("index", func(t *testing.T) {
		idx := &fakeIndex{results: []models.Event{{ID: "e2", Title: "Concert e2", AvailableTickets: 50}, {ID: "gone"}}}
		svc := NewEventService(h.rt, eventStore{db: h.db}, idx)
		events, err := svc.List(context.Background(), models.ListEventsParams{Query: "arena"})
		require.NoError(t, err)
		assert.Equal(t, []models.Event{{ID: "e2", Title: "Concert e2", AvailableTickets: 1}}, events,
			"counts come from the database and missing rows are dropped")
	})

	t.Run("index failure falls back", func(t *testing.T) {
		idx := &fakeIndex{searchErr: errBoom}
		svc := NewEventService(h.rt, eventStore{db: h.db}, idx)
		events, err := svc.List(context.Background(), models.ListEventsParams{})
		require.NoError(t, err)
		assert.Equal(t, 1, idx.searches)
		assert.Len(t, events, 2)
	})

	t.Run("bad date", func(t *testing.T) {
		svc := NewEventService(h.rt, eventStore{db: h.db}, nil)
		_, err := svc.List(context.Background(), models.ListEventsParams{Date: "06/01/2025"})
		assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
	})
}

func TestEventService_List_IndexShowsReservedTickets(t *testing.T) {
	h := newHarness(t, nil)
	h.db.addEvent("e1", 3)
	indexed := h.db.events["e1"]
	idx := &fakeIndex{results: []models.Event{*indexed}}
	events := NewEventService(h.rt, eventStore{db: h.db}, idx)
	reservations := newReservationService(h, nil)

	_, err := reservations.Create(asUser("u1"), CreateReservationInput{EventID: "e1", Date: "2025-06-10"})
	require.NoError(t, err)

	list, err := events.List(context.Background(), models.ListEventsParams{Query: "concert"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].AvailableTickets)
	assert.Equal(t, 3, idx.results[0].AvailableTickets, "the index document itself is stale")
}

func TestEventService_FlushCache(t *testing.T) {
	h := newHarness(t, nil)
	h.db.addEvent("e1", 4)
	svc := NewEventService(h.rt, eventStore{db: h.db}, nil)

	_, err := svc.Get(context.Background(), "e1")
	require.NoError(t, err)
	h.db.events["e1"].AvailableTickets = 1

	assert.ErrorIs(t, svc.FlushCache(context.Background()), apperrors.ErrUnauthorized)
	assert.ErrorIs(t, svc.FlushCache(asUser("u1")), apperrors.ErrForbidden)

	e, err := svc.Get(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 4, e.AvailableTickets, "still cached")

	require.NoError(t, svc.FlushCache(asAdmin("admin")))
	e, err = svc.Get(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, e.AvailableTickets)
	assert.Equal(t, 2, h.db.eventReads)
}

func TestEventService_Create(t *testing.T) {
	h := newHarness(t, nil)
	idx := &fakeIndex{}
	svc := NewEventService(h.rt, eventStore{db: h.db}, idx)
	req := models.CreateEventRequest{
		Title:            " Night Show ",
		Venue:            "Arena",
		StartsAt:         time.Date(2025, 7, 1, 20, 0, 0, 0, time.FixedZone("ALMT", 5*3600)),
		AvailableTickets: 100,
	}

	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.Create(asUser("u1"), req)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.Create(asAdmin("admin"), models.CreateEventRequest{Title: "x"})
	assert.ErrorIs(t, err, apperrors.ErrMissingArguments)

	event, err := svc.Create(asAdmin("admin"), req)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "Night Show", event.Title)
	assert.Equal(t, time.UTC, event.StartsAt.Location())
	assert.Equal(t, []string{event.ID}, idx.indexed)
	assert.Equal(t, 100, h.db.available(event.ID))
}

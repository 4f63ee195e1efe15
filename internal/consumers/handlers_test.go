package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketline/internal/models"
)

type recordingNotifier struct {
	got []models.ReservationCreatedEvent
	err error
}

func (r *recordingNotifier) OnReservationCreated(_ context.Context, evt models.ReservationCreatedEvent) error {
	r.got = append(r.got, evt)
	return r.err
}

type recordingProvisioner struct {
	got []models.UserCreatedEvent
}

func (r *recordingProvisioner) OnUserCreated(_ context.Context, evt models.UserCreatedEvent) error {
	r.got = append(r.got, evt)
	return nil
}

type countingAck struct{ acks int }

func (c *countingAck) Ack() error {
	c.acks++
	return nil
}

func TestHandleReservationCreated(t *testing.T) {
	notifier := &recordingNotifier{}
	h := NewHandlers(notifier, &recordingProvisioner{})

	evt := models.ReservationCreatedEvent{ReservationID: "r1", EventID: "e1", UserID: "u1", Date: "2025-06-10", Status: models.ReservationConfirmed, Timestamp: time.Now().UTC()}
	data, err := json.Marshal(evt)
	require.NoError(t, err)

	require.NoError(t, h.HandleReservationCreated(context.Background(), data))
	require.Len(t, notifier.got, 1)
	assert.Equal(t, "r1", notifier.got[0].ReservationID)
	assert.Equal(t, "u1", notifier.got[0].UserID)

	assert.Error(t, h.HandleReservationCreated(context.Background(), []byte(`{not json`)))
	assert.Error(t, h.HandleReservationCreated(context.Background(), []byte(`{"event_id":"e1"}`)))
	assert.Len(t, notifier.got, 1)
}

func TestHandleUserCreated(t *testing.T) {
	provisioner := &recordingProvisioner{}
	h := NewHandlers(&recordingNotifier{}, provisioner)

	require.NoError(t, h.HandleUserCreated(context.Background(), []byte(`{"uid":"u1","email":"ann@example.com","display_name":"Ann"}`)))
	require.Len(t, provisioner.got, 1)
	assert.Equal(t, "Ann", provisioner.got[0].DisplayName)

	assert.Error(t, h.HandleUserCreated(context.Background(), []byte(`{"uid":"u2"}`)))
	assert.Len(t, provisioner.got, 1)
}

func TestProcessAcksOnFailure(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("mail queue unavailable")}
	h := NewHandlers(notifier, &recordingProvisioner{})
	msg := &countingAck{}

	process(models.EventReservationCreated, []byte(`{"reservation_id":"r1","user_id":"u1"}`), msg, h.HandleReservationCreated)
	assert.Equal(t, 1, msg.acks)
	assert.Len(t, notifier.got, 1)

	process(models.EventReservationCreated, []byte(`garbage`), msg, h.HandleReservationCreated)
	assert.Equal(t, 2, msg.acks)
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{ReservationPending, ReservationConfirmed, true},
		{ReservationPending, ReservationExpired, true},
		{ReservationPending, ReservationCancelled, true},
		{ReservationConfirmed, ReservationCancelled, true},
		{ReservationConfirmed, ReservationExpired, false},
		{ReservationConfirmed, ReservationPending, false},
		{ReservationExpired, ReservationConfirmed, false},
		{ReservationCancelled, ReservationConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCreateReservationRequest_Hold(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{`{"eventId":"e1","date":"2025-06-01"}`, false},
		{`{"eventId":"e1","date":"2025-06-01","hold":true}`, true},
		{`{"eventId":"e1","date":"2025-06-01","hold":"yes"}`, true},
		{`{"eventId":"e1","date":"2025-06-01","hold":0}`, false},
	}
	for _, tt := range tests {
		var req CreateReservationRequest
		require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
		assert.Equal(t, "e1", req.EventID)
		assert.Equal(t, tt.want, req.Hold.Bool(), tt.body)
	}

	var req CreateReservationRequest
	assert.Error(t, json.Unmarshal([]byte(`{"hold":"maybe"}`), &req))
}

func TestListEventsParams_Normalize(t *testing.T) {
	p := ListEventsParams{Page: 0, PageSize: 500}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PageSize)

	p = ListEventsParams{}
	p.Normalize()
	assert.Equal(t, 20, p.PageSize)
}

package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ticketline/internal/models"
)

func TestBuildSearchRequest_MatchAll(t *testing.T) {
	req := buildSearchRequest(models.ListEventsParams{Page: 1, PageSize: 20})

	assert.Equal(t, map[string]interface{}{"match_all": map[string]interface{}{}}, req["query"])
	assert.Equal(t, 0, req["from"])
	assert.Equal(t, 20, req["size"])
	assert.Len(t, req["sort"], 1)
}

func TestBuildSearchRequest_QueryAndDate(t *testing.T) {
	req := buildSearchRequest(models.ListEventsParams{Query: "jazz", Date: "2025-06-01", Page: 3, PageSize: 10})

	query := req["query"].(map[string]interface{})
	must := query["bool"].(map[string]interface{})["must"].([]map[string]interface{})
	assert.Len(t, must, 2)
	assert.Contains(t, must[0], "multi_match")
	assert.Contains(t, must[1], "range")
	assert.Equal(t, 20, req["from"])

	sort := req["sort"].([]map[string]interface{})
	assert.Contains(t, sort[0], "_score")
}

func TestEventDocumentRoundTrip(t *testing.T) {
	e := models.Event{ID: "e1", Title: "Jazz", Venue: "Hall", StartsAt: time.Now().UTC(), AvailableTickets: 3}
	assert.Equal(t, e, toDocument(&e).event())
}

package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu   sync.Mutex
	obs  []Observation
	fail bool
}

func (m *memoryStore) InsertObservation(_ context.Context, obs Observation) error {
	if m.fail {
		return errors.New("insert failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = append(m.obs, obs)
	return nil
}

func TestRecord(t *testing.T) {
	store := &memoryStore{}
	r := NewRecorder("ticketline", store)

	r.Record(context.Background(), ReservationCreated, 1, map[string]string{"eventId": "e1"})
	r.Record(context.Background(), ReservationCreated, 1, nil)
	r.Record(context.Background(), CleanupProcessed, 42, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.observations.WithLabelValues(ReservationCreated)))
	assert.Equal(t, 42.0, testutil.ToFloat64(r.observations.WithLabelValues(CleanupProcessed)))
	require.Len(t, store.obs, 3)
	assert.Equal(t, "e1", store.obs[0].Labels["eventId"])
	assert.False(t, store.obs[0].Timestamp.IsZero())
}

func TestRecord_StoreFailureIsSwallowed(t *testing.T) {
	r := NewRecorder("ticketline", &memoryStore{fail: true})

	assert.NotPanics(t, func() {
		r.Record(context.Background(), CacheHit, 1, nil)
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.observations.WithLabelValues(CacheHit)))
}

func TestMeasureExecutionTime(t *testing.T) {
	store := &memoryStore{}
	r := NewRecorder("ticketline", store)
	boom := errors.New("boom")

	err := r.MeasureExecutionTime(context.Background(), ReservationCreated, map[string]string{"userId": "u1"}, func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	require.Len(t, store.obs, 1)
	assert.Equal(t, FunctionExecutionTime, store.obs[0].Name)
	assert.Equal(t, "error", store.obs[0].Labels["status"])
	assert.Equal(t, ReservationCreated, store.obs[0].Labels["metric"])
	assert.Equal(t, "u1", store.obs[0].Labels["userId"])
	assert.Equal(t, 1, testutil.CollectAndCount(r.execution))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder("ticketline", nil)
	r.Record(context.Background(), EmailSent, 1, nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ticketline_observations_total{name="email_sent"} 1`)
}

func TestRegistryServesAddedCollectors(t *testing.T) {
	r := NewRecorder("ticketline", nil)
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	r.Registry().MustRegister(collectors.NewDBStatsCollector(sqlDB, "tickets"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `go_sql_max_open_connections{db_name="tickets"}`)
}

package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names
const (
	ReservationCreated    = "reservation_created"
	ReservationFailed     = "reservation_failed"
	EmailSent             = "email_sent"
	EmailFailed           = "email_failed"
	CleanupProcessed      = "cleanup_processed"
	UserCreated           = "user_created"
	CacheHit              = "cache_hit"
	CacheMiss             = "cache_miss"
	RateLimitExceeded     = "rate_limit_exceeded"
	FunctionExecutionTime = "function_execution_time"
)

// Observation is one recorded metric value.
type Observation struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels"`
	Timestamp time.Time         `json:"timestamp"`
}

// Store persists observations, e.g. into the metrics table.
type Store interface {
	InsertObservation(ctx context.Context, obs Observation) error
}

// Recorder fans observations out to Prometheus and, if configured, a Store.
type Recorder struct {
	registry     *prometheus.Registry
	observations *prometheus.CounterVec
	execution    *prometheus.HistogramVec
	store        Store
	now          func() time.Time
}

// NewRecorder registers the collectors on a fresh registry. store may be nil.
func NewRecorder(namespace string, store Store) *Recorder {
	reg := prometheus.NewRegistry()

	observations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "observations_total",
		Help:      "Sum of recorded values per metric name.",
	}, []string{"name"})

	execution := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "function_execution_seconds",
		Help:      "Wall-clock time of handler executions.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"metric", "status"})

	reg.MustRegister(observations, execution)

	return &Recorder{
		registry:     reg,
		observations: observations,
		execution:    execution,
		store:        store,
		now:          time.Now,
	}
}

// Record adds value under name. Persistence failures are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, name string, value float64, labels map[string]string) {
	if value >= 0 {
		r.observations.WithLabelValues(name).Add(value)
	}
	r.persist(ctx, Observation{Name: name, Value: value, Labels: labels, Timestamp: r.now()})
}

// MeasureExecutionTime runs fn and records its duration labelled with metric and outcome.
func (r *Recorder) MeasureExecutionTime(ctx context.Context, metric string, labels map[string]string, fn func(ctx context.Context) error) error {
	start := r.now()
	err := fn(ctx)
	elapsed := r.now().Sub(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	r.execution.WithLabelValues(metric, status).Observe(elapsed.Seconds())

	merged := make(map[string]string, len(labels)+2)
	for k, v := range labels {
		merged[k] = v
	}
	merged["metric"] = metric
	merged["status"] = status
	r.persist(ctx, Observation{
		Name:      FunctionExecutionTime,
		Value:     float64(elapsed.Milliseconds()),
		Labels:    merged,
		Timestamp: r.now(),
	})

	return err
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry so callers can add collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) persist(ctx context.Context, obs Observation) {
	if r.store == nil {
		return
	}
	if err := r.store.InsertObservation(context.WithoutCancel(ctx), obs); err != nil {
		slog.Warn("Failed to record metric", "name", obs.Name, "error", err)
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"

	"ticketline/internal/cache"
	"ticketline/internal/config"
	"ticketline/internal/database"
	"ticketline/internal/messaging"
	"ticketline/internal/metrics"
	"ticketline/internal/notify"
	"ticketline/internal/ratelimit"
	"ticketline/internal/repository"
	"ticketline/internal/retry"
	"ticketline/internal/search"
	"ticketline/internal/service"
)

// App holds the connections and services shared by the API and consumer processes.
type App struct {
	Config   *config.Config
	DB       *database.DB
	NATS     *messaging.NATSClient
	Search   *search.ElasticsearchClient
	Valkey   *cache.ValkeyClient
	Recorder *metrics.Recorder
	Repos    *repository.Repositories
	Services *service.Services
}

type Options struct {
	// RequireNATS fails startup when NATS Streaming is unreachable.
	// Otherwise publishing degrades to a no-op.
	RequireNATS bool
	// Migrate runs schema migrations after connecting.
	Migrate bool
}

// New connects every backend and builds the service layer.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.DB = db
	db.ValidateConnectionPool()

	if opts.Migrate {
		if err := db.RunMigrations(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a.Repos = repository.NewRepositories(db)

	var store metrics.Store
	if cfg.MetricsPersist {
		store = a.Repos.Logs
	}
	a.Recorder = metrics.NewRecorder(cfg.MetricsNamespace, store)
	a.Recorder.Registry().MustRegister(collectors.NewDBStatsCollector(db.DB, cfg.Database.DBName))

	// nil publisher: triggers stay in event_outbox for the consumers' relay
	var publisher messaging.Publisher
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	switch {
	case err == nil:
		a.NATS = natsClient
		publisher = natsClient
	case opts.RequireNATS:
		a.Close()
		return nil, err
	default:
		slog.Warn("NATS unavailable, change triggers are left to the relay", "error", err)
	}

	backend, err := a.cacheBackend()
	if err != nil {
		a.Close()
		return nil, err
	}

	// nil interface, not a typed nil, when search is disabled
	var index service.EventIndex
	if cfg.Elasticsearch.URL != "" {
		es, err := search.NewElasticsearchClient(ctx, cfg.Elasticsearch)
		if err != nil {
			slog.Warn("Elasticsearch unavailable, events are listed from Postgres", "error", err)
		} else {
			a.Search = es
			index = es
		}
	}

	rt := service.Runtime{
		Cache:     cache.New(backend, a.Recorder, cache.WithDefaultTTL(cfg.Cache.TTL)),
		Limiter:   ratelimit.NewRegistry(cfg.RateLimits, a.Recorder),
		Recorder:  a.Recorder,
		Publisher: publisher,
		Logs:      a.Repos.Logs,
		Retry:     retryOptions(cfg.Retry),
	}
	a.Services = service.NewServices(rt, service.Stores{
		Events:       a.Repos.Events,
		Index:        index,
		Reservations: a.Repos.Reservations,
		Users:        a.Repos.Users,
		Outbox:       a.Repos.Outbox,
		EventOutbox:  a.Repos.EventOutbox,
	}, service.SweepConfig{
		MaxAge:    cfg.Sweep.MaxAge,
		BatchSize: cfg.Sweep.BatchSize,
	}, service.MailDispatchConfig{
		BatchSize: cfg.Mail.BatchSize,
		Mailer:    notify.NewMailer(cfg.Mail.Mailer),
	}, service.RelayConfig{
		Grace:       cfg.Relay.Grace,
		BatchSize:   cfg.Relay.BatchSize,
		MaxAttempts: cfg.Relay.MaxAttempts,
	})

	return a, nil
}

func (a *App) cacheBackend() (cache.Backend, error) {
	switch a.Config.Cache.Backend {
	case "valkey":
		client, err := cache.NewValkeyClient(a.Config.Cache.Valkey)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
		}
		a.Valkey = client
		return client, nil
	case "", "memory":
		return cache.NewMemoryBackend(a.Config.Cache.MaxEntries), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", a.Config.Cache.Backend)
	}
}

func retryOptions(cfg config.RetryConfig) []retry.Option {
	return []retry.Option{
		retry.WithMaxAttempts(cfg.MaxAttempts),
		retry.WithBaseDelay(cfg.BaseDelay),
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			slog.Warn("Retrying transient failure", "attempt", attempt, "delay", delay, "error", err)
		}),
	}
}

// HealthCheck reports per-backend status. healthy is false when Postgres is down.
func (a *App) HealthCheck(ctx context.Context) (status map[string]interface{}, healthy bool) {
	db := a.DB.HealthCheck(ctx)
	status = map[string]interface{}{"database": db}
	healthy = db.Status == "healthy"

	if a.Search != nil {
		status["elasticsearch"] = "ok"
		if err := a.Search.HealthCheck(ctx); err != nil {
			status["elasticsearch"] = err.Error()
		}
	}
	if a.NATS != nil {
		status["nats"] = "ok"
	} else {
		status["nats"] = "disabled"
	}
	return status, healthy
}

// Close releases every connection that was opened.
func (a *App) Close() {
	if a.NATS != nil {
		if err := a.NATS.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}
	if a.Valkey != nil {
		if err := a.Valkey.Close(); err != nil {
			slog.Error("Error closing Valkey connection", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
		}
	}
}

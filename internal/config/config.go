package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"ticketline/internal/cache"
	"ticketline/internal/database"
	"ticketline/internal/messaging"
	"ticketline/internal/notify"
	"ticketline/internal/ratelimit"
)

// Config содержит конфигурацию приложения
type Config struct {
	Environment    string
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Bearer tokens are HS256 JWTs issued by the auth provider.
	JWTSecret string
	// Shared secret the auth provider presents on the user-created hook.
	AuthHookSecret string

	MetricsNamespace string
	MetricsPersist   bool

	Database      database.Config
	NATS          messaging.Config
	Elasticsearch ElasticsearchConfig
	Cache         CacheConfig
	RateLimits    map[string]ratelimit.Limit
	Retry         RetryConfig
	Sweep         SweepConfig
	Mail          MailConfig
	Relay         RelayConfig
}

type CacheConfig struct {
	Backend    string // memory | valkey
	TTL        time.Duration
	MaxEntries int
	Valkey     cache.ValkeyConfig
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

type SweepConfig struct {
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// RelayConfig drives the job that publishes stored triggers.
type RelayConfig struct {
	Interval    time.Duration
	Grace       time.Duration
	BatchSize   int
	MaxAttempts int
}

type MailConfig struct {
	DispatchInterval time.Duration
	BatchSize        int
	Mailer           notify.MailerConfig
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		if err := godotenv.Load(); err != nil {
			slog.Debug(".env file not loaded", "error", err)
		}
	}

	return &Config{
		Environment:    env,
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		JWTSecret:      getEnv("JWT_SECRET", ""),
		AuthHookSecret: getEnv("AUTH_HOOK_SECRET", ""),

		MetricsNamespace: getEnv("METRICS_NAMESPACE", "ticketline"),
		MetricsPersist:   getEnv("METRICS_PERSIST", "false") == "true",

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "ticketline"),
			Password:           getEnv("DB_PASSWORD", "ticketline"),
			DBName:             getEnv("DB_NAME", "ticketline"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "ticketline"),
			ClientID:  getEnv("NATS_CLIENT_ID", "ticketline-api"),
		},

		Elasticsearch: LoadElasticsearchConfig(),

		Cache: CacheConfig{
			Backend:    getEnv("CACHE_BACKEND", "memory"),
			TTL:        getEnvDuration("CACHE_TTL", cache.DefaultTTL),
			MaxEntries: getEnvInt("CACHE_MAX_ENTRIES", cache.DefaultMaxEntries),
			Valkey: cache.ValkeyConfig{
				Addr:      getEnv("VALKEY_ADDR", "localhost:6379"),
				Password:  getEnv("VALKEY_PASSWORD", ""),
				DB:        getEnvInt("VALKEY_DB", 0),
				KeyPrefix: getEnv("VALKEY_KEY_PREFIX", "ticketline:cache:"),
			},
		},

		RateLimits: map[string]ratelimit.Limit{
			ratelimit.KindReservation: {
				TokensPerInterval: getEnvInt("RATE_LIMIT_RESERVATION_TOKENS", 10),
				Interval:          getEnvDuration("RATE_LIMIT_RESERVATION_INTERVAL", time.Minute),
			},
			ratelimit.KindEmail: {
				TokensPerInterval: getEnvInt("RATE_LIMIT_EMAIL_TOKENS", 100),
				Interval:          getEnvDuration("RATE_LIMIT_EMAIL_INTERVAL", time.Minute),
			},
		},

		Retry: RetryConfig{
			MaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:   getEnvDuration("RETRY_BASE_DELAY", time.Second),
		},

		Sweep: SweepConfig{
			Interval:  getEnvDuration("SWEEP_INTERVAL", 24*time.Hour),
			MaxAge:    getEnvDuration("SWEEP_MAX_AGE", 7*24*time.Hour),
			BatchSize: getEnvInt("SWEEP_BATCH_SIZE", 500),
		},

		Mail: MailConfig{
			DispatchInterval: getEnvDuration("MAIL_DISPATCH_INTERVAL", 30*time.Second),
			BatchSize:        getEnvInt("MAIL_DISPATCH_BATCH_SIZE", 100),
			Mailer: notify.MailerConfig{
				Provider:    getEnv("EMAIL_PROVIDER", "noop"),
				FromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@ticketline.local"),
				FromName:    getEnv("EMAIL_FROM_NAME", "Ticketline"),
				SES: notify.SESConfig{
					Region:          getEnv("AWS_REGION", "ap-northeast-1"),
					AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
					SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				},
			},
		},

		Relay: RelayConfig{
			Interval:    getEnvDuration("RELAY_INTERVAL", 10*time.Second),
			Grace:       getEnvDuration("RELAY_GRACE", 30*time.Second),
			BatchSize:   getEnvInt("RELAY_BATCH_SIZE", 100),
			MaxAttempts: getEnvInt("RELAY_MAX_ATTEMPTS", 10),
		},
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

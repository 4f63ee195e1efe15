package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ticketline/internal/database"
	"ticketline/internal/metrics"
	"ticketline/internal/models"
)

// LogRepository writes the diagnostic collections: error_logs, cleanup_logs and metrics.
type LogRepository struct {
	db *database.DB
}

func NewLogRepository(db *database.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) InsertError(ctx context.Context, entry models.ErrorLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO error_logs (type, reservation_id, user_id, event_id, error, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.Type,
		nullString(entry.ReservationID),
		nullString(entry.UserID),
		nullString(entry.EventID),
		entry.Error,
		entry.Timestamp,
	)
	return database.Classify(err)
}

func (r *LogRepository) InsertCleanup(ctx context.Context, processed int, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cleanup_logs (processed_count, timestamp) VALUES ($1, $2)`, processed, at)
	return database.Classify(err)
}

// InsertObservation implements metrics.Store.
func (r *LogRepository) InsertObservation(ctx context.Context, obs metrics.Observation) error {
	labels := obs.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	raw, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO metrics (name, value, labels, timestamp) VALUES ($1, $2, $3, $4)`,
		obs.Name, obs.Value, raw, obs.Timestamp)
	return database.Classify(err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"ticketline/internal/database"
	"ticketline/internal/models"
)

// EventOutboxRepository stores change triggers until they reach NATS.
type EventOutboxRepository struct {
	db *database.DB
}

func NewEventOutboxRepository(db *database.DB) *EventOutboxRepository {
	return &EventOutboxRepository{db: db}
}

// Enqueue stores a trigger outside of any other write.
func (r *EventOutboxRepository) Enqueue(ctx context.Context, id, subject string, payload any) error {
	return database.Classify(insertOutboxEvent(ctx, r.db, id, subject, payload))
}

// ClaimUnpublished leases up to limit unpublished triggers created before
// createdBefore, oldest first. Rows leased by another relay are skipped until
// their lease runs out.
func (r *EventOutboxRepository) ClaimUnpublished(ctx context.Context, createdBefore time.Time, limit int, lease time.Duration) ([]models.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE event_outbox
		SET claimed_until = NOW() + $3 * INTERVAL '1 millisecond', attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM event_outbox
			WHERE published_at IS NULL AND created_at < $1
			  AND (claimed_until IS NULL OR claimed_until < NOW())
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, subject, payload, created_at, attempts`,
		createdBefore, limit, lease.Milliseconds())
	if err != nil {
		return nil, database.Classify(err)
	}
	defer rows.Close()

	events := []models.OutboxEvent{}
	for rows.Next() {
		var evt models.OutboxEvent
		if err := rows.Scan(&evt.ID, &evt.Subject, &evt.Payload, &evt.CreatedAt, &evt.Attempts); err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify(err)
	}
	// RETURNING does not keep the subquery order.
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	return events, nil
}

func (r *EventOutboxRepository) MarkPublished(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE event_outbox SET published_at = NOW(), claimed_until = NULL, last_error = NULL WHERE id = $1`, id)
	return database.Classify(err)
}

// MarkFailed records the publish error and releases the lease.
func (r *EventOutboxRepository) MarkFailed(ctx context.Context, id string, publishErr error) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE event_outbox SET claimed_until = NULL, last_error = $2 WHERE id = $1`, id, publishErr.Error())
	return database.Classify(err)
}

// Abandon stops relaying a trigger that failed too often. It stays in the
// table with its last error for inspection.
func (r *EventOutboxRepository) Abandon(ctx context.Context, id string, publishErr error) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE event_outbox SET published_at = NOW(), claimed_until = NULL, last_error = $2 WHERE id = $1`,
		id, "abandoned: "+publishErr.Error())
	return database.Classify(err)
}

func insertOutboxEvent(ctx context.Context, tx execer, id, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", subject, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO event_outbox (id, subject, payload) VALUES ($1, $2, $3)`,
		id, subject, data,
	); err != nil {
		return fmt.Errorf("enqueue %s: %w", subject, err)
	}
	return nil
}

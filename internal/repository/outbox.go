package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"ticketline/internal/database"
	"ticketline/internal/models"
)

type MailOutboxRepository struct {
	db *database.DB
}

func NewMailOutboxRepository(db *database.DB) *MailOutboxRepository {
	return &MailOutboxRepository{db: db}
}

// mailClaimLease is how long a claimed message is hidden from other dispatchers.
const mailClaimLease = 5 * time.Minute

// ClaimUnsent leases up to limit unsent messages, oldest first, skipping
// those that already failed maxAttempts times and those leased by another
// dispatcher.
func (r *MailOutboxRepository) ClaimUnsent(ctx context.Context, limit, maxAttempts int) ([]models.MailMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE mail_outbox
		SET claimed_until = NOW() + $3 * INTERVAL '1 millisecond'
		WHERE id IN (
			SELECT id FROM mail_outbox
			WHERE sent_at IS NULL AND attempts < $1
			  AND (claimed_until IS NULL OR claimed_until < NOW())
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, recipient, template, data, created_at, sent_at, attempts, last_error`,
		maxAttempts, limit, mailClaimLease.Milliseconds())
	if err != nil {
		return nil, database.Classify(err)
	}
	defer rows.Close()

	messages := []models.MailMessage{}
	for rows.Next() {
		var (
			msg       models.MailMessage
			data      []byte
			sentAt    sql.NullTime
			lastError sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.To, &msg.Template, &data, &msg.CreatedAt, &sentAt, &msg.Attempts, &lastError); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &msg.Data); err != nil {
				return nil, fmt.Errorf("decode mail %s data: %w", msg.ID, err)
			}
		}
		if sentAt.Valid {
			msg.SentAt = &sentAt.Time
		}
		if lastError.Valid {
			msg.LastError = &lastError.String
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify(err)
	}
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].CreatedAt.Before(messages[j].CreatedAt) })
	return messages, nil
}

func (r *MailOutboxRepository) MarkSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE mail_outbox SET sent_at = NOW(), attempts = attempts + 1, last_error = NULL, claimed_until = NULL WHERE id = $1`, id)
	return database.Classify(err)
}

func (r *MailOutboxRepository) MarkFailed(ctx context.Context, id string, sendErr error) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE mail_outbox SET attempts = attempts + 1, last_error = $2, claimed_until = NULL WHERE id = $1`, id, sendErr.Error())
	return database.Classify(err)
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ticketline/internal/database"
	apperrors "ticketline/internal/errors"
	"ticketline/internal/models"
)

const reservationColumns = `id, user_id, event_id, date, status, email_sent, created_at, updated_at`

type ReservationRepository struct {
	db *database.DB
}

func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create takes one ticket from the event and stores res in a single
// transaction, together with its reservation.created outbox row. The event
// row is locked so concurrent calls for the last ticket serialize; the loser
// sees zero inventory and gets ErrSoldOut.
//
// res.ID must be set by the caller. Create is idempotent per id: when a
// reservation with that id already exists (a retried call whose commit
// landed), res is filled from it and no further ticket is taken.
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanReservation(tx.QueryRowContext(ctx,
			`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, res.ID))
		switch {
		case err == nil:
			if existing.UserID != res.UserID || existing.EventID != res.EventID {
				return fmt.Errorf("reservation id %s already used by another request", res.ID)
			}
			*res = *existing
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check reservation: %w", err)
		}

		var available int
		err = tx.QueryRowContext(ctx,
			`SELECT available_tickets FROM events WHERE id = $1 FOR UPDATE`,
			res.EventID,
		).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}
		if available <= 0 {
			return apperrors.ErrSoldOut
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE events SET available_tickets = available_tickets - 1, updated_at = NOW() WHERE id = $1`,
			res.EventID,
		); err != nil {
			return fmt.Errorf("decrement inventory: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO reservations (id, user_id, event_id, date, status, email_sent)
			VALUES ($1, $2, $3, $4, $5, FALSE)
			RETURNING created_at, updated_at`,
			res.ID, res.UserID, res.EventID, res.Date, res.Status,
		).Scan(&res.CreatedAt, &res.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}

		return insertOutboxEvent(ctx, tx, res.ID, models.EventReservationCreated, models.NewReservationCreatedEvent(res))
	})
}

// GetByID returns ErrReservationNotFound for unknown or malformed ids.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrReservationNotFound
	}

	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrReservationNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return res, nil
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, database.Classify(err)
	}
	defer rows.Close()

	reservations := []models.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *res)
	}
	return reservations, database.Classify(rows.Err())
}

// Transition moves the caller's reservation to status to. Reservations owned
// by someone else are reported as not found.
func (r *ReservationRepository) Transition(ctx context.Context, id, userID, to string) (*models.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrReservationNotFound
	}

	var res *models.Reservation
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := scanReservation(tx.QueryRowContext(ctx,
			`SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrReservationNotFound
		}
		if err != nil {
			return fmt.Errorf("lock reservation: %w", err)
		}
		if current.UserID != userID {
			return apperrors.ErrReservationNotFound
		}
		if !models.CanTransition(current.Status, to) {
			return apperrors.ErrInvalidTransition
		}

		err = tx.QueryRowContext(ctx,
			`UPDATE reservations SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`,
			to, id,
		).Scan(&current.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update reservation status: %w", err)
		}
		current.Status = to
		res = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ExpirePending moves at most limit pending reservations created before
// cutoff to expired and returns their ids. Oldest go first.
func (r *ReservationRepository) ExpirePending(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE reservations
		SET status = 'expired', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM reservations
			WHERE status = 'pending' AND created_at < $1
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`, cutoff, limit)
	if err != nil {
		return nil, database.Classify(err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, database.Classify(rows.Err())
}

// MarkEmailSent enqueues mail and flags the reservation in one transaction.
// It returns false, and enqueues nothing, when the reservation was already
// flagged by an earlier delivery of the same trigger.
func (r *ReservationRepository) MarkEmailSent(ctx context.Context, reservationID string, mail *models.MailMessage) (bool, error) {
	sent := false
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var alreadySent bool
		err := tx.QueryRowContext(ctx,
			`SELECT email_sent FROM reservations WHERE id = $1 FOR UPDATE`,
			reservationID,
		).Scan(&alreadySent)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrReservationNotFound
		}
		if err != nil {
			return fmt.Errorf("lock reservation: %w", err)
		}
		if alreadySent {
			return nil
		}

		if err := insertMail(ctx, tx, mail); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE reservations SET email_sent = TRUE, updated_at = NOW() WHERE id = $1`,
			reservationID,
		); err != nil {
			return fmt.Errorf("flag reservation: %w", err)
		}
		sent = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return sent, nil
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	res := &models.Reservation{}
	err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.EventID,
		&res.Date,
		&res.Status,
		&res.EmailSent,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMail(ctx context.Context, tx execer, mail *models.MailMessage) error {
	if mail.ID == "" {
		mail.ID = uuid.New().String()
	}
	data, err := json.Marshal(mail.Data)
	if err != nil {
		return fmt.Errorf("encode mail data: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO mail_outbox (id, recipient, template, data)
		VALUES ($1, $2, $3, $4)`,
		mail.ID, mail.To, mail.Template, data)
	if err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ticketline/internal/database"
	apperrors "ticketline/internal/errors"
	"ticketline/internal/models"
)

var ErrEmailTaken = apperrors.New(apperrors.CodeFailedPrecondition, "email is already registered")

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns ErrUserNotFound when no profile exists.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, display_name, role, is_active, created_at, updated_at
		FROM users
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return user, nil
}

// CreateWithWelcome inserts the profile and its welcome mail atomically.
// A profile that already exists is left alone and no mail is queued, so
// redelivered user.created messages are harmless. Reports whether a row was created.
func (r *UserRepository) CreateWithWelcome(ctx context.Context, user *models.User, welcome *models.MailMessage) (bool, error) {
	created := false
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (id, email, display_name, role, is_active)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
			RETURNING created_at, updated_at`,
			user.ID, user.Email, user.DisplayName, user.Role, user.IsActive,
		).Scan(&user.CreatedAt, &user.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		created = true

		return insertMail(ctx, tx, welcome)
	})
	return created, err
}

// isUniqueViolation reports a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ticketline/internal/errors"
	"ticketline/internal/models"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "role", "is_active", "created_at", "updated_at"}).
			AddRow("u1", "a@example.com", "Ann", models.RoleUser, true, now, now))
	mock.ExpectQuery(`FROM users`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewUserRepository(db)
	user, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateWithWelcome(t *testing.T) {
	user := func() *models.User {
		return &models.User{ID: "u1", Email: "a@example.com", DisplayName: "Ann", Role: models.RoleUser, IsActive: true}
	}
	welcome := func() *models.MailMessage {
		return &models.MailMessage{To: "a@example.com", Template: "welcome"}
	}

	t.Run("new profile queues welcome mail", func(t *testing.T) {
		db, mock := newMock(t)
		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO users .* ON CONFLICT \(id\) DO NOTHING`).
			WithArgs("u1", "a@example.com", "Ann", models.RoleUser, true).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`INSERT INTO mail_outbox`).
			WithArgs(sqlmock.AnyArg(), "a@example.com", "welcome", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		created, err := NewUserRepository(db).CreateWithWelcome(context.Background(), user(), welcome())
		require.NoError(t, err)
		assert.True(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing profile is a no-op", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))
		mock.ExpectCommit()

		created, err := NewUserRepository(db).CreateWithWelcome(context.Background(), user(), welcome())
		require.NoError(t, err)
		assert.False(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		_, err := NewUserRepository(db).CreateWithWelcome(context.Background(), user(), welcome())
		assert.ErrorIs(t, err, ErrEmailTaken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

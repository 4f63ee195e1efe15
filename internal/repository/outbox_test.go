package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketline/internal/metrics"
	"ticketline/internal/models"
)

func TestMailOutboxRepository_ClaimUnsent(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`UPDATE mail_outbox\s+SET claimed_until = NOW\(\) \+ \$3.*WHERE sent_at IS NULL AND attempts < \$1.*FOR UPDATE SKIP LOCKED`).
		WithArgs(5, 100, int64(300000)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipient", "template", "data", "created_at", "sent_at", "attempts", "last_error"}).
			AddRow("m2", "b@example.com", "welcome", []byte(`{}`), now, nil, 2, "smtp down").
			AddRow("m1", "a@example.com", "welcome", []byte(`{"displayName":"Ann"}`), now.Add(-time.Minute), nil, 0, nil))

	msgs, err := NewMailOutboxRepository(db).ClaimUnsent(context.Background(), 100, 5)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID, "oldest first")
	assert.Equal(t, "Ann", msgs[0].Data["displayName"])
	assert.Nil(t, msgs[0].LastError)
	require.NotNil(t, msgs[1].LastError)
	assert.Equal(t, "smtp down", *msgs[1].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMailOutboxRepository_MarkSentAndFailed(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE mail_outbox SET sent_at = NOW\(\).*claimed_until = NULL`).WithArgs("m1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE mail_outbox SET attempts = attempts \+ 1, last_error = \$2, claimed_until = NULL`).
		WithArgs("m2", "boom").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewMailOutboxRepository(db)
	require.NoError(t, repo.MarkSent(context.Background(), "m1"))
	require.NoError(t, repo.MarkFailed(context.Background(), "m2", errors.New("boom")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogRepository(t *testing.T) {
	db, mock := newMock(t)
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO error_logs`).
		WithArgs(models.ErrorTypeReservationEmail, "r1", nil, nil, "no profile", at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO cleanup_logs`).
		WithArgs(3, at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO metrics`).
		WithArgs(metrics.EmailSent, 1.0, []byte(`{"reservationId":"r1"}`), at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewLogRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.InsertError(ctx, models.ErrorLog{
		Type: models.ErrorTypeReservationEmail, ReservationID: "r1", Error: "no profile", Timestamp: at,
	}))
	require.NoError(t, repo.InsertCleanup(ctx, 3, at))
	require.NoError(t, repo.InsertObservation(ctx, metrics.Observation{
		Name: metrics.EmailSent, Value: 1, Labels: map[string]string{"reservationId": "r1"}, Timestamp: at,
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

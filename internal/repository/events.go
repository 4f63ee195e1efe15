package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"ticketline/internal/database"
	apperrors "ticketline/internal/errors"
	"ticketline/internal/models"
)

const eventColumns = `id, title, venue, starts_at, available_tickets, created_at, updated_at`

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, title, venue, starts_at, available_tickets)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		event.ID,
		event.Title,
		event.Venue,
		event.StartsAt,
		event.AvailableTickets,
	).Scan(&event.CreatedAt, &event.UpdatedAt)

	return database.Classify(err)
}

// GetByID returns ErrEventNotFound when no row matches.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrEventNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return event, nil
}

func (r *EventRepository) List(ctx context.Context, params models.ListEventsParams) ([]models.Event, error) {
	params.Normalize()

	var args []interface{}
	argIndex := 1
	var searchQueryArgIndex int

	sqlQuery := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`

	if searchQuery := prepareSearchQuery(params.Query); searchQuery != "" {
		searchQueryArgIndex = argIndex
		sqlQuery += fmt.Sprintf(" AND to_tsvector('simple', title || ' ' || venue) @@ to_tsquery('simple', $%d)", argIndex)
		args = append(args, searchQuery)
		argIndex++
	}

	if params.Date != "" {
		sqlQuery += fmt.Sprintf(" AND DATE(starts_at) = $%d", argIndex)
		args = append(args, params.Date)
		argIndex++
	}

	if searchQueryArgIndex > 0 {
		sqlQuery += fmt.Sprintf(" ORDER BY ts_rank(to_tsvector('simple', title || ' ' || venue), to_tsquery('simple', $%d)) DESC, starts_at ASC", searchQueryArgIndex)
	} else {
		sqlQuery += " ORDER BY starts_at ASC, id ASC"
	}

	offset := (params.Page - 1) * params.PageSize
	sqlQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, database.Classify(err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}

	return events, database.Classify(rows.Err())
}

// Availability returns the current ticket count of every known id in ids.
func (r *EventRepository) Availability(ctx context.Context, ids []string) (map[string]int, error) {
	counts := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, available_tickets FROM events WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, database.Classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        string
			available int
		)
		if err := rows.Scan(&id, &available); err != nil {
			return nil, err
		}
		counts[id] = available
	}
	return counts, database.Classify(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Venue,
		&event.StartsAt,
		&event.AvailableTickets,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// prepareSearchQuery formats a search query for PostgreSQL full-text search
func prepareSearchQuery(query string) string {
	if containsSearchOperators(query) {
		return strings.TrimSpace(query)
	}

	words := strings.Fields(strings.TrimSpace(query))
	if len(words) == 0 {
		return ""
	}

	// Prefix matching on every word, joined with AND
	formattedWords := make([]string, 0, len(words))
	for _, word := range words {
		formattedWords = append(formattedWords, word+":*")
	}

	return strings.Join(formattedWords, " & ")
}

// containsSearchOperators checks if the search query contains PostgreSQL search operators
func containsSearchOperators(query string) bool {
	return strings.ContainsAny(query, "&|!():*")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"ticketline/internal/config"
	"ticketline/internal/database"
	"ticketline/internal/logger"
	"ticketline/internal/middleware"
	"ticketline/internal/models"
	"ticketline/internal/notify"
	"ticketline/internal/repository"
	"ticketline/internal/search"
)

var (
	eventCount = flag.Int("events", 20, "Number of events to generate")
	userCount  = flag.Int("users", 5, "Number of regular users to generate, an admin is always added")
	printToken = flag.Bool("tokens", true, "Print a bearer token for every generated user")
	tokenTTL   = flag.Duration("token-ttl", 24*time.Hour, "Lifetime of printed tokens")
	seed       = flag.Int64("seed", 0, "Random seed (0 = time based)")
	dryRun     = flag.Bool("dry-run", false, "Show what would be generated without making changes")
)

var (
	artists = []string{"Dimash", "Ninety One", "Kairat Nurtas", "Jah Khalib", "Roksonaki", "Steppe Orchestra", "Almaty Philharmonic", "Ulytau"}
	formats = []string{"Live", "Acoustic Night", "Open Air", "Anniversary Tour", "Symphonic Evening"}
	venues  = []string{"Almaty Arena", "Barys Arena", "Palace of the Republic", "Astana Opera", "Central Concert Hall"}
)

type Seeder struct {
	repos  *repository.Repositories
	index  *search.ElasticsearchClient
	secret string
}

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, "text")
	slog.Info("Starting data generator...")

	r := rand.New(rand.NewSource(*seed))
	if *seed == 0 {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	events := generateEvents(r, *eventCount, time.Now().UTC())
	users := generateUsers(*userCount)

	if *dryRun {
		for _, e := range events {
			slog.Info("[DRY RUN] Would create event", "title", e.Title, "venue", e.Venue, "starts_at", e.StartsAt, "tickets", e.AvailableTickets)
		}
		for _, u := range users {
			slog.Info("[DRY RUN] Would create user", "id", u.ID, "email", u.Email, "role", u.Role)
		}
		return
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	s := &Seeder{repos: repository.NewRepositories(db), secret: cfg.JWTSecret}
	if cfg.Elasticsearch.URL != "" {
		if s.index, err = search.NewElasticsearchClient(ctx, cfg.Elasticsearch); err != nil {
			slog.Warn("Elasticsearch unavailable, events will not be indexed", "error", err)
		}
	}

	if err := s.seedEvents(ctx, events); err != nil {
		slog.Error("Failed to generate events", "error", err)
		os.Exit(1)
	}
	if err := s.seedUsers(ctx, users); err != nil {
		slog.Error("Failed to generate users", "error", err)
		os.Exit(1)
	}

	slog.Info("Data generation completed successfully!", "events", len(events), "users", len(users))
}

func (s *Seeder) seedEvents(ctx context.Context, events []models.Event) error {
	for i := range events {
		e := &events[i]
		if err := s.repos.Events.Create(ctx, e); err != nil {
			return fmt.Errorf("create event %q: %w", e.Title, err)
		}
		if s.index != nil {
			if err := s.index.IndexEvent(ctx, e); err != nil {
				slog.Warn("Failed to index event", "event_id", e.ID, "error", err)
			}
		}
		slog.Info("Generated event", "event_id", e.ID, "title", e.Title, "tickets", e.AvailableTickets)
	}
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context, users []models.User) error {
	for i := range users {
		u := &users[i]
		welcome := &models.MailMessage{
			To:       u.Email,
			Template: notify.TemplateWelcome,
			Data:     map[string]string{"displayName": u.DisplayName},
		}
		created, err := s.repos.Users.CreateWithWelcome(ctx, u, welcome)
		if err != nil {
			return fmt.Errorf("create user %s: %w", u.ID, err)
		}
		if !created {
			slog.Info("User already exists, skipping", "user_id", u.ID)
		}

		if *printToken && s.secret != "" {
			token, err := middleware.IssueToken(s.secret, u.ID, u.Email, u.Role, *tokenTTL)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\t%s\n", u.ID, u.Role, token)
		}
	}
	return nil
}

// generateEvents builds n events starting within the next 90 days.
func generateEvents(r *rand.Rand, n int, now time.Time) []models.Event {
	events := make([]models.Event, 0, n)
	for i := 0; i < n; i++ {
		day := now.Truncate(24 * time.Hour).AddDate(0, 0, r.Intn(90)+1)
		events = append(events, models.Event{
			ID:               uuid.New().String(),
			Title:            artists[r.Intn(len(artists))] + " " + formats[r.Intn(len(formats))],
			Venue:            venues[r.Intn(len(venues))],
			StartsAt:         day.Add(time.Duration(18+r.Intn(4)) * time.Hour),
			AvailableTickets: r.Intn(901) + 100,
		})
	}
	return events
}

// generateUsers returns a fixed admin followed by n regular users. IDs are stable across runs.
func generateUsers(n int) []models.User {
	users := []models.User{{
		ID:          "seed-admin",
		Email:       "admin@ticketline.local",
		DisplayName: "Admin",
		Role:        models.RoleAdmin,
		IsActive:    true,
	}}
	for i := 1; i <= n; i++ {
		users = append(users, models.User{
			ID:          fmt.Sprintf("seed-user-%d", i),
			Email:       fmt.Sprintf("user%d@ticketline.local", i),
			DisplayName: fmt.Sprintf("User %d", i),
			Role:        models.RoleUser,
			IsActive:    true,
		})
	}
	return users
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"ticketline/internal/cache"
	apperrors "ticketline/internal/errors"
	"ticketline/internal/metrics"
	"ticketline/internal/middleware"
	"ticketline/internal/models"
	"ticketline/internal/ratelimit"
	"ticketline/internal/retry"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// memDB is an in-memory stand-in for Postgres shared by the fake stores.
type memDB struct {
	mu           sync.Mutex
	events       map[string]*models.Event
	reservations map[string]*models.Reservation
	users        map[string]*models.User
	mails        []models.MailMessage
	errorLogs    []models.ErrorLog
	cleanups     []int
	triggers     []*trigger

	eventReads   int
	storageCalls int
}

// trigger is an event_outbox row.
type trigger struct {
	models.OutboxEvent
	published bool
	abandoned bool
	lastError string
}

func newMemDB() *memDB {
	return &memDB{
		events:       map[string]*models.Event{},
		reservations: map[string]*models.Reservation{},
		users:        map[string]*models.User{},
	}
}

func (db *memDB) addEvent(id string, tickets int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.events[id] = &models.Event{ID: id, Title: "Concert " + id, Venue: "Arena", StartsAt: testNow.Add(72 * time.Hour), AvailableTickets: tickets}
}

func (db *memDB) addReservation(r models.Reservation) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.reservations[r.ID] = &r
}

func (db *memDB) addUser(u models.User) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[u.ID] = &u
}

func (db *memDB) available(eventID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.events[eventID].AvailableTickets
}

func (db *memDB) reservation(id string) models.Reservation {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.reservations[id]
}

func (db *memDB) reservationCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.reservations)
}

// enqueue must be called with db.mu held.
func (db *memDB) enqueue(id, subject string, payload any, at time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	db.triggers = append(db.triggers, &trigger{OutboxEvent: models.OutboxEvent{
		ID: id, Subject: subject, Payload: data, CreatedAt: at,
	}})
	return nil
}

func (db *memDB) trigger(id string) trigger {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, t := range db.triggers {
		if t.ID == id {
			return *t
		}
	}
	return trigger{}
}

func (db *memDB) triggerCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.triggers)
}

func (db *memDB) mailCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.mails)
}

func (db *memDB) errorLogsOfType(typ string) []models.ErrorLog {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.ErrorLog
	for _, l := range db.errorLogs {
		if l.Type == typ {
			out = append(out, l)
		}
	}
	return out
}

type eventStore struct{ db *memDB }

func (s eventStore) GetByID(_ context.Context, id string) (*models.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.eventReads++
	s.db.storageCalls++
	e, ok := s.db.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (s eventStore) List(_ context.Context, _ models.ListEventsParams) ([]models.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.storageCalls++
	out := make([]models.Event, 0, len(s.db.events))
	for _, e := range s.db.events {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s eventStore) Availability(_ context.Context, ids []string) (map[string]int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.storageCalls++
	out := make(map[string]int, len(ids))
	for _, id := range ids {
		if e, ok := s.db.events[id]; ok {
			out[id] = e.AvailableTickets
		}
	}
	return out, nil
}

func (s eventStore) Create(_ context.Context, e *models.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.storageCalls++
	cp := *e
	s.db.events[e.ID] = &cp
	return nil
}

type reservationStore struct {
	db *memDB
	// failures are returned, in order, before the store starts working normally.
	failures []error
	// lostCommits makes Create commit and then report a dropped connection.
	lostCommits int
	mu          sync.Mutex
	attempts    int
}

func (s *reservationStore) lostCommit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lostCommits == 0 {
		return nil
	}
	s.lostCommits--
	return apperrors.Retryable(errors.New("connection reset after commit"))
}

func (s *reservationStore) nextFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if len(s.failures) == 0 {
		return nil
	}
	err := s.failures[0]
	s.failures = s.failures[1:]
	return err
}

func (s *reservationStore) Create(_ context.Context, r *models.Reservation) error {
	if err := s.nextFailure(); err != nil {
		return err
	}
	if err := s.create(r); err != nil {
		return err
	}
	return s.lostCommit()
}

func (s *reservationStore) create(r *models.Reservation) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.storageCalls++
	if existing, ok := s.db.reservations[r.ID]; ok {
		if existing.UserID != r.UserID || existing.EventID != r.EventID {
			return errors.New("reservation id reused")
		}
		*r = *existing
		return nil
	}
	e, ok := s.db.events[r.EventID]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	if e.AvailableTickets <= 0 {
		return apperrors.ErrSoldOut
	}
	e.AvailableTickets--
	r.CreatedAt = testNow
	r.UpdatedAt = testNow
	cp := *r
	s.db.reservations[r.ID] = &cp
	return s.db.enqueue(r.ID, models.EventReservationCreated, models.NewReservationCreatedEvent(r), testNow)
}

func (s *reservationStore) GetByID(_ context.Context, id string) (*models.Reservation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.storageCalls++
	r, ok := s.db.reservations[id]
	if !ok {
		return nil, apperrors.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *reservationStore) ListByUser(_ context.Context, userID string) ([]models.Reservation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Reservation
	for _, r := range s.db.reservations {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *reservationStore) Transition(_ context.Context, id, userID, to string) (*models.Reservation, error) {
	if err := s.nextFailure(); err != nil {
		return nil, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reservations[id]
	if !ok || r.UserID != userID {
		return nil, apperrors.ErrReservationNotFound
	}
	if !models.CanTransition(r.Status, to) {
		return nil, apperrors.ErrInvalidTransition
	}
	r.Status = to
	cp := *r
	return &cp, nil
}

func (s *reservationStore) ExpirePending(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	if err := s.nextFailure(); err != nil {
		return nil, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var stale []*models.Reservation
	for _, r := range s.db.reservations {
		if r.Status == models.ReservationPending && r.CreatedAt.Before(cutoff) {
			stale = append(stale, r)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
	if len(stale) > limit {
		stale = stale[:limit]
	}
	ids := make([]string, 0, len(stale))
	for _, r := range stale {
		r.Status = models.ReservationExpired
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *reservationStore) MarkEmailSent(_ context.Context, reservationID string, mail *models.MailMessage) (bool, error) {
	if err := s.nextFailure(); err != nil {
		return false, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reservations[reservationID]
	if !ok {
		return false, apperrors.ErrReservationNotFound
	}
	if r.EmailSent {
		return false, nil
	}
	r.EmailSent = true
	s.db.mails = append(s.db.mails, *mail)
	return true, nil
}

type userStore struct {
	db  *memDB
	err error
}

func (s userStore) GetByID(_ context.Context, id string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s userStore) CreateWithWelcome(_ context.Context, u *models.User, welcome *models.MailMessage) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[u.ID]; ok {
		return false, nil
	}
	cp := *u
	s.db.users[u.ID] = &cp
	s.db.mails = append(s.db.mails, *welcome)
	return true, nil
}

type eventOutboxStore struct {
	db         *memDB
	enqueueErr error
	claimErr   error
}

func (s eventOutboxStore) Enqueue(_ context.Context, id, subject string, payload any) error {
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.enqueue(id, subject, payload, testNow)
}

func (s eventOutboxStore) ClaimUnpublished(_ context.Context, createdBefore time.Time, limit int, _ time.Duration) ([]models.OutboxEvent, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.OutboxEvent
	for _, t := range s.db.triggers {
		if len(out) == limit {
			break
		}
		if t.published || !t.CreatedAt.Before(createdBefore) {
			continue
		}
		t.Attempts++
		out = append(out, t.OutboxEvent)
	}
	return out, nil
}

func (s eventOutboxStore) find(id string) *trigger {
	for _, t := range s.db.triggers {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s eventOutboxStore) MarkPublished(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if t := s.find(id); t != nil {
		t.published = true
		t.lastError = ""
	}
	return nil
}

func (s eventOutboxStore) MarkFailed(_ context.Context, id string, publishErr error) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if t := s.find(id); t != nil {
		t.lastError = publishErr.Error()
	}
	return nil
}

func (s eventOutboxStore) Abandon(_ context.Context, id string, publishErr error) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if t := s.find(id); t != nil {
		t.published = true
		t.abandoned = true
		t.lastError = "abandoned: " + publishErr.Error()
	}
	return nil
}

type logStore struct{ db *memDB }

func (s logStore) InsertError(_ context.Context, entry models.ErrorLog) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.errorLogs = append(s.db.errorLogs, entry)
	return nil
}

func (s logStore) InsertCleanup(_ context.Context, processed int, _ time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.cleanups = append(s.db.cleanups, processed)
	return nil
}

type published struct {
	subject string
	data    interface{}
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{subject: subject, data: data})
	return nil
}

func (p *fakePublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.subject
	}
	return out
}

type observationStore struct {
	mu  sync.Mutex
	obs []metrics.Observation
}

func (s *observationStore) InsertObservation(_ context.Context, obs metrics.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs = append(s.obs, obs)
	return nil
}

// count returns the summed value of observations called name.
func (s *observationStore) count(name string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, o := range s.obs {
		if o.Name == name {
			total += o.Value
		}
	}
	return total
}

func (s *observationStore) labels(name string) []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]string
	for _, o := range s.obs {
		if o.Name == name {
			out = append(out, o.Labels)
		}
	}
	return out
}

type harness struct {
	db        *memDB
	rt        Runtime
	publisher *fakePublisher
	metrics   *observationStore
	outbox    eventOutboxStore
}

func newHarness(t *testing.T, limits map[string]ratelimit.Limit) *harness {
	t.Helper()
	if limits == nil {
		limits = map[string]ratelimit.Limit{
			ratelimit.KindReservation: {TokensPerInterval: 10000, Interval: time.Second},
			ratelimit.KindEmail:       {TokensPerInterval: 10000, Interval: time.Second},
		}
	}
	db := newMemDB()
	obs := &observationStore{}
	recorder := metrics.NewRecorder("test", obs)
	pub := &fakePublisher{}

	return &harness{
		db:        db,
		publisher: pub,
		metrics:   obs,
		outbox:    eventOutboxStore{db: db},
		rt: Runtime{
			Cache:     cache.New(cache.NewMemoryBackend(100), recorder),
			Limiter:   ratelimit.NewRegistry(limits, recorder),
			Recorder:  recorder,
			Publisher: pub,
			Logs:      logStore{db: db},
			Retry: []retry.Option{
				retry.WithMaxAttempts(3),
				retry.WithSleep(func(context.Context, time.Duration) error { return nil }),
			},
			Now: func() time.Time { return testNow },
		},
	}
}

func asUser(id string) context.Context {
	return middleware.ContextWithCaller(context.Background(), middleware.Caller{UserID: id, Role: models.RoleUser})
}

func asAdmin(id string) context.Context {
	return middleware.ContextWithCaller(context.Background(), middleware.Caller{UserID: id, Role: models.RoleAdmin})
}

var errBoom = errors.New("boom")

package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ticketline/internal/models"
)

// ContractValidator - проверка работающего API на соответствие контракту
type ContractValidator struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewContractValidator создает валидатор. token is a bearer token for a regular user;
// without it the authenticated checks are skipped.
func NewContractValidator(baseURL, token string) *ContractValidator {
	return &ContractValidator{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ValidateAll проверяет все endpoints
func (v *ContractValidator) ValidateAll() error {
	slog.Info("Starting API contract validation", "url", v.baseURL)

	if err := v.validateHealth(); err != nil {
		return fmt.Errorf("health validation failed: %w", err)
	}

	events, err := v.validateEvents()
	if err != nil {
		return fmt.Errorf("events validation failed: %w", err)
	}

	if err := v.validateReservationErrors(); err != nil {
		return fmt.Errorf("reservation error validation failed: %w", err)
	}

	if v.token == "" {
		slog.Warn("No token given, skipping authenticated reservation checks")
	} else if err := v.validateReservationFlow(events); err != nil {
		return fmt.Errorf("reservation validation failed: %w", err)
	}

	slog.Info("All endpoints passed validation")
	return nil
}

func (v *ContractValidator) validateHealth() error {
	resp, err := v.makeRequest(http.MethodGet, "/health", nil, false)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /health: expected 200, got %d", resp.StatusCode)
	}
	return nil
}

func (v *ContractValidator) validateEvents() (models.ListEventsResponse, error) {
	var list models.ListEventsResponse
	if err := v.expectJSON(http.MethodGet, "/api/events?page=1&pageSize=20", nil, false, http.StatusOK, &list); err != nil {
		return nil, err
	}

	if err := v.expectError(http.MethodGet, "/api/events?page=0", nil, false, http.StatusBadRequest, "invalid-argument"); err != nil {
		return nil, err
	}

	if len(list) > 0 {
		var event models.EventResponse
		if err := v.expectJSON(http.MethodGet, "/api/events/"+list[0].ID, nil, false, http.StatusOK, &event); err != nil {
			return nil, err
		}
		if event.ID != list[0].ID {
			return nil, fmt.Errorf("GET /api/events/:id: expected id %s, got %s", list[0].ID, event.ID)
		}
	}

	slog.Info("Events endpoints are valid", "events", len(list))
	return list, nil
}

func (v *ContractValidator) validateReservationErrors() error {
	body := models.CreateReservationRequest{EventID: "any", Date: "2025-01-01"}
	if err := v.expectError(http.MethodPost, "/api/reservations", body, false, http.StatusUnauthorized, "permission-denied"); err != nil {
		return err
	}
	if v.token == "" {
		return nil
	}

	if err := v.expectError(http.MethodPost, "/api/reservations", models.CreateReservationRequest{EventID: "any"}, true, http.StatusBadRequest, "invalid-argument"); err != nil {
		return err
	}
	unknown := models.CreateReservationRequest{EventID: "does-not-exist", Date: "2025-01-01"}
	return v.expectError(http.MethodPost, "/api/reservations", unknown, true, http.StatusNotFound, "not-found")
}

func (v *ContractValidator) validateReservationFlow(events models.ListEventsResponse) error {
	var target *models.EventResponse
	for i := range events {
		if events[i].AvailableTickets > 0 {
			target = &events[i]
			break
		}
	}
	if target == nil {
		slog.Warn("No event with free tickets, skipping reservation flow")
		return nil
	}

	req := models.CreateReservationRequest{
		EventID: target.ID,
		Date:    target.StartsAt.Format(time.DateOnly),
		Hold:    true,
	}
	var created models.CreateReservationResponse
	if err := v.expectJSON(http.MethodPost, "/api/reservations", req, true, http.StatusCreated, &created); err != nil {
		return err
	}
	if !created.Success || created.ReservationID == "" {
		return fmt.Errorf("POST /api/reservations: expected success with reservationId, got %+v", created)
	}

	var res models.ReservationResponse
	path := "/api/reservations/" + created.ReservationID
	if err := v.expectJSON(http.MethodGet, path, nil, true, http.StatusOK, &res); err != nil {
		return err
	}
	if res.Status != models.ReservationPending {
		return fmt.Errorf("GET %s: expected pending, got %s", path, res.Status)
	}

	if err := v.expectJSON(http.MethodPatch, path+"/cancel", nil, true, http.StatusOK, &res); err != nil {
		return err
	}
	if res.Status != models.ReservationCancelled {
		return fmt.Errorf("PATCH %s/cancel: expected cancelled, got %s", path, res.Status)
	}

	var mine models.ListReservationsResponse
	if err := v.expectJSON(http.MethodGet, "/api/reservations", nil, true, http.StatusOK, &mine); err != nil {
		return err
	}
	if len(mine) == 0 {
		return fmt.Errorf("GET /api/reservations: expected non-empty list")
	}

	slog.Info("Reservation endpoints are valid", "reservation_id", created.ReservationID)
	return nil
}

func (v *ContractValidator) expectJSON(method, path string, body interface{}, auth bool, status int, out interface{}) error {
	resp, err := v.makeRequest(method, path, body, auth)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != status {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: expected %d, got %d: %s", method, path, status, resp.StatusCode, raw)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

func (v *ContractValidator) expectError(method, path string, body interface{}, auth bool, status int, code string) error {
	var errResp models.ErrorResponse
	if err := v.expectJSON(method, path, body, auth, status, &errResp); err != nil {
		return err
	}
	if errResp.Code != code {
		return fmt.Errorf("%s %s: expected code %s, got %s", method, path, code, errResp.Code)
	}
	if errResp.Message == "" {
		return fmt.Errorf("%s %s: error without message", method, path)
	}
	return nil
}

func (v *ContractValidator) makeRequest(method, path string, body interface{}, auth bool) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, v.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && v.token != "" {
		req.Header.Set("Authorization", "Bearer "+v.token)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

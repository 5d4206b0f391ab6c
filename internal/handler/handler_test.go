package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Facelessism/Pixel-Phantoms/internal/catalog"
	"github.com/Facelessism/Pixel-Phantoms/internal/model"
	"github.com/Facelessism/Pixel-Phantoms/internal/notify"
	"github.com/Facelessism/Pixel-Phantoms/internal/repository"
	"github.com/Facelessism/Pixel-Phantoms/internal/service"
)

// stubStore scripts the transactional store so handler tests can exercise
// every error mapping without a database.
type stubStore struct {
	txErr  error
	events []model.Event
	event  *model.Event
	regs   []model.Registration
}

func (s *stubStore) WithinTx(ctx context.Context, fn func(repository.TxStore) error) error {
	if s.txErr != nil {
		return s.txErr
	}
	return fn(stubTx{})
}

func (s *stubStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events, nil
}

func (s *stubStore) GetEventByTitle(ctx context.Context, title string) (*model.Event, error) {
	if s.event == nil || s.event.Title != title {
		return nil, repository.ErrNotFound
	}
	return s.event, nil
}

func (s *stubStore) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	return s.regs, nil
}

type stubTx struct{}

func (stubTx) FindOrCreateUser(ctx context.Context, email string, defaults repository.UserDefaults) (*model.User, error) {
	return &model.User{ID: "u1", Email: email, FirstName: defaults.FirstName, LastName: defaults.LastName}, nil
}

func (stubTx) GetEventForUpdate(ctx context.Context, title string) (*model.Event, error) {
	return nil, repository.ErrNotFound
}

func (stubTx) CreateEvent(ctx context.Context, title string, date time.Time, location string, capacity int, open bool) (*model.Event, error) {
	return &model.Event{ID: "e1", Title: title, Date: date, Location: location, Capacity: capacity, RegistrationOpen: open}, nil
}

func (stubTx) UpdateEventMetadata(ctx context.Context, event *model.Event, date time.Time, location string) error {
	return nil
}

func (stubTx) ReserveSeat(ctx context.Context, event *model.Event) error {
	event.RegisteredCount++
	return nil
}

func (stubTx) CreateRegistration(ctx context.Context, userID, eventID string) (*model.Registration, error) {
	return &model.Registration{ID: "r1", UserID: userID, EventID: eventID}, nil
}

type fakeCatalog map[string]catalog.Entry

func (c fakeCatalog) Lookup(title string) (catalog.Entry, bool) {
	e, ok := c[title]
	return e, ok
}

const gameJam = "Game Jam 2026"

func testCatalog() fakeCatalog {
	return fakeCatalog{
		gameJam:      catalog.Entry{Title: gameJam, CountdownDate: "2026-10-01T18:00:00Z", Capacity: 50},
		"TBD Meetup": catalog.Entry{Title: "TBD Meetup", CountdownDate: "TBD"},
	}
}

func newTestRouter(store service.Store, cat service.Catalog) http.Handler {
	svc := service.NewRegistrationService(store, cat, notify.LogNotifier{})
	h := NewRegistrationHandler(svc)

	r := chi.NewRouter()
	r.Get("/health", HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Get("/events", h.ListEvents)
		r.Get("/events/{title}", h.GetEvent)
		r.Get("/events/{title}/registrations", h.ListRegistrations)
		r.Post("/register", h.Register)
	})
	return r
}

func postRegister(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validBody(title string) string {
	return `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","age":30,"eventTitle":"` + title + `"}`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestRegisterSuccess(t *testing.T) {
	router := newTestRouter(&stubStore{}, testCatalog())

	rec := postRegister(t, router, validBody(gameJam))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp model.RegisterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Status != "success" || resp.Data.RegistrationID != "r1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestRegisterValidation(t *testing.T) {
	router := newTestRouter(&stubStore{}, testCatalog())

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing first name", `{"firstName":"","lastName":"Lovelace","email":"ada@example.com","age":30,"eventTitle":"X"}`, "FirstName"},
		{"one-letter first name", `{"firstName":"A","lastName":"Lovelace","email":"ada@example.com","age":30,"eventTitle":"X"}`, "FirstName"},
		{"digits in last name", `{"firstName":"Ada","lastName":"L0velace","email":"ada@example.com","age":30,"eventTitle":"X"}`, "LastName"},
		{"bad email", `{"firstName":"Ada","lastName":"Lovelace","email":"not-an-email","age":30,"eventTitle":"X"}`, "Email"},
		{"under age", `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","age":17,"eventTitle":"X"}`, "Age"},
		{"over age", `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","age":101,"eventTitle":"X"}`, "Age"},
		{"missing title", `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","age":30,"eventTitle":""}`, "EventTitle"},
		{"oversized title", `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","age":30,"eventTitle":"` + strings.Repeat("x", 101) + `"}`, "EventTitle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postRegister(t, router, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
			}
			resp := decodeError(t, rec)
			if resp.Code != "VALIDATION" {
				t.Errorf("code = %q", resp.Code)
			}
			if _, ok := resp.Errors[tt.wantField]; !ok {
				t.Errorf("errors missing %s: %v", tt.wantField, resp.Errors)
			}
		})
	}
}

func TestRegisterAcceptsValidPunctuatedNames(t *testing.T) {
	router := newTestRouter(&stubStore{}, testCatalog())

	body := `{"firstName":"O'Saki","lastName":"Van-Helsing","email":"osaki@example.com","age":30,"eventTitle":"` + gameJam + `"}`
	rec := postRegister(t, router, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestRegisterMalformedBody(t *testing.T) {
	router := newTestRouter(&stubStore{}, testCatalog())

	for _, body := range []string{`{`, `{"unknownField":1}`} {
		rec := postRegister(t, router, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, rec.Code)
		}
	}
}

func TestRegisterErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		txErr      error
		wantStatus int
		wantCode   string
	}{
		{"unknown title", "Not A Real Event", nil, http.StatusBadRequest, "INVALID_EVENT"},
		{"unparsable catalog date", "TBD Meetup", nil, http.StatusBadRequest, "INVALID_EVENT_DATE"},
		{"event full", gameJam, repository.ErrEventFull, http.StatusConflict, "EVENT_FULL"},
		{"registration closed", gameJam, repository.ErrRegistrationClosed, http.StatusConflict, "REGISTRATION_CLOSED"},
		{"already registered", gameJam, repository.ErrAlreadyRegistered, http.StatusConflict, "ALREADY_REGISTERED"},
		{"transient failure", gameJam, repository.ErrTransient, http.StatusServiceUnavailable, "RETRY_LATER"},
		{"unexpected failure", gameJam, errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubStore{txErr: tt.txErr}, testCatalog())
			rec := postRegister(t, router, validBody(tt.title))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if resp := decodeError(t, rec); resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestListEventsReturnsEmptyArray(t *testing.T) {
	router := newTestRouter(&stubStore{}, testCatalog())

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestGetEvent(t *testing.T) {
	store := &stubStore{event: &model.Event{ID: "e1", Title: gameJam, Capacity: 50}}
	router := newTestRouter(store, testCatalog())

	req := httptest.NewRequest(http.MethodGet, "/api/events/Game%20Jam%202026", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var e model.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if e.ID != "e1" {
		t.Errorf("event = %+v", e)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/events/Unknown", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListRegistrationsUnknownEvent(t *testing.T) {
	router := newTestRouter(&stubStore{}, testCatalog())

	req := httptest.NewRequest(http.MethodGet, "/api/events/Unknown/registrations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&stubStore{}, testCatalog())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

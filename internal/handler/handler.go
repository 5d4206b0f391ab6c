// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Facelessism/Pixel-Phantoms/internal/model"
	"github.com/Facelessism/Pixel-Phantoms/internal/repository"
	"github.com/Facelessism/Pixel-Phantoms/internal/service"
)

// personNameRe allows letters, apostrophes, hyphens, and spaces, so names
// like O'Saki or Van-Helsing validate.
var personNameRe = regexp.MustCompile(`^[\p{L}][\p{L}' -]*$`)

// RegistrationHandler holds all HTTP handlers for the registration API.
type RegistrationHandler struct {
	svc      *service.RegistrationService
	validate *validator.Validate
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Error is only possible for an empty tag name.
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNameRe.MatchString(fl.Field().String())
	})
	return &RegistrationHandler{svc: svc, validate: v}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Status: "error", Code: code, Message: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// fieldMessages maps validator failures to the user-facing, per-field
// messages the registration form shows.
var fieldMessages = map[string]string{
	"FirstName":  "First name must be 2-30 characters and contain only valid characters.",
	"LastName":   "Last name must be 2-30 characters and contain only valid characters.",
	"Email":      "Please enter a valid email address.",
	"Age":        "Age must be between 18 and 100.",
	"EventTitle": "Event title is required and cannot exceed 100 characters.",
}

func validationErrors(err error) map[string]string {
	out := make(map[string]string)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		out["request"] = "Invalid input."
		return out
	}
	for _, fe := range ve {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = "Invalid value."
		}
		out[fe.Field()] = msg
	}
	return out
}

func titleParam(r *http.Request) string {
	raw := chi.URLParam(r, "title")
	if title, err := url.PathUnescape(raw); err == nil {
		return title
	}
	return raw
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// Register handles POST /api/register
// Runs the concurrency-safe registration workflow for the requested event.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.EventTitle = strings.TrimSpace(req.EventTitle)

	// Rejected inputs never reach the workflow, so no transaction opens.
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Status:  "error",
			Code:    "VALIDATION",
			Message: "Validation failed.",
			Errors:  validationErrors(err),
		})
		return
	}

	reg, err := h.svc.Register(r.Context(), service.RegisterInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Age:        req.Age,
		EventTitle: req.EventTitle,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEvent):
			writeError(w, http.StatusBadRequest, "INVALID_EVENT", "Invalid event selected.")
		case errors.Is(err, service.ErrInvalidEventDate):
			writeError(w, http.StatusBadRequest, "INVALID_EVENT_DATE", "Event date is invalid.")
		case errors.Is(err, repository.ErrEventFull):
			writeError(w, http.StatusConflict, "EVENT_FULL", "Event is at full capacity.")
		case errors.Is(err, repository.ErrRegistrationClosed):
			writeError(w, http.StatusConflict, "REGISTRATION_CLOSED", "Registration for this event is closed.")
		case errors.Is(err, repository.ErrAlreadyRegistered):
			writeError(w, http.StatusConflict, "ALREADY_REGISTERED", "You are already registered for this event.")
		case errors.Is(err, repository.ErrTransient):
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "RETRY_LATER", "Please try again.")
		default:
			log.Printf("register: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Registration failed.")
		}
		return
	}

	writeJSON(w, http.StatusCreated, model.RegisterResponse{
		Status:  "success",
		Message: "Successfully registered for " + req.EventTitle,
		Data:    model.RegisterData{RegistrationID: reg.ID},
	})
}

// ListEvents handles GET /api/events
// Returns a JSON array of all persisted events.
func (h *RegistrationHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		log.Printf("list events: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to list events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{title}
// Returns a single persisted event by its title.
func (h *RegistrationHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), titleParam(r))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "event not found")
			return
		}
		log.Printf("get event: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// ListRegistrations handles GET /api/events/{title}/registrations
// Returns all registrations for a given event.
func (h *RegistrationHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListRegistrations(r.Context(), titleParam(r))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "event not found")
			return
		}
		log.Printf("list registrations: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to list registrations")
		return
	}

	if regs == nil {
		regs = []model.Registration{}
	}

	writeJSON(w, http.StatusOK, regs)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Package service implements the registration workflow: the single-transaction
// orchestration of user upsert, event locking, capacity enforcement, and
// registration recording, followed by a best-effort confirmation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Facelessism/Pixel-Phantoms/internal/catalog"
	"github.com/Facelessism/Pixel-Phantoms/internal/model"
	"github.com/Facelessism/Pixel-Phantoms/internal/notify"
	"github.com/Facelessism/Pixel-Phantoms/internal/repository"
)

// ErrInvalidEvent is returned when the requested title is not in the catalog.
var ErrInvalidEvent = errors.New("invalid event selected")

// ErrInvalidEventDate is returned when the catalog entry's date does not parse.
var ErrInvalidEventDate = errors.New("event date is invalid")

// notifyTimeout bounds the post-commit confirmation attempt.
const notifyTimeout = 30 * time.Second

// Store is the transactional boundary the workflow runs against.
type Store interface {
	WithinTx(ctx context.Context, fn func(repository.TxStore) error) error
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEventByTitle(ctx context.Context, title string) (*model.Event, error)
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

// Catalog is the read-only event catalog keyed by title.
type Catalog interface {
	Lookup(title string) (catalog.Entry, bool)
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	FirstName  string
	LastName   string
	Email      string
	Age        int
	EventTitle string
}

// RegistrationService orchestrates event registrations.
type RegistrationService struct {
	store    Store
	catalog  Catalog
	notifier notify.Notifier
}

// NewRegistrationService constructs a RegistrationService with its dependencies.
func NewRegistrationService(store Store, cat Catalog, notifier notify.Notifier) *RegistrationService {
	return &RegistrationService{store: store, catalog: cat, notifier: notifier}
}

// Register runs the registration workflow for a validated input.
//
// The catalog is consulted before anything else: an unknown title or an
// unparsable catalog date aborts before any write, so an invalid event never
// creates a user row. Everything from the user upsert to the registration
// insert then runs in one transaction; the registered-count increment and
// the registration row become visible together or not at all.
//
// Domain failures surface as repository.ErrEventFull,
// repository.ErrRegistrationClosed, repository.ErrAlreadyRegistered,
// ErrInvalidEvent, or ErrInvalidEventDate. repository.ErrTransient marks a
// safely retryable attempt.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*model.Registration, error) {
	entry, ok := s.catalog.Lookup(in.EventTitle)
	if !ok {
		return nil, ErrInvalidEvent
	}
	date, err := entry.ParseDate()
	if err != nil {
		return nil, ErrInvalidEventDate
	}

	var (
		user  *model.User
		event *model.Event
		reg   *model.Registration
	)
	err = s.store.WithinTx(ctx, func(tx repository.TxStore) error {
		var txErr error

		user, txErr = tx.FindOrCreateUser(ctx, in.Email, repository.UserDefaults{
			FirstName:   in.FirstName,
			LastName:    in.LastName,
			DateOfBirth: model.DateOfBirthForAge(in.Age, time.Now().UTC()),
		})
		if txErr != nil {
			return txErr
		}

		event, txErr = tx.GetEventForUpdate(ctx, in.EventTitle)
		switch {
		case errors.Is(txErr, repository.ErrNotFound):
			// First registration for this title: materialize the event from
			// the catalog.
			event, txErr = tx.CreateEvent(ctx, entry.Title, date, entry.Location, entry.EffectiveCapacity(), entry.Open())
			if txErr != nil {
				return txErr
			}
		case txErr != nil:
			return txErr
		default:
			// Keep the persisted row in sync with the catalog.
			if txErr = tx.UpdateEventMetadata(ctx, event, date, entry.Location); txErr != nil {
				return txErr
			}
		}

		if txErr = tx.ReserveSeat(ctx, event); txErr != nil {
			return txErr
		}

		reg, txErr = tx.CreateRegistration(ctx, user.ID, event.ID)
		return txErr
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("register for event: %w", err)
	}

	// Post-commit, fire and forget: the registration is durable regardless
	// of what happens to the confirmation.
	go s.dispatchConfirmation(user, event)

	return reg, nil
}

func (s *RegistrationService) dispatchConfirmation(user *model.User, event *model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(ctx, user, event); err != nil {
		log.Printf("confirmation for %s failed: %v", user.Email, err)
	}
}

// ListEvents returns all persisted events.
func (s *RegistrationService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.store.ListEvents(ctx)
}

// GetEvent returns a single persisted event by title.
func (s *RegistrationService) GetEvent(ctx context.Context, title string) (*model.Event, error) {
	if title == "" {
		return nil, repository.ErrNotFound
	}
	return s.store.GetEventByTitle(ctx, title)
}

// ListRegistrations returns all registrations for the event with this title.
func (s *RegistrationService) ListRegistrations(ctx context.Context, title string) ([]model.Registration, error) {
	event, err := s.store.GetEventByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	return s.store.ListRegistrationsByEvent(ctx, event.ID)
}

func isDomainErr(err error) bool {
	return errors.Is(err, repository.ErrEventFull) ||
		errors.Is(err, repository.ErrRegistrationClosed) ||
		errors.Is(err, repository.ErrAlreadyRegistered) ||
		errors.Is(err, repository.ErrTransient) ||
		errors.Is(err, repository.ErrNotFound)
}

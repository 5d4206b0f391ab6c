package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Facelessism/Pixel-Phantoms/internal/model"
)

// txStore implements TxStore over a live pgx transaction.
type txStore struct {
	tx pgx.Tx
}

// FindOrCreateUser looks the user up by email and creates it when absent.
//
// The insert uses ON CONFLICT DO NOTHING so that two transactions racing to
// create the same email both succeed: the loser's insert is a no-op and the
// final re-read returns the winner's row. A duplicate email is "the row
// already exists", never a fatal error.
func (t *txStore) FindOrCreateUser(ctx context.Context, email string, defaults UserDefaults) (*model.User, error) {
	u, err := t.getUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	_, err = t.tx.Exec(ctx,
		`INSERT INTO users (id, first_name, last_name, email, date_of_birth, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO NOTHING`,
		uuid.New().String(), defaults.FirstName, defaults.LastName, email, defaults.DateOfBirth, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return t.getUserByEmail(ctx, email)
}

func (t *txStore) getUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := t.tx.QueryRow(ctx,
		`SELECT id, first_name, last_name, email, date_of_birth, created_at
		 FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.DateOfBirth, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetEventForUpdate acquires an exclusive row-level lock on the event.
//
// SELECT ... FOR UPDATE blocks any concurrent transaction from locking the
// same row until we COMMIT or ROLLBACK. This is pessimistic locking: without
// it, two transactions could both read registered_count = capacity-1 and
// both increment, overbooking the event. With the lock, the second reader
// serializes behind the first's commit and re-reads the updated count.
func (t *txStore) GetEventForUpdate(ctx context.Context, title string) (*model.Event, error) {
	return scanEvent(t.tx.QueryRow(ctx,
		`SELECT id, title, date, location, capacity, registered_count, registration_open, created_at
		 FROM events
		 WHERE title = $1
		 FOR UPDATE`,
		title,
	))
}

// CreateEvent inserts a new event sourced from the catalog.
func (t *txStore) CreateEvent(ctx context.Context, title string, date time.Time, location string, capacity int, open bool) (*model.Event, error) {
	event := &model.Event{
		ID:               uuid.New().String(),
		Title:            title,
		Date:             date,
		Location:         location,
		Capacity:         capacity,
		RegisteredCount:  0,
		RegistrationOpen: open,
		CreatedAt:        time.Now().UTC(),
	}

	_, err := t.tx.Exec(ctx,
		`INSERT INTO events (id, title, date, location, capacity, registered_count, registration_open, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.Title, event.Date, event.Location, event.Capacity, event.RegisteredCount, event.RegistrationOpen, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// UpdateEventMetadata refreshes date and location from the catalog. The
// capacity counter is untouched; only ReserveSeat may move it.
func (t *txStore) UpdateEventMetadata(ctx context.Context, event *model.Event, date time.Time, location string) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE events SET date = $1, location = $2 WHERE id = $3`,
		date, location, event.ID,
	)
	if err != nil {
		return fmt.Errorf("update event metadata: %w", err)
	}
	event.Date = date
	event.Location = location
	return nil
}

// ReserveSeat is the capacity guard. The caller must already hold the row
// lock from GetEventForUpdate (or have created the row in this transaction),
// so the check and the increment are indivisible with respect to other
// writers.
func (t *txStore) ReserveSeat(ctx context.Context, event *model.Event) error {
	if !event.RegistrationOpen {
		return ErrRegistrationClosed
	}
	if event.IsFull() {
		return ErrEventFull
	}

	_, err := t.tx.Exec(ctx,
		`UPDATE events SET registered_count = registered_count + 1 WHERE id = $1`,
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("increment registered_count: %w", err)
	}
	event.RegisteredCount++
	return nil
}

// CreateRegistration records the durable evidence of a reserved seat. The
// unique (user_id, event_id) index turns a duplicate submission into
// ErrAlreadyRegistered; the caller's rollback then releases the seat taken
// by ReserveSeat.
func (t *txStore) CreateRegistration(ctx context.Context, userID, eventID string) (*model.Registration, error) {
	reg := &model.Registration{
		ID:        uuid.New().String(),
		UserID:    userID,
		EventID:   eventID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := t.tx.Exec(ctx,
		`INSERT INTO registrations (id, user_id, event_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		reg.ID, reg.UserID, reg.EventID, reg.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	return reg, nil
}

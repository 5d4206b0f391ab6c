// Package repository implements all database queries for the registration
// service. It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Facelessism/Pixel-Phantoms/internal/model"
)

// UserDefaults are the fields applied when FindOrCreateUser has to create
// the user. They are ignored when the user already exists.
type UserDefaults struct {
	FirstName   string
	LastName    string
	DateOfBirth time.Time
}

// TxStore is the set of operations available inside a registration
// transaction. Every method runs against the same database transaction, so
// the effects either all commit or all roll back.
type TxStore interface {
	// FindOrCreateUser upserts a user keyed by email. Defaults apply only on
	// creation; a concurrent insert of the same email resolves to a re-read.
	FindOrCreateUser(ctx context.Context, email string, defaults UserDefaults) (*model.User, error)

	// GetEventForUpdate loads the event row under an exclusive row lock.
	// Concurrent transactions targeting the same event block here until the
	// holder commits or rolls back. Returns ErrNotFound when absent.
	GetEventForUpdate(ctx context.Context, title string) (*model.Event, error)

	// CreateEvent inserts a new event with a zero registered count.
	CreateEvent(ctx context.Context, title string, date time.Time, location string, capacity int, open bool) (*model.Event, error)

	// UpdateEventMetadata refreshes the mutable catalog-sourced fields.
	UpdateEventMetadata(ctx context.Context, event *model.Event, date time.Time, location string) error

	// ReserveSeat is the capacity guard: with the row lock already held, it
	// verifies the event is open and has room, then increments the count.
	ReserveSeat(ctx context.Context, event *model.Event) error

	// CreateRegistration inserts the registration row. A duplicate
	// (user, event) pair returns ErrAlreadyRegistered.
	CreateRegistration(ctx context.Context, userID, eventID string) (*model.Registration, error)
}

// Store is the pgx-backed entity store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithinTx runs fn inside a single database transaction. The transaction
// commits only when fn returns nil; any error rolls everything back, which
// also un-reserves a seat taken by ReserveSeat earlier in the same fn.
// Lock and serialization failures are wrapped in ErrTransient.
func (s *Store) WithinTx(ctx context.Context, fn func(TxStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txStore{tx: tx}); err != nil {
		if isTransient(err) {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isTransient(err) {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListEvents returns all persisted events ordered by date.
func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, date, location, capacity, registered_count, registration_open, created_at
		 FROM events
		 ORDER BY date ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Date, &e.Location, &e.Capacity, &e.RegisteredCount, &e.RegistrationOpen, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetEventByTitle returns a single event without locking it, or ErrNotFound.
func (s *Store) GetEventByTitle(ctx context.Context, title string) (*model.Event, error) {
	return scanEvent(s.pool.QueryRow(ctx,
		`SELECT id, title, date, location, capacity, registered_count, registration_open, created_at
		 FROM events WHERE title = $1`,
		title,
	))
}

// ListRegistrationsByEvent returns all registrations for a given event.
func (s *Store) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, event_id, created_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

type row interface {
	Scan(dest ...any) error
}

func scanEvent(r row) (*model.Event, error) {
	var e model.Event
	err := r.Scan(&e.ID, &e.Title, &e.Date, &e.Location, &e.Capacity, &e.RegisteredCount, &e.RegistrationOpen, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &e, nil
}

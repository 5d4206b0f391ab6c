package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is at full capacity")

// ErrRegistrationClosed is returned when an event no longer accepts signups.
var ErrRegistrationClosed = errors.New("registration is closed")

// ErrAlreadyRegistered is returned when a user registers twice for the same event.
var ErrAlreadyRegistered = errors.New("already registered for this event")

// ErrTransient marks failures the caller may safely retry: lock timeouts,
// serialization failures, deadlocks. No partial state persists.
var ErrTransient = errors.New("transient storage failure")

// Postgres SQLSTATE codes this package reacts to.
const (
	codeUniqueViolation   = "23505"
	codeSerializationFail = "40001"
	codeDeadlockDetected  = "40P01"
	codeLockNotAvailable  = "55P03"
	codeQueryCanceled     = "57014" // statement_timeout expiry
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFail, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled:
		return true
	}
	return false
}

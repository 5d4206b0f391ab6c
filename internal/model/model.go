// Package model defines the core domain types for the event registration system.
package model

import "time"

// User represents a community member identified by email.
type User struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	DateOfBirth time.Time `json:"date_of_birth"`
	CreatedAt   time.Time `json:"created_at"`
}

// Age returns the user's age in full years at the given instant.
// It is derived from DateOfBirth and never stored.
func (u *User) Age(now time.Time) int {
	age := now.Year() - u.DateOfBirth.Year()
	anniversary := time.Date(now.Year(), u.DateOfBirth.Month(), u.DateOfBirth.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(anniversary) {
		age--
	}
	return age
}

// DateOfBirthForAge derives a date of birth from an age in full years.
// The inbound registration payload carries an age, while the stored user
// record keeps a birth date; this is the inverse of Age for "today".
func DateOfBirthForAge(age int, now time.Time) time.Time {
	dob := now.AddDate(-age, 0, 0)
	return time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
}

// Event represents a community event that members can register for.
// RegisteredCount only ever changes through the capacity guard, which holds
// an exclusive row lock across the check and the increment.
type Event struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Date             time.Time `json:"date"`
	Location         string    `json:"location"`
	Capacity         int       `json:"capacity"`
	RegisteredCount  int       `json:"registered_count"`
	RegistrationOpen bool      `json:"registration_open"`
	CreatedAt        time.Time `json:"created_at"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.RegisteredCount
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.RegisteredCount >= e.Capacity
}

// Registration represents a user's registration for an event.
// The (UserID, EventID) pair is unique: a user registers for a given event
// at most once.
type Registration struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	FirstName  string `json:"firstName" validate:"required,min=2,max=30,personname"`
	LastName   string `json:"lastName" validate:"required,min=2,max=30,personname"`
	Email      string `json:"email" validate:"required,email"`
	Age        int    `json:"age" validate:"required,gte=18,lte=100"`
	EventTitle string `json:"eventTitle" validate:"required,max=100"`
}

// RegisterResponse is the success envelope for a registration.
type RegisterResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Data    RegisterData `json:"data"`
}

// RegisterData carries the identifier of the committed registration.
type RegisterData struct {
	RegistrationID string `json:"registrationId"`
}

// ErrorResponse is a standard JSON error envelope. Code is a stable
// machine-readable discriminator; Errors carries field-level validation
// messages when present.
type ErrorResponse struct {
	Status  string            `json:"status"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

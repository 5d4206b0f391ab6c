// Package catalog provides read-only access to the community event catalog.
//
// The catalog is a JSON file (data/events.json) produced out-of-band by a
// synchronization job; this service only reads it. Entries are keyed by
// title, which is also the uniqueness key for persisted events.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// DefaultCapacity is applied when a catalog entry does not declare a
// positive capacity of its own.
const DefaultCapacity = 100

// ErrInvalidDate is returned when an entry's countdown date is missing or
// does not parse.
var ErrInvalidDate = errors.New("catalog entry has an invalid date")

// Entry is a single event in the catalog.
type Entry struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	CountdownDate    string `json:"countdownDate"`
	Location         string `json:"location"`
	Capacity         int    `json:"capacity"`
	RegistrationOpen *bool  `json:"registrationOpen"`
	Status           string `json:"status"`
}

// ParseDate parses the entry's countdown date. The sync job writes RFC 3339
// timestamps; anything else is a validation failure at registration time.
func (e Entry) ParseDate() (time.Time, error) {
	if e.CountdownDate == "" {
		return time.Time{}, ErrInvalidDate
	}
	t, err := time.Parse(time.RFC3339, e.CountdownDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return t, nil
}

// EffectiveCapacity returns the entry's capacity, or DefaultCapacity when
// the catalog omits it.
func (e Entry) EffectiveCapacity() int {
	if e.Capacity > 0 {
		return e.Capacity
	}
	return DefaultCapacity
}

// Open reports whether the entry accepts registrations. Entries that do not
// carry the field default to open.
func (e Entry) Open() bool {
	return e.RegistrationOpen == nil || *e.RegistrationOpen
}

// Catalog is an in-memory index of entries by title. It is safe for
// concurrent reads and can be reloaded in place when the underlying file
// changes.
type Catalog struct {
	path string

	mu      sync.RWMutex
	byTitle map[string]Entry
}

// Load reads the catalog file at path and builds the title index.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the catalog file. On error the previous index is kept.
func (c *Catalog) Reload() error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}

	byTitle := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if e.Title == "" {
			continue
		}
		byTitle[e.Title] = e
	}

	c.mu.Lock()
	c.byTitle = byTitle
	c.mu.Unlock()
	return nil
}

// Lookup returns the entry with the given title, if present.
func (c *Catalog) Lookup(title string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byTitle[title]
	return e, ok
}

// Len returns the number of indexed entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byTitle)
}

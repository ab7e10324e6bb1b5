// Package repository is the document store adapter.  Each collection has a
// MySQL-backed repo and an in-memory twin with the same semantics.
//
// The sentinel errors below are the only failure kinds callers need to
// distinguish.  Driver errors are wrapped with ErrUnavailable so handlers
// can map them without knowing which backend produced them.
package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the referenced record does not exist.
// Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrInvalidID is returned for identifiers that cannot be a store identity.
// Handlers translate this into an HTTP 400 response.
var ErrInvalidID = errors.New("invalid id")

// ErrUnavailable wraps any failure talking to the backing store.
var ErrUnavailable = errors.New("store unavailable")

// ListLimit caps every list query.
const ListLimit = 100

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// ParseID validates a store identity and returns its canonical form.
func ParseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return u.String(), nil
}

func newID() string { return uuid.NewString() }

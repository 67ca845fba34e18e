// Package id generates identifiers for receipts, seasons and every other
// persisted entity. Identifiers are UUIDv7: the leading 48 bits carry the
// creation timestamp, so receipt ids sort in weighing order and index well
// in PostgreSQL without a separate created_at key.
package id

import (
	"github.com/google/uuid"
)

// ID is the identifier type used by all entities.
type ID = uuid.UUID

// New generates a time-ordered UUIDv7 per RFC 9562.
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Random fallback; NewV7 only fails when entropy is unavailable.
		return uuid.New()
	}
	return id
}

// Parse converts a string to an ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts a string to an ID, panicking on error.
// For fixtures and tests only.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns the zero-value ID.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether the ID is the zero value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}

package util

import (
	"github.com/google/uuid"
)

// IsValidID reports whether s is a canonical (hyphenated, 36 character)
// UUID, the native identifier shape of the review store.
func IsValidID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

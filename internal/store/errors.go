package store

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested resource does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint,
// e.g. creating a user whose username is already taken.
var ErrDuplicate = errors.New("already exists")

// isDuplicate reports whether err is a uniqueness violation from either
// backend (SQLite and PostgreSQL word it differently).
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

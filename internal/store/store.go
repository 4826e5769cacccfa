// Package store holds the persistence contracts shared by the Postgres and
// SQLite backends.
package store

import (
	"errors"

	"meeting-scheduler/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrRejected is returned by InsertBooking when the guard refused the
	// booking or a uniqueness constraint caught a concurrent duplicate.
	ErrRejected = errors.New("booking rejected")
	// ErrDuplicate reports a unique key collision (username, slug).
	ErrDuplicate = errors.New("duplicate")
)

// Guard inspects the bookings that already exist on the new booking's date
// and reports whether the new booking may be inserted. Backends run it and
// the insert under a lock scoped to organizer and date.
type Guard func(existing []model.Booking) bool

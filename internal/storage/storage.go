// Package storage defines the persistence contracts for sensor readings and
// user accounts. Implementations must be safe for concurrent use: the ingest
// subscriber appends while API handlers read.
package storage

import (
	"context"
	"errors"

	"garden-monitor/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("storage: not found")
	// ErrUnknownUser is returned by Append when the reading references a
	// user that does not exist.
	ErrUnknownUser = errors.New("storage: unknown user")
	// ErrDuplicateEmail is returned by CreateUser on an already registered
	// email.
	ErrDuplicateEmail = errors.New("storage: email already registered")
)

// SensorStore persists readings append-only. Readings are never updated or
// deleted.
type SensorStore interface {
	// Append durably persists one reading and returns the assigned log id.
	// RecordedAt is assigned at write time when the caller leaves it zero.
	Append(ctx context.Context, r model.SensorReading) (int64, error)

	// Latest returns the most recent reading for a user, ordered by
	// RecordedAt with ties broken by LogID descending. ErrNotFound when the
	// user has no readings.
	Latest(ctx context.Context, userID int64) (model.SensorReading, error)

	// Recent returns up to limit most recent readings for a user in
	// ascending time order (oldest first), ready for chart consumption.
	// An empty slice, not an error, when the user has no readings.
	Recent(ctx context.Context, userID int64, limit int) ([]model.SensorReading, error)
}

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser stores a new account and returns it with the assigned id.
	CreateUser(ctx context.Context, u model.User) (model.User, error)

	// UserByEmail returns the account for an email, or ErrNotFound.
	UserByEmail(ctx context.Context, email string) (model.User, error)
}

// Store is the full persistence surface the server is wired with.
type Store interface {
	SensorStore
	UserStore
}

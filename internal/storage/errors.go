package storage

import "errors"

// Errors shared by every store implementation. Recorded data is immutable:
// stores only ever append, so a key collision is a hard error, never an
// upsert.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned on insert of an already-stored record.
	// Sessions, events and bouts carry deterministic IDs, so a collision
	// means the same data was ingested before.
	ErrDuplicateKey = errors.New("duplicate key: record already stored")

	// ErrInvalidInput is returned when a record fails validation before
	// reaching the database.
	ErrInvalidInput = errors.New("invalid input")
)

package repository

import "errors"

// Failure taxonomy shared by every storage backend. Absence of a record is
// never an error: lookups return (nil, nil) and deletes report a boolean.
var (
	// ErrPersistence indicates a write or commit failed. The enclosing
	// transaction has already been rolled back when this is returned.
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidArgument indicates a bad pagination or query parameter,
	// detected before any storage work.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAmbiguousResult indicates a lookup on a by-convention-unique field
	// matched more than one record. This is a data consistency violation, not
	// a reason to silently pick one.
	ErrAmbiguousResult = errors.New("ambiguous result")

	// ErrNotPersisted indicates an update or delete targeted an identity
	// unknown to storage.
	ErrNotPersisted = errors.New("record not persisted")

	// ErrDuplicateCode indicates a certificate code collided with an existing
	// one.
	ErrDuplicateCode = errors.New("duplicate certificate code")
)

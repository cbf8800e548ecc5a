package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrNoParticipants = errors.New("no participants in session")
	ErrSessionFull    = errors.New("session is full")
	ErrInvalidInput   = errors.New("invalid input")

	// ErrSchemaMismatch is returned by a RecordStore when a write names a
	// column the table does not (yet) have.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

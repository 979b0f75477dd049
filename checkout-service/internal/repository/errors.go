package repository

import "errors"

var (
	ErrIdempotencyKeyNotFound  = errors.New("idempotency key not found")
	ErrSessionNotFound         = errors.New("checkout session not found")
	ErrDuplicateIdempotencyKey = errors.New("checkout session with this idempotency key already exists")
	// ErrStatusConflict means the session was not in a status the update allows.
	ErrStatusConflict = errors.New("checkout session status changed concurrently")
)

package apperr

import "errors"

// Sentinel errors services wrap with fmt.Errorf("...: %w", ...) so handlers
// can map them to HTTP statuses with errors.Is. Dependency failures (push,
// email) are deliberately absent: those are logged and swallowed, never
// returned as an operation's error.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

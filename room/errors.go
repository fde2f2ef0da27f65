package room

import (
	"errors"
	"fmt"

	"github.com/ssau-fiit/codeshare-api/database"
)

var (
	ErrNotFound         = errors.New("room not found")
	ErrExpired          = errors.New("room has expired")
	ErrNotInRoom        = errors.New("not in room")
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("store unavailable")
)

const (
	msgInvalidRoom     = "Invalid room data"
	msgInvalidCode     = "Invalid code data"
	msgInvalidCursor   = "Invalid cursor position"
	msgInvalidLanguage = "Invalid language"
	msgUnknownEvent    = "Unknown event"
)

// ValidationError carries the message shown to the offending connection.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(msg string, err error) error {
	return &ValidationError{Message: msg, Err: err}
}

// storeError classifies an error returned by the document store.
func storeError(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// Message returns the text sent to a client in an error event.
func Message(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrNotFound):
		return "Room not found"
	case errors.Is(err, ErrExpired):
		return "Room has expired"
	case errors.Is(err, ErrNotInRoom):
		return "Not in room"
	case errors.Is(err, ErrStoreUnavailable):
		return "Failed to save code"
	default:
		return "Internal error"
	}
}

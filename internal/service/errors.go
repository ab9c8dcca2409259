package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the base for every 400-mapped failure.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized means the caller is not a participant.
	ErrUnauthorized = errors.New("not a participant of this conversation")
	// ErrNotFound means the conversation does not exist.
	ErrNotFound = errors.New("conversation not found")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

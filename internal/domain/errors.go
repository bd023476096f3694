package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMessage is the class of every client-side send error below.
	ErrInvalidMessage = errors.New("invalid message")

	ErrEmptyContent   = invalid("content or file reference required")
	ErrMessageTooLong = invalid("content too long")
	ErrMissingRoom    = invalid("room is required")
	ErrMissingSender  = invalid("sender id is required")

	ErrInvalidID   = errors.New("invalid identifier")
	ErrInvalidRoom = errors.New("invalid room key")
	ErrSelfRoom    = errors.New("direct room needs two distinct participants")

	ErrUserNotFound = errors.New("user not found")
	ErrForbidden    = errors.New("not allowed in room")
	ErrPersist      = errors.New("message not persisted")
)

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, reason)
}

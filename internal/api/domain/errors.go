package domain

import "errors"

var (
	// ErrNotFound is returned when a resource does not exist or is not visible to the caller
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller does not own the resource
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyExists is returned on unique constraint conflicts
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation is returned for semantically invalid input
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned for missing or wrong credentials
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInviteUnavailable is returned when an invite code is unknown or already used
	ErrInviteUnavailable = errors.New("invite code is invalid or already used")

	// ErrConversationArchived is returned when posting to an archived conversation
	ErrConversationArchived = errors.New("conversation is archived")
)

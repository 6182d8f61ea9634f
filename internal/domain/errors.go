package domain

import "errors"

var (
	// ErrEmptyMessage is returned when a send carries neither text nor image.
	ErrEmptyMessage = errors.New("message requires text or an image")

	// ErrInvalidRecipient is returned for a missing or self-addressed recipient.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
)

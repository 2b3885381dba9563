package component

import "errors"

var (
	// ErrInvalidIdentifier is returned when taking the parent of the root identifier.
	ErrInvalidIdentifier = errors.New("component: invalid identifier")

	// ErrMalformedIdentifier is returned when parsing an identifier string fails.
	ErrMalformedIdentifier = errors.New("component: malformed identifier")
)

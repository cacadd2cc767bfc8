package conversation

import "errors"

// Sentinel errors for store operations.
// These errors are part of the Store's public API and should be checked using errors.Is().
//
// Example:
//
//	conv, err := store.Get(ctx, id)
//	if errors.Is(err, conversation.ErrNotFound) {
//	    // Handle missing conversation
//	}
var (
	// ErrNotFound indicates the requested conversation does not exist in the database.
	ErrNotFound = errors.New("conversation not found")

	// ErrUnavailable indicates the database could not be reached.
	// Callers use this to distinguish outages from bad input.
	ErrUnavailable = errors.New("conversation storage unavailable")

	// ErrInvalidRole indicates a message carries a role the store does not accept.
	ErrInvalidRole = errors.New("invalid message role")

	// ErrEmptyID indicates an empty conversation id was supplied.
	ErrEmptyID = errors.New("conversation id is empty")
)

package docstore

import "errors"

var (
	// ErrNotFound is returned by reads of a document that does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrNoIdentity is returned by reads issued while nobody is signed in.
	ErrNoIdentity = errors.New("no signed-in user")
	// ErrDocumentTooLarge is returned when a write would grow a document past the backend limit.
	ErrDocumentTooLarge = errors.New("document too large")
	// ErrInvalidPath is returned for paths that do not name a document.
	ErrInvalidPath = errors.New("invalid document path")
)

package normalize

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryRejected indicates an entry lacks a required field and is left out of the collection.
	ErrEntryRejected = errors.New("entry rejected")

	// ErrPatternMismatch indicates a file field is not a JabRef PDF reference.
	ErrPatternMismatch = errors.New("file field does not match the JabRef PDF pattern")

	errEmptyAuthorList = errors.New("author list is empty")
)

// RejectedError describes why an entry could not be normalized.
type RejectedError struct {
	Key   string // Citation key of the rejected entry
	Field string // Required field that failed: author or title
	Err   error  // Underlying accessor error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("entry %s rejected: %s: %v", e.Key, e.Field, e.Err)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrEntryRejected) hold for every RejectedError.
func (e *RejectedError) Is(target error) bool {
	return target == ErrEntryRejected
}

// Rejection records an entry dropped from a collection.
type Rejection struct {
	Index int    // Position in the source database, 0-based
	Key   string // Citation key
	Err   error  // Always a *RejectedError
}

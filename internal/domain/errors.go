package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// Workflow precondition violations. User visible, not transient; retrying
// without changing state cannot succeed.
var (
	// ErrSelfRequest means a wallet asked for access to its own content.
	ErrSelfRequest = errors.New("cannot request access to your own content")

	// ErrDuplicateRequest means a pending request for the pair already exists.
	ErrDuplicateRequest = errors.New("access request already pending")

	// ErrRequestNotFound means no request exists under that id.
	ErrRequestNotFound = NotFoundError{Resource: "access request"}

	// ErrAlreadyResolved means the request is not pending any more.
	ErrAlreadyResolved = errors.New("access request already resolved")

	// ErrPointerConflict means the document pointer moved under a writer.
	// The writer must reload the current document and redo its change.
	ErrPointerConflict = errors.New("document pointer advanced concurrently")
)

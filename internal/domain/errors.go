// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrExternalService indicates a collaborator (text generation, persistence)
// failed before a decision was reached. Callers should retry with backoff
// rather than treat the negotiation as decided.
var ErrExternalService = errors.New("external service failure")

// ExternalError wraps a collaborator failure with the operation that failed.
// errors.Is(err, ErrExternalService) matches it.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return "external service failure: " + e.Op + ": " + e.Err.Error()
}

func (e *ExternalError) Unwrap() error { return e.Err }

func (e *ExternalError) Is(target error) bool { return target == ErrExternalService }

// External wraps err as an ExternalError for the given operation.
func External(op string, err error) error {
	return &ExternalError{Op: op, Err: err}
}

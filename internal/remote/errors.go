package remote

import (
	"errors"
	"fmt"
)

// Errors returned by Store implementations.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, remote.ErrConflict) {
//	    // re-fetch, merge and retry
//	}
var (
	// ErrNotFound is returned when the document does not exist.
	// Callers reading a document treat it as an empty collection.
	ErrNotFound = errors.New("document not found")

	// ErrUnauthorized is returned when a credential is missing or rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is returned when a write carries a stale revision.
	ErrConflict = errors.New("revision conflict")

	// ErrConflictUnresolved is returned when a save gave up after its
	// retry budget. Unlike ErrConflict it is final.
	ErrConflictUnresolved = errors.New("conflict unresolved after retries")

	// ErrTransport is returned for network failures, unexpected responses
	// and undecodable payloads.
	ErrTransport = errors.New("transport failure")
)

// ConflictError describes a rejected write.
type ConflictError struct {
	Path             string
	ExpectedRevision string
}

func (e *ConflictError) Error() string {
	if e.ExpectedRevision == "" {
		return fmt.Sprintf("revision conflict on %s: document already exists", e.Path)
	}
	return fmt.Sprintf("revision conflict on %s: revision %s is stale", e.Path, e.ExpectedRevision)
}

// Is makes errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// StatusError is an HTTP response the client could not classify.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
}

// Is makes errors.Is(err, ErrTransport) match.
func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}

// IsRetryable returns true if the error is resolved by re-fetching,
// merging and writing again. Only revision conflicts qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrConflict)
}

// IsFatal returns true if the error must be surfaced to the user without retry.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	if errors.Is(err, ErrConflictUnresolved) {
		return true
	}
	if errors.Is(err, ErrTransport) {
		return true
	}
	return false
}

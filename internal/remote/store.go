// Package remote provides clients for the revision-tokened document store
// that holds the planner's JSON documents.
//
// A document is a blob addressed by path. Anonymous reads return the latest
// published content, which may lag behind the most recent write. Authorized
// reads also return the current revision, and a write only succeeds when the
// caller supplies that revision; otherwise it fails with ErrConflict and
// nothing is written.
package remote

import "context"

// Document is an authorized read of a blob.
type Document struct {
	Content  []byte
	Revision string
}

// WriteRequest replaces a whole document.
type WriteRequest struct {
	Path    string
	Content []byte

	// ExpectedRevision is the revision the write is based on.
	// Empty for the first write to a path that does not exist yet.
	ExpectedRevision string

	Credential string

	// Message is recorded with the new revision (a commit message).
	Message string
}

// Store is the remote document store.
type Store interface {
	// FetchPublic reads the published content anonymously.
	// Returns ErrNotFound if the document does not exist.
	FetchPublic(ctx context.Context, path string) ([]byte, error)

	// FetchAuthorized reads the current content and revision.
	// Returns ErrNotFound if the document does not exist and
	// ErrUnauthorized if the credential is missing or rejected.
	FetchAuthorized(ctx context.Context, path, credential string) (*Document, error)

	// Write replaces the document atomically and returns the new revision.
	// Returns a *ConflictError (matching ErrConflict) if ExpectedRevision
	// is not the current revision.
	Write(ctx context.Context, req WriteRequest) (string, error)
}

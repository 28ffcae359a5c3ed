package sync

import (
	"context"

	"github.com/pjp27/organizacion/internal/schema"
)

// Syncer owns one remote document and its in-memory record set.
//
// The syncer is the single authority for that document: commands mutate
// the in-memory set through Update, and Save writes the whole set back,
// merging with concurrent remote edits when the write conflicts.
//
// Only one Save may be in flight at a time. While it runs, Update and a
// second Save fail with ErrBusy instead of waiting.
type Syncer[T schema.Record] interface {
	// Load reads the published document and replaces the in-memory set.
	//
	// A missing document loads as an empty set. Every record is normalized.
	//
	// Example:
	//   exams, err := syncer.Load(ctx)
	Load(ctx context.Context) ([]T, error)

	// Records returns a copy of the in-memory set.
	Records() []T

	// Update applies a local mutation to the in-memory set.
	//
	// fn receives a copy of the set and returns the new set. Returns
	// ErrBusy if a save is in flight, or the error returned by fn, in
	// which case the set is left unchanged.
	//
	// Example:
	//   err := syncer.Update(func(tasks []schema.Task) ([]schema.Task, error) {
	//       return append(tasks, task), nil
	//   })
	Update(fn func([]T) ([]T, error)) error

	// Replace swaps the whole in-memory set (bulk import).
	Replace(records []T) error

	// Save writes the in-memory set using the configured retry budget.
	//
	// Returns remote.ErrUnauthorized if credential is empty,
	// ErrConflictUnresolved if every attempt conflicted, or the first
	// non-conflict error reported by the store.
	//
	// Example:
	//   err := syncer.Save(ctx, token)
	Save(ctx context.Context, credential string) (*Result, error)

	// SaveRecords writes local with at most maxRetries write attempts.
	//
	// On success the in-memory set becomes the records that were written,
	// which include remote records merged in after conflicts.
	SaveRecords(ctx context.Context, credential string, local []T, maxRetries int) (*Result, error)

	// Revision returns the revision of the last successful write, if any.
	Revision() string

	// Path returns the document path.
	Path() string
}

// Result describes a successful save.
type Result struct {
	// Revision is the new document revision.
	Revision string

	// Attempts is the number of write attempts, 1 when there was no conflict.
	Attempts int

	// Records is the number of records written.
	Records int
}

// Package sync reconciles the planner's in-memory record sets with their
// remote documents.
//
// Overview
//
// Each document (data/tasks.json, data/exams.json) is owned by one Syncer.
// Commands mutate the in-memory set; Save writes the whole set back with
// optimistic concurrency:
//
//	FetchRevision ──► Write ──► done
//	      ▲             │
//	      │          conflict
//	      │             ▼
//	   backoff ◄── re-fetch + Merge
//
// Attempt n that conflicts waits n*BaseDelay before attempt n+1. No wait
// follows the last attempt. Only conflicts are retried: unauthorized and
// transport errors abort the save immediately.
//
// Merge
//
// Merge is a last-write-wins union keyed by record ID, using the created
// timestamp. Deletions are not tracked, so a record deleted locally comes
// back if it still exists remotely when a conflict is merged.
//
// Usage
//
//	store := remote.NewMemory("")
//	tasks := sync.New(store, "data/tasks.json", schema.DecodeTasks)
//
//	if _, err := tasks.Load(ctx); err != nil {
//	    return err
//	}
//	err := tasks.Update(func(ts []schema.Task) ([]schema.Task, error) {
//	    return append(ts, task), nil
//	})
//	res, err := tasks.Save(ctx, token)
//
// Concurrency
//
// A Syncer is safe for concurrent use. Saves are single-flight: while one
// runs, Load, Update, Replace and other saves fail fast with ErrBusy.
// Cancelling the context aborts HTTP calls and the backoff wait.
package sync

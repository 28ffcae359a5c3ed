package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestBlobSHA(t *testing.T) {
	// git hash-object of an empty file
	if got := BlobSHA(nil); got != "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391" {
		t.Errorf("BlobSHA(empty) = %s", got)
	}
}

func TestMemory_WriteAndConflict(t *testing.T) {
	store := NewMemory("secret")
	ctx := context.Background()

	if _, err := store.FetchPublic(ctx, "data/exams.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rev, err := store.Write(ctx, WriteRequest{Path: "data/exams.json", Content: []byte("[]"), Credential: "secret", Message: "init"})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if store.Revision("data/exams.json") != rev {
		t.Errorf("revision not recorded")
	}
	if store.Message("data/exams.json") != "init" {
		t.Errorf("message not recorded")
	}

	doc, err := store.FetchAuthorized(ctx, "data/exams.json", "secret")
	if err != nil {
		t.Fatalf("FetchAuthorized failed: %v", err)
	}
	if doc.Revision != rev || string(doc.Content) != "[]" {
		t.Errorf("unexpected document %+v", doc)
	}

	// Another session writes in between.
	store.Put("data/exams.json", []byte(`[{"id":"other"}]`))

	_, err = store.Write(ctx, WriteRequest{Path: "data/exams.json", Content: []byte("[]"), ExpectedRevision: rev, Credential: "secret"})
	if !IsRetryable(err) {
		t.Fatalf("expected retryable conflict, got %v", err)
	}

	// First write to an existing path without a revision conflicts too.
	_, err = store.Write(ctx, WriteRequest{Path: "data/exams.json", Content: []byte("[]"), Credential: "secret"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMemory_Credentials(t *testing.T) {
	store := NewMemory("secret")
	ctx := context.Background()

	_, err := store.Write(ctx, WriteRequest{Path: "p", Content: []byte("[]"), Credential: "nope"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if !IsFatal(err) {
		t.Error("unauthorized should be fatal")
	}

	open := NewMemory("")
	if _, err := open.Write(ctx, WriteRequest{Path: "p", Content: []byte("[]"), Credential: "anything"}); err != nil {
		t.Errorf("open store should accept any credential: %v", err)
	}
	if _, err := open.Write(ctx, WriteRequest{Path: "q", Content: []byte("[]")}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("open store still requires a credential, got %v", err)
	}
}

func TestErrorClassifiers(t *testing.T) {
	if IsRetryable(nil) || IsFatal(nil) {
		t.Error("nil is neither retryable nor fatal")
	}
	if IsRetryable(ErrNotFound) || IsFatal(ErrNotFound) {
		t.Error("not found is handled by the caller, neither retryable nor fatal")
	}
	conflict := &ConflictError{Path: "p", ExpectedRevision: "abc"}
	if !IsRetryable(conflict) || IsFatal(conflict) {
		t.Error("conflict should be retryable and not fatal")
	}
	status := &StatusError{Method: "GET", URL: "/x", StatusCode: 500}
	if !errors.Is(status, ErrTransport) || !IsFatal(status) {
		t.Error("status errors are transport failures")
	}
	exhausted := fmt.Errorf("%w: p after 3 attempts: %v", ErrConflictUnresolved, conflict)
	if IsRetryable(exhausted) || !IsFatal(exhausted) {
		t.Error("an exhausted retry budget is fatal and not retryable")
	}
}

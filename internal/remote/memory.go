package remote

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"
)

// BlobSHA returns the git blob hash of content, the revision format used by
// Git-hosted content APIs.
func BlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

type memoryBlob struct {
	content  []byte
	revision string
	message  string
}

// Memory is an in-process Store. Published reads are immediately consistent.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob

	// token, when set, is the only credential accepted.
	token string
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty store. An empty token accepts any non-empty credential.
func NewMemory(token string) *Memory {
	return &Memory{
		blobs: make(map[string]memoryBlob),
		token: token,
	}
}

// Put writes content unconditionally, as another session would, and returns
// the new revision.
func (m *Memory) Put(path string, content []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rev := BlobSHA(content)
	m.blobs[path] = memoryBlob{content: clone(content), revision: rev, message: "put"}
	return rev
}

// Revision returns the current revision of path, or "" if absent.
func (m *Memory) Revision(path string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blobs[path].revision
}

// Message returns the message recorded with the current revision of path.
func (m *Memory) Message(path string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blobs[path].message
}

// FetchPublic implements Store.FetchPublic.
func (m *Memory) FetchPublic(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(b.content), nil
}

// FetchAuthorized implements Store.FetchAuthorized.
func (m *Memory) FetchAuthorized(ctx context.Context, path, credential string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if err := m.checkCredential(credential); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{Content: clone(b.content), Revision: b.revision}, nil
}

// Write implements Store.Write.
func (m *Memory) Write(ctx context.Context, req WriteRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if err := m.checkCredential(req.Credential); err != nil {
		return "", err
	}
	if req.Path == "" {
		return "", fmt.Errorf("%w: path is required", ErrTransport)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.blobs[req.Path]
	if ok && existing.revision != req.ExpectedRevision {
		return "", &ConflictError{Path: req.Path, ExpectedRevision: req.ExpectedRevision}
	}
	if !ok && req.ExpectedRevision != "" {
		// The caller's base revision no longer exists.
		return "", &ConflictError{Path: req.Path, ExpectedRevision: req.ExpectedRevision}
	}

	rev := BlobSHA(req.Content)
	m.blobs[req.Path] = memoryBlob{content: clone(req.Content), revision: rev, message: req.Message}
	return rev, nil
}

func (m *Memory) checkCredential(credential string) error {
	if credential == "" {
		return fmt.Errorf("%w: credential required", ErrUnauthorized)
	}
	if m.token != "" && credential != m.token {
		return fmt.Errorf("%w: bad credentials", ErrUnauthorized)
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

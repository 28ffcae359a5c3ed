package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	gosync "sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pjp27/organizacion/internal/remote"
	"github.com/pjp27/organizacion/internal/schema"
)

// Config holds configuration for a syncer.
type Config struct {
	// Name labels the document in commit messages and logs (e.g. "exams").
	Name string

	// MaxRetries is the number of write attempts made by Save (default: 3)
	MaxRetries int

	// BaseDelay is the linear backoff unit; attempt n waits n*BaseDelay
	// before attempt n+1 (default: 1s)
	BaseDelay time.Duration

	// Logger for sync activity
	Logger *log.Logger

	// Now stamps records normalized on load.
	Now func() time.Time

	// Sleep waits between attempts. It must return early with ctx.Err()
	// when ctx is cancelled.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Logger:     log.New(os.Stderr, "[sync] ", log.LstdFlags),
		Now:        time.Now,
		Sleep:      sleepContext,
	}
}

// syncer implements the Syncer interface.
type syncer[T schema.Record] struct {
	store  remote.Store
	path   string
	decode schema.DecodeFunc[T]
	config *Config

	// inflight is the single-writer guard: a save holds it for its whole
	// duration, local mutations hold it briefly.
	inflight *semaphore.Weighted

	mu       gosync.RWMutex
	records  []T
	revision string
}

// New creates a Syncer for the document at path with default configuration.
//
// Example:
//
//	store, _ := remote.NewGitHub(&remote.Config{Owner: "pjp27", Repo: "organizacion"})
//	exams := sync.New(store, "data/exams.json", schema.DecodeExams)
//	if _, err := exams.Load(ctx); err != nil {
//	    return err
//	}
func New[T schema.Record](store remote.Store, path string, decode schema.DecodeFunc[T]) Syncer[T] {
	return NewWithConfig(store, path, decode, DefaultConfig())
}

// NewWithConfig creates a Syncer with custom configuration.
// Zero-valued fields of config take their defaults.
func NewWithConfig[T schema.Record](store remote.Store, path string, decode schema.DecodeFunc[T], config *Config) Syncer[T] {
	defaults := DefaultConfig()
	cfg := *defaults
	if config != nil {
		cfg = *config
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}
	if cfg.Now == nil {
		cfg.Now = defaults.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = defaults.Sleep
	}
	if cfg.Name == "" {
		cfg.Name = path
	}

	return &syncer[T]{
		store:    store,
		path:     path,
		decode:   decode,
		config:   &cfg,
		inflight: semaphore.NewWeighted(1),
		records:  []T{},
	}
}

// Path implements Syncer.Path.
func (s *syncer[T]) Path() string { return s.path }

// Revision implements Syncer.Revision.
func (s *syncer[T]) Revision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Records implements Syncer.Records.
func (s *syncer[T]) Records() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records)
}

// Load implements Syncer.Load.
func (s *syncer[T]) Load(ctx context.Context) ([]T, error) {
	if !s.inflight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer s.inflight.Release(1)

	data, err := s.store.FetchPublic(ctx, s.path)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			s.config.Logger.Printf("Document %s not found, starting empty", s.path)
			s.set([]T{}, "")
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", s.path, err)
	}

	records, err := s.decode(data, s.config.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w: %v", s.path, remote.ErrTransport, err)
	}

	s.set(records, "")
	s.config.Logger.Printf("Loaded %d %s", len(records), s.config.Name)
	return cloneRecords(records), nil
}

// Update implements Syncer.Update.
func (s *syncer[T]) Update(fn func([]T) ([]T, error)) error {
	if !s.inflight.TryAcquire(1) {
		return ErrBusy
	}
	defer s.inflight.Release(1)

	next, err := fn(s.Records())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records = cloneRecords(next)
	s.mu.Unlock()
	return nil
}

// Replace implements Syncer.Replace.
func (s *syncer[T]) Replace(records []T) error {
	return s.Update(func([]T) ([]T, error) {
		return records, nil
	})
}

// Save implements Syncer.Save.
func (s *syncer[T]) Save(ctx context.Context, credential string) (*Result, error) {
	return s.SaveRecords(ctx, credential, s.Records(), s.config.MaxRetries)
}

// SaveRecords implements Syncer.SaveRecords.
//
// Each attempt fetches the current revision and writes the pending set.
// A conflicting write re-fetches the remote document, merges it into the
// pending set and waits attempt*BaseDelay before the next attempt. Any
// other failure aborts the save.
func (s *syncer[T]) SaveRecords(ctx context.Context, credential string, local []T, maxRetries int) (*Result, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: a credential is required to save %s", remote.ErrUnauthorized, s.path)
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	if !s.inflight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer s.inflight.Release(1)

	pending := cloneRecords(local)
	var lastConflict error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		revision, err := s.fetchRevision(ctx, credential)
		if err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", s.path, err)
		}

		content, err := schema.EncodeDocument(pending)
		if err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", s.path, err)
		}

		newRevision, err := s.store.Write(ctx, remote.WriteRequest{
			Path:             s.path,
			Content:          content,
			ExpectedRevision: revision,
			Credential:       credential,
			Message:          fmt.Sprintf("Update %s (attempt %d)", s.config.Name, attempt),
		})
		if err == nil {
			s.set(pending, newRevision)
			s.config.Logger.Printf("Saved %d %s (attempt %d, revision %s)", len(pending), s.config.Name, attempt, newRevision)
			return &Result{Revision: newRevision, Attempts: attempt, Records: len(pending)}, nil
		}

		if !remote.IsRetryable(err) {
			return nil, fmt.Errorf("failed to save %s: %w", s.path, err)
		}

		lastConflict = err
		s.config.Logger.Printf("Conflict on attempt %d/%d for %s: %v", attempt, maxRetries, s.path, err)

		if attempt == maxRetries {
			break
		}

		remoteRecords, err := s.fetchRecords(ctx, credential)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh %s after conflict: %w", s.path, err)
		}
		pending = Merge(remoteRecords, pending)

		if err := s.config.Sleep(ctx, time.Duration(attempt)*s.config.BaseDelay); err != nil {
			return nil, fmt.Errorf("save of %s interrupted: %w", s.path, err)
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrConflictUnresolved, s.path, maxRetries, lastConflict)
}

// fetchRevision returns the current revision, or "" if the document does not exist.
func (s *syncer[T]) fetchRevision(ctx context.Context, credential string) (string, error) {
	doc, err := s.store.FetchAuthorized(ctx, s.path, credential)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return doc.Revision, nil
}

// fetchRecords reads the current remote set; a missing document is empty.
func (s *syncer[T]) fetchRecords(ctx context.Context, credential string) ([]T, error) {
	doc, err := s.store.FetchAuthorized(ctx, s.path, credential)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return []T{}, nil
		}
		return nil, err
	}
	records, err := s.decode(doc.Content, s.config.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrTransport, err)
	}
	return records, nil
}

func (s *syncer[T]) set(records []T, revision string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cloneRecords(records)
	if revision != "" {
		s.revision = revision
	}
}

func cloneRecords[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package watch watches a local checkout's data directory and reports
// debounced changes to the planner's documents.
//
// Editors and git checkouts often touch a file several times in a row
// (truncate, write, rename). Events for the same file are coalesced until
// the file has been quiet for the debounce interval, and only the last
// operation is reported.
package watch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pjp27/organizacion/internal/planner"
)

// Op represents the type of file system operation.
type Op int

const (
	// OpCreate indicates a new file was created (or renamed into place).
	OpCreate Op = iota
	// OpModify indicates an existing file was written.
	OpModify
	// OpDelete indicates a file was removed or renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// FileEvent is a debounced change to a document file.
type FileEvent struct {
	// Path is the absolute path of the file.
	Path       string
	Collection planner.Collection
	Op         Op
}

// Config holds configuration for a Watcher.
type Config struct {
	// TasksFile and ExamsFile are the document file names inside the
	// watched directory (default: tasks.json, exams.json)
	TasksFile string
	ExamsFile string

	// DebounceInterval is how long a file must be quiet before its event
	// is emitted (default: 200ms)
	DebounceInterval time.Duration

	// Logger for watcher activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TasksFile:        "tasks.json",
		ExamsFile:        "exams.json",
		DebounceInterval: 200 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

type pending struct {
	event FileEvent
	at    time.Time
}

// Watcher watches one directory for document changes.
type Watcher struct {
	dir     string
	config  *Config
	watcher *fsnotify.Watcher

	events chan FileEvent
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	queue   map[string]pending
}

// New creates a Watcher for dir. It must be started with Start.
func New(dir string, config *Config) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir cannot be empty")
	}
	defaults := DefaultConfig()
	cfg := *defaults
	if config != nil {
		cfg = *config
	}
	if cfg.TasksFile == "" {
		cfg.TasksFile = defaults.TasksFile
	}
	if cfg.ExamsFile == "" {
		cfg.ExamsFile = defaults.ExamsFile
	}
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = defaults.DebounceInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		dir:     abs,
		config:  &cfg,
		watcher: fw,
		events:  make(chan FileEvent, 16),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
		queue:   make(map[string]pending),
	}, nil
}

// Start begins watching. Returns an error if the directory cannot be watched.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.running = true
	w.wg.Add(2)
	go w.processEvents()
	go w.flushLoop()

	w.config.Logger.Printf("Watching %s (%s, %s)", w.dir, w.config.TasksFile, w.config.ExamsFile)
	return nil
}

// Stop stops watching and closes the Events and Errors channels.
// Queued events that have not been flushed are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()

	close(w.events)
	close(w.errors)

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Events returns the channel of debounced events.
func (w *Watcher) Events() <-chan FileEvent {
	return w.events
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if fe, ok := w.convertEvent(event); ok {
				w.enqueue(fe)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

func (w *Watcher) enqueue(fe FileEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// A create followed by writes is still a create.
	if prev, ok := w.queue[fe.Path]; ok && prev.event.Op == OpCreate && fe.Op == OpModify {
		fe.Op = OpCreate
	}
	w.queue[fe.Path] = pending{event: fe, at: time.Now()}
}

// flushLoop emits queued events once they have been quiet long enough.
func (w *Watcher) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			for _, fe := range w.due(now) {
				select {
				case w.events <- fe:
				case <-w.done:
					return
				}
			}
		}
	}
}

func (w *Watcher) due(now time.Time) []FileEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []FileEvent
	for path, p := range w.queue {
		if now.Sub(p.at) < w.config.DebounceInterval {
			continue
		}
		out = append(out, p.event)
		delete(w.queue, path)
	}
	return out
}

// convertEvent maps an fsnotify event on a document file to a FileEvent.
func (w *Watcher) convertEvent(event fsnotify.Event) (FileEvent, bool) {
	path, err := filepath.Abs(event.Name)
	if err != nil || filepath.Dir(path) != w.dir {
		return FileEvent{}, false
	}

	var collection planner.Collection
	switch filepath.Base(path) {
	case w.config.TasksFile:
		collection = planner.CollectionTasks
	case w.config.ExamsFile:
		collection = planner.CollectionExams
	default:
		return FileEvent{}, false
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return FileEvent{}, false
	}

	return FileEvent{Path: path, Collection: collection, Op: op}, true
}

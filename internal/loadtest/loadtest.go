// Package loadtest drives concurrent writers against one task document and
// reports save latency, write conflicts and lost records.
//
// Every writer runs its own Syncer, as separate planner sessions would. A
// round is load, add one task, save. Saves race on the document revision;
// conflicts are merged and retried by the syncer. A writer whose load is
// older than another writer's save can still overwrite it without a
// conflict, because the revision is fetched right before each write. Such
// overwrites show up in Report.Missing.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	gosync "sync"
	"time"

	"github.com/pjp27/organizacion/internal/remote"
	"github.com/pjp27/organizacion/internal/schema"
	"github.com/pjp27/organizacion/internal/sync"
)

// Config holds load test configuration.
type Config struct {
	// Writers is the number of concurrent sessions (default: 8)
	Writers int

	// Rounds is the number of tasks each writer adds (default: 3)
	Rounds int

	// MaxRetries is the write attempt budget per save (default: 10)
	MaxRetries int

	// BaseDelay is the backoff unit between conflicting attempts (default: 5ms)
	BaseDelay time.Duration

	// Credential used for every write
	Credential string

	// Logger for writer activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Writers:    8,
		Rounds:     3,
		MaxRetries: 10,
		BaseDelay:  5 * time.Millisecond,
		Logger:     log.New(os.Stderr, "[loadtest] ", log.LstdFlags),
	}
}

// LatencyStats captures save latency.
type LatencyStats struct {
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration // Median
	P95   time.Duration
	P99   time.Duration
	Count int
}

// Report is the outcome of a run.
type Report struct {
	Latency *LatencyStats

	// Saves counts successful saves; Failed counts saves that returned an
	// error (usually sync.ErrConflictUnresolved).
	Saves  int
	Failed int

	// Attempts is the total number of write attempts over successful saves.
	Attempts int

	// Final is the number of tasks in the document after the run.
	Final int

	// Missing lists tasks whose save succeeded but which are absent from
	// the final document.
	Missing []string

	Elapsed time.Duration
}

// Conflicts is the number of write attempts that were rejected and retried.
func (r *Report) Conflicts() int {
	return r.Attempts - r.Saves
}

// Converged reports whether every saved task survived.
func (r *Report) Converged() bool {
	return len(r.Missing) == 0
}

type saveResult struct {
	id       string
	duration time.Duration
	attempts int
	err      error
}

// Run runs the load test against the task document at path.
func Run(ctx context.Context, store remote.Store, path string, config *Config) (*Report, error) {
	defaults := DefaultConfig()
	cfg := *defaults
	if config != nil {
		cfg = *config
	}
	if cfg.Writers < 1 {
		cfg.Writers = defaults.Writers
	}
	if cfg.Rounds < 1 {
		cfg.Rounds = defaults.Rounds
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

	results := make(chan saveResult, cfg.Writers*cfg.Rounds)
	start := time.Now()

	var wg gosync.WaitGroup
	for i := 0; i < cfg.Writers; i++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()
			runWriter(ctx, store, path, writer, &cfg, results)
		}(i)
	}
	wg.Wait()
	close(results)

	report := &Report{Elapsed: time.Since(start)}
	var durations []time.Duration
	var saved []string
	for r := range results {
		if r.err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			report.Failed++
			cfg.Logger.Printf("Save of %s failed: %v", r.id, r.err)
			continue
		}
		report.Saves++
		report.Attempts += r.attempts
		durations = append(durations, r.duration)
		saved = append(saved, r.id)
	}
	report.Latency = computeLatencyStats(durations)

	final, err := finalTasks(ctx, store, path)
	if err != nil {
		return nil, err
	}
	report.Final = len(final)
	present := make(map[string]bool, len(final))
	for _, t := range final {
		present[t.ID] = true
	}
	for _, id := range saved {
		if !present[id] {
			report.Missing = append(report.Missing, id)
		}
	}
	sort.Strings(report.Missing)

	return report, nil
}

func runWriter(ctx context.Context, store remote.Store, path string, writer int, cfg *Config, results chan<- saveResult) {
	s := sync.NewWithConfig(store, path, schema.DecodeTasks, &sync.Config{
		Name:       fmt.Sprintf("writer-%02d", writer),
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		Logger:     cfg.Logger,
	})

	for round := 0; round < cfg.Rounds; round++ {
		id := fmt.Sprintf("load-%02d-%03d", writer, round)
		if ctx.Err() != nil {
			results <- saveResult{id: id, err: ctx.Err()}
			return
		}

		start := time.Now()
		res, err := addAndSave(ctx, s, id, cfg.Credential)
		r := saveResult{id: id, duration: time.Since(start), err: err}
		if res != nil {
			r.attempts = res.Attempts
		}
		results <- r
	}
}

func addAndSave(ctx context.Context, s sync.Syncer[schema.Task], id, credential string) (*sync.Result, error) {
	if _, err := s.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load: %w", err)
	}

	now := time.Now()
	task := schema.NormalizeTask(schema.Task{
		ID:   id,
		Name: "Load test " + id,
		Date: now.Format(schema.DateLayout),
	}, now)
	if err := s.Update(func(tasks []schema.Task) ([]schema.Task, error) {
		return append(tasks, task), nil
	}); err != nil {
		return nil, err
	}
	return s.Save(ctx, credential)
}

func finalTasks(ctx context.Context, store remote.Store, path string) ([]schema.Task, error) {
	data, err := store.FetchPublic(ctx, path)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch final document: %w", err)
	}
	return schema.DecodeTasks(data, time.Now())
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return &LatencyStats{
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  sum / time.Duration(len(durations)),
		P50:   sorted[len(sorted)*50/100],
		P95:   sorted[len(sorted)*95/100],
		P99:   sorted[len(sorted)*99/100],
		Count: len(durations),
	}
}

// Print formats the report.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Saves:      %d ok, %d failed (%d conflicts retried)\n", r.Saves, r.Failed, r.Conflicts())
	fmt.Fprintf(w, "Document:   %d tasks, %d saved tasks lost\n", r.Final, len(r.Missing))
	fmt.Fprintf(w, "Elapsed:    %v\n", r.Elapsed.Round(time.Millisecond))
	if r.Latency == nil || r.Latency.Count == 0 {
		return
	}
	fmt.Fprintf(w, "Save latency:\n")
	fmt.Fprintf(w, "  Min:          %v\n", r.Latency.Min)
	fmt.Fprintf(w, "  P50 (Median): %v\n", r.Latency.P50)
	fmt.Fprintf(w, "  Mean:         %v\n", r.Latency.Mean)
	fmt.Fprintf(w, "  P95:          %v\n", r.Latency.P95)
	fmt.Fprintf(w, "  P99:          %v\n", r.Latency.P99)
	fmt.Fprintf(w, "  Max:          %v\n", r.Latency.Max)
}

package sync

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pjp27/organizacion/internal/remote"
	"github.com/pjp27/organizacion/internal/schema"
)

const (
	testPath  = "data/tasks.json"
	testToken = "secret"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

// scriptedStore wraps a Memory store and lets tests interfere with writes.
type scriptedStore struct {
	*remote.Memory

	writes      int
	beforeWrite func(n int)
	writeErr    error
}

func (s *scriptedStore) Write(ctx context.Context, req remote.WriteRequest) (string, error) {
	s.writes++
	if s.beforeWrite != nil {
		s.beforeWrite(s.writes)
	}
	if s.writeErr != nil {
		return "", s.writeErr
	}
	return s.Memory.Write(ctx, req)
}

// sleepRecorder captures backoff durations without waiting.
type sleepRecorder struct {
	waits []time.Duration
	err   error
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return r.err
}

func newTestSyncer(t *testing.T, store remote.Store, sleeper *sleepRecorder) Syncer[schema.Task] {
	t.Helper()

	return NewWithConfig(store, testPath, schema.DecodeTasks, &Config{
		Name:       "tasks",
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Logger:     log.New(io.Discard, "[test] ", 0),
		Now:        func() time.Time { return testNow },
		Sleep:      sleeper.sleep,
	})
}

func testTask(id, created string) schema.Task {
	return schema.Task{
		ID:      id,
		Name:    "Task " + id,
		Date:    "2024-06-10",
		Status:  schema.StatusTodo,
		Created: created,
	}
}

func putTasks(t *testing.T, store *remote.Memory, tasks ...schema.Task) string {
	t.Helper()

	data, err := schema.EncodeDocument(tasks)
	if err != nil {
		t.Fatalf("failed to encode tasks: %v", err)
	}
	return store.Put(testPath, data)
}

func storedTasks(t *testing.T, store *remote.Memory) []schema.Task {
	t.Helper()

	data, err := store.FetchPublic(context.Background(), testPath)
	if err != nil {
		t.Fatalf("failed to read stored document: %v", err)
	}
	tasks, err := schema.DecodeTasks(data, testNow)
	if err != nil {
		t.Fatalf("failed to decode stored document: %v", err)
	}
	return tasks
}

func ids(tasks []schema.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

func equalIDs(got []schema.Task, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestMerge(t *testing.T) {
	const (
		t1 = "2024-06-01T10:00:00.000Z"
		t2 = "2024-06-02T10:00:00.000Z"
		t3 = "2024-06-03T10:00:00.000Z"
	)

	tests := []struct {
		name     string
		remote   []schema.Task
		local    []schema.Task
		wantIDs  []string
		wantName map[string]string
	}{
		{
			name:    "union of disjoint sets sorted by created",
			remote:  []schema.Task{testTask("b", t2)},
			local:   []schema.Task{testTask("a", t1), testTask("c", t3)},
			wantIDs: []string{"a", "b", "c"},
		},
		{
			name:    "both empty",
			wantIDs: []string{},
		},
		{
			name:     "newer local copy wins",
			remote:   []schema.Task{{ID: "a", Name: "remote", Created: t1}},
			local:    []schema.Task{{ID: "a", Name: "local", Created: t2}},
			wantIDs:  []string{"a"},
			wantName: map[string]string{"a": "local"},
		},
		{
			name:     "older local copy loses",
			remote:   []schema.Task{{ID: "a", Name: "remote", Created: t2}},
			local:    []schema.Task{{ID: "a", Name: "local", Created: t1}},
			wantIDs:  []string{"a"},
			wantName: map[string]string{"a": "remote"},
		},
		{
			name:     "tie keeps remote copy",
			remote:   []schema.Task{{ID: "a", Name: "remote", Created: t1}},
			local:    []schema.Task{{ID: "a", Name: "local", Created: t1}},
			wantIDs:  []string{"a"},
			wantName: map[string]string{"a": "remote"},
		},
		{
			name:     "unparseable created never wins",
			remote:   []schema.Task{{ID: "a", Name: "remote", Created: "garbage"}},
			local:    []schema.Task{{ID: "a", Name: "local", Created: "also garbage"}},
			wantIDs:  []string{"a"},
			wantName: map[string]string{"a": "remote"},
		},
		{
			name:    "equal created ordered by id",
			remote:  []schema.Task{testTask("z", t1)},
			local:   []schema.Task{testTask("m", t1), testTask("a", t1)},
			wantIDs: []string{"a", "m", "z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := Merge(tt.remote, tt.local)
			if !equalIDs(merged, tt.wantIDs...) {
				t.Fatalf("Merge() ids = %v, want %v", ids(merged), tt.wantIDs)
			}
			for _, task := range merged {
				if want, ok := tt.wantName[task.ID]; ok && task.Name != want {
					t.Errorf("Merge() kept %q for %s, want %q", task.Name, task.ID, want)
				}
			}
		})
	}
}

func TestMergeDisjointOrderIndependent(t *testing.T) {
	a := []schema.Task{
		testTask("c", "2024-06-03T10:00:00.000Z"),
		testTask("d", "not a date"),
		testTask("a", "2024-06-01T10:00:00.000Z"),
	}
	b := []schema.Task{
		testTask("b", "2024-06-02T10:00:00.000Z"),
		testTask("e", "2024-06-01T10:00:00.000Z"),
	}

	ab := Merge(a, b)
	ba := Merge(b, a)
	if !equalIDs(ab, ids(ba)...) {
		t.Fatalf("Merge(a, b) = %v, Merge(b, a) = %v", ids(ab), ids(ba))
	}
	if !equalIDs(ab, "d", "a", "e", "b", "c") {
		t.Errorf("Merge(a, b) ids = %v, want [d a e b c]", ids(ab))
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	set := []schema.Task{
		testTask("b", "2024-06-02T10:00:00.000Z"),
		testTask("a", "2024-06-01T10:00:00.000Z"),
	}

	merged := Merge(set, set)
	if !equalIDs(merged, "a", "b") {
		t.Fatalf("Merge(x, x) ids = %v, want [a b]", ids(merged))
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing document loads empty", func(t *testing.T) {
		s := newTestSyncer(t, remote.NewMemory(testToken), &sleepRecorder{})

		tasks, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(tasks) != 0 {
			t.Errorf("expected empty set, got %d tasks", len(tasks))
		}
	})

	t.Run("records are normalized", func(t *testing.T) {
		store := remote.NewMemory(testToken)
		store.Put(testPath, []byte(`[{"id":"task-1","name":"Deberes","date":"2024-06-10"}]`))
		s := newTestSyncer(t, store, &sleepRecorder{})

		tasks, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(tasks) != 1 {
			t.Fatalf("expected 1 task, got %d", len(tasks))
		}
		if tasks[0].Status != schema.StatusTodo {
			t.Errorf("expected status todo, got %q", tasks[0].Status)
		}
		if tasks[0].Created != schema.FormatTimestamp(testNow) {
			t.Errorf("expected created %q, got %q", schema.FormatTimestamp(testNow), tasks[0].Created)
		}
		if got := s.Records(); len(got) != 1 {
			t.Errorf("expected in-memory set of 1, got %d", len(got))
		}
	})

	t.Run("malformed document is a transport error", func(t *testing.T) {
		store := remote.NewMemory(testToken)
		store.Put(testPath, []byte(`{not json`))
		s := newTestSyncer(t, store, &sleepRecorder{})

		_, err := s.Load(context.Background())
		if !errors.Is(err, remote.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
	})
}

func TestUpdate(t *testing.T) {
	s := newTestSyncer(t, remote.NewMemory(testToken), &sleepRecorder{})

	err := s.Update(func(tasks []schema.Task) ([]schema.Task, error) {
		return append(tasks, testTask("a", "2024-06-01T10:00:00.000Z")), nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	boom := errors.New("boom")
	err = s.Update(func(tasks []schema.Task) ([]schema.Task, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if got := s.Records(); !equalIDs(got, "a") {
		t.Errorf("failed update changed the set: %v", ids(got))
	}

	// Records returns a copy.
	got := s.Records()
	got[0].Name = "mutated"
	if s.Records()[0].Name == "mutated" {
		t.Error("Records() exposed the in-memory set")
	}
}

func TestSaveWithoutConflict(t *testing.T) {
	store := remote.NewMemory(testToken)
	sleeper := &sleepRecorder{}
	s := newTestSyncer(t, store, sleeper)

	if err := s.Replace([]schema.Task{testTask("a", "2024-06-01T10:00:00.000Z")}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	res, err := s.Save(context.Background(), testToken)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if res.Attempts != 1 || res.Records != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Revision != store.Revision(testPath) {
		t.Errorf("result revision %s, store has %s", res.Revision, store.Revision(testPath))
	}
	if s.Revision() != res.Revision {
		t.Errorf("Revision() = %s, want %s", s.Revision(), res.Revision)
	}
	if got := store.Message(testPath); got != "Update tasks (attempt 1)" {
		t.Errorf("unexpected commit message %q", got)
	}
	if len(sleeper.waits) != 0 {
		t.Errorf("expected no backoff, got %v", sleeper.waits)
	}
}

func TestSaveMergesConcurrentEdit(t *testing.T) {
	mem := remote.NewMemory(testToken)
	putTasks(t, mem, testTask("a", "2024-06-01T10:00:00.000Z"))

	store := &scriptedStore{Memory: mem}
	sleeper := &sleepRecorder{}
	s := newTestSyncer(t, store, sleeper)

	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	err := s.Update(func(tasks []schema.Task) ([]schema.Task, error) {
		return append(tasks, testTask("b", "2024-06-03T10:00:00.000Z")), nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Another session writes between our revision fetch and our write.
	store.beforeWrite = func(n int) {
		if n == 1 {
			putTasks(t, mem,
				testTask("a", "2024-06-01T10:00:00.000Z"),
				testTask("c", "2024-06-02T10:00:00.000Z"),
			)
		}
	}

	res, err := s.Save(context.Background(), testToken)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if res.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", res.Attempts)
	}
	if got := storedTasks(t, mem); !equalIDs(got, "a", "c", "b") {
		t.Errorf("stored ids = %v, want [a c b]", ids(got))
	}
	if got := s.Records(); !equalIDs(got, "a", "c", "b") {
		t.Errorf("in-memory ids = %v, want [a c b]", ids(got))
	}
	if got := mem.Message(testPath); got != "Update tasks (attempt 2)" {
		t.Errorf("unexpected commit message %q", got)
	}
	if len(sleeper.waits) != 1 || sleeper.waits[0] != time.Second {
		t.Errorf("expected one 1s backoff, got %v", sleeper.waits)
	}
}

func TestSaveRetryBound(t *testing.T) {
	for _, k := range []int{1, 2, 3, 5} {
		store := &scriptedStore{
			Memory:   remote.NewMemory(testToken),
			writeErr: &remote.ConflictError{Path: testPath, ExpectedRevision: "abc"},
		}
		sleeper := &sleepRecorder{}
		s := newTestSyncer(t, store, sleeper)

		_, err := s.SaveRecords(context.Background(), testToken, nil, k)
		if !errors.Is(err, ErrConflictUnresolved) {
			t.Fatalf("k=%d: expected ErrConflictUnresolved, got %v", k, err)
		}
		if errors.Is(err, remote.ErrConflict) {
			t.Errorf("k=%d: exhausted save must not match ErrConflict, got %v", k, err)
		}
		if !remote.IsFatal(err) || remote.IsRetryable(err) {
			t.Errorf("k=%d: exhausted save must be fatal and not retryable, got %v", k, err)
		}
		if !strings.Contains(err.Error(), "stale") {
			t.Errorf("k=%d: expected the last conflict in the message, got %v", k, err)
		}
		if store.writes != k {
			t.Errorf("k=%d: expected %d writes, got %d", k, k, store.writes)
		}
		if len(sleeper.waits) != k-1 {
			t.Fatalf("k=%d: expected %d waits, got %v", k, k-1, sleeper.waits)
		}
		for i, d := range sleeper.waits {
			if want := time.Duration(i+1) * time.Second; d != want {
				t.Errorf("k=%d: wait %d = %v, want %v", k, i, d, want)
			}
		}
	}
}

func TestSaveUnauthorized(t *testing.T) {
	t.Run("empty credential", func(t *testing.T) {
		store := &scriptedStore{Memory: remote.NewMemory(testToken)}
		s := newTestSyncer(t, store, &sleepRecorder{})

		_, err := s.Save(context.Background(), "")
		if !errors.Is(err, remote.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if store.writes != 0 {
			t.Errorf("expected no writes, got %d", store.writes)
		}
	})

	t.Run("rejected credential", func(t *testing.T) {
		store := &scriptedStore{Memory: remote.NewMemory(testToken)}
		sleeper := &sleepRecorder{}
		s := newTestSyncer(t, store, sleeper)

		_, err := s.Save(context.Background(), "wrong")
		if !errors.Is(err, remote.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if !remote.IsFatal(err) {
			t.Error("expected error to be fatal")
		}
		if store.writes != 0 || len(sleeper.waits) != 0 {
			t.Errorf("expected no writes or waits, got %d writes, %v", store.writes, sleeper.waits)
		}
	})
}

func TestSaveTransportFailureIsNotRetried(t *testing.T) {
	store := &scriptedStore{
		Memory:   remote.NewMemory(testToken),
		writeErr: &remote.StatusError{Method: http.MethodPut, URL: testPath, StatusCode: http.StatusInternalServerError},
	}
	sleeper := &sleepRecorder{}
	s := newTestSyncer(t, store, sleeper)
	_ = s.Replace([]schema.Task{testTask("a", "2024-06-01T10:00:00.000Z")})

	_, err := s.Save(context.Background(), testToken)
	if !errors.Is(err, remote.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if store.writes != 1 {
		t.Errorf("expected 1 write, got %d", store.writes)
	}
	if len(sleeper.waits) != 0 {
		t.Errorf("expected no backoff, got %v", sleeper.waits)
	}
	if s.Revision() != "" {
		t.Errorf("failed save recorded revision %s", s.Revision())
	}
}

func TestSaveCancelledDuringBackoff(t *testing.T) {
	store := &scriptedStore{
		Memory:   remote.NewMemory(testToken),
		writeErr: &remote.ConflictError{Path: testPath},
	}
	sleeper := &sleepRecorder{err: context.Canceled}
	s := newTestSyncer(t, store, sleeper)

	_, err := s.Save(context.Background(), testToken)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.writes != 1 {
		t.Errorf("expected 1 write, got %d", store.writes)
	}
}

func TestSaveIsSingleFlight(t *testing.T) {
	store := &scriptedStore{Memory: remote.NewMemory(testToken)}
	// The first write conflicts, the second goes through.
	store.beforeWrite = func(n int) {
		if n == 2 {
			store.writeErr = nil
		}
	}
	store.writeErr = &remote.ConflictError{Path: testPath}

	entered := make(chan struct{})
	release := make(chan struct{})
	s := NewWithConfig(store, testPath, schema.DecodeTasks, &Config{
		Name:   "tasks",
		Logger: log.New(io.Discard, "", 0),
		Now:    func() time.Time { return testNow },
		Sleep: func(ctx context.Context, d time.Duration) error {
			close(entered)
			<-release
			return nil
		},
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.Save(context.Background(), testToken)
		done <- err
	}()

	<-entered
	if err := s.Update(func(ts []schema.Task) ([]schema.Task, error) { return ts, nil }); !errors.Is(err, ErrBusy) {
		t.Errorf("Update during save: expected ErrBusy, got %v", err)
	}
	if _, err := s.Save(context.Background(), testToken); !errors.Is(err, ErrBusy) {
		t.Errorf("second Save: expected ErrBusy, got %v", err)
	}
	if _, err := s.Load(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Load during save: expected ErrBusy, got %v", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := s.Update(func(ts []schema.Task) ([]schema.Task, error) { return ts, nil }); err != nil {
		t.Errorf("Update after save: %v", err)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleepContext ignored cancellation")
	}

	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

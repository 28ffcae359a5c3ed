package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeGitHub emulates the raw and contents endpoints for one repository.
type fakeGitHub struct {
	mu      sync.Mutex
	token   string
	files   map[string]string // path -> content
	shas    map[string]string // path -> sha
	lastPut putRequest
	lastRaw string
	status  int // forced status for every API call when non-zero
}

func newFakeGitHub(token string) *fakeGitHub {
	return &fakeGitHub{
		token: token,
		files: make(map[string]string),
		shas:  make(map[string]string),
	}
}

func (f *fakeGitHub) seed(path, content string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = content
	f.shas[path] = BlobSHA([]byte(content))
	return f.shas[path]
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if rest, ok := strings.CutPrefix(r.URL.Path, "/raw/owner/repo/main/"); ok {
		f.lastRaw = r.URL.RawQuery
		content, exists := f.files[rest]
		if !exists {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, content)
		return
	}

	path, ok := strings.CutPrefix(r.URL.Path, "/api/repos/owner/repo/contents/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `{"message":"forced"}`)
		return
	}
	if r.Header.Get("Authorization") != "token "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Bad credentials"}`)
		return
	}

	switch r.Method {
	case http.MethodGet:
		content, exists := f.files[path]
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"Not Found"}`)
			return
		}
		// Wrap like the real API does.
		enc := base64.StdEncoding.EncodeToString([]byte(content))
		var wrapped strings.Builder
		for i := 0; i < len(enc); i += 60 {
			end := min(i+60, len(enc))
			wrapped.WriteString(enc[i:end])
			wrapped.WriteString("\n")
		}
		_ = json.NewEncoder(w).Encode(contentsResponse{Content: wrapped.String(), Encoding: "base64", SHA: f.shas[path]})

	case http.MethodPut:
		var req putRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.lastPut = req
		current, exists := f.shas[path]
		if exists && req.SHA == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"message":"Invalid request. \"sha\" wasn't supplied."}`)
			return
		}
		if exists && req.SHA != current {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"message":"does not match"}`)
			return
		}
		content, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.files[path] = string(content)
		f.shas[path] = BlobSHA(content)
		if exists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusCreated)
		}
		_ = json.NewEncoder(w).Encode(putResponse{Content: contentsResponse{SHA: f.shas[path]}})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, fake *fakeGitHub) *GitHub {
	t.Helper()

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewGitHub(&Config{
		APIURL: server.URL + "/api",
		RawURL: server.URL + "/raw",
		Owner:  "owner",
		Repo:   "repo",
		Now:    func() time.Time { return time.UnixMilli(1700000000000) },
	})
	if err != nil {
		t.Fatalf("NewGitHub failed: %v", err)
	}
	return client
}

func TestNewGitHub_RequiresRepo(t *testing.T) {
	if _, err := NewGitHub(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewGitHub(&Config{Owner: "o"}); err == nil {
		t.Error("expected error for missing repo")
	}
}

func TestGitHub_FetchPublic(t *testing.T) {
	fake := newFakeGitHub("secret")
	fake.seed("data/exams.json", `[{"id":"e1"}]`)
	client := newTestClient(t, fake)
	ctx := context.Background()

	body, err := client.FetchPublic(ctx, "data/exams.json")
	if err != nil {
		t.Fatalf("FetchPublic failed: %v", err)
	}
	if string(body) != `[{"id":"e1"}]` {
		t.Errorf("unexpected body %q", body)
	}
	if fake.lastRaw != "t=1700000000000" {
		t.Errorf("expected cache-busting token, got query %q", fake.lastRaw)
	}

	_, err = client.FetchPublic(ctx, "data/tasks.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGitHub_FetchAuthorized(t *testing.T) {
	fake := newFakeGitHub("secret")
	content := strings.Repeat(`{"id":"e1","examName":"Parcial"},`, 10)
	sha := fake.seed("data/exams.json", content)
	client := newTestClient(t, fake)
	ctx := context.Background()

	doc, err := client.FetchAuthorized(ctx, "data/exams.json", "secret")
	if err != nil {
		t.Fatalf("FetchAuthorized failed: %v", err)
	}
	if string(doc.Content) != content {
		t.Errorf("content mismatch after base64 decode")
	}
	if doc.Revision != sha {
		t.Errorf("expected revision %s, got %s", sha, doc.Revision)
	}

	if _, err := client.FetchAuthorized(ctx, "data/exams.json", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := client.FetchAuthorized(ctx, "data/exams.json", ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for empty credential, got %v", err)
	}
	if _, err := client.FetchAuthorized(ctx, "data/none.json", "secret"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGitHub_Write(t *testing.T) {
	fake := newFakeGitHub("secret")
	client := newTestClient(t, fake)
	ctx := context.Background()

	// First write without a revision creates the file.
	rev1, err := client.Write(ctx, WriteRequest{
		Path:       "data/tasks.json",
		Content:    []byte("[]"),
		Credential: "secret",
		Message:    "Update tasks",
	})
	if err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	if rev1 != BlobSHA([]byte("[]")) {
		t.Errorf("unexpected revision %s", rev1)
	}
	if fake.lastPut.Message != "Update tasks" || fake.lastPut.Branch != "main" || fake.lastPut.SHA != "" {
		t.Errorf("unexpected PUT body %+v", fake.lastPut)
	}

	// Writing again with the current revision succeeds.
	rev2, err := client.Write(ctx, WriteRequest{
		Path:             "data/tasks.json",
		Content:          []byte(`[{"id":"t1"}]`),
		ExpectedRevision: rev1,
		Credential:       "secret",
	})
	if err != nil {
		t.Fatalf("second Write failed: %v", err)
	}
	if rev2 == rev1 {
		t.Error("expected a new revision")
	}

	// A stale revision is a conflict.
	_, err = client.Write(ctx, WriteRequest{
		Path:             "data/tasks.json",
		Content:          []byte(`[]`),
		ExpectedRevision: rev1,
		Credential:       "secret",
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.ExpectedRevision != rev1 {
		t.Errorf("conflict should carry expected revision, got %q", conflict.ExpectedRevision)
	}

	// No revision over an existing file is also a conflict.
	_, err = client.Write(ctx, WriteRequest{Path: "data/tasks.json", Content: []byte(`[]`), Credential: "secret"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected conflict for missing sha, got %v", err)
	}
}

func TestGitHub_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusConflict, ErrConflict},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusInternalServerError, ErrTransport},
		{http.StatusBadGateway, ErrTransport},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			fake := newFakeGitHub("secret")
			fake.status = tt.status
			client := newTestClient(t, fake)

			_, err := client.Write(context.Background(), WriteRequest{
				Path:             "data/tasks.json",
				Content:          []byte("[]"),
				ExpectedRevision: "abc",
				Credential:       "secret",
			})
			if !errors.Is(err, tt.want) {
				t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
			}
		})
	}
}

func TestGitHub_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewGitHub(&Config{APIURL: url, RawURL: url, Owner: "o", Repo: "r"})
	if err != nil {
		t.Fatalf("NewGitHub failed: %v", err)
	}

	_, err = client.FetchAuthorized(context.Background(), "data/tasks.json", "secret")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("transport failures must not be retryable")
	}
	if !IsFatal(err) {
		t.Error("transport failures should be fatal")
	}
}

func TestEscapePath(t *testing.T) {
	if got := escapePath("/data/mis exámenes.json"); got != "data/mis%20ex%C3%A1menes.json" {
		t.Errorf("escapePath = %q", got)
	}
}

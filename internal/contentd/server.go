package contentd

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	gosync "sync"
	"time"

	"github.com/rs/cors"

	"github.com/pjp27/organizacion/internal/remote"
)

// maxBodyBytes bounds PUT payloads.
const maxBodyBytes = 8 << 20

// Config holds server configuration.
type Config struct {
	// Addr to listen on (default: ":8787")
	Addr string

	// Owner, Repo and Branch name the single repository served.
	// Requests for any other repository get 404.
	Owner  string
	Repo   string
	Branch string

	// Token is the credential required by the contents endpoints. Empty
	// accepts any non-empty credential.
	Token string

	// AllowedOrigins for CORS (default: all)
	AllowedOrigins []string

	// Logger for server activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:           ":8787",
		Owner:          "local",
		Repo:           "planner",
		Branch:         "main",
		AllowedOrigins: []string{"*"},
		Logger:         log.Default(),
	}
}

// Server serves documents from a DB over HTTP.
type Server struct {
	db     *DB
	config *Config

	handler  http.Handler
	listener net.Listener
	server   *http.Server
	wg       gosync.WaitGroup
}

// NewServer creates a server for db. Zero-valued fields of config take
// their defaults.
func NewServer(db *DB, config *Config) *Server {
	defaults := DefaultConfig()
	cfg := *defaults
	if config != nil {
		cfg = *config
	}
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.Owner == "" {
		cfg.Owner = defaults.Owner
	}
	if cfg.Repo == "" {
		cfg.Repo = defaults.Repo
	}
	if cfg.Branch == "" {
		cfg.Branch = defaults.Branch
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = defaults.AllowedOrigins
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}

	s := &Server{db: db, config: &cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /raw/{owner}/{repo}/{branch}/{path...}", s.handleRaw)
	mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", s.handleGetContents)
	mux.HandleFunc("PUT /repos/{owner}/{repo}/contents/{path...}", s.handlePutContents)
	mux.HandleFunc("GET /repos/{owner}/{repo}/commits", s.handleCommits)
	mux.HandleFunc("GET /health", s.handleHealth)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Accept"},
	})
	s.handler = c.Handler(mux)
	return s
}

// Handler returns the HTTP handler, for embedding or httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.config.Logger.Printf("Content API listening on %s (%s/%s@%s)", ln.Addr(), s.config.Owner, s.config.Repo, s.config.Branch)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.config.Logger.Printf("Server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.wg.Wait()
	s.config.Logger.Println("Content API stopped")
	return nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

type contentPayload struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
	Encoding string `json:"encoding,omitempty"`
	Content  string `json:"content,omitempty"`
}

type putPayload struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch"`
}

type commitPayload struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	if !s.repoMatches(r) || r.PathValue("branch") != s.config.Branch {
		http.NotFound(w, r)
		return
	}

	blob, err := s.db.Get(r.Context(), r.PathValue("path"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", strconv.Quote(blob.SHA))
	_, _ = w.Write(blob.Content)
}

func (s *Server) handleGetContents(w http.ResponseWriter, r *http.Request) {
	if !s.repoMatches(r) {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}
	if !s.authorized(r) {
		writeMessage(w, http.StatusUnauthorized, "Bad credentials")
		return
	}
	if ref := r.URL.Query().Get("ref"); ref != "" && ref != s.config.Branch {
		writeMessage(w, http.StatusNotFound, "No commit found for the ref "+ref)
		return
	}

	blob, err := s.db.Get(r.Context(), r.PathValue("path"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payloadFor(blob.Path, blob.SHA, blob.Content, true))
}

func (s *Server) handlePutContents(w http.ResponseWriter, r *http.Request) {
	if !s.repoMatches(r) {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}
	if !s.authorized(r) {
		writeMessage(w, http.StatusUnauthorized, "Bad credentials")
		return
	}

	var body putPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Problems parsing JSON")
		return
	}
	if body.Branch != "" && body.Branch != s.config.Branch {
		writeMessage(w, http.StatusNotFound, "Branch "+body.Branch+" not found")
		return
	}
	content, err := base64.StdEncoding.DecodeString(strings.NewReplacer("\n", "", "\r", "").Replace(body.Content))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "content is not valid Base64")
		return
	}

	path := r.PathValue("path")
	sha, err := s.db.Put(r.Context(), path, content, body.SHA, body.Message)
	if err != nil {
		if errors.Is(err, remote.ErrConflict) {
			s.config.Logger.Printf("Rejected stale write to %s (sha %q)", path, body.SHA)
			if body.SHA == "" {
				writeMessage(w, http.StatusUnprocessableEntity, `Invalid request. "sha" wasn't supplied.`)
				return
			}
			writeMessage(w, http.StatusConflict, fmt.Sprintf("%s does not match %s", path, body.SHA))
			return
		}
		s.writeStoreError(w, err)
		return
	}

	status := http.StatusOK
	if body.SHA == "" {
		status = http.StatusCreated
	}
	s.config.Logger.Printf("Wrote %s -> %s (%s)", path, sha, body.Message)
	writeJSON(w, status, map[string]any{
		"content": payloadFor(path, sha, content, false),
		"commit":  map[string]string{"sha": sha, "message": body.Message},
	})
}

func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	if !s.repoMatches(r) {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}
	if !s.authorized(r) {
		writeMessage(w, http.StatusUnauthorized, "Bad credentials")
		return
	}

	limit := 30
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	commits, err := s.db.History(r.Context(), r.URL.Query().Get("path"), limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	out := make([]commitPayload, 0, len(commits))
	for _, c := range commits {
		var p commitPayload
		p.SHA = c.SHA
		p.Commit.Message = c.Message
		p.Commit.Author.Date = c.CreatedAt
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.db.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "documents": n})
}

func (s *Server) repoMatches(r *http.Request) bool {
	return r.PathValue("owner") == s.config.Owner && r.PathValue("repo") == s.config.Repo
}

// authorized accepts "token X" and "Bearer X" credentials.
func (s *Server) authorized(r *http.Request) bool {
	h := r.Header.Get("Authorization")
	var cred string
	switch {
	case strings.HasPrefix(h, "token "):
		cred = strings.TrimPrefix(h, "token ")
	case strings.HasPrefix(h, "Bearer "):
		cred = strings.TrimPrefix(h, "Bearer ")
	}
	if cred == "" {
		return false
	}
	if s.config.Token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(cred), []byte(s.config.Token)) == 1
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, remote.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}
	s.config.Logger.Printf("Store error: %v", err)
	writeMessage(w, http.StatusInternalServerError, "internal error")
}

func payloadFor(path string, sha string, content []byte, withContent bool) contentPayload {
	p := contentPayload{
		Name: path[strings.LastIndex(path, "/")+1:],
		Path: path,
		SHA:  sha,
		Size: len(content),
	}
	if withContent {
		p.Encoding = "base64"
		p.Content = wrap(base64.StdEncoding.EncodeToString(content), 60)
	}
	return p
}

// wrap breaks s into lines of n characters, as the GitHub API does.
func wrap(s string, n int) string {
	var b strings.Builder
	for len(s) > n {
		b.WriteString(s[:n])
		b.WriteByte('\n')
		s = s[n:]
	}
	b.WriteString(s)
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

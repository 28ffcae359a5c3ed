package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds configuration for the GitHub contents API client.
type Config struct {
	// APIURL is the REST API base (default: https://api.github.com)
	APIURL string

	// RawURL is the published-content base (default: https://raw.githubusercontent.com)
	RawURL string

	Owner  string
	Repo   string
	Branch string

	// HTTPClient performs requests (default: client with a 30s timeout)
	HTTPClient *http.Client

	// Logger for client activity
	Logger *log.Logger

	// Now supplies the cache-busting token for anonymous reads.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIURL:     "https://api.github.com",
		RawURL:     "https://raw.githubusercontent.com",
		Branch:     "main",
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     log.New(io.Discard, "", 0),
		Now:        time.Now,
	}
}

// GitHub reads and writes documents through the GitHub contents API.
type GitHub struct {
	config *Config
}

var _ Store = (*GitHub)(nil)

// NewGitHub creates a client. Zero-valued fields of config take their defaults.
func NewGitHub(config *Config) (*GitHub, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Owner == "" || config.Repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}

	defaults := DefaultConfig()
	cfg := *config
	if cfg.APIURL == "" {
		cfg.APIURL = defaults.APIURL
	}
	if cfg.RawURL == "" {
		cfg.RawURL = defaults.RawURL
	}
	if cfg.Branch == "" {
		cfg.Branch = defaults.Branch
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = defaults.HTTPClient
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}
	if cfg.Now == nil {
		cfg.Now = defaults.Now
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.RawURL = strings.TrimRight(cfg.RawURL, "/")

	return &GitHub{config: &cfg}, nil
}

// contentsResponse is the subset of the contents API payload we use.
type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content contentsResponse `json:"content"`
}

type apiError struct {
	Message string `json:"message"`
}

// FetchPublic implements Store.FetchPublic.
func (g *GitHub) FetchPublic(ctx context.Context, path string) ([]byte, error) {
	u := fmt.Sprintf("%s/%s/%s/%s/%s?t=%d",
		g.config.RawURL, g.config.Owner, g.config.Repo, g.config.Branch,
		escapePath(path), g.config.Now().UnixMilli())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrTransport, err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, body, err := g.do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		g.config.Logger.Printf("Fetched %s (%d bytes, public)", path, len(body))
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, statusError(req, resp, body)
	}
}

// FetchAuthorized implements Store.FetchAuthorized.
func (g *GitHub) FetchAuthorized(ctx context.Context, path, credential string) (*Document, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: credential required", ErrUnauthorized)
	}

	u := g.contentsURL(path) + "?ref=" + url.QueryEscape(g.config.Branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrTransport, err)
	}
	g.authorize(req, credential)

	resp, body, err := g.do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, apiMessage(body))
	default:
		return nil, statusError(req, resp, body)
	}

	var payload contentsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse contents response: %v", ErrTransport, err)
	}
	content, err := decodeContent(payload)
	if err != nil {
		return nil, err
	}

	g.config.Logger.Printf("Fetched %s at revision %s", path, shortRevision(payload.SHA))
	return &Document{Content: content, Revision: payload.SHA}, nil
}

// Write implements Store.Write.
func (g *GitHub) Write(ctx context.Context, wr WriteRequest) (string, error) {
	if wr.Credential == "" {
		return "", fmt.Errorf("%w: credential required", ErrUnauthorized)
	}

	message := wr.Message
	if message == "" {
		message = "Update " + wr.Path
	}
	payload, err := json.Marshal(putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(wr.Content),
		SHA:     wr.ExpectedRevision,
		Branch:  g.config.Branch,
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal write: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.contentsURL(wr.Path), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: failed to build request: %v", ErrTransport, err)
	}
	g.authorize(req, wr.Credential)
	req.Header.Set("Content-Type", "application/json")

	resp, body, err := g.do(req)
	if err != nil {
		return "", err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict:
		return "", &ConflictError{Path: wr.Path, ExpectedRevision: wr.ExpectedRevision}
	case http.StatusUnprocessableEntity:
		// Writing without a sha over an existing file: someone created it first.
		if wr.ExpectedRevision == "" {
			return "", &ConflictError{Path: wr.Path}
		}
		return "", statusError(req, resp, body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("%w: %s", ErrUnauthorized, apiMessage(body))
	case http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrNotFound, apiMessage(body))
	default:
		return "", statusError(req, resp, body)
	}

	var out putResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: failed to parse write response: %v", ErrTransport, err)
	}

	g.config.Logger.Printf("Wrote %s: %s -> %s", wr.Path, shortRevision(wr.ExpectedRevision), shortRevision(out.Content.SHA))
	return out.Content.SHA, nil
}

func (g *GitHub) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.config.APIURL, g.config.Owner, g.config.Repo, escapePath(path))
}

func (g *GitHub) authorize(req *http.Request, credential string) {
	req.Header.Set("Authorization", "token "+credential)
	req.Header.Set("Accept", "application/vnd.github+json")
}

// do executes req and reads the whole body. Network failures map to ErrTransport.
func (g *GitHub) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := g.config.HTTPClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, req.Method, req.URL.Path, ctxErr)
		}
		return nil, nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read response body: %v", ErrTransport, err)
	}
	return resp, body, nil
}

func decodeContent(payload contentsResponse) ([]byte, error) {
	if payload.Encoding != "" && payload.Encoding != "base64" {
		return nil, fmt.Errorf("%w: unsupported content encoding %q", ErrTransport, payload.Encoding)
	}
	// The API wraps base64 at 60 columns.
	clean := strings.NewReplacer("\n", "", "\r", "").Replace(payload.Content)
	content, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode content: %v", ErrTransport, err)
	}
	return content, nil
}

func statusError(req *http.Request, resp *http.Response, body []byte) error {
	return &StatusError{
		Method:     req.Method,
		URL:        req.URL.Path,
		StatusCode: resp.StatusCode,
		Message:    apiMessage(body),
	}
}

func apiMessage(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return strings.TrimSpace(string(body))
}

// escapePath escapes each path segment but keeps the separators.
func escapePath(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func shortRevision(rev string) string {
	if rev == "" {
		return "(none)"
	}
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}


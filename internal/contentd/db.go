// Package contentd is a self-hosted content API for the planner's documents.
//
// It serves the subset of the GitHub REST API the remote package speaks:
// anonymous raw reads plus token-authenticated contents reads and writes,
// with compare-and-swap on the blob revision. Documents live in an embedded
// SQLite database (WAL mode), so several planner sessions on one machine or
// one network can share a board without a GitHub repository.
//
// Layout:
//
//	GET /raw/{owner}/{repo}/{branch}/{path...}          published content
//	GET /repos/{owner}/{repo}/contents/{path...}        content + sha (auth)
//	PUT /repos/{owner}/{repo}/contents/{path...}        CAS write (auth)
//	GET /repos/{owner}/{repo}/commits?path=...          write history (auth)
//	GET /health
package contentd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/pjp27/organizacion/internal/remote"
)

// DB stores documents and their write history.
type DB struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

// Blob is the current state of a document.
type Blob struct {
	Path      string
	Content   []byte
	SHA       string
	Message   string
	UpdatedAt time.Time
}

// Commit is one accepted write.
type Commit struct {
	SHA       string    `json:"sha"`
	Path      string    `json:"path"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Open opens (creating if needed) the database at path and initializes
// the schema.
//
// The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, path: path, now: time.Now}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := db.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.conn = nil
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

func (db *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		path TEXT PRIMARY KEY,
		content BLOB NOT NULL,
		sha TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS commits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		sha TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_commits_path ON commits(path, id);
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Get returns the document at path, or remote.ErrNotFound.
func (db *DB) Get(ctx context.Context, path string) (*Blob, error) {
	var (
		b         Blob
		updatedAt string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT path, content, sha, message, updated_at FROM documents WHERE path = ?`, path,
	).Scan(&b.Path, &b.Content, &b.SHA, &b.Message, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", remote.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", path, err)
	}
	b.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if b.Content == nil {
		b.Content = []byte{}
	}
	return &b, nil
}

// Put replaces the document at path if its current revision is expectedSHA
// and returns the new revision. An empty expectedSHA creates the document
// and fails if it already exists. A stale revision yields a
// *remote.ConflictError and nothing is written.
func (db *DB) Put(ctx context.Context, path string, content []byte, expectedSHA, message string) (string, error) {
	sha := remote.BlobSHA(content)
	now := db.now().UTC().Format(time.RFC3339Nano)
	if content == nil {
		content = []byte{}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var res sql.Result
	if expectedSHA == "" {
		res, err = tx.ExecContext(ctx, `
		INSERT INTO documents (path, content, sha, message, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO NOTHING
		`, path, content, sha, message, now)
	} else {
		res, err = tx.ExecContext(ctx, `
		UPDATE documents
		SET content = ?, sha = ?, message = ?, updated_at = ?
		WHERE path = ? AND sha = ?
		`, content, sha, message, now, path, expectedSHA)
	}
	if err != nil {
		return "", fmt.Errorf("failed to write document %s: %w", path, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to write document %s: %w", path, err)
	}
	if n == 0 {
		return "", &remote.ConflictError{Path: path, ExpectedRevision: expectedSHA}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO commits (path, sha, message, created_at) VALUES (?, ?, ?, ?)`,
		path, sha, message, now,
	); err != nil {
		return "", fmt.Errorf("failed to record commit for %s: %w", path, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit write of %s: %w", path, err)
	}
	return sha, nil
}

// History returns the most recent writes of path, newest first.
// A limit of 0 or less returns every write.
func (db *DB) History(ctx context.Context, path string, limit int) ([]Commit, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.QueryContext(ctx, `
	SELECT sha, path, message, created_at FROM commits
	WHERE path = ?
	ORDER BY id DESC
	LIMIT ?
	`, path, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history of %s: %w", path, err)
	}
	defer rows.Close()

	commits := []Commit{}
	for rows.Next() {
		var (
			c         Commit
			createdAt string
		)
		if err := rows.Scan(&c.SHA, &c.Path, &c.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan commit: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history of %s: %w", path, err)
	}
	return commits, nil
}

// Count returns the number of stored documents.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

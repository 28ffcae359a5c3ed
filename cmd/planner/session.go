package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/pjp27/organizacion/internal/planner"
	"github.com/pjp27/organizacion/internal/remote"
	"github.com/pjp27/organizacion/internal/ui"
)

// offlineToken is the credential accepted by the offline store.
const offlineToken = "offline"

// session is a loaded planner and the store behind it.
type session struct {
	planner *planner.Planner
	local   *localStore
}

// openSession builds the store from the config, creates the planner and
// loads both documents.
func openSession(ctx context.Context, observer planner.Observer) (*session, error) {
	s := &session{}

	var store remote.Store
	if offline {
		local, err := openLocalStore(dataDir, cfg.TasksPath, cfg.ExamsPath)
		if err != nil {
			return nil, err
		}
		s.local = local
		store = local
	} else {
		gh, err := remote.NewGitHub(cfg.RemoteConfig(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
		store = gh
	}

	pc := cfg.PlannerConfig(logger)
	if observer != nil {
		pc.Observer = observer
	}
	s.planner = planner.New(store, pc)

	if err := s.planner.LoadRecords(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// save writes both documents and reports the outcome.
func (s *session) save(ctx context.Context) error {
	credential := offlineToken
	if s.local == nil {
		credential = resolveToken()
	}

	report, err := s.planner.SaveAll(ctx, credential)
	if s.local != nil {
		// The store only holds successful writes, so flush even when one document failed.
		if ferr := s.local.flush(ctx); ferr != nil {
			return errors.Join(err, ferr)
		}
	}
	if err != nil {
		return err
	}

	attempts := report.Tasks.Attempts + report.Exams.Attempts
	msg := fmt.Sprintf("%s Saved %d tasks and %d exams", ui.RenderPass("✓"), report.Tasks.Records, report.Exams.Records)
	if attempts > 2 {
		msg += ui.RenderMuted(fmt.Sprintf(" (merged remote changes, %d write attempts)", attempts))
	}
	fmt.Fprintln(os.Stderr, msg)
	return nil
}

// resolveToken returns the write credential from --token, PLANNER_TOKEN or
// an interactive prompt. It returns "" when none is available; the save
// then fails as unauthorized.
func resolveToken() string {
	if tokenFlag != "" {
		return tokenFlag
	}
	if t := os.Getenv("PLANNER_TOKEN"); t != "" {
		return t
	}
	if !interactive() {
		return ""
	}

	var token string
	err := huh.NewInput().
		Title("GitHub token").
		Description("Needs contents write access. It is not stored.").
		EchoMode(huh.EchoModePassword).
		Value(&token).
		Run()
	if err != nil {
		logger.Printf("Token prompt cancelled: %v", err)
		return ""
	}
	// Reuse it for the rest of the process.
	tokenFlag = token
	return token
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// output prints v in the selected format; text renders the human form.
func output(v any, text func() string) error {
	switch format {
	case "", "text":
		fmt.Println(text())
		return nil
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

// localStore is an in-memory store seeded from, and flushed back to, a
// directory of document files.
type localStore struct {
	*remote.Memory
	dir   string
	paths []string
}

func openLocalStore(dir string, paths ...string) (*localStore, error) {
	s := &localStore{Memory: remote.NewMemory(offlineToken), dir: dir, paths: paths}
	for _, p := range paths {
		data, err := os.ReadFile(s.file(p))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", s.file(p), err)
		}
		s.Put(p, data)
	}
	return s, nil
}

// file maps a document path to its file in dir by base name.
func (s *localStore) file(path string) string {
	return filepath.Join(s.dir, filepath.Base(path))
}

func (s *localStore) flush(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.dir, err)
	}
	for _, p := range s.paths {
		data, err := s.FetchPublic(ctx, p)
		if remote.IsNotFound(err) {
			continue
		}
		if err != nil {
			return err
		}
		if err := os.WriteFile(s.file(p), data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", s.file(p), err)
		}
	}
	return nil
}

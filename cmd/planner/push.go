package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pjp27/organizacion/internal/planner"
	"github.com/pjp27/organizacion/internal/ui"
	"github.com/pjp27/organizacion/internal/watch"
)

var pushCmd = &cobra.Command{
	Use:     "push",
	GroupID: "sync",
	Short:   "Upload the document files in --data-dir",
	Long: `Replace the records with the contents of tasks.json and exams.json in
--data-dir and save them, merging with remote edits on conflict.

With --watch, keep running and push again each time one of the files changes.
Deleting a file never empties the remote document.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		watchDir, _ := cmd.Flags().GetBool("watch")
		if watchDir && offline {
			// Offline saves rewrite the watched files, which would trigger another push.
			return errors.New("--watch cannot be combined with --offline: saving rewrites the watched files in --data-dir")
		}

		s, err := openSession(cmd.Context(), nil)
		if err != nil {
			return err
		}

		imported := 0
		for _, ev := range documentFiles() {
			if _, err := os.Stat(ev.Path); os.IsNotExist(err) {
				continue
			}
			if _, err := watch.Import(s.planner, ev); err != nil {
				return err
			}
			imported++
		}
		if imported > 0 {
			if err := s.save(cmd.Context()); err != nil {
				return err
			}
		} else {
			fmt.Printf("%s No document files in %s\n", ui.RenderWarn("⚠"), dataDir)
		}

		if !watchDir {
			return nil
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return watchAndPush(ctx, s)
	},
}

// documentFiles lists the files push reads, as watch events.
func documentFiles() []watch.FileEvent {
	return []watch.FileEvent{
		{Path: filepath.Join(dataDir, filepath.Base(cfg.TasksPath)), Collection: planner.CollectionTasks, Op: watch.OpModify},
		{Path: filepath.Join(dataDir, filepath.Base(cfg.ExamsPath)), Collection: planner.CollectionExams, Op: watch.OpModify},
	}
}

// watchAndPush imports and saves each changed document file until ctx ends.
func watchAndPush(ctx context.Context, s *session) error {
	w, err := watch.New(dataDir, &watch.Config{
		TasksFile: filepath.Base(cfg.TasksPath),
		ExamsFile: filepath.Base(cfg.ExamsPath),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Printf("%s Watching %s (Ctrl+C to stop)\n", ui.RenderAccent("👀"), w.Dir())

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped watching")
			return nil

		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "%s watcher: %v\n", ui.RenderWarn("⚠"), err)

		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			changed, err := watch.Import(s.planner, ev)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", ui.RenderWarn("⚠"), filepath.Base(ev.Path), err)
				continue
			}
			if !changed {
				fmt.Printf("%s %s %s, remote copy kept\n", ui.RenderMuted("·"), filepath.Base(ev.Path), ev.Op)
				continue
			}
			if err := s.save(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "%s push failed: %v\n", ui.RenderFail("✗"), err)
				if hint := errorHint(err); hint != "" {
					fmt.Fprintf(os.Stderr, "   %s\n", hint)
				}
			}
		}
	}
}

func init() {
	pushCmd.Flags().BoolP("watch", "w", false, "keep running and push on every change")
	rootCmd.AddCommand(pushCmd)
}

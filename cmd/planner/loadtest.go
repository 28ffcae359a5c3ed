package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pjp27/organizacion/internal/contentd"
	"github.com/pjp27/organizacion/internal/loadtest"
	"github.com/pjp27/organizacion/internal/remote"
	"github.com/pjp27/organizacion/internal/ui"
)

var loadtestCmd = &cobra.Command{
	Use:     "loadtest",
	GroupID: "advanced",
	Short:   "Race concurrent writers on a scratch content server",
	Long: `Start a content server on a temporary database and run concurrent
sessions that each load the task document, add a task and save.

The report shows save latency, how many writes conflicted and were merged,
and how many saved tasks were lost to stale overwrites.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		writers, _ := cmd.Flags().GetInt("writers")
		rounds, _ := cmd.Flags().GetInt("rounds")
		retries, _ := cmd.Flags().GetInt("retries")

		dir, err := os.MkdirTemp("", "planner-loadtest")
		if err != nil {
			return fmt.Errorf("failed to create temp dir: %w", err)
		}
		defer os.RemoveAll(dir)

		db, err := contentd.Open(filepath.Join(dir, "content.db"))
		if err != nil {
			return err
		}
		defer db.Close()

		const token = "loadtest"
		server := contentd.NewServer(db, &contentd.Config{
			Addr:   "127.0.0.1:0",
			Owner:  cfg.Owner,
			Repo:   cfg.Repo,
			Branch: cfg.Branch,
			Token:  token,
			Logger: log.New(io.Discard, "", 0),
		})
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop()

		base := "http://" + server.Addr()
		gh, err := remote.NewGitHub(&remote.Config{
			APIURL: base,
			RawURL: base + "/raw",
			Owner:  cfg.Owner,
			Repo:   cfg.Repo,
			Branch: cfg.Branch,
			Logger: logger,
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s %d writers x %d rounds against %s\n", ui.RenderAccent("⚡"), writers, rounds, base)
		report, err := loadtest.Run(cmd.Context(), gh, cfg.TasksPath, &loadtest.Config{
			Writers:    writers,
			Rounds:     rounds,
			MaxRetries: retries,
			Credential: token,
			Logger:     logger,
		})
		if err != nil {
			return err
		}

		report.Print(os.Stdout)
		if !report.Converged() {
			fmt.Printf("%s lost: %v\n", ui.RenderWarn("⚠"), report.Missing)
		}
		return nil
	},
}

func init() {
	loadtestCmd.Flags().Int("writers", 8, "concurrent sessions")
	loadtestCmd.Flags().Int("rounds", 3, "tasks added per session")
	loadtestCmd.Flags().Int("retries", 10, "write attempts per save")
	rootCmd.AddCommand(loadtestCmd)
}

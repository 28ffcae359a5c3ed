package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pjp27/organizacion/internal/contentd"
	"github.com/pjp27/organizacion/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "advanced",
	Short:   "Run a local content API server",
	Long: `Serve documents from a local SQLite database with the same REST API the
planner uses against GitHub, for development and offline use.

Point the planner at it with:
  api_url = "http://localhost:8787"
  raw_url = "http://localhost:8787/raw"

The accepted token comes from PLANNER_SERVER_TOKEN. When it is unset any
non-empty token is accepted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Server.Addr
		}
		dbPath, _ := cmd.Flags().GetString("db")
		if dbPath == "" {
			dbPath = cfg.Server.DB
		}

		db, err := contentd.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		server := contentd.NewServer(db, &contentd.Config{
			Addr:   addr,
			Owner:  cfg.Owner,
			Repo:   cfg.Repo,
			Branch: cfg.Branch,
			Token:  cfg.Server.Token,
			Logger: log.New(os.Stderr, "[contentd] ", log.LstdFlags),
		})
		if err := server.Start(); err != nil {
			return err
		}

		fmt.Printf("%s Content server on http://%s\n", ui.RenderAccent("🚀"), server.Addr())
		fmt.Printf("   Repository: %s/%s@%s\n", cfg.Owner, cfg.Repo, cfg.Branch)
		fmt.Printf("   Database: %s\n", db.Path())
		if cfg.Server.Token == "" {
			fmt.Printf("   %s any non-empty token is accepted\n", ui.RenderWarn("⚠"))
		}
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		fmt.Println("\nShutting down content server...")
		return server.Stop()
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8787)")
	serveCmd.Flags().String("db", "", "SQLite database path (default from config)")
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pjp27/organizacion/internal/config"
	"github.com/pjp27/organizacion/internal/dashboard"
	"github.com/pjp27/organizacion/internal/planner"
	"github.com/pjp27/organizacion/internal/ui"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "advanced",
	Short:   "Start a live WebSocket feed of planner changes",
	Long: `Start a WebSocket server that broadcasts planner changes to connected
clients, for a browser board or calendar that updates live.

WebSocket messages include:
- record_update: a task or exam was added, moved, edited, removed or reloaded
- sync_complete: a save finished (with revisions and write attempts)
- stats: task counts by status and upcoming exams

The documents are reloaded from the remote every --refresh interval. With
--watch, changes to the files in --data-dir are pushed as they happen.
Palette and lead time edits in the config file apply without a restart.

Example usage:
  planner dashboard                   # Start on the configured port (8080)
  planner dashboard --port 9000       # Start on a custom port

Connect with a WebSocket client:
  ws://localhost:8080/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		if !cmd.Flags().Changed("port") {
			port = cfg.Dashboard.Port
		}
		refresh, _ := cmd.Flags().GetDuration("refresh")
		watchDir, _ := cmd.Flags().GetBool("watch")

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// The handler needs the planner for stats, and the planner needs
		// its observer up front.
		relay := &relayObserver{}
		s, err := openSession(ctx, relay)
		if err != nil {
			return err
		}

		server := dashboard.NewServer(&dashboard.Config{
			Host:   cfg.Dashboard.Host,
			Port:   port,
			Logger: log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
		})
		relay.target = dashboard.NewHandler(server, s.planner, logger)

		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}

		loader.Watch(func(c *config.Config) {
			s.planner.SetPresentation(c.Palette(), c.LeadTimes())
			fmt.Printf("%s Reloaded palette and lead times\n", ui.RenderAccent("↻"))
		})

		addr := server.Addr()
		fmt.Printf("Dashboard server started on http://%s\n", addr)
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", addr)
		fmt.Printf("Health check: http://%s/health\n", addr)
		fmt.Println("\nPress Ctrl+C to stop...")

		go refreshLoop(ctx, s.planner, refresh)

		if watchDir {
			if err := watchAndPush(ctx, s); err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
			}
		}
		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			return fmt.Errorf("error during shutdown: %w", err)
		}
		fmt.Println("Dashboard server stopped")
		return nil
	},
}

// relayObserver forwards to target once it is set. Notifications before
// that are dropped.
type relayObserver struct {
	target planner.Observer
}

func (r *relayObserver) OnChange(c planner.Change) {
	if r.target != nil {
		r.target.OnChange(c)
	}
}

func (r *relayObserver) OnSync(rep planner.SyncReport) {
	if r.target != nil {
		r.target.OnSync(rep)
	}
}

// refreshLoop reloads both documents every interval until ctx ends.
func refreshLoop(ctx context.Context, p *planner.Planner, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.LoadRecords(ctx); err != nil && ctx.Err() == nil {
				logger.Printf("Refresh failed: %v", err)
			}
		}
	}
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8080, "Port to listen on (default from config)")
	dashboardCmd.Flags().Duration("refresh", 30*time.Second, "reload interval, 0 to disable")
	dashboardCmd.Flags().BoolP("watch", "w", false, "push changes to the files in --data-dir")
	rootCmd.AddCommand(dashboardCmd)
}


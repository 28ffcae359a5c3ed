// Command planner manages the study planner's board and exam calendar.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pjp27/organizacion/internal/config"
	"github.com/pjp27/organizacion/internal/remote"
	"github.com/pjp27/organizacion/internal/sync"
	"github.com/pjp27/organizacion/internal/ui"
)

var (
	configPath string
	tokenFlag  string
	offline    bool
	dataDir    string
	noColor    bool
	verbose    bool
	logFile    string
	format     string

	cfg    *config.Config
	loader *config.Loader
	logger = log.New(io.Discard, "", 0)
)

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Study planner: task board and exam calendar",
	Long: `Manage a Kanban board of study tasks and a calendar of exams.

Both are stored as JSON documents in a GitHub repository. Reads use the
published copy; writes need a token with contents access, taken from
--token, the PLANNER_TOKEN environment variable, or an interactive prompt.
The token is only kept in memory.

With --offline the documents are read from and written to --data-dir.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Setup(os.Stdout, noColor)

		if cmd.Annotations["config"] == "skip" {
			return nil
		}
		loader = config.NewLoader(configPath, log.New(io.Discard, "", 0))
		c, err := loader.Load()
		if err != nil {
			return err
		}
		cfg = c

		path := logFile
		if path == "" {
			path = cfg.LogFile
		}
		switch {
		case path != "":
			logger = log.New(&lumberjack.Logger{
				Filename:   path,
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			}, "[planner] ", log.LstdFlags)
		case verbose:
			logger = log.New(os.Stderr, "[planner] ", log.LstdFlags)
		}
		if f := loader.ConfigFile(); f != "" {
			logger.Printf("Using config %s", f)
		}
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "records", Title: "Records:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
		&cobra.Group{ID: "advanced", Title: "Advanced:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default: planner.toml in . or ~/.config/planner)")
	pf.StringVar(&tokenFlag, "token", "", "GitHub token for writes (default: $PLANNER_TOKEN or prompt)")
	pf.BoolVar(&offline, "offline", false, "read and write documents in --data-dir instead of GitHub")
	pf.StringVar(&dataDir, "data-dir", "data", "local document directory for --offline, push and --watch")
	pf.BoolVar(&noColor, "no-color", false, "disable colour output")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log activity to stderr")
	pf.StringVar(&logFile, "log-file", "", "write logs to a rotated file")
}

// addFormatFlag registers --format on a read command.
func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "   %s\n", hint)
		}
		os.Exit(1)
	}
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, remote.ErrUnauthorized):
		return "Set PLANNER_TOKEN or pass --token with a token that can write to the repository."
	case errors.Is(err, sync.ErrConflictUnresolved):
		return "The document kept changing remotely. Run the command again."
	case errors.Is(err, sync.ErrBusy):
		return "Another save is in progress."
	}
	return ""
}

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pjp27/organizacion/internal/config"
	"github.com/pjp27/organizacion/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "advanced",
	Short:   "Create or show the configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Long: `Write the default configuration, including the subject palette and
lead times, to planner.toml (or the given path).`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{"config": "skip"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.FileName + ".toml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		var buf bytes.Buffer
		if err := config.WriteDefault(&buf); err != nil {
			return err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return output(cfg, func() string {
			var buf bytes.Buffer
			source := loader.ConfigFile()
			if source == "" {
				source = "defaults"
			}
			fmt.Fprintf(&buf, "# source: %s\n", source)
			if err := config.Encode(&buf, cfg); err != nil {
				return ui.RenderFail(err.Error())
			}
			return buf.String()
		})
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	addFormatFlag(configShowCmd)

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

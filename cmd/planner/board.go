package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pjp27/organizacion/internal/planner"
	"github.com/pjp27/organizacion/internal/ui"
)

var boardCmd = &cobra.Command{
	Use:     "board [day]",
	GroupID: "records",
	Short:   "Show the task board of a day",
	Long: `Show the Kanban board of one day: to do, in progress and completed.

The day defaults to today and accepts YYYY-MM-DD or natural language
("tomorrow", "next monday").`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var arg string
		if len(args) == 1 {
			arg = args[0]
		}
		day, err := parseDay(arg, time.Now())
		if err != nil {
			return err
		}

		s, err := openSession(cmd.Context(), nil)
		if err != nil {
			return err
		}
		board := s.planner.TasksForDay(day)
		palette := s.planner.Palette()
		return output(board, func() string { return ui.RenderBoard(board, palette) })
	},
}

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "records",
	Short:   "Count tasks by status and upcoming exams",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), nil)
		if err != nil {
			return err
		}
		stats := s.planner.Stats(time.Now())
		return output(stats, func() string { return renderStats(stats) })
	},
}

func renderStats(st planner.Stats) string {
	return fmt.Sprintf("%s\n  Tasks: %d (%d to do, %d in progress, %d completed)\n  Exams: %d (%d upcoming)",
		ui.RenderAccent("Planner"),
		st.Tasks, st.Todo, st.InProgress, st.Completed,
		st.Exams, st.Upcoming)
}

func init() {
	addFormatFlag(boardCmd)
	addFormatFlag(statsCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(statsCmd)
}

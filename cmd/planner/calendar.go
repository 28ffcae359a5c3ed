package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pjp27/organizacion/internal/ui"
	"github.com/pjp27/organizacion/internal/view"
)

var calendarCmd = &cobra.Command{
	Use:     "calendar",
	GroupID: "records",
	Short:   "Show exams and study reminders",
	Long: `Show the calendar: every exam plus its study reminders.

Use --day to show one day only.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		dayArg, _ := cmd.Flags().GetString("day")

		s, err := openSession(cmd.Context(), nil)
		if err != nil {
			return err
		}
		events := s.planner.CalendarEvents(now)
		if dayArg != "" {
			day, err := parseDay(dayArg, now)
			if err != nil {
				return err
			}
			events = view.EventsOn(events, day)
		}
		return output(events, func() string { return ui.RenderEvents(events) })
	},
}

func init() {
	calendarCmd.Flags().String("day", "", "only show this day")
	addFormatFlag(calendarCmd)
	rootCmd.AddCommand(calendarCmd)
}

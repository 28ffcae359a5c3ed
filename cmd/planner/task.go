package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/pjp27/organizacion/internal/planner"
	"github.com/pjp27/organizacion/internal/schema"
	"github.com/pjp27/organizacion/internal/ui"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	GroupID: "records",
	Short:   "Add, move and remove board tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a task",
	Long: `Add a task to the board and save.

Without a name, an interactive form asks for the fields.

Examples:
  planner task add "Resumen tema 4" --subject Historia --date tomorrow
  planner task add "Ejercicios" --start 16:00 --end 17:30 --priority`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		subject, _ := flags.GetString("subject")
		dateArg, _ := flags.GetString("date")
		start, _ := flags.GetString("start")
		end, _ := flags.GetString("end")
		priority, _ := flags.GetBool("priority")
		status, _ := flags.GetString("status")

		fields := planner.TaskFields{
			Subject:      subject,
			StartTime:    start,
			EndTime:      end,
			Status:       schema.Status(status),
			HighPriority: priority,
		}
		if len(args) == 1 {
			fields.Name = args[0]
		} else {
			if !interactive() {
				return fmt.Errorf("task name is required")
			}
			if err := taskForm(&fields, &dateArg); err != nil {
				return err
			}
		}

		day, err := parseDay(dateArg, time.Now())
		if err != nil {
			return err
		}
		fields.Date = day

		s, err := openSession(cmd.Context(), nil)
		if err != nil {
			return err
		}
		task, err := s.planner.AddTask(fields)
		if err != nil {
			return err
		}
		if err := s.save(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("%s Added %s %s on %s\n", ui.RenderPass("✓"), ui.RenderMuted(task.ID), task.Name, task.Date)
		return nil
	},
}

func taskForm(fields *planner.TaskFields, date *string) error {
	subjects := huh.NewOptions(append([]string{""}, schema.Subjects()...)...)
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Task").Value(&fields.Name).Validate(required("name")),
			huh.NewInput().Title("Date").Placeholder("today").Value(date),
			huh.NewSelect[string]().Title("Subject").Options(subjects...).Value(&fields.Subject),
		),
		huh.NewGroup(
			huh.NewInput().Title("Start time").Placeholder("16:00").Value(&fields.StartTime),
			huh.NewInput().Title("End time").Placeholder("17:00").Value(&fields.EndTime),
			huh.NewConfirm().Title("High priority?").Value(&fields.HighPriority),
		),
	).Run()
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <id> <left|right>",
	Short: "Move a task one column left or right",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := schema.ParseDirection(args[1])
		if err != nil {
			return err
		}

		s, err := openSession(cmd.Context(), nil)
		if err != nil {
			return err
		}
		before, err := s.planner.Task(args[0])
		if err != nil {
			return err
		}
		after, err := s.planner.MoveTaskStatus(args[0], dir)
		if err != nil {
			return err
		}
		if after.Status == before.Status {
			fmt.Printf("%s %s is already %s\n", ui.RenderWarn("⚠"), after.Name, after.Status)
			return nil
		}
		if err := s.save(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("%s %s: %s -> %s\n", ui.RenderPass("✓"), after.Name, before.Status, after.Status)
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Remove a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), nil)
		if err != nil {
			return err
		}
		task, err := s.planner.Task(args[0])
		if err != nil {
			return err
		}
		if _, err := s.planner.DeleteRecord(task.ID); err != nil {
			return err
		}
		if err := s.save(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("%s Removed %s\n", ui.RenderPass("✓"), task.Name)
		return nil
	},
}

func init() {
	f := taskAddCmd.Flags()
	f.StringP("subject", "s", "", "subject")
	f.StringP("date", "d", "", "day (YYYY-MM-DD or natural language, default today)")
	f.String("start", "", "start time (HH:MM)")
	f.String("end", "", "end time (HH:MM)")
	f.BoolP("priority", "p", false, "mark as high priority")
	f.String("status", string(schema.StatusTodo), "initial column: todo, inprogress or completed")

	taskCmd.AddCommand(taskAddCmd, taskMoveCmd, taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}

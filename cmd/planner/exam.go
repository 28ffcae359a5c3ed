package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/pjp27/organizacion/internal/planner"
	"github.com/pjp27/organizacion/internal/schema"
	"github.com/pjp27/organizacion/internal/ui"
	"github.com/pjp27/organizacion/internal/view"
)

var examCmd = &cobra.Command{
	Use:     "exam",
	GroupID: "records",
	Short:   "Manage exams and their study reminders",
}

var examAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add an exam",
	Long: `Add an exam to the calendar and save.

Study reminders are shown on the --remind days before the exam. Without
--remind the subject's configured lead time is used. A name containing
"estudiar" marks a study session instead of an exam.

Examples:
  planner exam add Parcial --subject Matematicas --date 2024-06-10
  planner exam add "Estudiar tema 5" --subject Fisica --date "next friday" --remind 0`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		subject, _ := flags.GetString("subject")
		dateArg, _ := flags.GetString("date")

		fields := planner.ExamFields{Subject: subject}
		if flags.Changed("remind") {
			days, _ := flags.GetInt("remind")
			fields.ReminderTime = &days
		}
		if len(args) == 1 {
			fields.ExamName = args[0]
		} else {
			if !interactive() {
				return fmt.Errorf("exam name is required")
			}
			if err := examForm(&fields, &dateArg); err != nil {
				return err
			}
		}
		if dateArg == "" {
			return fmt.Errorf("--date is required")
		}
		day, err := parseDay(dateArg, time.Now())
		if err != nil {
			return err
		}
		fields.ExamDate = day

		s, err := openSession(cmd.Context(), nil)
		if err != nil {
			return err
		}
		exam, err := s.planner.AddExam(fields)
		if err != nil {
			return err
		}
		if err := s.save(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("%s Added %s %s: %s on %s (%d reminder days)\n",
			ui.RenderPass("✓"), ui.RenderMuted(exam.ID), exam.Subject, exam.ExamName, exam.ExamDate, exam.ReminderTime)
		return nil
	},
}

func examForm(fields *planner.ExamFields, date *string) error {
	if fields.Subject == "" {
		fields.Subject = schema.Subjects()[0]
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Subject").Options(huh.NewOptions(schema.Subjects()...)...).Value(&fields.Subject),
			huh.NewInput().Title("Exam").Value(&fields.ExamName).Validate(required("name")),
			huh.NewInput().Title("Date").Placeholder("YYYY-MM-DD").Value(date).Validate(required("date")),
		),
	).Run()
}

var examRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Remove an exam and its reminders",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), nil)
		if err != nil {
			return err
		}
		exam, err := s.planner.Exam(args[0])
		if err != nil {
			return err
		}
		if _, err := s.planner.DeleteRecord(exam.ID); err != nil {
			return err
		}
		if err := s.save(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("%s Removed %s: %s\n", ui.RenderPass("✓"), exam.Subject, exam.ExamName)
		return nil
	},
}

var examRemindCmd = &cobra.Command{
	Use:   "remind <id> <days>",
	Short: "Set the number of study reminder days of an exam",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("days must be a number (got %q)", args[1])
		}

		s, err := openSession(cmd.Context(), nil)
		if err != nil {
			return err
		}
		exam, err := s.planner.SetReminderTime(args[0], days)
		if err != nil {
			return err
		}
		if err := s.save(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("%s %s: %d reminder days\n", ui.RenderPass("✓"), exam.ExamName, exam.ReminderTime)
		return nil
	},
}

var examListCmd = &cobra.Command{
	Use:   "list",
	Short: "List upcoming and past exams",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), nil)
		if err != nil {
			return err
		}
		list := s.planner.ExamList(time.Now())
		palette := s.planner.Palette()
		return output(list, func() string { return ui.RenderExamList(list, palette) })
	},
}

var examShowCmd = &cobra.Command{
	Use:   "show <subject>",
	Short: "Show the exams of one subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), nil)
		if err != nil {
			return err
		}
		entries := s.planner.SubjectExams(args[0], time.Now())
		palette := s.planner.Palette()
		return output(entries, func() string {
			list := view.ExamList{Upcoming: []view.ExamEntry{}}
			for _, e := range entries {
				if e.IsPast {
					list.Past = append(list.Past, e)
				} else {
					list.Upcoming = append(list.Upcoming, e)
				}
			}
			return ui.RenderAccent(args[0]) + "\n" + ui.RenderExamList(list, palette)
		})
	},
}

func init() {
	f := examAddCmd.Flags()
	f.StringP("subject", "s", "", "subject")
	f.StringP("date", "d", "", "exam day (YYYY-MM-DD or natural language)")
	f.IntP("remind", "r", 0, "study reminder days before the exam (default: subject lead time)")

	addFormatFlag(examListCmd)
	addFormatFlag(examShowCmd)

	examCmd.AddCommand(examAddCmd, examRmCmd, examRemindCmd, examListCmd, examShowCmd)
	rootCmd.AddCommand(examCmd)
}

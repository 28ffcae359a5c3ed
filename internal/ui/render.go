package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pjp27/organizacion/internal/schema"
	"github.com/pjp27/organizacion/internal/view"
)

// ColumnWidth is the width of a board column, borders included.
const ColumnWidth = 30

var columnTitles = map[schema.Status]string{
	schema.StatusTodo:       "Por hacer",
	schema.StatusInProgress: "En progreso",
	schema.StatusCompleted:  "Completado",
}

// RenderBoard renders the day's board as three side-by-side columns.
func RenderBoard(b view.Board, p view.Palette) string {
	columns := make([]string, 0, 3)
	for _, status := range schema.Statuses() {
		columns = append(columns, renderColumn(b, status, p))
	}
	header := RenderBold(b.Day)
	return lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinHorizontal(lipgloss.Top, columns...))
}

func renderColumn(b view.Board, status schema.Status, p view.Palette) string {
	cards := b.Cards(status)

	var sb strings.Builder
	sb.WriteString(RenderAccent(fmt.Sprintf("%s (%d)", columnTitles[status], len(cards))))
	if len(cards) == 0 {
		sb.WriteString("\n" + RenderMuted("-"))
	}
	for _, c := range cards {
		sb.WriteString("\n" + renderCard(c, p))
	}

	return style().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted).
		Padding(0, 1).
		Width(ColumnWidth - 2).
		Render(sb.String())
}

func renderCard(c view.TaskCard, p view.Palette) string {
	var arrows string
	if c.CanMoveLeft {
		arrows += "<"
	}
	if c.CanMoveRight {
		arrows += ">"
	}

	name := c.Name
	if c.HighPriority {
		name = RenderFail("!") + " " + name
	}
	lines := []string{name}

	var meta []string
	if c.Subject != "" {
		meta = append(meta, Swatch(" ", p.Color(c.Subject))+" "+c.Subject)
	}
	if c.TimeRange != "" {
		meta = append(meta, c.TimeRange)
	}
	if len(meta) > 0 {
		lines = append(lines, "  "+strings.Join(meta, " · "))
	}
	lines = append(lines, "  "+RenderMuted(c.ID+" "+arrows))
	return strings.Join(lines, "\n")
}

// RenderEvents renders calendar events as one line per event, grouped by
// day in date order.
func RenderEvents(events []view.Event) string {
	if len(events) == 0 {
		return RenderMuted("No events")
	}
	events = slices.Clone(events)
	slices.SortStableFunc(events, func(a, b view.Event) int {
		return strings.Compare(a.Date, b.Date)
	})

	var sb strings.Builder
	day := ""
	for _, ev := range events {
		if ev.Date != day {
			if day != "" {
				sb.WriteString("\n")
			}
			day = ev.Date
			sb.WriteString(RenderBold(day) + "\n")
		}
		sb.WriteString("  " + renderEvent(ev) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderEvent(ev view.Event) string {
	marker := Swatch(" ", ev.BorderColor)
	title := ev.Title
	switch {
	case ev.IsPast:
		title = RenderMuted(title)
	case ev.Kind == view.KindExam:
		title = RenderBold(title)
	}
	kind := "exam"
	if ev.Kind == view.KindReminder {
		kind = "reminder"
	}
	if ev.IsStudyVariant {
		kind = "study " + kind
	}
	return fmt.Sprintf("%s %s %s", marker, title, RenderMuted("("+kind+")"))
}

// RenderExamList renders the upcoming and past sections of an exam list.
func RenderExamList(list view.ExamList, p view.Palette) string {
	var sb strings.Builder

	sb.WriteString(RenderAccent(fmt.Sprintf("Upcoming (%d)", len(list.Upcoming))) + "\n")
	for _, e := range list.Upcoming {
		sb.WriteString("  " + renderExamEntry(e, p) + "\n")
	}
	if len(list.Past) > 0 {
		sb.WriteString("\n" + RenderMuted(fmt.Sprintf("Past (%d)", len(list.Past))) + "\n")
		for _, e := range list.Past {
			sb.WriteString("  " + renderExamEntry(e, p) + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderExamEntry(e view.ExamEntry, p view.Palette) string {
	var when string
	switch {
	case e.IsPast && e.DaysUntil == 0:
		// Only undated exams are past with no days elapsed.
		when = "no valid date"
	case e.DaysUntil == 0:
		when = RenderWarn("today")
	case e.DaysUntil == 1:
		when = RenderWarn("tomorrow")
	case e.DaysUntil > 0:
		when = fmt.Sprintf("in %d days", e.DaysUntil)
	default:
		when = fmt.Sprintf("%d days ago", -e.DaysUntil)
	}

	line := fmt.Sprintf("%s %s  %s: %s  %s  %s",
		Swatch(" ", p.Color(e.Exam.Subject)),
		e.Exam.ExamDate,
		e.Exam.Subject,
		e.Exam.ExamName,
		when,
		RenderMuted(e.Exam.ID))
	if e.IsPast {
		return RenderMuted(line)
	}
	return line
}

package view

import (
	"time"

	"github.com/pjp27/organizacion/internal/schema"
)

// EventKind distinguishes exam events from generated reminders.
type EventKind string

const (
	KindExam     EventKind = "exam"
	KindReminder EventKind = "reminder"
)

// Calendar colours.
const (
	BorderStudyReminder = "#00BFFF"
	BorderReminder      = "#000080"
	BorderStudyExam     = "#000080"
	BorderExam          = "#FF0000"
	TextPast            = "black"
)

// Background alphas.
const (
	ReminderAlpha = 0.3
	PastAlpha     = 0.1
)

// Event is a single calendar entry.
type Event struct {
	Kind   EventKind `json:"kind" yaml:"kind"`
	ExamID string    `json:"examId" yaml:"examId"`
	Title  string    `json:"title" yaml:"title"`

	// Date is the calendar day (YYYY-MM-DD).
	Date string `json:"date" yaml:"date"`

	Color       string `json:"color" yaml:"color"`
	BorderColor string `json:"borderColor" yaml:"borderColor"`
	TextColor   string `json:"textColor,omitempty" yaml:"textColor,omitempty"`

	IsPast         bool     `json:"isPast" yaml:"isPast"`
	IsStudyVariant bool     `json:"isStudyVariant" yaml:"isStudyVariant"`
	Classes        []string `json:"classes" yaml:"classes"`
}

// Reminders expands exam into its study reminders: one event on each of the
// ReminderTime days before the exam, nearest day first. Exams without
// reminders or with an unparseable date yield no events.
func Reminders(exam schema.Exam, ref time.Time, p Palette) []Event {
	n := exam.ReminderTime
	if n <= 0 {
		return nil
	}
	day, err := exam.Date(ref.Location())
	if err != nil {
		return nil
	}

	today := startOfDay(ref)
	alpha := ReminderAlpha
	if day.Before(today) {
		alpha = PastAlpha
	}
	background := RGBA(p.Color(exam.Subject), alpha)

	study := exam.IsStudyEvent()
	border, class := BorderReminder, "study-reminder"
	if study {
		border, class = BorderStudyReminder, "study-reminder-for-study"
	}

	events := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		d := day.AddDate(0, 0, -i)
		past := d.Before(today)
		classes := []string{class}
		if past {
			classes = append(classes, "past-event")
		}
		events = append(events, Event{
			Kind:           KindReminder,
			ExamID:         exam.ID,
			Title:          "Estudiar " + exam.Subject,
			Date:           d.Format(schema.DateLayout),
			Color:          background,
			BorderColor:    border,
			TextColor:      TextPast,
			IsPast:         past,
			IsStudyVariant: study,
			Classes:        classes,
		})
	}
	return events
}

// ExamEvent builds the calendar entry of exam itself.
// ok is false when the exam date does not parse.
func ExamEvent(exam schema.Exam, ref time.Time, p Palette) (ev Event, ok bool) {
	day, err := exam.Date(ref.Location())
	if err != nil {
		return Event{}, false
	}

	past := day.Before(startOfDay(ref))
	study := exam.IsStudyEvent()

	ev = Event{
		Kind:           KindExam,
		ExamID:         exam.ID,
		Title:          exam.ExamName,
		Date:           exam.ExamDate,
		Color:          p.Color(exam.Subject),
		BorderColor:    BorderExam,
		IsPast:         past,
		IsStudyVariant: study,
		Classes:        []string{"exam-event"},
	}
	if study {
		ev.BorderColor = BorderStudyExam
		ev.Classes = []string{"study-event"}
	}
	if past {
		ev.Color = RGBA(ev.Color, PastAlpha)
		ev.TextColor = TextPast
		ev.Classes = append(ev.Classes, "past-event")
	}
	return ev, true
}

// CalendarEvents returns every reminder followed by one event per exam.
func CalendarEvents(exams []schema.Exam, ref time.Time, p Palette) []Event {
	events := []Event{}
	for _, e := range exams {
		events = append(events, Reminders(e, ref, p)...)
	}
	for _, e := range exams {
		if ev, ok := ExamEvent(e, ref, p); ok {
			events = append(events, ev)
		}
	}
	return events
}

// EventsOn filters events to a single day.
func EventsOn(events []Event, day string) []Event {
	out := []Event{}
	for _, ev := range events {
		if ev.Date == day {
			out = append(out, ev)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

package view

import (
	"testing"
	"time"

	"github.com/pjp27/organizacion/internal/schema"
)

// ref is noon on 2024-06-05 in a fixed zone, so calendar days do not depend
// on the machine's timezone.
var ref = time.Date(2024, 6, 5, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

func exam(id, subject, name, date string, reminders int) schema.Exam {
	return schema.Exam{
		ID:           id,
		Subject:      subject,
		ExamName:     name,
		ExamDate:     date,
		ReminderTime: reminders,
		Created:      "2024-06-01T10:00:00.000Z",
	}
}

func dates(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Date
	}
	return out
}

func TestRGBA(t *testing.T) {
	tests := []struct {
		hex   string
		alpha float64
		want  string
	}{
		{"#25a6da", 0.3, "rgba(37, 166, 218, 0.3)"},
		{"#FF0000", 0.1, "rgba(255, 0, 0, 0.1)"},
		{"3788d8", 1, "rgba(55, 136, 216, 1)"},
		{"#xyz", 0.3, "#xyz"},
		{"#gggggg", 0.3, "#gggggg"},
	}

	for _, tt := range tests {
		if got := RGBA(tt.hex, tt.alpha); got != tt.want {
			t.Errorf("RGBA(%q, %v) = %q, want %q", tt.hex, tt.alpha, got, tt.want)
		}
	}
}

func TestPaletteColor(t *testing.T) {
	p := DefaultPalette()

	if got := p.Color("Matematicas"); got != "#25a6da" {
		t.Errorf("Color(Matematicas) = %q", got)
	}
	if got := p.Color("Musica"); got != schema.DefaultColor {
		t.Errorf("Color(Musica) = %q, want default", got)
	}
	if got := (Palette{}).Color("Musica"); got != schema.DefaultColor {
		t.Errorf("zero palette Color = %q, want default", got)
	}

	// DefaultPalette returns an independent copy.
	p.Colors["Matematicas"] = "#000000"
	if DefaultPalette().Color("Matematicas") != "#25a6da" {
		t.Error("DefaultPalette shares its map")
	}
}

func TestTasksForDay(t *testing.T) {
	tasks := []schema.Task{
		{ID: "1", Date: "2024-06-05", Status: schema.StatusTodo},
		{ID: "2", Date: "2024-06-05", Status: schema.StatusCompleted},
		{ID: "3", Date: "2024-06-06", Status: schema.StatusTodo},
		{ID: "4", Date: "2024-06-05", Status: schema.StatusInProgress},
		{ID: "5", Date: "2024-06-05", Status: schema.StatusTodo},
		{ID: "6", Date: "2024-06-05", Status: "archived"},
	}

	b := TasksForDay(tasks, DayKey(ref))
	if b.Day != "2024-06-05" {
		t.Errorf("Day = %q", b.Day)
	}
	if len(b.Todo) != 2 || b.Todo[0].ID != "1" || b.Todo[1].ID != "5" {
		t.Errorf("Todo = %+v", b.Todo)
	}
	if len(b.InProgress) != 1 || b.InProgress[0].ID != "4" {
		t.Errorf("InProgress = %+v", b.InProgress)
	}
	if len(b.Completed) != 1 || b.Completed[0].ID != "2" {
		t.Errorf("Completed = %+v", b.Completed)
	}
	if b.Len() != 4 {
		t.Errorf("Len() = %d, want 4", b.Len())
	}

	empty := TasksForDay(nil, "2024-06-05")
	if empty.Todo == nil || empty.Len() != 0 {
		t.Errorf("empty board = %+v", empty)
	}
}

func TestCard(t *testing.T) {
	tests := []struct {
		name string
		task schema.Task
		want TaskCard
	}{
		{
			name: "todo with range",
			task: schema.Task{ID: "1", Name: "Deberes", Subject: "Fisica", StartTime: "16:00", EndTime: "17:00", Status: schema.StatusTodo},
			want: TaskCard{ID: "1", Name: "Deberes", Subject: "Fisica", TimeRange: "16:00 - 17:00", Status: schema.StatusTodo, CanMoveRight: true},
		},
		{
			name: "null subject and half range",
			task: schema.Task{ID: "2", Name: "Leer", Subject: "null", StartTime: "16:00", Status: schema.StatusInProgress, HighPriority: true},
			want: TaskCard{ID: "2", Name: "Leer", Status: schema.StatusInProgress, HighPriority: true, CanMoveLeft: true, CanMoveRight: true},
		},
		{
			name: "completed",
			task: schema.Task{ID: "3", Name: "Repasar", Status: schema.StatusCompleted},
			want: TaskCard{ID: "3", Name: "Repasar", Status: schema.StatusCompleted, CanMoveLeft: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Card(tt.task); got != tt.want {
				t.Errorf("Card() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRemindersScenario(t *testing.T) {
	e := exam("1", "Matematicas", "Parcial", "2024-06-10", 2)

	events := Reminders(e, ref, DefaultPalette())
	if len(events) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(events))
	}

	got := map[string]bool{}
	for _, ev := range events {
		got[ev.Date] = true
		if ev.IsStudyVariant {
			t.Errorf("reminder on %s tagged as study variant", ev.Date)
		}
		if ev.Kind != KindReminder || ev.ExamID != "1" {
			t.Errorf("unexpected kind/exam: %+v", ev)
		}
		if ev.Title != "Estudiar Matematicas" {
			t.Errorf("Title = %q", ev.Title)
		}
		if ev.Color != "rgba(37, 166, 218, 0.3)" {
			t.Errorf("Color = %q", ev.Color)
		}
		if ev.BorderColor != BorderReminder {
			t.Errorf("BorderColor = %q", ev.BorderColor)
		}
		if ev.IsPast {
			t.Errorf("reminder on %s marked past", ev.Date)
		}
	}
	if !got["2024-06-08"] || !got["2024-06-09"] {
		t.Errorf("reminder dates = %v, want 2024-06-08 and 2024-06-09", dates(events))
	}
}

func TestRemindersCount(t *testing.T) {
	for n := 0; n <= 7; n++ {
		e := exam("1", "Historia", "Final", "2024-07-01", n)
		events := Reminders(e, ref, DefaultPalette())
		if len(events) != n {
			t.Fatalf("reminderTime=%d: got %d events", n, len(events))
		}
		for i, ev := range events {
			want := time.Date(2024, 7, 1-(i+1), 0, 0, 0, 0, time.UTC).Format(schema.DateLayout)
			if ev.Date != want {
				t.Errorf("reminderTime=%d: event %d on %s, want %s", n, i, ev.Date, want)
			}
		}
	}
}

func TestRemindersEdgeCases(t *testing.T) {
	p := DefaultPalette()

	if got := Reminders(exam("1", "Fisica", "Final", "not-a-date", 3), ref, p); len(got) != 0 {
		t.Errorf("unparseable date produced %d reminders", len(got))
	}

	study := Reminders(exam("2", "Fisica", "Estudiar tema 4", "2024-06-10", 1), ref, p)
	if len(study) != 1 || !study[0].IsStudyVariant || study[0].BorderColor != BorderStudyReminder {
		t.Errorf("study reminder = %+v", study)
	}

	// Reminders straddling today: the exam is upcoming, early reminders are past.
	mixed := Reminders(exam("3", "Lengua", "Oral", "2024-06-06", 3), ref, p)
	wantPast := map[string]bool{"2024-06-05": false, "2024-06-04": true, "2024-06-03": true}
	for _, ev := range mixed {
		if ev.IsPast != wantPast[ev.Date] {
			t.Errorf("reminder %s IsPast = %v", ev.Date, ev.IsPast)
		}
		if ev.Color != "rgba(230, 25, 25, 0.3)" {
			t.Errorf("upcoming exam reminder colour = %q", ev.Color)
		}
	}

	past := Reminders(exam("4", "Lengua", "Oral", "2024-06-01", 1), ref, p)
	if len(past) != 1 || past[0].Color != "rgba(230, 25, 25, 0.1)" {
		t.Errorf("past exam reminder = %+v", past)
	}
	if len(past[0].Classes) != 2 || past[0].Classes[1] != "past-event" {
		t.Errorf("past reminder classes = %v", past[0].Classes)
	}
}

func TestCalendarEvents(t *testing.T) {
	exams := []schema.Exam{
		exam("1", "Matematicas", "Parcial", "2024-06-10", 2),
		exam("2", "Historia", "Estudiar tema 3", "2024-06-01", 0),
		exam("3", "Musica", "Audicion", "bad", 1),
	}

	events := CalendarEvents(exams, ref, DefaultPalette())
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d: %v", len(events), dates(events))
	}

	// Reminders come first.
	if events[0].Kind != KindReminder || events[1].Kind != KindReminder {
		t.Errorf("expected reminders first, got %s, %s", events[0].Kind, events[1].Kind)
	}

	parcial := events[2]
	if parcial.Title != "Parcial" || parcial.Color != "#25a6da" || parcial.BorderColor != BorderExam || parcial.IsPast {
		t.Errorf("upcoming exam event = %+v", parcial)
	}
	if parcial.TextColor != "" {
		t.Errorf("upcoming exam text colour = %q", parcial.TextColor)
	}

	study := events[3]
	if !study.IsStudyVariant || study.BorderColor != BorderStudyExam {
		t.Errorf("study event = %+v", study)
	}
	if !study.IsPast || study.Color != "rgba(0, 128, 0, 0.1)" || study.TextColor != TextPast {
		t.Errorf("past study event = %+v", study)
	}

	if on := EventsOn(events, "2024-06-09"); len(on) != 1 {
		t.Errorf("EventsOn(2024-06-09) = %d events", len(on))
	}
}

func TestExams(t *testing.T) {
	exams := []schema.Exam{
		exam("late", "Fisica", "Final", "2024-06-20", 0),
		exam("today", "Lengua", "Oral", "2024-06-05", 0),
		exam("past", "Historia", "Parcial", "2024-05-30", 0),
		exam("older", "Historia", "Test", "2024-05-01", 0),
		exam("soon", "Fisica", "Parcial", "2024-06-06", 0),
		exam("undated", "Fisica", "?", "", 0),
	}

	list := Exams(exams, ref)

	wantUpcoming := []string{"today", "soon", "late"}
	wantDays := []int{0, 1, 15}
	if len(list.Upcoming) != len(wantUpcoming) {
		t.Fatalf("Upcoming = %+v", list.Upcoming)
	}
	for i, entry := range list.Upcoming {
		if entry.Exam.ID != wantUpcoming[i] || entry.DaysUntil != wantDays[i] || entry.IsPast {
			t.Errorf("Upcoming[%d] = %s (%d days, past=%v), want %s (%d days)",
				i, entry.Exam.ID, entry.DaysUntil, entry.IsPast, wantUpcoming[i], wantDays[i])
		}
	}

	wantPast := []string{"older", "past", "undated"}
	if len(list.Past) != len(wantPast) {
		t.Fatalf("Past = %+v", list.Past)
	}
	for i, entry := range list.Past {
		if entry.Exam.ID != wantPast[i] || !entry.IsPast {
			t.Errorf("Past[%d] = %s, want %s", i, entry.Exam.ID, wantPast[i])
		}
	}
	if list.Len() != 6 {
		t.Errorf("Len() = %d", list.Len())
	}
}

func TestSubjectExams(t *testing.T) {
	exams := []schema.Exam{
		exam("a", "Fisica", "Final", "2024-06-20", 0),
		exam("b", "Historia", "Parcial", "2024-06-07", 0),
		exam("c", "Fisica", "Parcial", "2024-05-20", 0),
		exam("d", "Fisica", "Test", "2024-06-07", 0),
	}

	got := SubjectExams(exams, "Fisica", ref)
	want := []string{"d", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("SubjectExams = %+v", got)
	}
	for i, entry := range got {
		if entry.Exam.ID != want[i] {
			t.Errorf("entry %d = %s, want %s", i, entry.Exam.ID, want[i])
		}
	}

	if none := SubjectExams(exams, "Religion", ref); len(none) != 0 {
		t.Errorf("expected no exams, got %d", len(none))
	}
}

package schema

import (
	"fmt"
	"strings"
	"time"
)

// studyMarker tags an exam as a self-directed study session.
const studyMarker = "estudiar"

// Exam is a calendar entry, stored in data/exams.json.
type Exam struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	ExamName string `json:"examName"`

	// ExamDate is the calendar day (YYYY-MM-DD).
	ExamDate string `json:"examDate"`

	// ReminderTime is the number of study reminders generated on the days
	// before ExamDate. Zero disables reminders.
	ReminderTime int `json:"reminderTime"`

	// Created is the last-write-wins key for merges.
	Created string `json:"created"`
}

// Key implements Record.
func (e Exam) Key() string { return e.ID }

// CreatedAt implements Record.
func (e Exam) CreatedAt() time.Time { return ParseTimestamp(e.Created) }

// IsStudyEvent reports whether the exam name marks a study session.
// This only affects how the exam is displayed.
func (e Exam) IsStudyEvent() bool {
	return strings.Contains(strings.ToLower(e.ExamName), studyMarker)
}

// Date parses ExamDate as a local calendar day.
func (e Exam) Date(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, e.ExamDate, loc)
}

// Validate checks the fields a user must supply when creating an exam.
func (e *Exam) Validate() error {
	if strings.TrimSpace(e.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if strings.TrimSpace(e.ExamName) == "" {
		return fmt.Errorf("exam name is required")
	}
	if e.ExamDate == "" {
		return fmt.Errorf("exam date is required")
	}
	if _, err := time.Parse(DateLayout, e.ExamDate); err != nil {
		return fmt.Errorf("exam date must be YYYY-MM-DD (got %q)", e.ExamDate)
	}
	if e.ReminderTime < 0 {
		return fmt.Errorf("reminder time must be 0 or more days (got %d)", e.ReminderTime)
	}
	return nil
}

// NormalizeExam fills the fields a stored exam may be missing.
func NormalizeExam(e Exam, now time.Time) Exam {
	if e.ID == "" {
		e.ID = NewExamID(now)
	}
	if e.Created == "" {
		e.Created = FormatTimestamp(now)
	}
	if e.ReminderTime < 0 {
		e.ReminderTime = 0
	}
	return e
}

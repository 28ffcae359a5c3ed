package schema

import (
	"fmt"
	"strings"
	"time"
)

// Task is a card on the Kanban board, stored in data/tasks.json.
type Task struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject,omitempty"`

	// StartTime and EndTime are time-of-day strings ("16:00"); a range is
	// only displayed when both are set.
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`

	// Date is the board day (YYYY-MM-DD).
	Date         string `json:"date"`
	Status       Status `json:"status"`
	HighPriority bool   `json:"highPriority"`

	// Created is the last-write-wins key for merges.
	Created string `json:"created"`
}

// Key implements Record.
func (t Task) Key() string { return t.ID }

// CreatedAt implements Record.
func (t Task) CreatedAt() time.Time { return ParseTimestamp(t.Created) }

// Validate checks the fields a user must supply when creating a task.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if t.Date == "" {
		return fmt.Errorf("date is required")
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD (got %q)", t.Date)
	}
	if t.Status != "" && !t.Status.IsValid() {
		return fmt.Errorf("status must be one of todo, inprogress, completed (got %q)", t.Status)
	}
	return nil
}

// HasTimeRange reports whether both ends of the time range are set.
func (t Task) HasTimeRange() bool {
	return t.StartTime != "" && t.EndTime != ""
}

// NormalizeTask fills the fields a stored task may be missing.
// It never fails; values it does not own pass through unchanged.
func NormalizeTask(t Task, now time.Time) Task {
	if t.ID == "" {
		t.ID = NewTaskID(now)
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Created == "" {
		t.Created = FormatTimestamp(now)
	}
	return t
}

package view

import (
	"time"

	"github.com/pjp27/organizacion/internal/schema"
)

// DayKey returns the calendar day of t in its own location (YYYY-MM-DD).
func DayKey(t time.Time) string {
	return t.Format(schema.DateLayout)
}

// Board is the Kanban board of a single day.
type Board struct {
	Day        string        `json:"day" yaml:"day"`
	Todo       []schema.Task `json:"todo" yaml:"todo"`
	InProgress []schema.Task `json:"inprogress" yaml:"inprogress"`
	Completed  []schema.Task `json:"completed" yaml:"completed"`
}

// Column returns the tasks in the given column.
func (b Board) Column(status schema.Status) []schema.Task {
	switch status {
	case schema.StatusTodo:
		return b.Todo
	case schema.StatusInProgress:
		return b.InProgress
	case schema.StatusCompleted:
		return b.Completed
	}
	return nil
}

// Len returns the number of tasks on the board.
func (b Board) Len() int {
	return len(b.Todo) + len(b.InProgress) + len(b.Completed)
}

// TasksForDay partitions the tasks dated day by status, keeping input order.
// Tasks with an unknown status are left off the board.
func TasksForDay(tasks []schema.Task, day string) Board {
	b := Board{
		Day:        day,
		Todo:       []schema.Task{},
		InProgress: []schema.Task{},
		Completed:  []schema.Task{},
	}
	for _, t := range tasks {
		if t.Date != day {
			continue
		}
		switch t.Status {
		case schema.StatusTodo:
			b.Todo = append(b.Todo, t)
		case schema.StatusInProgress:
			b.InProgress = append(b.InProgress, t)
		case schema.StatusCompleted:
			b.Completed = append(b.Completed, t)
		}
	}
	return b
}

// TaskCard is the display record of a task on the board.
type TaskCard struct {
	ID           string        `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	Subject      string        `json:"subject,omitempty" yaml:"subject,omitempty"`
	TimeRange    string        `json:"timeRange,omitempty" yaml:"timeRange,omitempty"`
	Status       schema.Status `json:"status" yaml:"status"`
	HighPriority bool          `json:"highPriority" yaml:"highPriority"`
	CanMoveLeft  bool          `json:"canMoveLeft" yaml:"canMoveLeft"`
	CanMoveRight bool          `json:"canMoveRight" yaml:"canMoveRight"`
}

// Card builds the display record of t.
func Card(t schema.Task) TaskCard {
	c := TaskCard{
		ID:           t.ID,
		Name:         t.Name,
		Status:       t.Status,
		HighPriority: t.HighPriority,
		CanMoveLeft:  t.Status.Move(schema.DirectionLeft) != t.Status,
		CanMoveRight: t.Status.Move(schema.DirectionRight) != t.Status,
	}
	// Older documents store a missing subject as the string "null".
	if t.Subject != "" && t.Subject != "null" {
		c.Subject = t.Subject
	}
	if t.HasTimeRange() {
		c.TimeRange = t.StartTime + " - " + t.EndTime
	}
	return c
}

// Cards returns the display records of a column.
func (b Board) Cards(status schema.Status) []TaskCard {
	tasks := b.Column(status)
	cards := make([]TaskCard, 0, len(tasks))
	for _, t := range tasks {
		cards = append(cards, Card(t))
	}
	return cards
}

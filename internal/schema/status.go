package schema

import "fmt"

// Status is the Kanban column of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusCompleted  Status = "completed"
)

// statusOrder defines the valid move directions between columns.
var statusOrder = []Status{StatusTodo, StatusInProgress, StatusCompleted}

// Statuses returns the columns in board order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Index returns the position of s in board order, or -1 for unknown values.
func (s Status) Index() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValid reports whether s is one of the known columns.
func (s Status) IsValid() bool {
	return s.Index() >= 0
}

// Move returns the adjacent status in the given direction.
// At either end of the board, and for unknown statuses, s is returned unchanged.
func (s Status) Move(d Direction) Status {
	i := s.Index()
	if i < 0 {
		return s
	}
	switch d {
	case DirectionLeft:
		if i > 0 {
			return statusOrder[i-1]
		}
	case DirectionRight:
		if i < len(statusOrder)-1 {
			return statusOrder[i+1]
		}
	}
	return s
}

// Direction is a move across the board.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// ParseDirection accepts "left"/"right" (and the short forms "l"/"r").
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "left", "l", "<":
		return DirectionLeft, nil
	case "right", "r", ">":
		return DirectionRight, nil
	default:
		return "", fmt.Errorf("invalid direction %q (want left or right)", s)
	}
}

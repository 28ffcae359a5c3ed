package watch

import (
	"fmt"
	"os"
	"time"

	"github.com/pjp27/organizacion/internal/planner"
	"github.com/pjp27/organizacion/internal/schema"
)

// Import replaces the planner's record set with the contents of the file
// named by ev. Deleted files are ignored: the remote document is the
// source of truth and is never emptied by a local delete.
//
// It reports whether the planner changed.
func Import(p *planner.Planner, ev FileEvent) (bool, error) {
	if ev.Op == OpDelete {
		return false, nil
	}

	data, err := os.ReadFile(ev.Path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", ev.Path, err)
	}

	switch ev.Collection {
	case planner.CollectionTasks:
		tasks, err := schema.DecodeTasks(data, time.Now())
		if err != nil {
			return false, err
		}
		return true, p.ReplaceTasks(tasks)
	case planner.CollectionExams:
		exams, err := schema.DecodeExams(data, time.Now())
		if err != nil {
			return false, err
		}
		return true, p.ReplaceExams(exams)
	default:
		return false, fmt.Errorf("unknown collection %q", ev.Collection)
	}
}

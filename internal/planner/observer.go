package planner

import "github.com/pjp27/organizacion/internal/sync"

// Collection names a record set.
type Collection string

const (
	CollectionTasks Collection = "tasks"
	CollectionExams Collection = "exams"
)

// Action is the kind of change applied to a record set.
type Action string

const (
	ActionLoad    Action = "load"
	ActionAdd     Action = "add"
	ActionMove    Action = "move"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReplace Action = "replace"
)

// Change describes a mutation of the in-memory record sets.
// ID is empty for whole-set actions (load, replace).
type Change struct {
	Collection Collection `json:"collection"`
	Action     Action     `json:"action"`
	ID         string     `json:"id,omitempty"`
}

// SyncReport is the outcome of a SaveAll.
type SyncReport struct {
	Tasks *sync.Result
	Exams *sync.Result
	Err   error
}

// OK reports whether both documents were saved.
func (r SyncReport) OK() bool {
	return r.Err == nil
}

// Observer is notified after every command and every save.
// Calls are made synchronously from the goroutine running the command.
type Observer interface {
	OnChange(Change)
	OnSync(SyncReport)
}

// Observers fans notifications out to several observers.
type Observers []Observer

// OnChange implements Observer.
func (o Observers) OnChange(c Change) {
	for _, obs := range o {
		obs.OnChange(c)
	}
}

// OnSync implements Observer.
func (o Observers) OnSync(r SyncReport) {
	for _, obs := range o {
		obs.OnSync(r)
	}
}

type nopObserver struct{}

func (nopObserver) OnChange(Change)   {}
func (nopObserver) OnSync(SyncReport) {}

package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	gosync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pjp27/organizacion/internal/remote"
	"github.com/pjp27/organizacion/internal/schema"
	"github.com/pjp27/organizacion/internal/sync"
	"github.com/pjp27/organizacion/internal/view"
)

// Default document paths.
const (
	DefaultTasksPath = "data/tasks.json"
	DefaultExamsPath = "data/exams.json"
)

// Config holds configuration for a Planner.
type Config struct {
	TasksPath string
	ExamsPath string

	// Palette colours calendar events by subject.
	Palette view.Palette

	// LeadTimes is the reminder count used when an exam is added without one.
	LeadTimes map[string]int

	// Sync configures both synchronizers. Name is set per document.
	Sync *sync.Config

	Observer Observer
	Logger   *log.Logger
	Now      func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	leadTimes := make(map[string]int, len(schema.DefaultLeadTimes))
	for subject, days := range schema.DefaultLeadTimes {
		leadTimes[subject] = days
	}
	return &Config{
		TasksPath: DefaultTasksPath,
		ExamsPath: DefaultExamsPath,
		Palette:   view.DefaultPalette(),
		LeadTimes: leadTimes,
		Sync:      sync.DefaultConfig(),
		Observer:  nopObserver{},
		Logger:    log.New(os.Stderr, "[planner] ", log.LstdFlags),
		Now:       time.Now,
	}
}

// Planner holds the task and exam record sets.
type Planner struct {
	tasks    sync.Syncer[schema.Task]
	exams    sync.Syncer[schema.Exam]
	observer Observer
	logger   *log.Logger
	now      func() time.Time

	mu        gosync.RWMutex
	palette   view.Palette
	leadTimes map[string]int
}

// New creates a Planner backed by store. A nil config uses DefaultConfig.
func New(store remote.Store, config *Config) *Planner {
	defaults := DefaultConfig()
	cfg := *defaults
	if config != nil {
		cfg = *config
	}
	if cfg.TasksPath == "" {
		cfg.TasksPath = defaults.TasksPath
	}
	if cfg.ExamsPath == "" {
		cfg.ExamsPath = defaults.ExamsPath
	}
	if cfg.Palette.Colors == nil {
		cfg.Palette = defaults.Palette
	}
	if cfg.LeadTimes == nil {
		cfg.LeadTimes = defaults.LeadTimes
	}
	if cfg.Sync == nil {
		cfg.Sync = defaults.Sync
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}
	if cfg.Now == nil {
		cfg.Now = defaults.Now
	}

	taskSync := *cfg.Sync
	taskSync.Name = string(CollectionTasks)
	taskSync.Now = cfg.Now
	examSync := taskSync
	examSync.Name = string(CollectionExams)

	return &Planner{
		tasks:     sync.NewWithConfig(store, cfg.TasksPath, schema.DecodeTasks, &taskSync),
		exams:     sync.NewWithConfig(store, cfg.ExamsPath, schema.DecodeExams, &examSync),
		observer:  cfg.Observer,
		logger:    cfg.Logger,
		now:       cfg.Now,
		palette:   cfg.Palette,
		leadTimes: cfg.LeadTimes,
	}
}

// LoadRecords loads both documents concurrently.
func (p *Planner) LoadRecords(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := p.tasks.Load(ctx)
		return err
	})
	g.Go(func() error {
		_, err := p.exams.Load(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	p.logger.Printf("Loaded %d tasks and %d exams", len(p.tasks.Records()), len(p.exams.Records()))
	p.observer.OnChange(Change{Collection: CollectionTasks, Action: ActionLoad})
	p.observer.OnChange(Change{Collection: CollectionExams, Action: ActionLoad})
	return nil
}

// TaskFields are the user-supplied fields of a new task.
type TaskFields struct {
	Name         string
	Subject      string
	StartTime    string
	EndTime      string
	Date         string
	Status       schema.Status
	HighPriority bool
}

// AddTask validates fields and appends a new task.
func (p *Planner) AddTask(fields TaskFields) (schema.Task, error) {
	task := schema.Task{
		Name:         fields.Name,
		Subject:      fields.Subject,
		StartTime:    fields.StartTime,
		EndTime:      fields.EndTime,
		Date:         fields.Date,
		Status:       fields.Status,
		HighPriority: fields.HighPriority,
	}
	if err := task.Validate(); err != nil {
		return schema.Task{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	task = schema.NormalizeTask(task, p.now())

	err := p.tasks.Update(func(tasks []schema.Task) ([]schema.Task, error) {
		return append(tasks, task), nil
	})
	if err != nil {
		return schema.Task{}, err
	}

	p.observer.OnChange(Change{Collection: CollectionTasks, Action: ActionAdd, ID: task.ID})
	return task, nil
}

// ExamFields are the user-supplied fields of a new exam.
type ExamFields struct {
	Subject  string
	ExamName string
	ExamDate string

	// ReminderTime is the number of reminder days. Nil takes the subject's
	// lead time.
	ReminderTime *int
}

// AddExam validates fields and appends a new exam.
func (p *Planner) AddExam(fields ExamFields) (schema.Exam, error) {
	exam := schema.Exam{
		Subject:  fields.Subject,
		ExamName: fields.ExamName,
		ExamDate: fields.ExamDate,
	}
	if fields.ReminderTime != nil {
		exam.ReminderTime = *fields.ReminderTime
	} else {
		exam.ReminderTime = p.LeadTime(fields.Subject)
	}
	if err := exam.Validate(); err != nil {
		return schema.Exam{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	exam = schema.NormalizeExam(exam, p.now())

	err := p.exams.Update(func(exams []schema.Exam) ([]schema.Exam, error) {
		return append(exams, exam), nil
	})
	if err != nil {
		return schema.Exam{}, err
	}

	p.observer.OnChange(Change{Collection: CollectionExams, Action: ActionAdd, ID: exam.ID})
	return exam, nil
}

// MoveTaskStatus moves a task one column in direction. Moving past either
// end of the board leaves the task unchanged and is not an error.
func (p *Planner) MoveTaskStatus(id string, direction schema.Direction) (schema.Task, error) {
	var moved schema.Task
	err := p.tasks.Update(func(tasks []schema.Task) ([]schema.Task, error) {
		for i := range tasks {
			if tasks[i].ID == id {
				tasks[i].Status = tasks[i].Status.Move(direction)
				moved = tasks[i]
				return tasks, nil
			}
		}
		return nil, fmt.Errorf("%w: task %s", ErrRecordNotFound, id)
	})
	if err != nil {
		return schema.Task{}, err
	}

	p.observer.OnChange(Change{Collection: CollectionTasks, Action: ActionMove, ID: id})
	return moved, nil
}

// DeleteRecord removes the task or exam with the given ID and reports which
// collection held it.
func (p *Planner) DeleteRecord(id string) (Collection, error) {
	err := p.tasks.Update(func(tasks []schema.Task) ([]schema.Task, error) {
		return removeByID(tasks, id)
	})
	if err == nil {
		p.observer.OnChange(Change{Collection: CollectionTasks, Action: ActionDelete, ID: id})
		return CollectionTasks, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return "", err
	}

	err = p.exams.Update(func(exams []schema.Exam) ([]schema.Exam, error) {
		return removeByID(exams, id)
	})
	if err != nil {
		return "", err
	}
	p.observer.OnChange(Change{Collection: CollectionExams, Action: ActionDelete, ID: id})
	return CollectionExams, nil
}

// SetReminderTime changes the number of reminder days of an exam.
func (p *Planner) SetReminderTime(id string, days int) (schema.Exam, error) {
	if days < 0 {
		return schema.Exam{}, fmt.Errorf("%w: reminder time must be 0 or more days (got %d)", ErrInvalidRecord, days)
	}

	var updated schema.Exam
	err := p.exams.Update(func(exams []schema.Exam) ([]schema.Exam, error) {
		for i := range exams {
			if exams[i].ID == id {
				exams[i].ReminderTime = days
				updated = exams[i]
				return exams, nil
			}
		}
		return nil, fmt.Errorf("%w: exam %s", ErrRecordNotFound, id)
	})
	if err != nil {
		return schema.Exam{}, err
	}

	p.observer.OnChange(Change{Collection: CollectionExams, Action: ActionUpdate, ID: id})
	return updated, nil
}

// ReplaceTasks swaps the whole task set, normalizing every task.
func (p *Planner) ReplaceTasks(tasks []schema.Task) error {
	now := p.now()
	normalized := make([]schema.Task, len(tasks))
	for i, t := range tasks {
		normalized[i] = schema.NormalizeTask(t, now)
	}
	if err := p.tasks.Replace(normalized); err != nil {
		return err
	}
	p.observer.OnChange(Change{Collection: CollectionTasks, Action: ActionReplace})
	return nil
}

// ReplaceExams swaps the whole exam set, normalizing every exam.
func (p *Planner) ReplaceExams(exams []schema.Exam) error {
	now := p.now()
	normalized := make([]schema.Exam, len(exams))
	for i, e := range exams {
		normalized[i] = schema.NormalizeExam(e, now)
	}
	if err := p.exams.Replace(normalized); err != nil {
		return err
	}
	p.observer.OnChange(Change{Collection: CollectionExams, Action: ActionReplace})
	return nil
}

// SaveAll saves tasks, then exams. Both saves are attempted; the returned
// error joins their failures.
func (p *Planner) SaveAll(ctx context.Context, credential string) (SyncReport, error) {
	var report SyncReport
	var errs []error

	res, err := p.tasks.Save(ctx, credential)
	if err != nil {
		errs = append(errs, fmt.Errorf("tasks: %w", err))
	}
	report.Tasks = res

	res, err = p.exams.Save(ctx, credential)
	if err != nil {
		errs = append(errs, fmt.Errorf("exams: %w", err))
	}
	report.Exams = res

	report.Err = errors.Join(errs...)
	if report.Err != nil {
		p.logger.Printf("Save failed: %v", report.Err)
	} else {
		p.logger.Printf("Saved %d tasks (%d attempts) and %d exams (%d attempts)",
			report.Tasks.Records, report.Tasks.Attempts, report.Exams.Records, report.Exams.Attempts)
	}

	p.observer.OnSync(report)
	return report, report.Err
}

// Tasks returns a copy of the task set.
func (p *Planner) Tasks() []schema.Task {
	return p.tasks.Records()
}

// Exams returns a copy of the exam set.
func (p *Planner) Exams() []schema.Exam {
	return p.exams.Records()
}

// Task returns the task with the given ID.
func (p *Planner) Task(id string) (schema.Task, error) {
	for _, t := range p.tasks.Records() {
		if t.ID == id {
			return t, nil
		}
	}
	return schema.Task{}, fmt.Errorf("%w: task %s", ErrRecordNotFound, id)
}

// Exam returns the exam with the given ID.
func (p *Planner) Exam(id string) (schema.Exam, error) {
	for _, e := range p.exams.Records() {
		if e.ID == id {
			return e, nil
		}
	}
	return schema.Exam{}, fmt.Errorf("%w: exam %s", ErrRecordNotFound, id)
}

// TasksForDay returns the board of day (YYYY-MM-DD).
func (p *Planner) TasksForDay(day string) view.Board {
	return view.TasksForDay(p.tasks.Records(), day)
}

// CalendarEvents returns exam and reminder events relative to ref.
func (p *Planner) CalendarEvents(ref time.Time) []view.Event {
	return view.CalendarEvents(p.exams.Records(), ref, p.Palette())
}

// ExamList returns upcoming and past exams relative to ref.
func (p *Planner) ExamList(ref time.Time) view.ExamList {
	return view.Exams(p.exams.Records(), ref)
}

// SubjectExams returns the exams of one subject relative to ref.
func (p *Planner) SubjectExams(subject string, ref time.Time) []view.ExamEntry {
	return view.SubjectExams(p.exams.Records(), subject, ref)
}

// Palette returns the current subject palette.
func (p *Planner) Palette() view.Palette {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.palette
}

// LeadTime returns the default reminder days of subject.
func (p *Planner) LeadTime(subject string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.leadTimes[subject]
}

// SetPresentation swaps the palette and lead times, e.g. after a config reload.
func (p *Planner) SetPresentation(palette view.Palette, leadTimes map[string]int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if palette.Colors != nil {
		p.palette = palette
	}
	if leadTimes != nil {
		p.leadTimes = leadTimes
	}
}

// Stats summarizes the record sets.
type Stats struct {
	Tasks      int `json:"tasks"`
	Todo       int `json:"todo"`
	InProgress int `json:"inprogress"`
	Completed  int `json:"completed"`
	Exams      int `json:"exams"`
	Upcoming   int `json:"upcoming"`
}

// Stats counts tasks by status and exams by past-ness relative to ref.
func (p *Planner) Stats(ref time.Time) Stats {
	var s Stats
	for _, t := range p.tasks.Records() {
		s.Tasks++
		switch t.Status {
		case schema.StatusTodo:
			s.Todo++
		case schema.StatusInProgress:
			s.InProgress++
		case schema.StatusCompleted:
			s.Completed++
		}
	}
	list := view.Exams(p.exams.Records(), ref)
	s.Exams = list.Len()
	s.Upcoming = len(list.Upcoming)
	return s
}

func removeByID[T schema.Record](records []T, id string) ([]T, error) {
	for i, r := range records {
		if r.Key() == id {
			return append(records[:i], records[i+1:]...), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
}

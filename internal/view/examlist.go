package view

import (
	"sort"
	"time"

	"github.com/pjp27/organizacion/internal/schema"
)

// ExamEntry is an exam in a list, with the calendar days left until it.
type ExamEntry struct {
	Exam      schema.Exam `json:"exam" yaml:"exam"`
	DaysUntil int         `json:"daysUntil" yaml:"daysUntil"`
	IsPast    bool        `json:"isPast" yaml:"isPast"`
}

// ExamList splits exams into upcoming and past, each sorted by date.
type ExamList struct {
	Upcoming []ExamEntry `json:"upcoming" yaml:"upcoming"`
	Past     []ExamEntry `json:"past" yaml:"past"`
}

// Exams builds the exam list relative to ref. An exam dated today is
// upcoming with zero days left. Exams whose date does not parse are listed
// last under Past.
func Exams(exams []schema.Exam, ref time.Time) ExamList {
	list := ExamList{Upcoming: []ExamEntry{}, Past: []ExamEntry{}}
	var undated []ExamEntry

	for _, e := range exams {
		day, err := e.Date(ref.Location())
		if err != nil {
			undated = append(undated, ExamEntry{Exam: e, IsPast: true})
			continue
		}
		entry := ExamEntry{Exam: e, DaysUntil: daysBetween(ref, day)}
		if entry.DaysUntil < 0 {
			entry.IsPast = true
			list.Past = append(list.Past, entry)
			continue
		}
		list.Upcoming = append(list.Upcoming, entry)
	}

	sortEntries(list.Upcoming)
	sortEntries(list.Past)
	list.Past = append(list.Past, undated...)
	return list
}

// SubjectExams lists the exams of one subject, upcoming first, then past.
func SubjectExams(exams []schema.Exam, subject string, ref time.Time) []ExamEntry {
	var matching []schema.Exam
	for _, e := range exams {
		if e.Subject == subject {
			matching = append(matching, e)
		}
	}
	list := Exams(matching, ref)
	return append(list.Upcoming, list.Past...)
}

// Len returns the number of exams in the list.
func (l ExamList) Len() int {
	return len(l.Upcoming) + len(l.Past)
}

func sortEntries(entries []ExamEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Exam.ExamDate < entries[j].Exam.ExamDate
	})
}

// daysBetween counts calendar days from the day of ref to day.
func daysBetween(ref, day time.Time) int {
	from := civil(ref)
	to := civil(day)
	return int(to.Sub(from).Hours() / 24)
}

// civil drops the time and zone of t, keeping its calendar day.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

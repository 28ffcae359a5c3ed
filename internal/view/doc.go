// Package view derives display records from the planner's record sets.
//
// Every function here is pure: it reads tasks or exams plus a reference
// time and returns typed view models (Board, TaskCard, Event, ExamList).
// Records are never mutated and nothing is persisted; reminder events in
// particular are recomputed on every call.
//
// Calendar days are compared in the location of the reference time, so a
// reference of time.Now() gives the user's local calendar.
package view

// Package planner is the command surface of the academic planner.
//
// A Planner owns the task and exam synchronizers and exposes the commands a
// presentation layer dispatches (add, move, delete, set reminder, save) and
// the views it renders (board, calendar, exam list). Commands return data
// only; observers are told about every change so live views can refresh.
//
// Usage:
//
//	store, _ := remote.NewGitHub(&remote.Config{Owner: "pjp27", Repo: "organizacion"})
//	p := planner.New(store, nil)
//	if err := p.LoadRecords(ctx); err != nil {
//	    return err
//	}
//	task, err := p.AddTask(planner.TaskFields{Name: "Deberes", Date: "2024-06-10"})
//	report, err := p.SaveAll(ctx, token)
package planner

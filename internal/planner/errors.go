package planner

import "errors"

var (
	// ErrRecordNotFound is returned when no task or exam has the given ID.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidRecord is returned when user-supplied fields fail validation.
	ErrInvalidRecord = errors.New("invalid record")
)

package sync

import (
	"errors"

	"github.com/pjp27/organizacion/internal/remote"
)

var (
	// ErrConflictUnresolved is returned when every write attempt of a save
	// conflicted. The user should retry later. remote.IsFatal reports true
	// for it.
	ErrConflictUnresolved = remote.ErrConflictUnresolved

	// ErrBusy is returned when a save is already in flight.
	ErrBusy = errors.New("save in progress")
)

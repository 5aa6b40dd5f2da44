package service

import (
	"errors"
	"fmt"

	"ratwatch/models"
)

// ErrWatchNotFound is returned when the requested watch does not exist
var ErrWatchNotFound = errors.New("watch not found")

// DuplicateWatchError is returned when an equivalent active watch already
// exists within the tolerance window. ExistingWatchID lets the caller point
// the user at the existing watch.
type DuplicateWatchError struct {
	ExistingWatchID int64
	AccusedUserID   int64
}

func (e *DuplicateWatchError) Error() string {
	return fmt.Sprintf("an active watch on user %d already exists (watch %d)", e.AccusedUserID, e.ExistingWatchID)
}

// WrongUserError is returned when an operation is attempted by someone other
// than its authorized actor
type WrongUserError struct {
	WatchID   int64
	UserID    int64
	Operation string
}

func (e *WrongUserError) Error() string {
	return fmt.Sprintf("user %d is not authorized to %s watch %d", e.UserID, e.Operation, e.WatchID)
}

// InvalidStateError is returned when an operation is not valid for the
// watch's current status: a vote on a non-voting watch, a check-in on a
// non-pending watch, or any event on a terminal watch.
type InvalidStateError struct {
	WatchID   int64
	Status    models.WatchStatus
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s watch %d in status %s", e.Operation, e.WatchID, e.Status)
}

package task

import (
	"errors"
	"fmt"
)

var (
	// ErrLockConflict is matched by ConflictError when a task with the same id is already active
	ErrLockConflict = errors.New("task already in progress")

	// ErrInvalidParams is returned when dispatch parameters fail validation
	ErrInvalidParams = errors.New("invalid task parameters")

	// ErrTaskNotFound is returned by stores when no row has the given id
	ErrTaskNotFound = errors.New("task not found")
)

// ConflictError carries the id of the task that holds the lock
type ConflictError struct {
	TaskID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("task %s is already in progress", e.TaskID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrLockConflict
}

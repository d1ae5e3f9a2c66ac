package store

import "fmt"

// NotFoundError indicates a requested entity does not exist. It signals
// a caller bug (unknown id), not a recoverable runtime condition.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// ConflictError indicates a uniqueness violation. Callers recover by
// re-reading the row that won the race.
type ConflictError struct {
	Entity string
	Key    string
	Err    error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists: %v", e.Entity, e.Key, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

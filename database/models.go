package database

import "errors"

// Errors callers branch on. Ownership failures are reported as
// ErrNotFound on purpose: a patch that targets someone else's task must
// be indistinguishable from one that targets a missing task.
var (
	ErrNotFound        = errors.New("task not found")
	ErrUnknownColumn   = errors.New("unknown column key")
	ErrColumnNotFound  = errors.New("column not found")
	ErrColumnNotEmpty  = errors.New("column still has tasks")
	ErrDefaultColumn   = errors.New("default columns cannot be deleted or renamed")
	ErrDuplicateColumn = errors.New("column key already exists")
)

// PatchResult records the outcome of one patch inside a batch.
type PatchResult struct {
	ID  int64
	Err error
}

// OK reports whether the patch applied.
func (r PatchResult) OK() bool { return r.Err == nil }

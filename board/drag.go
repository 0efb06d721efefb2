package board

import "errors"

// ErrNoDrag is returned when Drop is called without an active drag.
var ErrNoDrag = errors.New("no active drag")

// Drag tracks a single drag gesture from pick-up to drop. It moves
// through idle -> dragging -> (dropped | cancelled); dropping at the
// task's current position produces no patches, so callers can skip the
// network round-trip entirely.
type Drag struct {
	active     bool
	taskID     int64
	fromColumn string
	fromIndex  int
}

// Begin records the dragged task's current column and index.
func (d *Drag) Begin(tasks []Task, taskID int64) error {
	for _, t := range tasks {
		if t.ID == taskID {
			d.active = true
			d.taskID = taskID
			d.fromColumn = t.Column
			d.fromIndex = indexOf(ColumnTasks(tasks, t.Column), taskID)
			return nil
		}
	}
	return ErrNoDrag
}

// Active reports whether a drag is in progress.
func (d *Drag) Active() bool { return d.active }

// TaskID returns the task being dragged, or zero when idle.
func (d *Drag) TaskID() int64 {
	if !d.active {
		return 0
	}
	return d.taskID
}

// Drop ends the gesture at the given column and index and returns the
// patches to apply. A drop onto the source position returns no patches.
func (d *Drag) Drop(tasks []Task, toColumn string, toIndex int) ([]Patch, error) {
	if !d.active {
		return nil, ErrNoDrag
	}
	taskID := d.taskID
	samePos := toColumn == d.fromColumn && toIndex == d.fromIndex
	d.reset()
	if samePos {
		return nil, nil
	}
	return MoveTask(tasks, taskID, toColumn, toIndex)
}

// Cancel abandons the gesture without producing patches.
func (d *Drag) Cancel() {
	d.reset()
}

func (d *Drag) reset() {
	d.active = false
	d.taskID = 0
	d.fromColumn = ""
	d.fromIndex = 0
}

package board

import (
	"fmt"
	"sort"
)

// ColumnTasks returns the tasks of one column ordered by position, ties
// broken by id ascending.
func ColumnTasks(tasks []Task, column string) []Task {
	var out []Task
	for _, t := range tasks {
		if t.Column == column {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MoveTask computes the patch set that lands the task at toIndex in
// toColumn while every other task in the affected columns keeps its
// relative position under unique, strictly increasing order values.
// Positions are dense integers, so in the steady state a move within a
// column only touches the tasks between the old and new index, and a
// move across columns shifts the tail of both columns by one. Moving a
// task to its current position returns an empty set.
func MoveTask(tasks []Task, taskID int64, toColumn string, toIndex int) ([]Patch, error) {
	var moved *Task
	for i := range tasks {
		if tasks[i].ID == taskID {
			moved = &tasks[i]
			break
		}
	}
	if moved == nil {
		return nil, fmt.Errorf("task %d not found", taskID)
	}

	fromColumn := moved.Column
	source := ColumnTasks(tasks, fromColumn)
	fromIndex := indexOf(source, taskID)

	if fromColumn == toColumn {
		toIndex = clamp(toIndex, 0, len(source)-1)
		if toIndex == fromIndex {
			return nil, nil
		}
		next := make([]Task, 0, len(source))
		next = append(next, source[:fromIndex]...)
		next = append(next, source[fromIndex+1:]...)
		next = insertAt(next, *moved, toIndex)
		return reindex(next, fromColumn), nil
	}

	dest := ColumnTasks(tasks, toColumn)
	toIndex = clamp(toIndex, 0, len(dest))

	remaining := make([]Task, 0, len(source))
	for _, t := range source {
		if t.ID != taskID {
			remaining = append(remaining, t)
		}
	}

	patches := reindex(remaining, fromColumn)
	patches = append(patches, reindex(insertAt(dest, *moved, toIndex), toColumn)...)
	return patches, nil
}

// Normalize returns the patches that renumber a column to dense
// integer positions starting at zero. Tasks already in place produce
// no patch.
func Normalize(tasks []Task, column string) []Patch {
	return reindex(ColumnTasks(tasks, column), column)
}

// ApplyAll returns a copy of tasks with every patch applied in order.
func ApplyAll(tasks []Task, patches []Patch) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	for _, p := range patches {
		for i := range out {
			if out[i].ID == p.ID {
				out[i] = p.Apply(out[i])
				break
			}
		}
	}
	return out
}

// reindex emits a patch for every task whose position or column
// deviates from the given ordered layout.
func reindex(ordered []Task, column string) []Patch {
	var patches []Patch
	for i, t := range ordered {
		p := Patch{ID: t.ID}
		if t.Order != i {
			p.Order = intPtr(i)
		}
		if t.Column != column {
			p.Column = strPtr(column)
		}
		if !p.IsZero() {
			patches = append(patches, p)
		}
	}
	return patches
}

func indexOf(ordered []Task, taskID int64) int {
	for i, t := range ordered {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

func insertAt(ordered []Task, t Task, index int) []Task {
	out := make([]Task, 0, len(ordered)+1)
	out = append(out, ordered[:index]...)
	out = append(out, t)
	out = append(out, ordered[index:]...)
	return out
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

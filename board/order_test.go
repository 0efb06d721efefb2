package board

import (
	"reflect"
	"testing"
)

func seedTasks() []Task {
	return []Task{
		{ID: 1, OwnerID: "ada@example.com", Column: "todo", Order: 0},
		{ID: 2, OwnerID: "ada@example.com", Column: "todo", Order: 1},
		{ID: 3, OwnerID: "ada@example.com", Column: "todo", Order: 2},
		{ID: 4, OwnerID: "ada@example.com", Column: "in-progress", Order: 0},
		{ID: 5, OwnerID: "ada@example.com", Column: "in-progress", Order: 1},
	}
}

func assertColumn(t *testing.T, tasks []Task, column string, want []int64) {
	t.Helper()
	got := ColumnTasks(tasks, column)
	if len(got) != len(want) {
		t.Fatalf("column %q: expected %d tasks, got %d", column, len(want), len(got))
	}
	prev := -1
	for i, task := range got {
		if task.ID != want[i] {
			t.Fatalf("column %q position %d: expected task %d, got %d", column, i, want[i], task.ID)
		}
		if task.Order <= prev {
			t.Fatalf("column %q: order values not strictly increasing at position %d", column, i)
		}
		prev = task.Order
	}
}

func TestMoveDownWithinColumn(t *testing.T) {
	tasks := seedTasks()
	patches, err := MoveTask(tasks, 1, "todo", 2)
	if err != nil {
		t.Fatalf("move task: %v", err)
	}
	if len(patches) != 3 {
		t.Fatalf("expected 3 patches, got %d", len(patches))
	}
	after := ApplyAll(tasks, patches)
	assertColumn(t, after, "todo", []int64{2, 3, 1})
	assertColumn(t, after, "in-progress", []int64{4, 5})
}

func TestMoveUpWithinColumn(t *testing.T) {
	tasks := seedTasks()
	patches, err := MoveTask(tasks, 3, "todo", 0)
	if err != nil {
		t.Fatalf("move task: %v", err)
	}
	after := ApplyAll(tasks, patches)
	assertColumn(t, after, "todo", []int64{3, 1, 2})
}

func TestMoveSamePositionIsNoop(t *testing.T) {
	patches, err := MoveTask(seedTasks(), 2, "todo", 1)
	if err != nil {
		t.Fatalf("move task: %v", err)
	}
	if len(patches) != 0 {
		t.Fatalf("expected no patches, got %d", len(patches))
	}
}

func TestMoveAcrossColumns(t *testing.T) {
	tasks := seedTasks()
	patches, err := MoveTask(tasks, 2, "in-progress", 1)
	if err != nil {
		t.Fatalf("move task: %v", err)
	}
	after := ApplyAll(tasks, patches)
	assertColumn(t, after, "todo", []int64{1, 3})
	assertColumn(t, after, "in-progress", []int64{4, 2, 5})

	// Untouched tasks must not be patched.
	for _, p := range patches {
		if p.ID == 1 || p.ID == 4 {
			t.Fatalf("task %d did not move but received a patch", p.ID)
		}
	}
}

func TestMoveToEmptyColumn(t *testing.T) {
	tasks := seedTasks()
	patches, err := MoveTask(tasks, 5, "done", 0)
	if err != nil {
		t.Fatalf("move task: %v", err)
	}
	after := ApplyAll(tasks, patches)
	assertColumn(t, after, "done", []int64{5})
	assertColumn(t, after, "in-progress", []int64{4})
}

func TestMoveClampsIndex(t *testing.T) {
	tasks := seedTasks()
	patches, err := MoveTask(tasks, 4, "todo", 99)
	if err != nil {
		t.Fatalf("move task: %v", err)
	}
	after := ApplyAll(tasks, patches)
	assertColumn(t, after, "todo", []int64{1, 2, 3, 4})
}

func TestMoveUnknownTask(t *testing.T) {
	if _, err := MoveTask(seedTasks(), 42, "todo", 0); err == nil {
		t.Fatalf("expected error for unknown task")
	}
}

func TestPatchIsIdempotent(t *testing.T) {
	task := Task{ID: 1, Column: "todo", Order: 3}
	p := Patch{ID: 1, Column: strPtr("done"), Order: intPtr(0), Completed: boolPtr(true)}

	once := p.Apply(task)
	twice := p.Apply(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("expected identical state after second apply, got %+v vs %+v", once, twice)
	}
}

func TestPatchPreservesAssociations(t *testing.T) {
	project := int64(7)
	task := Task{ID: 1, Column: "todo", Order: 0, ProjectID: &project, Labels: []string{"home"}}
	got := Patch{ID: 1, Column: strPtr("done"), Order: intPtr(2)}.Apply(task)
	if got.ProjectID == nil || *got.ProjectID != 7 || len(got.Labels) != 1 {
		t.Fatalf("project/label associations changed by reorder patch: %+v", got)
	}
}

func TestNormalizeClosesGaps(t *testing.T) {
	tasks := []Task{
		{ID: 1, Column: "todo", Order: 0},
		{ID: 2, Column: "todo", Order: 5},
		{ID: 3, Column: "todo", Order: 9},
	}
	patches := Normalize(tasks, "todo")
	if len(patches) != 2 {
		t.Fatalf("expected 2 patches, got %d", len(patches))
	}
	after := ApplyAll(tasks, patches)
	assertColumn(t, after, "todo", []int64{1, 2, 3})
	for _, task := range ColumnTasks(after, "todo") {
		if task.Order > 2 {
			t.Fatalf("expected dense positions after normalize, got %d", task.Order)
		}
	}
}

func TestNormalizeDenseColumnIsNoop(t *testing.T) {
	if patches := Normalize(seedTasks(), "todo"); len(patches) != 0 {
		t.Fatalf("expected no patches for dense column, got %d", len(patches))
	}
}

func boolPtr(b bool) *bool { return &b }

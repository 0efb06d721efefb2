package board

import "testing"

func TestDragDropAcrossColumns(t *testing.T) {
	tasks := seedTasks()
	var d Drag
	if err := d.Begin(tasks, 2); err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	if !d.Active() || d.TaskID() != 2 {
		t.Fatalf("expected active drag for task 2")
	}

	patches, err := d.Drop(tasks, "in-progress", 0)
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if len(patches) == 0 {
		t.Fatalf("expected patches for cross-column drop")
	}
	if d.Active() {
		t.Fatalf("drag should be idle after drop")
	}
	assertColumn(t, ApplyAll(tasks, patches), "in-progress", []int64{2, 4, 5})
}

func TestDragDropOnSourcePositionProducesNothing(t *testing.T) {
	tasks := seedTasks()
	var d Drag
	if err := d.Begin(tasks, 3); err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	patches, err := d.Drop(tasks, "todo", 2)
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if len(patches) != 0 {
		t.Fatalf("expected no patches for same-position drop, got %d", len(patches))
	}
}

func TestDragCancelLeavesNoTrace(t *testing.T) {
	tasks := seedTasks()
	var d Drag
	if err := d.Begin(tasks, 1); err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	d.Cancel()
	if d.Active() {
		t.Fatalf("drag should be idle after cancel")
	}
	if _, err := d.Drop(tasks, "todo", 0); err != ErrNoDrag {
		t.Fatalf("expected ErrNoDrag after cancel, got %v", err)
	}
}

func TestDragBeginUnknownTask(t *testing.T) {
	var d Drag
	if err := d.Begin(seedTasks(), 99); err == nil {
		t.Fatalf("expected error for unknown task")
	}
}

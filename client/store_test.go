package client

import (
	"testing"

	"taskboard/board"
)

func storeTasks() []board.Task {
	return []board.Task{
		{ID: 1, OwnerID: "ada@example.com", Column: "todo", Order: 0},
		{ID: 2, OwnerID: "ada@example.com", Column: "todo", Order: 1},
		{ID: 3, OwnerID: "ada@example.com", Column: "in-progress", Order: 0},
	}
}

func TestRejectRevertsOnlyItsOwnDelta(t *testing.T) {
	s := NewStore(storeTasks())

	done := "done"
	m1, err := s.ApplyLocal(board.Patch{ID: 1, Column: &done, Order: intPtr(0)})
	if err != nil {
		t.Fatalf("apply m1: %v", err)
	}
	completed := true
	m2, err := s.ApplyLocal(board.Patch{ID: 2, Completed: &completed})
	if err != nil {
		t.Fatalf("apply m2: %v", err)
	}

	s.Reject(m1, "server said no")

	taskA, _ := s.Task(1)
	if taskA.Column != "todo" || taskA.Order != 0 {
		t.Fatalf("task 1 did not revert to its pre-mutation snapshot: %+v", taskA)
	}
	taskB, _ := s.Task(2)
	if !taskB.Completed {
		t.Fatalf("rejecting m1 must not touch m2's state")
	}
	if s.PendingCount() != 1 {
		t.Fatalf("expected 1 pending mutation, got %d", s.PendingCount())
	}
	_ = m2
}

func TestRejectOfOlderMutationKeepsNewerWrite(t *testing.T) {
	s := NewStore(storeTasks())

	inProgress := "in-progress"
	m1, err := s.ApplyLocal(board.Patch{ID: 1, Column: &inProgress})
	if err != nil {
		t.Fatalf("apply m1: %v", err)
	}
	done := "done"
	m2, err := s.ApplyLocal(board.Patch{ID: 1, Column: &done})
	if err != nil {
		t.Fatalf("apply m2: %v", err)
	}

	// The newer response resolves first; the older rejection must not
	// clobber the newer local intent.
	s.Confirm(m2)
	s.Reject(m1, "stale")

	task, _ := s.Task(1)
	if task.Column != "done" {
		t.Fatalf("expected last local intent to win, got column %q", task.Column)
	}
}

func TestRejectingBothOverlappingWritesRestoresSnapshot(t *testing.T) {
	// Two pending mutations write the same field; whichever order the
	// rejections arrive in, the field must end at its pre-chain value.
	for _, newestFirst := range []bool{true, false} {
		s := NewStore(storeTasks())

		m1, err := s.ApplyLocal(board.Patch{ID: 1, Order: intPtr(5)})
		if err != nil {
			t.Fatalf("apply m1: %v", err)
		}
		m2, err := s.ApplyLocal(board.Patch{ID: 1, Order: intPtr(9)})
		if err != nil {
			t.Fatalf("apply m2: %v", err)
		}

		if newestFirst {
			s.Reject(m2, "conflict")
			s.Reject(m1, "conflict")
		} else {
			s.Reject(m1, "conflict")
			s.Reject(m2, "conflict")
		}

		task, _ := s.Task(1)
		if task.Order != 0 {
			t.Fatalf("newestFirst=%v: after rejecting both mutations, order = %d, want 0", newestFirst, task.Order)
		}
		if s.PendingCount() != 0 {
			t.Fatalf("newestFirst=%v: expected no pending mutations, got %d", newestFirst, s.PendingCount())
		}
	}
}

func TestRejectChainWithConfirmedMiddleWrite(t *testing.T) {
	s := NewStore(storeTasks())

	m1, err := s.ApplyLocal(board.Patch{ID: 1, Order: intPtr(5)})
	if err != nil {
		t.Fatalf("apply m1: %v", err)
	}
	m2, err := s.ApplyLocal(board.Patch{ID: 1, Order: intPtr(9)})
	if err != nil {
		t.Fatalf("apply m2: %v", err)
	}
	m3, err := s.ApplyLocal(board.Patch{ID: 1, Order: intPtr(12)})
	if err != nil {
		t.Fatalf("apply m3: %v", err)
	}

	// The server accepted the middle write: rejecting the newest must
	// fall back to the confirmed value, and rejecting the oldest must
	// not disturb it afterwards.
	s.Confirm(m2)
	s.Reject(m3, "conflict")
	s.Reject(m1, "stale")

	task, _ := s.Task(1)
	if task.Order != 9 {
		t.Fatalf("expected confirmed order 9 to survive, got %d", task.Order)
	}
}

func TestConfirmAfterRejectIsNoop(t *testing.T) {
	s := NewStore(storeTasks())

	done := "done"
	m, err := s.ApplyLocal(board.Patch{ID: 1, Column: &done})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	s.Reject(m, "timeout")
	s.Confirm(m)

	task, _ := s.Task(1)
	if task.Column != "todo" {
		t.Fatalf("stale confirm must not resurrect a reverted mutation, got %q", task.Column)
	}
	if s.PendingCount() != 0 {
		t.Fatalf("expected no pending mutations, got %d", s.PendingCount())
	}
}

func TestApplyLocalKeepsColumnOrdered(t *testing.T) {
	s := NewStore(storeTasks())

	patches, err := board.MoveTask(s.Tasks(), 2, "todo", 0)
	if err != nil {
		t.Fatalf("move task: %v", err)
	}
	if _, err := s.ApplyLocal(patches...); err != nil {
		t.Fatalf("apply: %v", err)
	}

	column := s.ColumnTasks("todo")
	if column[0].ID != 2 || column[1].ID != 1 {
		t.Fatalf("unexpected column layout: %+v", column)
	}
	prev := -1
	for _, task := range column {
		if task.Order <= prev {
			t.Fatalf("order values not strictly increasing: %+v", column)
		}
		prev = task.Order
	}
}

func TestApplyLocalUnknownTask(t *testing.T) {
	s := NewStore(storeTasks())
	done := true
	if _, err := s.ApplyLocal(board.Patch{ID: 99, Completed: &done}); err != ErrUnknownTask {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
}

func TestResetDropsPendingAndRemovedTasks(t *testing.T) {
	s := NewStore(storeTasks())
	done := true
	if _, err := s.ApplyLocal(board.Patch{ID: 1, Completed: &done}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Server snapshot no longer contains task 3.
	s.Reset(storeTasks()[:2])
	if s.PendingCount() != 0 {
		t.Fatalf("expected reset to clear pending mutations")
	}
	if _, ok := s.Task(3); ok {
		t.Fatalf("expected task 3 to disappear with the snapshot")
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	s := NewStore(storeTasks())

	var events []Event
	unsubscribe := s.Subscribe(func(e Event) {
		events = append(events, e)
	})

	done := true
	m, err := s.ApplyLocal(board.Patch{ID: 1, Completed: &done})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	s.Confirm(m)

	if len(events) != 2 || events[0].Type != EventApplied || events[1].Type != EventConfirmed {
		t.Fatalf("unexpected event sequence: %+v", events)
	}

	unsubscribe()
	s.RemoveTask(2)
	if len(events) != 2 {
		t.Fatalf("expected no events after unsubscribe, got %d", len(events))
	}
}

func intPtr(n int) *int { return &n }

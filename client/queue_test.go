package client

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"taskboard/board"
)

type fakeReconciler struct {
	mu      sync.Mutex
	batches [][]board.Patch
	failAt  int // fail every call starting with the nth (1-based)
	calls   int
}

func (f *fakeReconciler) ApplyBatch(ctx context.Context, patches []board.Patch) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAt > 0 && f.calls >= f.failAt {
		return 0, errors.New("network down")
	}
	f.batches = append(f.batches, patches)
	return len(patches), nil
}

func (f *fakeReconciler) sent() [][]board.Patch {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]board.Patch, len(f.batches))
	copy(out, f.batches)
	return out
}

type brokenStorage struct{}

func (brokenStorage) Load() ([]QueuedAction, error) { return nil, errors.New("storage unavailable") }
func (brokenStorage) Save(_ []QueuedAction) error   { return errors.New("storage unavailable") }

func column(name string) *string { return &name }

func TestFlushSendsActionsInEnqueueOrder(t *testing.T) {
	rec := &fakeReconciler{}
	q := NewQueue("ada@example.com", NewMemoryStorage(), rec, nil)

	if _, err := q.Enqueue(board.Patch{ID: 1, Column: column("in-progress")}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Enqueue(board.Patch{ID: 1, Column: column("done")}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	remaining, err := q.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty queue after flush, got %d actions", len(remaining))
	}

	sent := rec.sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(sent))
	}
	if *sent[0][0].Column != "in-progress" || *sent[1][0].Column != "done" {
		t.Fatalf("actions sent out of enqueue order: %+v", sent)
	}
	// The later action's effect wins server-side: the last send moved
	// the task to done.
	if last := sent[len(sent)-1][0]; *last.Column != "done" {
		t.Fatalf("expected final effect to be done, got %q", *last.Column)
	}
}

func TestFlushKeepsFailedActions(t *testing.T) {
	rec := &fakeReconciler{failAt: 2}
	q := NewQueue("ada@example.com", NewMemoryStorage(), rec, nil)

	for i := 1; i <= 3; i++ {
		if _, err := q.Enqueue(board.Patch{ID: int64(i), Column: column("done")}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	remaining, err := q.Flush(context.Background())
	if err == nil {
		t.Fatalf("expected flush error")
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 actions kept for retry, got %d", len(remaining))
	}
	if remaining[0].TaskID != 2 || remaining[1].TaskID != 3 {
		t.Fatalf("wrong actions kept: %+v", remaining)
	}
}

func TestQueueSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	q := NewQueue("ada@example.com", NewFileStorage(path), &fakeReconciler{}, nil)

	first, err := q.Enqueue(board.Patch{ID: 1, Column: column("done")})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Enqueue(board.Patch{ID: 2, Order: intPtr(3)}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	reloaded := NewQueue("ada@example.com", NewFileStorage(path), &fakeReconciler{}, nil)
	pending := reloaded.Pending()
	if len(pending) != 2 {
		t.Fatalf("expected 2 actions after reload, got %d", len(pending))
	}
	if pending[0].LocalID != first.LocalID {
		t.Fatalf("expected enqueue order to survive reload")
	}
}

func TestQueueToleratesLegacyEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	legacy := `[{"localId":"old-1","taskId":7,"duration":25,"mode":"work","createdAt":"2025-01-02T15:04:05Z","someFutureField":true}]`
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatalf("write legacy queue: %v", err)
	}

	rec := &fakeReconciler{}
	q := NewQueue("ada@example.com", NewFileStorage(path), rec, nil)
	if q.Len() != 1 {
		t.Fatalf("expected legacy entry to load, got %d actions", q.Len())
	}

	// A legacy entry without patch fields is a no-op: removed without a
	// network call.
	remaining, err := q.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(remaining) != 0 || len(rec.sent()) != 0 {
		t.Fatalf("expected legacy entry dropped without sending, remaining=%d sent=%d", len(remaining), len(rec.sent()))
	}
}

func TestBrokenStorageFallsBackToMemory(t *testing.T) {
	q := NewQueue("ada@example.com", brokenStorage{}, &fakeReconciler{}, nil)
	if _, err := q.Enqueue(board.Patch{ID: 1, Column: column("done")}); err != nil {
		t.Fatalf("enqueue with broken storage: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("expected best-effort in-memory queueing, got %d actions", q.Len())
	}
}

func TestEnqueueValidation(t *testing.T) {
	q := NewQueue("ada@example.com", NewMemoryStorage(), &fakeReconciler{}, nil)

	if _, err := q.Enqueue(board.Patch{Column: column("done")}); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("expected ErrInvalidPatch for missing id, got %v", err)
	}
	// A patch with no recognized fields is a no-op, not an error.
	if _, err := q.Enqueue(board.Patch{ID: 5}); err != nil {
		t.Fatalf("empty patch should not error: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("expected nothing queued, got %d actions", q.Len())
	}
}

func TestEnqueueAllIsAtomic(t *testing.T) {
	q := NewQueue("ada@example.com", NewMemoryStorage(), &fakeReconciler{}, nil)

	_, err := q.EnqueueAll(
		board.Patch{ID: 1, Column: column("done")},
		board.Patch{ID: 2, Order: intPtr(0)},
		board.Patch{Column: column("todo")}, // missing id
	)
	if !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("expected ErrInvalidPatch, got %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("a rejected gesture must leave nothing buffered, got %d actions", q.Len())
	}

	actions, err := q.EnqueueAll(
		board.Patch{ID: 1, Column: column("done")},
		board.Patch{ID: 2}, // empty patch, skipped
		board.Patch{ID: 3, Order: intPtr(1)},
	)
	if err != nil {
		t.Fatalf("enqueue all: %v", err)
	}
	if len(actions) != 2 || q.Len() != 2 {
		t.Fatalf("expected 2 buffered actions, got %d returned and %d queued", len(actions), q.Len())
	}
	if actions[0].TaskID != 1 || actions[1].TaskID != 3 {
		t.Fatalf("actions buffered out of order: %+v", actions)
	}
}

func TestReconnectTriggersFlush(t *testing.T) {
	rec := &fakeReconciler{}
	conn := NewStaticConnectivity(false)
	q := NewQueue("ada@example.com", NewMemoryStorage(), rec, conn)
	if err := q.Start(""); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer q.Stop()

	if _, err := q.Enqueue(board.Patch{ID: 1, Column: column("done")}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(rec.sent()) != 0 {
		t.Fatalf("nothing should be sent while offline")
	}

	conn.SetOnline(true)
	if q.Len() != 0 {
		t.Fatalf("expected queue drained after reconnect, got %d actions", q.Len())
	}
	if len(rec.sent()) != 1 {
		t.Fatalf("expected 1 send after reconnect, got %d", len(rec.sent()))
	}
}

func TestQueueFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	q := NewQueue("ada@example.com", NewFileStorage(path), &fakeReconciler{}, nil)
	if _, err := q.Enqueue(board.Patch{ID: 9, Column: column("done"), Order: intPtr(0)}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read queue file: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("queue file is not a JSON array: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	for _, key := range []string{"localId", "taskId", "kanban_column", "kanban_order", "createdAt"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("queue entry missing %q: %v", key, entry)
		}
	}
}

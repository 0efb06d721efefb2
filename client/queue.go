package client

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"taskboard/board"
)

// ErrInvalidPatch marks a malformed patch. Validation failures are
// rejected synchronously and never queued.
var ErrInvalidPatch = errors.New("patch has no valid task id")

// Queue is a durable FIFO of pending write actions. Writes made while
// offline (or speculatively before server confirmation) are buffered
// here and flushed in enqueue order once connectivity returns. The
// queue never reorders or coalesces: if two actions touch the same
// task, the later one overwrites the earlier one's effect server-side,
// which matches user intent: the last drag wins.
type Queue struct {
	mu      sync.Mutex
	actions []QueuedAction
	storage Storage

	// flushMu serializes flushes for this owner so concurrent triggers
	// (reconnect signal, timer, explicit call) cannot double-submit.
	flushMu sync.Mutex

	owner string
	rec   Reconciler
	conn  Connectivity

	cron  *cron.Cron
	unsub func()
}

// NewQueue loads any actions a previous session left behind. If the
// durable storage cannot be read, the queue degrades to best-effort
// in-memory buffering instead of losing the interaction entirely.
func NewQueue(owner string, storage Storage, rec Reconciler, conn Connectivity) *Queue {
	actions, err := storage.Load()
	if err != nil {
		log.Printf("Offline queue for %s: durable storage unavailable, using in-memory fallback: %v", owner, err)
		storage = NewMemoryStorage()
		actions = nil
	}
	return &Queue{
		owner:   owner,
		storage: storage,
		actions: actions,
		rec:     rec,
		conn:    conn,
	}
}

// Enqueue buffers one patch. An empty patch is a no-op and is not
// queued; a patch without a task id is a validation error.
func (q *Queue) Enqueue(p board.Patch) (QueuedAction, error) {
	if p.ID <= 0 {
		return QueuedAction{}, ErrInvalidPatch
	}
	if p.IsZero() {
		return QueuedAction{}, nil
	}

	action := newQueuedAction(p)
	q.mu.Lock()
	q.actions = append(q.actions, action)
	q.persistLocked()
	q.mu.Unlock()
	return action, nil
}

// EnqueueAll buffers a gesture's patches as one unit: every patch is
// validated before anything is appended, so a bad patch can never leave
// half a gesture buffered for a later flush. Empty patches are skipped.
func (q *Queue) EnqueueAll(patches ...board.Patch) ([]QueuedAction, error) {
	var actions []QueuedAction
	for _, p := range patches {
		if p.ID <= 0 {
			return nil, ErrInvalidPatch
		}
		if p.IsZero() {
			continue
		}
		actions = append(actions, newQueuedAction(p))
	}
	if len(actions) == 0 {
		return nil, nil
	}

	q.mu.Lock()
	q.actions = append(q.actions, actions...)
	q.persistLocked()
	q.mu.Unlock()
	return actions, nil
}

// Len returns the number of buffered actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Pending returns a copy of the buffered actions in enqueue order.
func (q *Queue) Pending() []QueuedAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueuedAction, len(q.actions))
	copy(out, q.actions)
	return out
}

// Contains reports whether an action is still buffered.
func (q *Queue) Contains(localID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, a := range q.actions {
		if a.LocalID == localID {
			return true
		}
	}
	return false
}

// Flush sends every buffered action to the reconciliation endpoint in
// enqueue order, removing each on success. A transport failure stops
// the flush and leaves the failed action and everything behind it in
// place for a later retry; because patches are idempotent, re-sending
// an action whose success response was lost is safe. Any 2xx response
// completes the action even when the server swallowed it as a per-item
// failure, since retrying a permanently rejected patch cannot succeed.
func (q *Queue) Flush(ctx context.Context) ([]QueuedAction, error) {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	for {
		q.mu.Lock()
		if len(q.actions) == 0 {
			q.mu.Unlock()
			break
		}
		next := q.actions[0]
		q.mu.Unlock()

		patch := next.Patch()
		if patch.IsZero() {
			// Entry from an older app version this client cannot
			// replay; nothing to send.
			q.remove(next.LocalID)
			continue
		}

		if _, err := q.rec.ApplyBatch(ctx, []board.Patch{patch}); err != nil {
			return q.Pending(), err
		}
		q.remove(next.LocalID)
	}
	return q.Pending(), nil
}

// Start wires the automatic flush triggers: the connectivity-restored
// signal and a periodic cron timer as a safety net against missed
// events. flushSpec uses cron syntax; empty means every 30 seconds.
func (q *Queue) Start(flushSpec string) error {
	if q.conn != nil {
		q.unsub = q.conn.OnChange(func(online bool) {
			if !online {
				return
			}
			if _, err := q.Flush(context.Background()); err != nil {
				log.Printf("Offline queue for %s: flush after reconnect failed: %v", q.owner, err)
			}
		})
	}

	if flushSpec == "" {
		flushSpec = "@every 30s"
	}
	c := cron.New()
	if _, err := c.AddFunc(flushSpec, func() {
		if q.conn != nil && !q.conn.IsOnline() {
			return
		}
		if q.Len() == 0 {
			return
		}
		if _, err := q.Flush(context.Background()); err != nil {
			log.Printf("Offline queue for %s: periodic flush failed: %v", q.owner, err)
		}
	}); err != nil {
		return err
	}
	c.Start()
	q.cron = c
	return nil
}

// Stop halts the automatic flush triggers.
func (q *Queue) Stop() {
	if q.cron != nil {
		q.cron.Stop()
		q.cron = nil
	}
	if q.unsub != nil {
		q.unsub()
		q.unsub = nil
	}
}

func (q *Queue) remove(localID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, a := range q.actions {
		if a.LocalID == localID {
			q.actions = append(q.actions[:i], q.actions[i+1:]...)
			q.persistLocked()
			return
		}
	}
}

// persistLocked saves the queue; on failure it falls back to in-memory
// storage so the session keeps working. Callers hold q.mu.
func (q *Queue) persistLocked() {
	if err := q.storage.Save(q.actions); err != nil {
		log.Printf("Offline queue for %s: persist failed, switching to in-memory storage: %v", q.owner, err)
		mem := NewMemoryStorage()
		_ = mem.Save(q.actions)
		q.storage = mem
	}
}

package client

import (
	"context"
	"sync"

	"taskboard/board"
)

// Controller drives the board interaction loop: a drag gesture is
// translated into patches, applied to the optimistic store, buffered in
// the offline queue, and pushed to the server when online. It is an
// explicit context object handed to UI callbacks; there is no ambient
// singleton holding board state.
type Controller struct {
	store *Store
	queue *Queue
	conn  Connectivity

	mu       sync.Mutex
	drag     board.Drag
	inFlight map[*Mutation][]string // mutation -> queued action ids
}

func NewController(store *Store, queue *Queue, conn Connectivity) *Controller {
	return &Controller{
		store:    store,
		queue:    queue,
		conn:     conn,
		inFlight: make(map[*Mutation][]string),
	}
}

// Store exposes the optimistic store for subscriptions and snapshots.
func (c *Controller) Store() *Store { return c.store }

// BeginDrag starts a gesture on the given task.
func (c *Controller) BeginDrag(taskID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drag.Begin(c.store.Tasks(), taskID)
}

// CancelDrag abandons the gesture; the store is untouched.
func (c *Controller) CancelDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drag.Cancel()
}

// Drop completes the gesture. Dropping a card at its current position
// is a true no-op: no patches, no queue entries, no network call. The
// returned mutation is nil in that case.
func (c *Controller) Drop(ctx context.Context, toColumn string, toIndex int) (*Mutation, error) {
	c.mu.Lock()
	patches, err := c.drag.Drop(c.store.Tasks(), toColumn, toIndex)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(patches) == 0 {
		return nil, nil
	}

	m, err := c.store.ApplyLocal(patches...)
	if err != nil {
		return nil, err
	}

	// The gesture queues as one unit so a validation failure cannot
	// leave part of it buffered for a later flush.
	actions, err := c.queue.EnqueueAll(patches...)
	if err != nil {
		c.store.Reject(m, err.Error())
		return nil, err
	}
	actionIDs := make([]string, 0, len(actions))
	for _, action := range actions {
		actionIDs = append(actionIDs, action.LocalID)
	}

	c.mu.Lock()
	c.inFlight[m] = actionIDs
	c.mu.Unlock()

	if c.conn == nil || c.conn.IsOnline() {
		c.FlushPending(ctx)
	}
	return m, nil
}

// Toggle flips a task's completion through the same apply/queue path a
// drag takes.
func (c *Controller) Toggle(ctx context.Context, taskID int64, completed bool) (*Mutation, error) {
	patch := board.Patch{ID: taskID, Completed: &completed}
	m, err := c.store.ApplyLocal(patch)
	if err != nil {
		return nil, err
	}
	action, err := c.queue.Enqueue(patch)
	if err != nil {
		c.store.Reject(m, err.Error())
		return nil, err
	}

	c.mu.Lock()
	c.inFlight[m] = []string{action.LocalID}
	c.mu.Unlock()

	if c.conn == nil || c.conn.IsOnline() {
		c.FlushPending(ctx)
	}
	return m, nil
}

// FlushPending flushes the queue and confirms every mutation whose
// actions all left it. Mutations whose actions remain queued stay
// pending and do not block further interaction.
func (c *Controller) FlushPending(ctx context.Context) {
	_, _ = c.queue.Flush(ctx)

	c.mu.Lock()
	confirmed := make([]*Mutation, 0)
	for m, actionIDs := range c.inFlight {
		done := true
		for _, id := range actionIDs {
			if c.queue.Contains(id) {
				done = false
				break
			}
		}
		if done {
			confirmed = append(confirmed, m)
			delete(c.inFlight, m)
		}
	}
	c.mu.Unlock()

	for _, m := range confirmed {
		c.store.Confirm(m)
	}
}

// SyncFetched replaces the projection with a fresh server snapshot,
// e.g. after a flush or on reconnect. Tasks the server no longer knows
// disappear from the projection with it.
func (c *Controller) SyncFetched(tasks []board.Task) {
	c.mu.Lock()
	c.inFlight = make(map[*Mutation][]string)
	c.mu.Unlock()
	c.store.Reset(tasks)
}

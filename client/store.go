package client

import (
	"errors"
	"sort"
	"sync"

	"taskboard/board"
)

// ErrUnknownTask is returned when a patch targets a task the store has
// never seen.
var ErrUnknownTask = errors.New("task not in store")

// EventType labels the store notifications.
type EventType string

const (
	EventApplied   EventType = "applied"
	EventConfirmed EventType = "confirmed"
	EventReverted  EventType = "reverted"
	EventRemoved   EventType = "removed"
	EventReset     EventType = "reset"
)

// Event describes one store change. Subscribers use it to re-render.
type Event struct {
	Type   EventType
	Seq    uint64
	Reason string
}

type fieldKey struct {
	taskID int64
	field  string
}

// fieldWrite is one entry in a field's write chain: the mutation that
// wrote it and the value the field held before.
type fieldWrite struct {
	seq  uint64
	prev any
}

// Mutation is the handle for one optimistic change: a patch set applied
// locally, awaiting server confirmation. Mutations are keyed by a
// monotonically increasing sequence number rather than by task id, so
// two rapid moves of the same task resolve in issuance order no matter
// when their responses arrive.
type Mutation struct {
	Seq     uint64
	Patches []board.Patch

	keys map[fieldKey]struct{}
}

// Store is the client-side projection of the owner's board. Local
// mutations apply synchronously; the server remains authoritative and
// rejected mutations are rolled back field by field.
type Store struct {
	mu      sync.Mutex
	tasks   map[int64]board.Task
	pending map[uint64]*Mutation
	nextSeq uint64

	// writes holds each field's unresolved write chain in apply order.
	// The top entry is the write the field currently shows; each
	// entry's prev is the value to restore if every write above it
	// also unwinds.
	writes map[fieldKey][]fieldWrite

	subs    map[int]func(Event)
	nextSub int
}

func NewStore(tasks []board.Task) *Store {
	s := &Store{
		tasks:   make(map[int64]board.Task),
		pending: make(map[uint64]*Mutation),
		writes:  make(map[fieldKey][]fieldWrite),
		subs:    make(map[int]func(Event)),
	}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

// Reset replaces the projection with a fresh server snapshot. Pending
// mutations are discarded: the snapshot already reflects whatever the
// server accepted, and a task the server no longer knows disappears
// here too.
func (s *Store) Reset(tasks []board.Task) {
	s.mu.Lock()
	s.tasks = make(map[int64]board.Task, len(tasks))
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	s.pending = make(map[uint64]*Mutation)
	s.writes = make(map[fieldKey][]fieldWrite)
	s.mu.Unlock()
	s.notify(Event{Type: EventReset})
}

// ApplyLocal applies a patch set synchronously and returns its handle.
// The whole set applies atomically, so observers never see a half-moved
// column between a local apply and its confirmation.
func (s *Store) ApplyLocal(patches ...board.Patch) (*Mutation, error) {
	s.mu.Lock()
	for _, p := range patches {
		if _, ok := s.tasks[p.ID]; !ok {
			s.mu.Unlock()
			return nil, ErrUnknownTask
		}
	}

	m := &Mutation{
		Seq:     s.nextSeq,
		Patches: patches,
		keys:    make(map[fieldKey]struct{}),
	}
	s.nextSeq++

	for _, p := range patches {
		t := s.tasks[p.ID]
		if p.Column != nil {
			s.recordWrite(m, fieldKey{p.ID, "column"}, t.Column)
		}
		if p.Order != nil {
			s.recordWrite(m, fieldKey{p.ID, "order"}, t.Order)
		}
		if p.Completed != nil {
			s.recordWrite(m, fieldKey{p.ID, "completed"}, t.Completed)
		}
		s.tasks[p.ID] = p.Apply(t)
	}

	s.pending[m.Seq] = m
	s.mu.Unlock()
	s.notify(Event{Type: EventApplied, Seq: m.Seq})
	return m, nil
}

// Confirm clears a mutation's pending status. Once a write is
// confirmed, the server has accepted it: older writes beneath it in the
// chain lose their revert claim, so a stale rejection arriving later
// cannot clobber the confirmed value. Confirming a mutation that was
// already resolved (e.g. a stale server echo arriving after a reset) is
// a no-op.
func (s *Store) Confirm(m *Mutation) {
	s.mu.Lock()
	if _, ok := s.pending[m.Seq]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, m.Seq)

	for key := range m.keys {
		var kept []fieldWrite
		for _, w := range s.writes[key] {
			if w.seq > m.Seq {
				kept = append(kept, w)
			}
		}
		if len(kept) == 0 {
			delete(s.writes, key)
		} else {
			s.writes[key] = kept
		}
	}
	s.mu.Unlock()
	s.notify(Event{Type: EventConfirmed, Seq: m.Seq})
}

// Reject unwinds the mutation's delta and surfaces the reason, so the
// UI can show the card snapping back. Each field is handled through its
// write chain: if this mutation's write is the newest, the field rolls
// back to the value recorded before it; if a newer pending write sits
// on top, the snapshot is folded into that write instead, so the chain
// still restores the true pre-mutation value once every write above has
// resolved. Last local intent wins throughout, and an older response
// never clobbers newer state.
func (s *Store) Reject(m *Mutation, reason string) {
	s.mu.Lock()
	if _, ok := s.pending[m.Seq]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, m.Seq)

	for key := range m.keys {
		chain := s.writes[key]
		idx := -1
		for i, w := range chain {
			if w.seq == m.Seq {
				idx = i
				break
			}
		}
		if idx < 0 {
			// A newer confirmed write superseded this one.
			continue
		}

		if idx == len(chain)-1 {
			// Newest writer: the field shows our value, roll it back.
			if t, ok := s.tasks[key.taskID]; ok {
				switch key.field {
				case "column":
					t.Column = chain[idx].prev.(string)
				case "order":
					t.Order = chain[idx].prev.(int)
				case "completed":
					t.Completed = chain[idx].prev.(bool)
				}
				s.tasks[key.taskID] = t
			}
		} else {
			// A newer pending write sits on top; hand it our snapshot
			// so its eventual reject restores the pre-chain value.
			chain[idx+1].prev = chain[idx].prev
		}

		chain = append(chain[:idx], chain[idx+1:]...)
		if len(chain) == 0 {
			delete(s.writes, key)
		} else {
			s.writes[key] = chain
		}
	}
	s.mu.Unlock()
	s.notify(Event{Type: EventReverted, Seq: m.Seq, Reason: reason})
}

// RemoveTask drops a task from the projection, e.g. after a fetch
// confirms the server deleted it concurrently.
func (s *Store) RemoveTask(id int64) {
	s.mu.Lock()
	if _, ok := s.tasks[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, id)
	s.mu.Unlock()
	s.notify(Event{Type: EventRemoved})
}

// Task returns one task from the projection.
func (s *Store) Task(id int64) (board.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// Tasks returns the projection ordered by column and position, ties
// broken by id.
func (s *Store) Tasks() []board.Task {
	s.mu.Lock()
	out := make([]board.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Column != out[j].Column {
			return out[i].Column < out[j].Column
		}
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ColumnTasks returns one column of the projection in order.
func (s *Store) ColumnTasks(column string) []board.Task {
	return board.ColumnTasks(s.Tasks(), column)
}

// PendingCount returns the number of unresolved mutations.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Subscribe registers an observer for store events and returns the
// unsubscribe function. Callers subscribe here instead of listening on
// a global event bus.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// recordWrite appends this mutation to the field's write chain with the
// field's current value as the revert point. A mutation writing the
// same field twice keeps its first snapshot. Callers hold s.mu.
func (s *Store) recordWrite(m *Mutation, key fieldKey, value any) {
	if _, ok := m.keys[key]; ok {
		return
	}
	m.keys[key] = struct{}{}
	s.writes[key] = append(s.writes[key], fieldWrite{seq: m.Seq, prev: value})
}

func (s *Store) notify(e Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}

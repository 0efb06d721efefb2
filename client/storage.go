package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskboard/board"
)

// QueuedAction is a patch plus bookkeeping, persisted durably so it
// survives a reload while offline. The JSON shape is append-only: older
// entries written by previous app versions (including pomodoro records
// carrying duration/mode) must still parse.
type QueuedAction struct {
	LocalID   string    `json:"localId"`
	TaskID    int64     `json:"taskId,omitempty"`
	Column    *string   `json:"kanban_column,omitempty"`
	Order     *int      `json:"kanban_order,omitempty"`
	Completed *bool     `json:"completed,omitempty"`
	Duration  *int      `json:"duration,omitempty"`
	Mode      *string   `json:"mode,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func newQueuedAction(p board.Patch) QueuedAction {
	return QueuedAction{
		LocalID:   uuid.NewString(),
		TaskID:    p.ID,
		Column:    p.Column,
		Order:     p.Order,
		Completed: p.Completed,
		CreatedAt: time.Now(),
	}
}

// Patch reconstructs the patch carried by the action.
func (a QueuedAction) Patch() board.Patch {
	return board.Patch{ID: a.TaskID, Column: a.Column, Order: a.Order, Completed: a.Completed}
}

// Storage persists the pending queue across reloads.
type Storage interface {
	Load() ([]QueuedAction, error)
	Save(actions []QueuedAction) error
}

// FileStorage keeps the queue as a single JSON array on disk.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) Load() ([]QueuedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue file: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var actions []QueuedAction
	if err := json.Unmarshal(raw, &actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue file: %w", err)
	}
	return actions, nil
}

func (s *FileStorage) Save(actions []QueuedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if actions == nil {
		actions = []QueuedAction{}
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("failed to marshal queue: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create queue directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write queue file: %w", err)
	}
	return nil
}

// MemoryStorage is the best-effort fallback used when durable storage
// is unavailable: the queue still works for the current session.
type MemoryStorage struct {
	mu      sync.Mutex
	actions []QueuedAction
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Load() ([]QueuedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QueuedAction, len(s.actions))
	copy(out, s.actions)
	return out, nil
}

func (s *MemoryStorage) Save(actions []QueuedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = make([]QueuedAction, len(actions))
	copy(s.actions, actions)
	return nil
}

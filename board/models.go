package board

import "time"

// Task is a single card on the board. Order positions the task inside
// its column; within one owner and column, order values are unique and
// ties are broken by id ascending.
type Task struct {
	ID          int64      `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    int        `json:"priority"`
	Completed   bool       `json:"completed"`
	Column      string     `json:"kanbanColumn"`
	Order       int        `json:"kanbanOrder"`
	ProjectID   *int64     `json:"projectId,omitempty"`
	Labels      []string   `json:"labels,omitempty"`
}

// Column is a named partition of the board. Default columns cannot be
// deleted or renamed.
type Column struct {
	Key          string `json:"key"`
	Title        string `json:"title"`
	DisplayOrder int    `json:"displayOrder"`
	Color        string `json:"color,omitempty"`
	IsDefault    bool   `json:"isDefault"`
}

package board

// Patch describes one task mutation. Pointer fields distinguish a field
// that is absent from one that is explicitly set, so a patch can change
// completion without touching order and vice versa. A patch with no
// fields set is a no-op, not an error. Patches are idempotent: applying
// the same patch twice yields the same task state.
type Patch struct {
	ID        int64   `json:"id"`
	Column    *string `json:"kanban_column,omitempty"`
	Order     *int    `json:"kanban_order,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// IsZero reports whether the patch carries no recognized fields.
func (p Patch) IsZero() bool {
	return p.Column == nil && p.Order == nil && p.Completed == nil
}

// Apply merges the patch into a copy of the task.
func (p Patch) Apply(t Task) Task {
	if p.Column != nil {
		t.Column = *p.Column
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

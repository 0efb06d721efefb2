package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"taskboard/board"
)

// Store handles database operations for tasks and columns. It is the
// authoritative side of reconciliation: the client's optimistic view is
// only a projection of what lives here.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const taskFields = `id, owner_id, title, description, due_date, priority, completed, kanban_column, kanban_order, project_id, labels`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (board.Task, error) {
	var t board.Task
	var due sql.NullTime
	var project sql.NullInt64
	var labels string
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &due, &t.Priority, &t.Completed,
		&t.Column, &t.Order, &project, &labels)
	if err != nil {
		return board.Task{}, err
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if project.Valid {
		p := project.Int64
		t.ProjectID = &p
	}
	if labels != "" && labels != "[]" {
		if err := json.Unmarshal([]byte(labels), &t.Labels); err != nil {
			return board.Task{}, fmt.Errorf("failed to unmarshal labels for task %d: %w", t.ID, err)
		}
	}
	return t, nil
}

// ListTasks returns the owner's tasks ordered by column and position.
// Completed tasks are included only when requested.
func (s *Store) ListTasks(ctx context.Context, ownerID string, includeCompleted bool) ([]board.Task, error) {
	query := `SELECT ` + taskFields + ` FROM tasks WHERE owner_id = ?`
	if !includeCompleted {
		query += ` AND completed = 0`
	}
	query += ` ORDER BY kanban_column, kanban_order, id`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []board.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask fetches one task owned by ownerID.
func (s *Store) GetTask(ctx context.Context, ownerID string, id int64) (board.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskFields+` FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return board.Task{}, ErrNotFound
	}
	if err != nil {
		return board.Task{}, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// CreateTask inserts a task at the end of its column.
func (s *Store) CreateTask(ctx context.Context, t board.Task) (board.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return board.Task{}, fmt.Errorf("task title must not be empty")
	}
	if t.Column == "" {
		t.Column = "todo"
	}
	if err := s.checkColumnKey(ctx, t.Column); err != nil {
		return board.Task{}, err
	}

	order, err := s.nextPosition(ctx, t.OwnerID, t.Column)
	if err != nil {
		return board.Task{}, err
	}

	labels := "[]"
	if len(t.Labels) > 0 {
		raw, err := json.Marshal(t.Labels)
		if err != nil {
			return board.Task{}, fmt.Errorf("failed to marshal labels: %w", err)
		}
		labels = string(raw)
	}

	var due sql.NullTime
	if t.DueDate != nil {
		due = sql.NullTime{Time: *t.DueDate, Valid: true}
	}
	var project sql.NullInt64
	if t.ProjectID != nil {
		project = sql.NullInt64{Int64: *t.ProjectID, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks
		(owner_id, title, description, due_date, priority, completed, kanban_column, kanban_order, project_id, labels)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OwnerID, strings.TrimSpace(t.Title), t.Description, due, t.Priority, t.Completed, t.Column, order, project, labels)
	if err != nil {
		return board.Task{}, fmt.Errorf("failed to insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return board.Task{}, fmt.Errorf("failed to read task id: %w", err)
	}
	return s.GetTask(ctx, t.OwnerID, id)
}

// DeleteTask removes one of the owner's tasks.
func (s *Store) DeleteTask(ctx context.Context, ownerID string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyPatch applies one patch as its own unit of work. The ownership
// check happens here, per patch, not once per batch. An empty patch is
// a no-op.
func (s *Store) ApplyPatch(ctx context.Context, ownerID string, p board.Patch) error {
	if p.IsZero() {
		return nil
	}
	if p.Column != nil {
		if err := s.checkColumnKey(ctx, *p.Column); err != nil {
			return err
		}
	}

	var sets []string
	var args []any
	if p.Column != nil {
		sets = append(sets, "kanban_column = ?")
		args = append(args, *p.Column)
	}
	if p.Order != nil {
		sets = append(sets, "kanban_order = ?")
		args = append(args, *p.Order)
	}
	if p.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *p.Completed)
	}
	args = append(args, p.ID, ownerID)

	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ? AND owner_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to apply patch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyBatch applies each patch independently. A failed patch is
// recorded in the results and never aborts the rest: the client may
// submit a stale batch and one bad item must not block fifty good ones.
// Affected columns are renumbered to dense positions afterwards so
// order values cannot drift over long sessions.
func (s *Store) ApplyBatch(ctx context.Context, ownerID string, patches []board.Patch) (int, []PatchResult) {
	applied := 0
	results := make([]PatchResult, 0, len(patches))
	touched := make(map[string]bool)

	for _, p := range patches {
		if before, err := s.taskColumn(ctx, ownerID, p.ID); err == nil {
			touched[before] = true
		}

		err := s.ApplyPatch(ctx, ownerID, p)
		results = append(results, PatchResult{ID: p.ID, Err: err})
		if err != nil {
			continue
		}
		applied++
		if p.Column != nil {
			touched[*p.Column] = true
		}
	}

	for column := range touched {
		if err := s.normalizeColumn(ctx, ownerID, column); err != nil {
			log.Printf("Error normalizing column %q for %s: %v", column, ownerID, err)
		}
	}
	return applied, results
}

// normalizeColumn rewrites the column's order values to 0..n-1,
// preserving relative order with ties broken by id.
func (s *Store) normalizeColumn(ctx context.Context, ownerID, column string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id, kanban_order FROM tasks
		WHERE owner_id = ? AND kanban_column = ? ORDER BY kanban_order, id`, ownerID, column)
	if err != nil {
		return fmt.Errorf("failed to query column: %w", err)
	}

	type position struct {
		id    int64
		order int
	}
	var positions []position
	for rows.Next() {
		var p position
		if err := rows.Scan(&p.id, &p.order); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for i, p := range positions {
		if p.order == i {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET kanban_order = ? WHERE id = ?`, i, p.id); err != nil {
			return fmt.Errorf("failed to renumber task %d: %w", p.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) taskColumn(ctx context.Context, ownerID string, id int64) (string, error) {
	var column string
	err := s.db.QueryRowContext(ctx, `SELECT kanban_column FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID).Scan(&column)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return column, err
}

func (s *Store) nextPosition(ctx context.Context, ownerID, column string) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(kanban_order) FROM tasks WHERE owner_id = ? AND kanban_column = ?`, ownerID, column).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to select position: %w", err)
	}
	if max.Valid {
		return int(max.Int64) + 1, nil
	}
	return 0, nil
}

func (s *Store) checkColumnKey(ctx context.Context, key string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM columns WHERE key = ?`, key).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check column key: %w", err)
	}
	if exists == 0 {
		return ErrUnknownColumn
	}
	return nil
}

// ListColumns returns all board columns in display order.
func (s *Store) ListColumns(ctx context.Context) ([]board.Column, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, title, display_order, color, is_default FROM columns ORDER BY display_order, key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []board.Column
	for rows.Next() {
		var c board.Column
		if err := rows.Scan(&c.Key, &c.Title, &c.DisplayOrder, &c.Color, &c.IsDefault); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

// GetColumn fetches a single column by key.
func (s *Store) GetColumn(ctx context.Context, key string) (board.Column, error) {
	var c board.Column
	err := s.db.QueryRowContext(ctx, `SELECT key, title, display_order, color, is_default FROM columns WHERE key = ?`, key).
		Scan(&c.Key, &c.Title, &c.DisplayOrder, &c.Color, &c.IsDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return board.Column{}, ErrColumnNotFound
	}
	if err != nil {
		return board.Column{}, fmt.Errorf("failed to get column: %w", err)
	}
	return c, nil
}

// CreateColumn adds a user-defined column.
func (s *Store) CreateColumn(ctx context.Context, c board.Column) (board.Column, error) {
	if strings.TrimSpace(c.Key) == "" || strings.TrimSpace(c.Title) == "" {
		return board.Column{}, fmt.Errorf("column key and title must not be empty")
	}
	if _, err := s.GetColumn(ctx, c.Key); err == nil {
		return board.Column{}, ErrDuplicateColumn
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO columns (key, title, display_order, color, is_default) VALUES (?, ?, ?, ?, 0)`,
		strings.TrimSpace(c.Key), strings.TrimSpace(c.Title), c.DisplayOrder, c.Color)
	if err != nil {
		return board.Column{}, fmt.Errorf("failed to insert column: %w", err)
	}
	return s.GetColumn(ctx, c.Key)
}

// UpdateColumn changes a column's title, color or display order.
// Renaming a default column is rejected.
func (s *Store) UpdateColumn(ctx context.Context, key string, title, color *string, displayOrder *int) (board.Column, error) {
	current, err := s.GetColumn(ctx, key)
	if err != nil {
		return board.Column{}, err
	}
	if title != nil && *title != current.Title && current.IsDefault {
		return board.Column{}, ErrDefaultColumn
	}

	if title != nil && strings.TrimSpace(*title) != "" {
		current.Title = strings.TrimSpace(*title)
	}
	if color != nil {
		current.Color = *color
	}
	if displayOrder != nil {
		current.DisplayOrder = *displayOrder
	}

	_, err = s.db.ExecContext(ctx, `UPDATE columns SET title = ?, color = ?, display_order = ? WHERE key = ?`,
		current.Title, current.Color, current.DisplayOrder, key)
	if err != nil {
		return board.Column{}, fmt.Errorf("failed to update column: %w", err)
	}
	return s.GetColumn(ctx, key)
}

// DeleteColumn removes a user-defined column. Deleting a default column
// or a column that still holds tasks is a reported error, never a
// silent no-op.
func (s *Store) DeleteColumn(ctx context.Context, key string) error {
	current, err := s.GetColumn(ctx, key)
	if err != nil {
		return err
	}
	if current.IsDefault {
		return ErrDefaultColumn
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks WHERE kanban_column = ?`, key).Scan(&count); err != nil {
		return fmt.Errorf("failed to count column tasks: %w", err)
	}
	if count > 0 {
		return ErrColumnNotEmpty
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM columns WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete column: %w", err)
	}
	return nil
}

package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// defaultColumns are seeded at startup. They cannot be deleted or
// renamed away.
var defaultColumns = []struct {
	key   string
	title string
	order int
}{
	{"todo", "To Do", 0},
	{"in-progress", "In Progress", 1},
	{"done", "Done", 2},
}

// InitDB opens the SQLite database and runs migrations.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create columns table
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS columns (
		key TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		display_order INTEGER NOT NULL DEFAULT 0,
		color TEXT NOT NULL DEFAULT '',
		is_default INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create columns table: %w", err)
	}

	// Create tasks table
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_date TIMESTAMP,
		priority INTEGER NOT NULL DEFAULT 2,
		completed INTEGER NOT NULL DEFAULT 0,
		kanban_column TEXT NOT NULL DEFAULT 'todo' REFERENCES columns(key),
		kanban_order INTEGER NOT NULL DEFAULT 0,
		project_id INTEGER,
		labels TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_owner_column ON tasks(owner_id, kanban_column)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create task index: %w", err)
	}

	// Seed default columns
	for _, col := range defaultColumns {
		_, err = db.Exec(`INSERT OR IGNORE INTO columns (key, title, display_order, is_default) VALUES (?, ?, ?, 1)`,
			col.key, col.title, col.order)
		if err != nil {
			return nil, fmt.Errorf("failed to seed column %q: %w", col.key, err)
		}
	}

	log.Println("Database initialized successfully")
	return db, nil
}

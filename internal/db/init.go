package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL CHECK (trim(title) <> ''),
    description TEXT,
    due_date TEXT,
    priority TEXT,
    category TEXT,
    difficulty TEXT,
    completed BOOLEAN DEFAULT 0,
    created_at TEXT,
    -- timer columns, durations in seconds
    estimated_time INTEGER DEFAULT 0,
    total_time INTEGER DEFAULT 0 CHECK (total_time >= 0),
    timer_start_time TEXT,
    timer_paused_time TEXT,
    timer_status TEXT CHECK (timer_status IN ('stopped', 'running', 'paused')) DEFAULT 'stopped'
);

CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks (due_date);
CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks (priority);
CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks (category);
CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks (completed);
CREATE INDEX IF NOT EXISTS idx_tasks_timer_status ON tasks (timer_status);
`

// Initialize creates a new database with the complete schema
func Initialize(dbPath string) error {
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("database already exists at %s", dbPath)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return storageErr("creating schema", err)
	}

	return nil
}

package db

import (
	"fmt"
	"log"
	"strings"
)

// RunMigrations applies any pending database migrations
func (db *DB) RunMigrations() error {
	// Run timer columns migration
	if err := db.runTimerMigration(); err != nil {
		return err
	}

	// Normalize labels written by the old desktop app
	if err := db.runLabelMigration(); err != nil {
		return err
	}

	return nil
}

var timerColumnDefs = []struct {
	name string
	def  string
}{
	{"estimated_time", "INTEGER DEFAULT 0"},
	{"total_time", "INTEGER DEFAULT 0"},
	{"timer_start_time", "TEXT"},
	{"timer_paused_time", "TEXT"},
	{"timer_status", "TEXT DEFAULT 'stopped'"},
}

func (db *DB) runTimerMigration() error {
	// Check if timer columns exist
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*)
		FROM pragma_table_info('tasks')
		WHERE name IN ('estimated_time', 'total_time', 'timer_start_time', 'timer_paused_time', 'timer_status')
	`).Scan(&count)

	if err != nil {
		return fmt.Errorf("checking for timer columns: %w", err)
	}

	if count == len(timerColumnDefs) {
		return nil
	}

	log.Println("Running migration: Adding timer columns...")

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, col := range timerColumnDefs {
		_, err = tx.Exec(fmt.Sprintf(`ALTER TABLE tasks ADD COLUMN %s %s`, col.name, col.def))
		if err != nil && !strings.Contains(err.Error(), "duplicate column name") {
			return fmt.Errorf("adding %s column: %w", col.name, err)
		}
	}

	if _, err := tx.Exec(`UPDATE tasks SET timer_status = 'stopped' WHERE timer_status IS NULL`); err != nil {
		return fmt.Errorf("defaulting timer status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing timer migration: %w", err)
	}

	log.Println("Timer migration completed successfully")
	return nil
}

var legacyLabels = []struct {
	column string
	from   []string
	to     string
}{
	{"priority", []string{"高", "High"}, "high"},
	{"priority", []string{"中", "Medium"}, "medium"},
	{"priority", []string{"低", "Low"}, "low"},
	{"difficulty", []string{"困难", "Hard"}, "hard"},
	{"difficulty", []string{"中等", "Medium"}, "medium"},
	{"difficulty", []string{"简单", "Easy"}, "easy"},
}

func (db *DB) runLabelMigration() error {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM tasks
		WHERE priority IN ('高', '中', '低', 'High', 'Medium', 'Low')
		   OR difficulty IN ('困难', '中等', '简单', 'Hard', 'Medium', 'Easy')
	`).Scan(&count)

	if err != nil {
		return fmt.Errorf("checking for legacy labels: %w", err)
	}

	if count == 0 {
		return nil
	}

	log.Printf("Running migration: Normalizing labels on %d tasks...", count)

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, l := range legacyLabels {
		for _, from := range l.from {
			query := fmt.Sprintf(`UPDATE tasks SET %s = ? WHERE %s = ?`, l.column, l.column)
			if _, err := tx.Exec(query, l.to, from); err != nil {
				return fmt.Errorf("normalizing %s %q: %w", l.column, from, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing label migration: %w", err)
	}

	log.Println("Label migration completed successfully")
	return nil
}

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open creates a new database connection
func Open(dbPath string) (*DB, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found at %s\nRun 'tasks-tui -init' to create it", dbPath)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: every write goes through the same SQLite handle in order.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, storageErr("connecting", err)
	}

	db := newDB(conn)

	if err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

func newDB(conn *sql.DB) *DB {
	return &DB{conn: conn, now: time.Now}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

const taskColumns = `
	id, title, COALESCE(description, ''), due_date,
	priority, COALESCE(category, ''), difficulty, COALESCE(completed, 0),
	created_at, COALESCE(estimated_time, 0), COALESCE(total_time, 0),
	timer_start_time, timer_paused_time, COALESCE(timer_status, 'stopped')`

const timerColumns = `
	id, COALESCE(timer_status, 'stopped'), COALESCE(estimated_time, 0),
	COALESCE(total_time, 0), timer_start_time, timer_paused_time,
	COALESCE(completed, 0)`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (Task, error) {
	var (
		t         Task
		dueDate   sql.NullString
		createdAt Timestamp
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &dueDate,
		&t.Priority, &t.Category, &t.Difficulty, &t.Completed,
		&createdAt, &t.EstimatedTime, &t.TotalTime,
		&t.TimerStartTime, &t.TimerPausedTime, &t.TimerStatus,
	)
	if err != nil {
		return Task{}, err
	}

	if dueDate.Valid {
		if d, ok := parseDate(dueDate.String); ok {
			t.DueDate = sql.NullTime{Time: d, Valid: true}
		} else {
			log.Printf("task %d: ignoring unreadable due date %q", t.ID, dueDate.String)
		}
	}
	if createdAt.Valid {
		t.CreatedAt = createdAt.Time
	}

	return t, nil
}

func scanTimer(row rowScanner) (TimerState, error) {
	var s TimerState
	err := row.Scan(
		&s.TaskID, &s.Status, &s.EstimatedTime,
		&s.TotalTime, &s.StartTime, &s.PausedTime,
		&s.Completed,
	)
	return s, err
}

func (db *DB) queryTasks(op string, query string, args ...interface{}) ([]Task, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, storageErr("scanning task", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return tasks, nil
}

// CreateTask inserts a task with a stopped timer and returns its id
func (db *DB) CreateTask(task NewTask) (int64, error) {
	query := `
		INSERT INTO tasks (
			title, description, due_date, priority, category, difficulty,
			created_at, estimated_time, total_time, timer_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, 'stopped')
	`

	result, err := db.conn.Exec(query,
		task.Title,
		task.Description,
		dateValue(task.DueDate),
		task.Priority,
		task.Category,
		task.Difficulty,
		FormatTimestamp(db.now()),
	)
	if err != nil {
		return 0, storageErr("inserting task", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("getting insert ID", err)
	}

	return id, nil
}

// GetTask retrieves a single task by ID
func (db *DB) GetTask(id int64) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	t, err := scanTask(db.conn.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("querying task", err)
	}

	return &t, nil
}

// ListTasks returns every task. SortNone keeps insertion order.
func (db *DB) ListTasks(sort SortKey, descending bool) ([]Task, error) {
	order := "id"
	if sort != SortNone {
		var err error
		if order, err = orderBy(sort, descending); err != nil {
			return nil, err
		}
	}

	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY ` + order
	return db.queryTasks("querying tasks", query)
}

// QueryTasks returns the tasks matching f. SortNone orders by due date,
// earliest first, with undated tasks last.
func (db *DB) QueryTasks(f Filter, sort SortKey, descending bool) ([]Task, error) {
	if f.column == "" {
		return nil, fmt.Errorf("empty filter")
	}
	if sort == SortNone {
		sort, descending = SortDueDate, false
	}
	order, err := orderBy(sort, descending)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + f.column + ` = ? ORDER BY ` + order
	return db.queryTasks("querying tasks by "+f.column, query, f.value)
}

// orderBy builds the ORDER BY clause for a sort key. Undated tasks stay last
// in both directions; ties fall back to insertion order.
func orderBy(sort SortKey, descending bool) (string, error) {
	dir := "ASC"
	if descending {
		dir = "DESC"
	}

	switch sort {
	case SortDueDate:
		return fmt.Sprintf("(due_date IS NULL OR due_date = ''), due_date %s, id", dir), nil
	case SortPriority:
		return fmt.Sprintf(`CASE priority
			WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4
		END %s, id`, dir), nil
	case SortDifficulty:
		return fmt.Sprintf(`CASE difficulty
			WHEN 'hard' THEN 1 WHEN 'medium' THEN 2 WHEN 'easy' THEN 3 ELSE 4
		END %s, id`, dir), nil
	case SortCreatedAt:
		return fmt.Sprintf("created_at %s, id", dir), nil
	}
	return "", fmt.Errorf("unknown sort key %q", string(sort))
}

// UpdateTask replaces the editable fields of a task; timer fields are untouched
func (db *DB) UpdateTask(id int64, task NewTask, completed bool) error {
	query := `
		UPDATE tasks
		SET title = ?,
		    description = ?,
		    due_date = ?,
		    priority = ?,
		    category = ?,
		    difficulty = ?,
		    completed = ?
		WHERE id = ?
	`

	result, err := db.conn.Exec(query,
		task.Title,
		task.Description,
		dateValue(task.DueDate),
		task.Priority,
		task.Category,
		task.Difficulty,
		completed,
		id,
	)
	if err != nil {
		return storageErr("updating task", err)
	}

	return requireRow(result, "updating task")
}

// DeleteTask permanently deletes a task. Deleting a missing task is not an error.
func (db *DB) DeleteTask(id int64) error {
	if _, err := db.conn.Exec(`DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return storageErr("deleting task", err)
	}
	return nil
}

// SetCompleted marks a task finished or unfinished
func (db *DB) SetCompleted(id int64, completed bool) error {
	result, err := db.conn.Exec(`UPDATE tasks SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		return storageErr("updating completion", err)
	}
	return requireRow(result, "updating completion")
}

func requireRow(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Categories returns the distinct non-empty categories in use
func (db *DB) Categories() ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT category FROM tasks
		WHERE category IS NOT NULL AND category <> ''
		ORDER BY category
	`)
	if err != nil {
		return nil, storageErr("querying categories", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, storageErr("scanning category", err)
		}
		categories = append(categories, strings.TrimSpace(c))
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("querying categories", err)
	}
	return categories, nil
}

// Timer returns the timer fields of a task
func (db *DB) Timer(id int64) (TimerState, error) {
	s, err := scanTimer(db.conn.QueryRow(`SELECT `+timerColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return TimerState{}, ErrNotFound
	}
	if err != nil {
		return TimerState{}, storageErr("reading timer", err)
	}
	return s, nil
}

// UpdateTimer reads the timer fields of a task, lets apply modify them and
// writes them back, all in one transaction. An error from apply rolls back
// and is returned as is.
func (db *DB) UpdateTimer(id int64, apply func(*TimerState) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return storageErr("starting transaction", err)
	}
	defer tx.Rollback()

	state, err := scanTimer(tx.QueryRow(`SELECT `+timerColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return storageErr("reading timer", err)
	}

	if err := apply(&state); err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET timer_status = ?,
		    estimated_time = ?,
		    total_time = ?,
		    timer_start_time = ?,
		    timer_paused_time = ?,
		    completed = ?
		WHERE id = ?
	`
	_, err = tx.Exec(query,
		state.Status,
		state.EstimatedTime,
		state.TotalTime,
		state.StartTime,
		state.PausedTime,
		state.Completed,
		id,
	)
	if err != nil {
		return storageErr("writing timer", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing timer", err)
	}
	return nil
}

// RunningTimers returns the timer state of every task whose timer is running
func (db *DB) RunningTimers() ([]TimerState, error) {
	rows, err := db.conn.Query(`SELECT `+timerColumns+` FROM tasks WHERE timer_status = ? ORDER BY id`, TimerRunning)
	if err != nil {
		return nil, storageErr("querying running timers", err)
	}
	defer rows.Close()

	var timers []TimerState
	for rows.Next() {
		s, err := scanTimer(rows)
		if err != nil {
			return nil, storageErr("scanning timer", err)
		}
		timers = append(timers, s)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("querying running timers", err)
	}
	return timers, nil
}

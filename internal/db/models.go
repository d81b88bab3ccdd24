package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Task represents a to-do item and the state of its timer
type Task struct {
	ID              int64
	Title           string
	Description     string
	DueDate         sql.NullTime
	Priority        Priority
	Category        string
	Difficulty      Difficulty
	Completed       bool
	CreatedAt       time.Time
	EstimatedTime   int64 // seconds, 0 when no estimate was given
	TotalTime       int64 // seconds accumulated over finished sessions
	TimerStartTime  Timestamp
	TimerPausedTime Timestamp
	TimerStatus     TimerStatus
}

// NewTask holds the user-editable fields of a task
type NewTask struct {
	Title       string
	Description string
	DueDate     sql.NullTime
	Priority    Priority
	Category    string
	Difficulty  Difficulty
}

// TimerState is the slice of a task row owned by the timer
type TimerState struct {
	TaskID        int64
	Status        TimerStatus
	EstimatedTime int64
	TotalTime     int64
	StartTime     Timestamp
	PausedTime    Timestamp
	Completed     bool
}

// Timer returns the timer fields of the task
func (t Task) Timer() TimerState {
	return TimerState{
		TaskID:        t.ID,
		Status:        t.TimerStatus,
		EstimatedTime: t.EstimatedTime,
		TotalTime:     t.TotalTime,
		StartTime:     t.TimerStartTime,
		PausedTime:    t.TimerPausedTime,
		Completed:     t.Completed,
	}
}

// IsOverdue reports whether an unfinished task is past its due date
func (t Task) IsOverdue(now time.Time) bool {
	if t.Completed || !t.DueDate.Valid {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return t.DueDate.Time.Before(today)
}

// Priority ranks how urgent a task is
type Priority int

const (
	PriorityUnknown Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

// Priorities lists the known priorities in rank order
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	}
	return ""
}

// ParsePriority converts a stored or typed priority name
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "h":
		return PriorityHigh, nil
	case "medium", "m":
		return PriorityMedium, nil
	case "low", "l":
		return PriorityLow, nil
	}
	return PriorityUnknown, fmt.Errorf("unknown priority %q", s)
}

// Scan implements sql.Scanner; unrecognized values become PriorityUnknown
func (p *Priority) Scan(value interface{}) error {
	s, err := scanText(value)
	if err != nil {
		return fmt.Errorf("scanning priority: %w", err)
	}
	*p, _ = ParsePriority(s)
	return nil
}

// Value implements driver.Valuer
func (p Priority) Value() (driver.Value, error) {
	if p == PriorityUnknown {
		return nil, nil
	}
	return p.String(), nil
}

// Difficulty estimates how hard a task is
type Difficulty int

const (
	DifficultyUnknown Difficulty = iota
	DifficultyHard
	DifficultyMedium
	DifficultyEasy
)

// Difficulties lists the known difficulties in rank order
var Difficulties = []Difficulty{DifficultyHard, DifficultyMedium, DifficultyEasy}

func (d Difficulty) String() string {
	switch d {
	case DifficultyHard:
		return "hard"
	case DifficultyMedium:
		return "medium"
	case DifficultyEasy:
		return "easy"
	}
	return ""
}

// ParseDifficulty converts a stored or typed difficulty name
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hard":
		return DifficultyHard, nil
	case "medium":
		return DifficultyMedium, nil
	case "easy":
		return DifficultyEasy, nil
	}
	return DifficultyUnknown, fmt.Errorf("unknown difficulty %q", s)
}

// Scan implements sql.Scanner; unrecognized values become DifficultyUnknown
func (d *Difficulty) Scan(value interface{}) error {
	s, err := scanText(value)
	if err != nil {
		return fmt.Errorf("scanning difficulty: %w", err)
	}
	*d, _ = ParseDifficulty(s)
	return nil
}

// Value implements driver.Valuer
func (d Difficulty) Value() (driver.Value, error) {
	if d == DifficultyUnknown {
		return nil, nil
	}
	return d.String(), nil
}

// TimerStatus is the state of a task's timer
type TimerStatus string

const (
	TimerStopped TimerStatus = "stopped"
	TimerRunning TimerStatus = "running"
	TimerPaused  TimerStatus = "paused"
)

// Scan implements sql.Scanner. NULL and empty values read as stopped.
func (s *TimerStatus) Scan(value interface{}) error {
	text, err := scanText(value)
	if err != nil {
		return fmt.Errorf("scanning timer status: %w", err)
	}
	switch TimerStatus(strings.ToLower(text)) {
	case "", TimerStopped:
		*s = TimerStopped
	case TimerRunning:
		*s = TimerRunning
	case TimerPaused:
		*s = TimerPaused
	default:
		return fmt.Errorf("unknown timer status %q", text)
	}
	return nil
}

// Value implements driver.Valuer
func (s TimerStatus) Value() (driver.Value, error) {
	if s == "" {
		return string(TimerStopped), nil
	}
	return string(s), nil
}

// SortKey selects the ordering of task listings
type SortKey string

const (
	SortNone       SortKey = ""
	SortDueDate    SortKey = "due_date"
	SortPriority   SortKey = "priority"
	SortDifficulty SortKey = "difficulty"
	SortCreatedAt  SortKey = "created_at"
)

// SortKeys lists the selectable sort keys
var SortKeys = []SortKey{SortDueDate, SortPriority, SortDifficulty, SortCreatedAt}

// ParseSortKey validates a sort key name; the empty string means insertion order
func ParseSortKey(s string) (SortKey, error) {
	key := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if key == SortNone {
		return SortNone, nil
	}
	for _, k := range SortKeys {
		if k == key {
			return k, nil
		}
	}
	return SortNone, fmt.Errorf("unknown sort key %q", s)
}

// Filter restricts a task query to rows with one column equal to a value
type Filter struct {
	column string
	value  interface{}
}

// ByPriority matches tasks with the given priority
func ByPriority(p Priority) Filter {
	return Filter{column: "priority", value: p}
}

// ByCategory matches tasks in the given category
func ByCategory(category string) Filter {
	return Filter{column: "category", value: category}
}

// ByCompleted matches finished or unfinished tasks
func ByCompleted(completed bool) Filter {
	return Filter{column: "completed", value: completed}
}

func (f Filter) String() string {
	return fmt.Sprintf("%s=%v", f.column, f.value)
}

// NewNullTime creates a sql.NullTime from a possibly zero time
func NewNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func scanText(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("unexpected type %T", value)
}

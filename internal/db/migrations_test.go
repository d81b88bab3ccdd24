package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// legacySchema is the table as it looked before timers were added
const legacySchema = `
CREATE TABLE tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT,
    due_date TEXT,
    priority TEXT,
    category TEXT,
    difficulty TEXT,
    completed BOOLEAN DEFAULT 0,
    created_at TEXT
);
INSERT INTO tasks (title, due_date, priority, category, difficulty, completed, created_at)
VALUES ('旧任务', '2024-01-02', '高', '工作', '困难', 0, '2024-01-01T08:30:00.123456'),
       ('second', NULL, 'Low', 'life', 'Easy', 1, '2024-01-01T09:00:00');
`

func TestOpenMigratesLegacySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.db")

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(legacySchema)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	database, err := Open(path)
	require.NoError(t, err)
	defer database.Close()

	tasks, err := database.ListTasks(SortNone, false)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	first := tasks[0]
	assert.Equal(t, PriorityHigh, first.Priority)
	assert.Equal(t, DifficultyHard, first.Difficulty)
	assert.Equal(t, TimerStopped, first.TimerStatus)
	assert.Equal(t, int64(0), first.TotalTime)
	assert.Equal(t,
		time.Date(2024, 1, 1, 8, 30, 0, 123456000, time.Local).Unix(),
		first.CreatedAt.Unix())

	second := tasks[1]
	assert.Equal(t, PriorityLow, second.Priority)
	assert.Equal(t, DifficultyEasy, second.Difficulty)
	assert.True(t, second.Completed)

	// a second open finds nothing left to migrate
	require.NoError(t, database.RunMigrations())
}

func TestOpenMissingDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorContains(t, err, "-init")
}

func TestInitializeRefusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	assert.ErrorContains(t, Initialize(path), "already exists")
}

func TestParseTimestampLayouts(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01T09:00:00.000000000Z", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{"2024-03-01T10:00:00+01:00", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{"2024-03-01 09:00:00", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{"2024-03-01T09:00:00.5", time.Date(2024, 3, 1, 9, 0, 0, 500000000, time.Local)},
	}

	for _, c := range cases {
		got, err := ParseTimestamp(c.in)
		require.NoError(t, err, c.in)
		assert.True(t, c.want.Equal(got), "%s: got %v", c.in, got)
	}

	_, err := ParseTimestamp("not a time")
	assert.Error(t, err)
}

func TestFormatTimestampSortsChronologically(t *testing.T) {
	earlier := FormatTimestamp(time.Date(2024, 3, 1, 9, 0, 0, 900000000, time.UTC))
	later := FormatTimestamp(time.Date(2024, 3, 1, 9, 0, 1, 0, time.UTC))

	assert.Len(t, earlier, len(later))
	assert.Less(t, earlier, later)
}

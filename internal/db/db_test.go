package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tasks.db")
	require.NoError(t, Initialize(path))

	database, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	// every insert gets a distinct, increasing created_at
	clock := t0
	database.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return database
}

func date(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return sql.NullTime{Time: d, Valid: true}
}

func mustCreate(t *testing.T, database *DB, task NewTask) int64 {
	t.Helper()
	id, err := database.CreateTask(task)
	require.NoError(t, err)
	return id
}

func titles(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}

func TestCreateThenListRoundTrip(t *testing.T) {
	database := newTestDB(t)

	in := NewTask{
		Title:       "Write report",
		Description: "first draft",
		DueDate:     date("2024-03-10"),
		Priority:    PriorityHigh,
		Category:    "work",
		Difficulty:  DifficultyHard,
	}
	id := mustCreate(t, database, in)

	tasks, err := database.ListTasks(SortNone, false)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	got := tasks[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Description, got.Description)
	assert.True(t, got.DueDate.Valid)
	assert.Equal(t, "2024-03-10", got.DueDate.Time.Format(DateLayout))
	assert.Equal(t, PriorityHigh, got.Priority)
	assert.Equal(t, "work", got.Category)
	assert.Equal(t, DifficultyHard, got.Difficulty)
	assert.False(t, got.Completed)
	assert.True(t, got.CreatedAt.Equal(t0.Add(time.Minute)))

	assert.Equal(t, TimerStopped, got.TimerStatus)
	assert.Equal(t, int64(0), got.TotalTime)
	assert.Equal(t, int64(0), got.EstimatedTime)
	assert.False(t, got.TimerStartTime.Valid)
	assert.False(t, got.TimerPausedTime.Valid)
}

func TestCreateTaskRejectsEmptyTitle(t *testing.T) {
	database := newTestDB(t)

	_, err := database.CreateTask(NewTask{Title: "   ", Priority: PriorityLow})
	require.Error(t, err)

	var storageErr *StorageError
	assert.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "inserting task", storageErr.Op)
}

func TestListTasksDefaultsToInsertionOrder(t *testing.T) {
	database := newTestDB(t)

	for _, title := range []string{"c", "a", "b"} {
		mustCreate(t, database, NewTask{Title: title})
	}

	tasks, err := database.ListTasks(SortNone, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, titles(tasks))
}

func TestListTasksByDueDateKeepsUndatedLast(t *testing.T) {
	database := newTestDB(t)

	mustCreate(t, database, NewTask{Title: "jan5", DueDate: date("2024-01-05")})
	mustCreate(t, database, NewTask{Title: "none"})
	mustCreate(t, database, NewTask{Title: "jan1", DueDate: date("2024-01-01")})

	asc, err := database.ListTasks(SortDueDate, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"jan1", "jan5", "none"}, titles(asc))

	desc, err := database.ListTasks(SortDueDate, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"jan5", "jan1", "none"}, titles(desc))
}

func TestListTasksByPriorityRank(t *testing.T) {
	database := newTestDB(t)

	mustCreate(t, database, NewTask{Title: "low", Priority: PriorityLow})
	mustCreate(t, database, NewTask{Title: "high", Priority: PriorityHigh})
	mustCreate(t, database, NewTask{Title: "medium", Priority: PriorityMedium})
	mustCreate(t, database, NewTask{Title: "unset"})

	asc, err := database.ListTasks(SortPriority, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "medium", "low", "unset"}, titles(asc))

	desc, err := database.ListTasks(SortPriority, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"unset", "low", "medium", "high"}, titles(desc))
}

func TestListTasksByDifficultyRank(t *testing.T) {
	database := newTestDB(t)

	mustCreate(t, database, NewTask{Title: "easy", Difficulty: DifficultyEasy})
	mustCreate(t, database, NewTask{Title: "hard", Difficulty: DifficultyHard})
	mustCreate(t, database, NewTask{Title: "medium", Difficulty: DifficultyMedium})

	tasks, err := database.ListTasks(SortDifficulty, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"hard", "medium", "easy"}, titles(tasks))
}

func TestListTasksByCreatedAt(t *testing.T) {
	database := newTestDB(t)

	mustCreate(t, database, NewTask{Title: "first"})
	mustCreate(t, database, NewTask{Title: "second"})
	mustCreate(t, database, NewTask{Title: "third"})

	desc, err := database.ListTasks(SortCreatedAt, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, titles(desc))
}

func TestListTasksRejectsUnknownSortKey(t *testing.T) {
	database := newTestDB(t)

	_, err := database.ListTasks(SortKey("mood"), false)
	assert.ErrorContains(t, err, "unknown sort key")
}

func TestQueryTasksFilters(t *testing.T) {
	database := newTestDB(t)

	mustCreate(t, database, NewTask{Title: "a", Priority: PriorityHigh, Category: "work", DueDate: date("2024-02-01")})
	mustCreate(t, database, NewTask{Title: "b", Priority: PriorityHigh, Category: "life"})
	mustCreate(t, database, NewTask{Title: "c", Priority: PriorityLow, Category: "work", DueDate: date("2024-01-15")})
	done := mustCreate(t, database, NewTask{Title: "d", Priority: PriorityHigh, Category: "work", DueDate: date("2024-01-01")})
	require.NoError(t, database.SetCompleted(done, true))

	high, err := database.QueryTasks(ByPriority(PriorityHigh), SortNone, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "a", "b"}, titles(high))

	work, err := database.QueryTasks(ByCategory("work"), SortNone, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "a"}, titles(work))

	pending, err := database.QueryTasks(ByCompleted(false), SortNone, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, titles(pending))

	completed, err := database.QueryTasks(ByCompleted(true), SortNone, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, titles(completed))

	byPriority, err := database.QueryTasks(ByCategory("work"), SortPriority, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d", "c"}, titles(byPriority))
}

func TestUpdateTaskReplacesFieldsButNotTimer(t *testing.T) {
	database := newTestDB(t)

	id := mustCreate(t, database, NewTask{Title: "old", Priority: PriorityLow})
	require.NoError(t, database.UpdateTimer(id, func(s *TimerState) error {
		s.Status = TimerRunning
		s.StartTime = NewTimestamp(t0)
		s.EstimatedTime = 600
		s.TotalTime = 42
		return nil
	}))

	err := database.UpdateTask(id, NewTask{
		Title:      "new",
		Priority:   PriorityHigh,
		Category:   "study",
		Difficulty: DifficultyEasy,
		DueDate:    date("2024-05-05"),
	}, true)
	require.NoError(t, err)

	got, err := database.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, PriorityHigh, got.Priority)
	assert.Equal(t, "study", got.Category)
	assert.Equal(t, DifficultyEasy, got.Difficulty)
	assert.True(t, got.Completed)

	assert.Equal(t, TimerRunning, got.TimerStatus)
	assert.True(t, got.TimerStartTime.Time.Equal(t0))
	assert.Equal(t, int64(600), got.EstimatedTime)
	assert.Equal(t, int64(42), got.TotalTime)
}

func TestUpdateTaskMissingID(t *testing.T) {
	database := newTestDB(t)

	err := database.UpdateTask(404, NewTask{Title: "x"}, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTaskIsIdempotent(t *testing.T) {
	database := newTestDB(t)

	id := mustCreate(t, database, NewTask{Title: "gone soon"})
	require.NoError(t, database.DeleteTask(id))
	require.NoError(t, database.DeleteTask(id))

	_, err := database.GetTask(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetCompleted(t *testing.T) {
	database := newTestDB(t)

	id := mustCreate(t, database, NewTask{Title: "finish me"})
	require.NoError(t, database.SetCompleted(id, true))

	got, err := database.GetTask(id)
	require.NoError(t, err)
	assert.True(t, got.Completed)

	assert.ErrorIs(t, database.SetCompleted(id+100, true), ErrNotFound)
}

func TestCategories(t *testing.T) {
	database := newTestDB(t)

	mustCreate(t, database, NewTask{Title: "a", Category: "work"})
	mustCreate(t, database, NewTask{Title: "b", Category: "life"})
	mustCreate(t, database, NewTask{Title: "c", Category: "work"})
	mustCreate(t, database, NewTask{Title: "d"})

	categories, err := database.Categories()
	require.NoError(t, err)
	assert.Equal(t, []string{"life", "work"}, categories)
}

func TestUpdateTimerRollsBackOnError(t *testing.T) {
	database := newTestDB(t)

	id := mustCreate(t, database, NewTask{Title: "timed"})
	boom := errors.New("boom")

	err := database.UpdateTimer(id, func(s *TimerState) error {
		s.Status = TimerRunning
		s.TotalTime = 99
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := database.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, TimerStopped, got.TimerStatus)
	assert.Equal(t, int64(0), got.TotalTime)
}

func TestUpdateTimerMissingID(t *testing.T) {
	database := newTestDB(t)

	called := false
	err := database.UpdateTimer(7, func(*TimerState) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)
}

func TestRunningTimers(t *testing.T) {
	database := newTestDB(t)

	running := mustCreate(t, database, NewTask{Title: "running"})
	paused := mustCreate(t, database, NewTask{Title: "paused"})
	mustCreate(t, database, NewTask{Title: "idle"})

	require.NoError(t, database.UpdateTimer(running, func(s *TimerState) error {
		s.Status = TimerRunning
		s.StartTime = NewTimestamp(t0)
		s.EstimatedTime = 60
		return nil
	}))
	require.NoError(t, database.UpdateTimer(paused, func(s *TimerState) error {
		s.Status = TimerPaused
		s.StartTime = NewTimestamp(t0)
		s.PausedTime = NewTimestamp(t0.Add(time.Minute))
		return nil
	}))

	timers, err := database.RunningTimers()
	require.NoError(t, err)
	require.Len(t, timers, 1)
	assert.Equal(t, running, timers[0].TaskID)
	assert.Equal(t, int64(60), timers[0].EstimatedTime)
	assert.True(t, timers[0].StartTime.Time.Equal(t0))
}

func TestMalformedTimerTimestampDoesNotBreakReads(t *testing.T) {
	database := newTestDB(t)

	id := mustCreate(t, database, NewTask{Title: "corrupt"})
	_, err := database.conn.Exec(
		`UPDATE tasks SET timer_status = 'running', timer_start_time = 'half past nine' WHERE id = ?`, id)
	require.NoError(t, err)

	tasks, err := database.ListTasks(SortNone, false)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].TimerStartTime.Malformed())

	_, ok, err := tasks[0].TimerStartTime.Get("timer_start_time")
	assert.False(t, ok)
	var malformed *MalformedTimestampError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "half past nine", malformed.Value)

	// untouched malformed text survives a timer write
	require.NoError(t, database.UpdateTimer(id, func(s *TimerState) error {
		s.EstimatedTime = 120
		return nil
	}))
	var raw string
	require.NoError(t, database.conn.QueryRow(`SELECT timer_start_time FROM tasks WHERE id = ?`, id).Scan(&raw))
	assert.Equal(t, "half past nine", raw)
}

func TestCreateFixturesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo", "tasks.db")
	require.NoError(t, CreateFixturesDatabase(path))

	database, err := Open(path)
	require.NoError(t, err)
	defer database.Close()

	tasks, err := database.ListTasks(SortNone, false)
	require.NoError(t, err)
	assert.NotEmpty(t, tasks)

	var paused int
	for _, task := range tasks {
		if task.TimerStatus == TimerPaused {
			paused++
			assert.True(t, task.TimerPausedTime.Valid)
		}
	}
	assert.Equal(t, 1, paused)
}

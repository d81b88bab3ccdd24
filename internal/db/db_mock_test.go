package db

import (
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return newDB(conn), mock
}

var errDiskIO = errors.New("disk I/O error")

func TestCreateTask_StorageFailure(t *testing.T) {
	database, mock := setupMockDB(t)

	mock.ExpectExec(`INSERT INTO tasks`).
		WillReturnError(errDiskIO)

	_, err := database.CreateTask(NewTask{Title: "lost?"})

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "inserting task", storageErr.Op)
	assert.ErrorIs(t, err, errDiskIO)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTask_NoRowsIsNotFound(t *testing.T) {
	database, mock := setupMockDB(t)

	mock.ExpectExec(`UPDATE tasks\s+SET title = \?`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := database.UpdateTask(9, NewTask{Title: "x"}, false)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTimer_WriteFailureRollsBack(t *testing.T) {
	database, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "timer_status", "estimated_time", "total_time",
			"timer_start_time", "timer_paused_time", "completed",
		}).AddRow(int64(7), "running", int64(0), int64(30), "2024-03-01T09:00:00.000000000Z", nil, false))
	mock.ExpectExec(`UPDATE tasks\s+SET timer_status = \?`).
		WillReturnError(errDiskIO)
	mock.ExpectRollback()

	var seen TimerState
	err := database.UpdateTimer(7, func(s *TimerState) error {
		seen = *s
		s.Status = TimerPaused
		return nil
	})

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "writing timer", storageErr.Op)
	assert.Equal(t, TimerRunning, seen.Status)
	assert.Equal(t, int64(30), seen.TotalTime)
	assert.True(t, seen.StartTime.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTimer_CommitFailure(t *testing.T) {
	database, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \?`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "timer_status", "estimated_time", "total_time",
			"timer_start_time", "timer_paused_time", "completed",
		}).AddRow(int64(3), "stopped", int64(0), int64(0), nil, nil, false))
	mock.ExpectExec(`UPDATE tasks`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errDiskIO)

	err := database.UpdateTimer(3, func(s *TimerState) error { return nil })

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "committing timer", storageErr.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunningTimers_QueryFailure(t *testing.T) {
	database, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE timer_status = \?`).
		WillReturnError(errDiskIO)

	_, err := database.RunningTimers()
	assert.ErrorIs(t, err, errDiskIO)
	assert.NoError(t, mock.ExpectationsWereMet())
}

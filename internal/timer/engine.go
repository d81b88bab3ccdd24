// Package timer runs the per-task start/pause/resume/stop state machine on
// top of the persisted timer columns.
//
// Nothing is held in memory between calls: every transition reads the row,
// computes the new state and writes it back in one store transaction, so a
// running timer survives restarts and elapsed time is always recomputed
// from timer_start_time.
package timer

import (
	"log"
	"sync"
	"time"

	"github.com/pdxmph/tasks-tui/internal/db"
)

// Store is the persistence the engine needs; *db.DB implements it
type Store interface {
	Timer(id int64) (db.TimerState, error)
	UpdateTimer(id int64, apply func(*db.TimerState) error) error
	RunningTimers() ([]db.TimerState, error)
}

// Engine applies timer transitions. Transitions of the same task are
// serialized; different tasks proceed independently.
type Engine struct {
	store    Store
	now      func() time.Time
	logger   *log.Logger
	locks    taskLocks
	warnings warnOnce
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets where consistency warnings go
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine over store
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		now:    time.Now,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins timing a stopped task. The estimate is given in minutes and
// stored in seconds; 0 means no estimate.
func (e *Engine) Start(id int64, estimatedMinutes int) error {
	if estimatedMinutes < 0 {
		return ErrInvalidEstimate
	}
	return e.transition(id, func(s *db.TimerState, now time.Time) error {
		if s.Status != db.TimerStopped {
			return &TransitionError{TaskID: id, Action: "start", From: s.Status}
		}
		s.Status = db.TimerRunning
		s.StartTime = db.NewTimestamp(now)
		s.PausedTime = db.Timestamp{}
		s.EstimatedTime = int64(estimatedMinutes) * 60
		return nil
	})
}

// Pause folds the current session into the total and pauses the timer
func (e *Engine) Pause(id int64) error {
	return e.transition(id, func(s *db.TimerState, now time.Time) error {
		if s.Status != db.TimerRunning {
			return &TransitionError{TaskID: id, Action: "pause", From: s.Status}
		}
		s.TotalTime += e.sessionSeconds(s, now)
		s.Status = db.TimerPaused
		s.PausedTime = db.NewTimestamp(now)
		return nil
	})
}

// Resume starts a new session on a paused timer
func (e *Engine) Resume(id int64) error {
	return e.transition(id, func(s *db.TimerState, now time.Time) error {
		if s.Status != db.TimerPaused {
			return &TransitionError{TaskID: id, Action: "resume", From: s.Status}
		}
		s.Status = db.TimerRunning
		s.StartTime = db.NewTimestamp(now)
		s.PausedTime = db.Timestamp{}
		return nil
	})
}

// Stop finishes the timer and records whether the task is done. A paused
// timer already has its last session in the total.
func (e *Engine) Stop(id int64, completed bool) error {
	return e.transition(id, func(s *db.TimerState, now time.Time) error {
		switch s.Status {
		case db.TimerRunning:
			s.TotalTime += e.sessionSeconds(s, now)
		case db.TimerPaused:
		default:
			return &TransitionError{TaskID: id, Action: "stop", From: s.Status}
		}
		s.Status = db.TimerStopped
		s.StartTime = db.Timestamp{}
		s.PausedTime = db.Timestamp{}
		s.Completed = completed
		return nil
	})
}

// Status returns the current timer state of a task without changing it
func (e *Engine) Status(id int64) (Snapshot, error) {
	s, err := e.store.Timer(id)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(s), nil
}

func (e *Engine) transition(id int64, apply func(*db.TimerState, time.Time) error) error {
	unlock := e.locks.lock(id)
	defer unlock()

	return e.store.UpdateTimer(id, func(s *db.TimerState) error {
		return apply(s, e.now())
	})
}

// sessionSeconds is the contribution of the running session ending at now.
// A start time that is missing or unreadable contributes nothing.
func (e *Engine) sessionSeconds(s *db.TimerState, now time.Time) int64 {
	secs, err := elapsedSince(s.StartTime, now)
	if err != nil {
		e.logger.Printf("timer: task %d: %v; counting this session as 0s", s.TaskID, err)
	}
	return secs
}

// elapsedSince returns whole seconds from start to now, never negative
func elapsedSince(start db.Timestamp, now time.Time) (int64, error) {
	t, ok, err := start.Get("timer_start_time")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrMissingStart
	}
	d := now.Sub(t)
	if d < 0 {
		return 0, nil
	}
	return int64(d / time.Second), nil
}

type taskLock struct {
	sync.Mutex
	refs int
}

// taskLocks hands out one mutex per task id and forgets it once unused
type taskLocks struct {
	mu sync.Mutex
	m  map[int64]*taskLock
}

func (l *taskLocks) lock(id int64) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[int64]*taskLock)
	}
	tl, ok := l.m[id]
	if !ok {
		tl = &taskLock{}
		l.m[id] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.Lock()
	return func() {
		tl.Unlock()

		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}

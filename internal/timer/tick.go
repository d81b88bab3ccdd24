package timer

import (
	"sync"
	"time"

	"github.com/pdxmph/tasks-tui/internal/db"
)

// Snapshot is a read-only copy of a task's timer
type Snapshot struct {
	TaskID        int64
	Status        db.TimerStatus
	EstimatedTime int64
	StartTime     db.Timestamp
	PausedTime    db.Timestamp
	TotalTime     int64
	Completed     bool
}

// NewSnapshot copies the timer fields of a stored row
func NewSnapshot(s db.TimerState) Snapshot {
	return Snapshot{
		TaskID:        s.TaskID,
		Status:        s.Status,
		EstimatedTime: s.EstimatedTime,
		StartTime:     s.StartTime,
		PausedTime:    s.PausedTime,
		TotalTime:     s.TotalTime,
		Completed:     s.Completed,
	}
}

// Displayed is the elapsed time to show at now: the finished sessions plus
// the running one. Nothing is persisted. A bad start time yields the total
// along with the error.
func (s Snapshot) Displayed(now time.Time) (int64, error) {
	if s.Status != db.TimerRunning {
		return s.TotalTime, nil
	}
	elapsed, err := elapsedSince(s.StartTime, now)
	return s.TotalTime + elapsed, err
}

// Remaining is the time left before the estimate is reached, floored at 0.
// ok is false when the timer has no estimate.
func (s Snapshot) Remaining(now time.Time) (secs int64, ok bool) {
	if s.EstimatedTime <= 0 {
		return 0, false
	}
	displayed, _ := s.Displayed(now)
	if displayed >= s.EstimatedTime {
		return 0, true
	}
	return s.EstimatedTime - displayed, true
}

// Reading is what one poll reports for a running timer
type Reading struct {
	TaskID           int64
	Elapsed          int64 // seconds, total plus the running session
	Estimated        int64 // seconds, 0 when no estimate
	ThresholdCrossed bool
	// Err is set when the start time could not be used; Elapsed then
	// counts only the finished sessions.
	Err error
}

// Tick computes a reading for every running timer. It takes no task locks
// and writes nothing. A bad row only affects its own reading; the tick
// fails only when the store cannot be read.
func (e *Engine) Tick() ([]Reading, error) {
	timers, err := e.store.RunningTimers()
	if err != nil {
		return nil, err
	}

	now := e.now()
	readings := make([]Reading, 0, len(timers))
	running := make(map[int64]bool, len(timers))
	for _, s := range timers {
		running[s.TaskID] = true

		elapsed, err := elapsedSince(s.StartTime, now)
		r := Reading{
			TaskID:    s.TaskID,
			Elapsed:   s.TotalTime + elapsed,
			Estimated: s.EstimatedTime,
			Err:       err,
		}
		r.ThresholdCrossed = r.Estimated > 0 && r.Elapsed >= r.Estimated
		if err != nil && e.warnings.first(s.TaskID, err) {
			e.logger.Printf("timer: task %d: %v; showing finished sessions only", s.TaskID, err)
		}
		readings = append(readings, r)
	}
	e.warnings.forgetExcept(running)

	return readings, nil
}

// warnOnce keeps a poll from logging the same inconsistency every second
type warnOnce struct {
	mu   sync.Mutex
	seen map[int64]string
}

func (w *warnOnce) first(id int64, err error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen == nil {
		w.seen = make(map[int64]string)
	}
	msg := err.Error()
	if w.seen[id] == msg {
		return false
	}
	w.seen[id] = msg
	return true
}

func (w *warnOnce) forgetExcept(keep map[int64]bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id := range w.seen {
		if !keep[id] {
			delete(w.seen, id)
		}
	}
}

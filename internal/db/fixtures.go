package db

import (
	"fmt"
	"time"
)

// CreateFixturesDatabase creates a database with realistic sample tasks
func CreateFixturesDatabase(dbPath string) error {
	// Initialize empty database
	if err := Initialize(dbPath); err != nil {
		return fmt.Errorf("initializing fixtures database: %w", err)
	}

	// Open database to add sample data
	database, err := Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening fixtures database: %w", err)
	}
	defer database.Close()

	return database.seedFixtures(time.Now())
}

func (db *DB) seedFixtures(now time.Time) error {
	day := func(offset int) time.Time {
		y, m, d := now.AddDate(0, 0, offset).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	fixtures := []struct {
		task      NewTask
		completed bool
		timer     func(*TimerState)
	}{
		{
			task: NewTask{
				Title:       "Quarterly report",
				Description: "Collect numbers from finance and draft the summary section.",
				DueDate:     NewNullTime(day(2)),
				Priority:    PriorityHigh,
				Category:    "work",
				Difficulty:  DifficultyHard,
			},
			// an interrupted session: 25 minutes logged, paused an hour ago
			timer: func(s *TimerState) {
				s.Status = TimerPaused
				s.EstimatedTime = 90 * 60
				s.TotalTime = 25 * 60
				s.StartTime = NewTimestamp(now.Add(-85 * time.Minute))
				s.PausedTime = NewTimestamp(now.Add(-60 * time.Minute))
			},
		},
		{
			task: NewTask{
				Title:      "Review pull requests",
				DueDate:    NewNullTime(day(0)),
				Priority:   PriorityMedium,
				Category:   "work",
				Difficulty: DifficultyEasy,
			},
		},
		{
			task: NewTask{
				Title:       "Linear algebra problem set",
				Description: "Chapter 4, exercises 1-12.",
				DueDate:     NewNullTime(day(5)),
				Priority:    PriorityMedium,
				Category:    "study",
				Difficulty:  DifficultyHard,
			},
		},
		{
			task: NewTask{
				Title:      "Read one chapter of the Go memory model",
				Priority:   PriorityLow,
				Category:   "study",
				Difficulty: DifficultyMedium,
			},
		},
		{
			task: NewTask{
				Title:      "Renew library card",
				DueDate:    NewNullTime(day(-3)),
				Priority:   PriorityLow,
				Category:   "life",
				Difficulty: DifficultyEasy,
			},
		},
		{
			task: NewTask{
				Title:      "Book dentist appointment",
				DueDate:    NewNullTime(day(-10)),
				Priority:   PriorityHigh,
				Category:   "life",
				Difficulty: DifficultyEasy,
			},
			completed: true,
			timer: func(s *TimerState) {
				s.TotalTime = 6 * 60
				s.EstimatedTime = 10 * 60
				s.Completed = true
			},
		},
		{
			task: NewTask{
				Title:      "Clean up old photos",
				Priority:   PriorityLow,
				Category:   "other",
				Difficulty: DifficultyMedium,
			},
		},
	}

	for _, f := range fixtures {
		id, err := db.CreateTask(f.task)
		if err != nil {
			return fmt.Errorf("adding fixture %q: %w", f.task.Title, err)
		}
		if f.completed {
			if err := db.SetCompleted(id, true); err != nil {
				return fmt.Errorf("completing fixture %q: %w", f.task.Title, err)
			}
		}
		if f.timer != nil {
			err := db.UpdateTimer(id, func(s *TimerState) error {
				f.timer(s)
				return nil
			})
			if err != nil {
				return fmt.Errorf("setting fixture timer %q: %w", f.task.Title, err)
			}
		}
	}

	return nil
}

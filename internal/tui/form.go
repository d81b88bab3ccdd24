package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pdxmph/tasks-tui/internal/db"
)

// Form field indices
const (
	FormFieldTitle = iota
	FormFieldDescription
	FormFieldDue
	FormFieldPriority
	FormFieldDifficulty
	FormFieldCategory
	FormFieldCount // Total number of fields
)

var (
	priorityOptions   = append([]db.Priority{db.PriorityUnknown}, db.Priorities...)
	difficultyOptions = append([]db.Difficulty{db.DifficultyUnknown}, db.Difficulties...)
)

func priorityLabel(p db.Priority) string {
	switch p {
	case db.PriorityHigh:
		return "High"
	case db.PriorityMedium:
		return "Medium"
	case db.PriorityLow:
		return "Low"
	}
	return "None"
}

func difficultyLabel(d db.Difficulty) string {
	switch d {
	case db.DifficultyHard:
		return "Hard"
	case db.DifficultyMedium:
		return "Medium"
	case db.DifficultyEasy:
		return "Easy"
	}
	return "None"
}

func categoryLabel(c string) string {
	if c == "" {
		return "None"
	}
	return c
}

// form edits the user-editable fields of a new or existing task
type form struct {
	active    bool
	taskID    int64 // 0 while adding
	completed bool
	field     int

	title       textinput.Model
	due         textinput.Model
	description textarea.Model

	priority   int // index into priorityOptions
	difficulty int // index into difficultyOptions
	category   int // index into categories
	categories []string

	err string
}

func newForm() form {
	title := textinput.New()
	title.Placeholder = "Title"
	title.Width = 40
	title.CharLimit = 200

	due := textinput.New()
	due.Placeholder = "YYYY-MM-DD"
	due.Width = 12
	due.CharLimit = 10

	ta := textarea.New()
	ta.Placeholder = "Description..."
	ta.SetHeight(4)
	ta.SetWidth(50)
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false

	return form{title: title, due: due, description: ta}
}

func (f *form) openAdd(categories []string) {
	f.active = true
	f.taskID = 0
	f.completed = false
	f.field = FormFieldTitle
	f.err = ""
	f.title.SetValue("")
	f.due.SetValue("")
	f.description.Reset()
	f.priority = 0
	f.difficulty = 0
	f.categories = append([]string{""}, categories...)
	f.category = 0
	f.focus()
}

func (f *form) openEdit(t db.Task, categories []string) {
	f.openAdd(categories)
	f.taskID = t.ID
	f.completed = t.Completed

	f.title.SetValue(t.Title)
	f.description.SetValue(t.Description)
	if t.DueDate.Valid {
		f.due.SetValue(t.DueDate.Time.Format(db.DateLayout))
	}

	for i, p := range priorityOptions {
		if p == t.Priority {
			f.priority = i
		}
	}
	for i, d := range difficultyOptions {
		if d == t.Difficulty {
			f.difficulty = i
		}
	}

	f.category = -1
	for i, c := range f.categories {
		if c == t.Category {
			f.category = i
		}
	}
	if f.category < 0 {
		// keep categories that are no longer configured
		f.categories = append(f.categories, t.Category)
		f.category = len(f.categories) - 1
	}
	f.focus()
}

func (f *form) close() {
	f.active = false
	f.err = ""
	f.title.Blur()
	f.due.Blur()
	f.description.Blur()
}

func (f *form) focus() tea.Cmd {
	f.title.Blur()
	f.due.Blur()
	f.description.Blur()

	switch f.field {
	case FormFieldTitle:
		return f.title.Focus()
	case FormFieldDue:
		return f.due.Focus()
	case FormFieldDescription:
		return f.description.Focus()
	}
	return nil
}

// cycle moves a selector field by delta, wrapping around
func (f *form) cycle(delta int) {
	wrap := func(i, n int) int { return ((i+delta)%n + n) % n }
	switch f.field {
	case FormFieldPriority:
		f.priority = wrap(f.priority, len(priorityOptions))
	case FormFieldDifficulty:
		f.difficulty = wrap(f.difficulty, len(difficultyOptions))
	case FormFieldCategory:
		f.category = wrap(f.category, len(f.categories))
	}
}

// task validates the inputs
func (f form) task() (db.NewTask, error) {
	title := strings.TrimSpace(f.title.Value())
	if title == "" {
		return db.NewTask{}, errors.New("title is required")
	}

	var due time.Time
	if s := strings.TrimSpace(f.due.Value()); s != "" {
		d, err := time.Parse(db.DateLayout, s)
		if err != nil {
			return db.NewTask{}, fmt.Errorf("due date must look like YYYY-MM-DD")
		}
		due = d
	}

	return db.NewTask{
		Title:       title,
		Description: strings.TrimSpace(f.description.Value()),
		DueDate:     db.NewNullTime(due),
		Priority:    priorityOptions[f.priority],
		Category:    f.categories[f.category],
		Difficulty:  difficultyOptions[f.difficulty],
	}, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.form

	switch msg.String() {
	case "esc":
		f.close()
		return m, nil

	case "ctrl+s":
		return m.saveForm()

	case "enter":
		// Enter starts a new line in the description and saves elsewhere
		if f.field != FormFieldDescription {
			return m.saveForm()
		}

	case "tab":
		f.field = (f.field + 1) % FormFieldCount
		return m, f.focus()

	case "shift+tab":
		f.field = (f.field + FormFieldCount - 1) % FormFieldCount
		return m, f.focus()

	case "down":
		if f.field != FormFieldDescription && f.field < FormFieldCount-1 {
			f.field++
			return m, f.focus()
		}

	case "up":
		if f.field != FormFieldDescription && f.field > 0 {
			f.field--
			return m, f.focus()
		}

	case "left", "right":
		if f.field >= FormFieldPriority {
			if msg.String() == "left" {
				f.cycle(-1)
			} else {
				f.cycle(1)
			}
			return m, nil
		}
	}

	// Update the active text input
	var cmd tea.Cmd
	switch f.field {
	case FormFieldTitle:
		f.title, cmd = f.title.Update(msg)
	case FormFieldDue:
		f.due, cmd = f.due.Update(msg)
	case FormFieldDescription:
		f.description, cmd = f.description.Update(msg)
	}
	return m, cmd
}

func (m Model) saveForm() (tea.Model, tea.Cmd) {
	task, err := m.form.task()
	if err != nil {
		m.form.err = err.Error()
		return m, nil
	}

	if m.form.taskID == 0 {
		_, err = m.service.Create(task)
	} else {
		err = m.service.Update(m.form.taskID, task, m.form.completed)
	}
	if err != nil {
		m.form.err = describe(err)
		return m, nil
	}

	m.form.close()
	m.afterChange(nil, "Saved '"+task.Title+"'")
	return m, nil
}

// estimatePrompt asks how long a task should take before its timer starts
type estimatePrompt struct {
	active  bool
	taskID  int64
	title   string
	field   int // 0 hours, 1 minutes
	hours   textinput.Model
	minutes textinput.Model
	err     string
}

func newEstimatePrompt() estimatePrompt {
	hours := textinput.New()
	hours.Placeholder = "0"
	hours.Width = 4
	hours.CharLimit = 2

	minutes := textinput.New()
	minutes.Placeholder = "0"
	minutes.Width = 4
	minutes.CharLimit = 2

	return estimatePrompt{hours: hours, minutes: minutes}
}

func (p *estimatePrompt) open(t db.Task) {
	p.active = true
	p.taskID = t.ID
	p.title = t.Title
	p.field = 0
	p.err = ""
	p.hours.SetValue("")
	p.minutes.SetValue("")
	p.focus()
}

func (p *estimatePrompt) close() {
	p.active = false
	p.hours.Blur()
	p.minutes.Blur()
}

func (p *estimatePrompt) focus() tea.Cmd {
	if p.field == 0 {
		p.minutes.Blur()
		return p.hours.Focus()
	}
	p.hours.Blur()
	return p.minutes.Focus()
}

// total returns the estimate in minutes; empty fields count as 0
func (p estimatePrompt) total() (int, error) {
	h, err := parseBounded(p.hours.Value(), 23, "hours")
	if err != nil {
		return 0, err
	}
	m, err := parseBounded(p.minutes.Value(), 59, "minutes")
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

func parseBounded(s string, max int, name string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > max {
		return 0, fmt.Errorf("%s must be a number from 0 to %d", name, max)
	}
	return n, nil
}

func (m Model) updateEstimate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := &m.estimate

	switch msg.String() {
	case "esc":
		p.close()
		return m, nil

	case "tab", "shift+tab", "up", "down":
		p.field = 1 - p.field
		return m, p.focus()

	case "enter":
		minutes, err := p.total()
		if err != nil {
			p.err = err.Error()
			return m, nil
		}
		id := p.taskID
		p.close()
		m.afterChange(m.startTimer(id, minutes), "Timer started")
		return m, nil
	}

	var cmd tea.Cmd
	if p.field == 0 {
		p.hours, cmd = p.hours.Update(msg)
	} else {
		p.minutes, cmd = p.minutes.Update(msg)
	}
	return m, cmd
}

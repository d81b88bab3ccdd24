package tui

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdxmph/tasks-tui/internal/config"
	"github.com/pdxmph/tasks-tui/internal/db"
	"github.com/pdxmph/tasks-tui/internal/tasks"
	"github.com/pdxmph/tasks-tui/internal/timer"
)

// Model represents the main application state
type Model struct {
	service *tasks.Service
	engine  *timer.Engine
	now     func() time.Time

	list       []db.Task
	views      []tasks.View
	viewIdx    int
	sortIdx    int // index into db.SortKeys
	descending bool
	categories []string

	selected int
	width    int
	height   int

	// Text search
	filterMode bool
	filter     textinput.Model

	form     form
	estimate estimatePrompt

	// Pending yes/no question
	confirm *confirmation

	// Tasks whose threshold prompt was shown during the current timer run
	prompted map[int64]bool
	// Latest poll problems per running task
	warnings map[int64]error

	status    string
	statusErr bool
}

type tickMsg time.Time

// pollInterval is how often running timers are checked
const pollInterval = time.Second

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type confirmKind int

const (
	confirmDelete confirmKind = iota
	confirmComplete
	confirmStop
	confirmThreshold
)

type confirmation struct {
	kind   confirmKind
	taskID int64
	title  string
}

func (c confirmation) prompt() string {
	switch c.kind {
	case confirmDelete:
		return fmt.Sprintf("Delete task '%s'? (y/n)", c.title)
	case confirmComplete:
		return fmt.Sprintf("The timer of '%s' is still active.\nStop it and mark the task completed? (y/n)", c.title)
	case confirmStop:
		return fmt.Sprintf("Stop the timer of '%s'.\nIs the task completed? (y/n, Esc: keep timing)", c.title)
	case confirmThreshold:
		return fmt.Sprintf("Time is up for '%s'.\nIs it done? (y: stop and complete, n: pause)", c.title)
	}
	return ""
}

// Styles
var (
	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230"))

	overdueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Strikethrough(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

// New creates a new application model
func New(service *tasks.Service, engine *timer.Engine, cfg config.UIConfig) (*Model, error) {
	// Setup filter input
	ti := textinput.New()
	ti.Placeholder = "Search tasks..."
	ti.Width = 30
	ti.CharLimit = 50
	ti.Prompt = "> "
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230"))
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	categories := cfg.Categories
	if len(categories) == 0 {
		categories = config.DefaultCategories
	}

	m := Model{
		service:    service,
		engine:     engine,
		now:        time.Now,
		descending: cfg.Descending,
		categories: categories,
		filter:     ti,
		form:       newForm(),
		estimate:   newEstimatePrompt(),
		prompted:   make(map[int64]bool),
		warnings:   make(map[int64]error),
	}

	if key, err := db.ParseSortKey(cfg.DefaultSort); err != nil {
		m.setError(fmt.Errorf("config: %w", err))
	} else {
		for i, k := range db.SortKeys {
			if k == key {
				m.sortIdx = i
			}
		}
	}

	views, err := service.Views()
	if err != nil {
		return nil, fmt.Errorf("loading views: %w", err)
	}
	m.views = views
	if cfg.DefaultView != "" {
		if idx := m.viewIndex(cfg.DefaultView); idx >= 0 {
			m.viewIdx = idx
		} else {
			m.setError(fmt.Errorf("config: %w: %s", tasks.ErrUnknownView, cfg.DefaultView))
		}
	}

	if err := m.load(); err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	return &m, nil
}

// Init starts the timer poll
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.width > 0 {
			listWidth := m.width / 3
			m.filter.Width = listWidth - 4 // account for borders and padding
		}
		return m, nil

	case tickMsg:
		m.poll()
		return m, tickCmd()

	case tea.KeyMsg:
		switch {
		case m.confirm != nil:
			return m.updateConfirm(msg)
		case m.estimate.active:
			return m.updateEstimate(msg)
		case m.form.active:
			return m.updateForm(msg)
		case m.filterMode:
			return m.updateFilter(msg)
		}
		return m.updateNormal(msg)
	}

	return m, nil
}

// poll reads every running timer and opens the threshold prompt for the
// first one that crossed its estimate and was not asked about yet
func (m *Model) poll() {
	readings, err := m.engine.Tick()
	if err != nil {
		m.setError(fmt.Errorf("polling timers: %w", err))
		return
	}

	m.warnings = make(map[int64]error)
	for _, r := range readings {
		if r.Err != nil {
			m.warnings[r.TaskID] = r.Err
		}
		if !r.ThresholdCrossed || m.prompted[r.TaskID] || m.busy() {
			continue
		}
		m.prompted[r.TaskID] = true
		m.confirm = &confirmation{kind: confirmThreshold, taskID: r.TaskID, title: m.titleOf(r.TaskID)}
	}
}

// busy reports whether a dialog or input currently owns the keyboard
func (m Model) busy() bool {
	return m.confirm != nil || m.form.active || m.estimate.active || m.filterMode
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := *m.confirm

	var yes bool
	switch msg.String() {
	case "y", "Y":
		yes = true
	case "n", "N":
	case "esc":
		m.confirm = nil
		return m, nil
	default:
		// Any other key cancels a destructive question
		if c.kind == confirmDelete || c.kind == confirmComplete {
			m.confirm = nil
		}
		return m, nil
	}
	m.confirm = nil

	switch c.kind {
	case confirmDelete:
		if yes {
			m.afterChange(m.service.Delete(c.taskID), "Deleted '"+c.title+"'")
		}
	case confirmComplete:
		if yes {
			m.afterChange(m.stopTimer(c.taskID, true), "Completed '"+c.title+"'")
		}
	case confirmStop:
		m.afterChange(m.stopTimer(c.taskID, yes), "Timer stopped")
	case confirmThreshold:
		if yes {
			m.afterChange(m.stopTimer(c.taskID, true), "Completed '"+c.title+"'")
		} else {
			m.afterChange(m.engine.Pause(c.taskID), "Timer paused")
		}
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filterMode = false
		m.filter.Reset()
		m.selected = m.ensureValidSelection()
		return m, nil
	case "enter":
		m.filterMode = false
		m.filter.Blur()
		m.selected = m.ensureValidSelection()
		return m, nil
	case "up":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down":
		if m.selected < len(m.filteredTasks())-1 {
			m.selected++
		}
		return m, nil
	}

	// Pass all other keys to the textinput
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.selected = m.ensureValidSelection()
	return m, cmd
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		if m.selected < len(m.filteredTasks())-1 {
			m.selected++
		}

	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}

	case "/":
		m.filterMode = true
		m.filter.Reset()
		if m.width > 0 {
			m.filter.Width = m.width/3 - 6
		} else {
			m.filter.Width = 25
		}
		m.filter.Focus()
		return m, textinput.Blink

	case "esc":
		if m.filter.Value() != "" {
			m.filter.Reset()
			m.selected = m.ensureValidSelection()
		}
		m.status = ""

	case "a":
		m.form.openAdd(m.categories)
		return m, textinput.Blink

	case "e", "enter":
		if t, ok := m.current(); ok {
			m.form.openEdit(t, m.categories)
			return m, textinput.Blink
		}

	case "d":
		if t, ok := m.current(); ok {
			m.confirm = &confirmation{kind: confirmDelete, taskID: t.ID, title: t.Title}
		}

	case "x":
		if t, ok := m.current(); ok {
			if !t.Completed && t.TimerStatus != db.TimerStopped {
				m.confirm = &confirmation{kind: confirmComplete, taskID: t.ID, title: t.Title}
				return m, nil
			}
			m.afterChange(m.service.SetCompleted(t.ID, !t.Completed), "")
		}

	case "t":
		if t, ok := m.current(); ok {
			switch t.TimerStatus {
			case db.TimerRunning:
				m.afterChange(m.engine.Pause(t.ID), "Timer paused")
			case db.TimerPaused:
				m.afterChange(m.engine.Resume(t.ID), "Timer resumed")
			default:
				m.estimate.open(t)
				return m, textinput.Blink
			}
		}

	case "T":
		if t, ok := m.current(); ok {
			if t.TimerStatus == db.TimerStopped {
				m.setError(fmt.Errorf("the timer of '%s' is not running", t.Title))
				return m, nil
			}
			m.confirm = &confirmation{kind: confirmStop, taskID: t.ID, title: t.Title}
		}

	case "v":
		if len(m.views) > 0 {
			m.viewIdx = (m.viewIdx + 1) % len(m.views)
			m.selected = 0
			m.afterChange(nil, "")
		}

	case "s":
		m.sortIdx = (m.sortIdx + 1) % len(db.SortKeys)
		m.afterChange(nil, "")

	case "r":
		m.descending = !m.descending
		m.afterChange(nil, "")
	}

	return m, nil
}

// stopTimer stops a timer and re-arms its threshold prompt for the next run
func (m *Model) stopTimer(id int64, completed bool) error {
	if err := m.engine.Stop(id, completed); err != nil {
		return err
	}
	delete(m.prompted, id)
	return nil
}

// startTimer begins a new timer run
func (m *Model) startTimer(id int64, minutes int) error {
	if err := m.engine.Start(id, minutes); err != nil {
		return err
	}
	delete(m.prompted, id)
	return nil
}

// afterChange reports the outcome of an action and reloads the list
func (m *Model) afterChange(err error, done string) {
	switch {
	case err != nil:
		m.setError(err)
	case done != "":
		m.setStatus(done)
	}
	if err := m.load(); err != nil {
		m.setError(fmt.Errorf("loading tasks: %w", err))
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	log.Printf("tui: %v", err)
	m.status = describe(err)
	m.statusErr = true
}

// describe turns errors into status line text
func describe(err error) string {
	var serr *db.StorageError
	switch {
	case errors.Is(err, db.ErrNotFound):
		return "That task no longer exists"
	case errors.Is(err, timer.ErrInvalidTransition):
		return "Timer: " + err.Error()
	case errors.As(err, &serr):
		return "Could not save: " + serr.Err.Error()
	}
	return err.Error()
}

// load fetches the current view and keeps the cursor on the same task
func (m *Model) load() error {
	var selectedID int64
	if t, ok := m.current(); ok {
		selectedID = t.ID
	}

	viewName := ""
	if m.viewIdx < len(m.views) {
		viewName = m.views[m.viewIdx].Name
	}
	views, err := m.service.Views()
	if err != nil {
		return err
	}
	m.views = views
	m.viewIdx = 0
	if idx := m.viewIndex(viewName); idx >= 0 {
		m.viewIdx = idx
	}

	list, err := m.service.Tasks(m.selection())
	if err != nil {
		return err
	}
	m.list = list

	for i, t := range m.filteredTasks() {
		if t.ID == selectedID {
			m.selected = i
			return nil
		}
	}
	m.selected = m.ensureValidSelection()
	return nil
}

func (m Model) selection() tasks.Selection {
	sel := tasks.Selection{
		Sort:       db.SortKeys[m.sortIdx],
		Descending: m.descending,
	}
	if m.viewIdx < len(m.views) {
		sel.View = m.views[m.viewIdx].Name
	}
	return sel
}

func (m Model) viewIndex(name string) int {
	for i, v := range m.views {
		if v.Name == name {
			return i
		}
	}
	return -1
}

func (m Model) titleOf(id int64) string {
	for _, t := range m.list {
		if t.ID == id {
			return t.Title
		}
	}
	if t, err := m.service.Get(id); err == nil {
		return t.Title
	}
	return fmt.Sprintf("task %d", id)
}

// filteredTasks returns the tasks matching the search text
func (m Model) filteredTasks() []db.Task {
	if m.filter.Value() == "" {
		return m.list
	}

	filter := strings.ToLower(m.filter.Value())

	var filtered []db.Task
	for _, t := range m.list {
		if strings.Contains(strings.ToLower(t.Title), filter) ||
			strings.Contains(strings.ToLower(t.Description), filter) ||
			strings.Contains(strings.ToLower(t.Category), filter) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func (m Model) current() (db.Task, bool) {
	list := m.filteredTasks()
	if len(list) == 0 || m.selected < 0 || m.selected >= len(list) {
		return db.Task{}, false
	}
	return list[m.selected], true
}

// ensureValidSelection ensures the current selection is within bounds
func (m Model) ensureValidSelection() int {
	list := m.filteredTasks()
	if len(list) == 0 {
		return 0
	}
	if m.selected >= len(list) {
		return len(list) - 1
	}
	if m.selected < 0 {
		return 0
	}
	return m.selected
}

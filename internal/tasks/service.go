package tasks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdxmph/tasks-tui/internal/db"
)

// ErrUnknownView is returned when a selection names a view nobody registered
var ErrUnknownView = errors.New("unknown view")

// Store is the task persistence the service reads and writes; *db.DB implements it
type Store interface {
	CreateTask(task db.NewTask) (int64, error)
	GetTask(id int64) (*db.Task, error)
	ListTasks(sort db.SortKey, descending bool) ([]db.Task, error)
	QueryTasks(f db.Filter, sort db.SortKey, descending bool) ([]db.Task, error)
	UpdateTask(id int64, task db.NewTask, completed bool) error
	DeleteTask(id int64) error
	SetCompleted(id int64, completed bool) error
	Categories() ([]string, error)
}

// Selection is what the list screen asks for
type Selection struct {
	View string // empty means "all"
	// Category narrows the view to one category
	Category   string
	Sort       db.SortKey
	Descending bool
}

// Service translates list selections into store queries
type Service struct {
	store Store
	views *Registry
}

// NewService creates a service over store using the global view registry
func NewService(store Store) *Service {
	return &Service{store: store, views: defaultRegistry}
}

// WithRegistry returns a copy of the service that resolves views in r
func (s *Service) WithRegistry(r *Registry) *Service {
	return &Service{store: s.store, views: r}
}

// Tasks returns the tasks of a selection
func (s *Service) Tasks(sel Selection) ([]db.Task, error) {
	name := sel.View
	if name == "" {
		name = "all"
	}
	view, ok := s.views.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownView, name)
	}

	category := strings.TrimSpace(sel.Category)
	switch {
	case view.Filter == nil && category == "":
		return s.store.ListTasks(sel.Sort, sel.Descending)
	case view.Filter == nil:
		return s.store.QueryTasks(db.ByCategory(category), sel.Sort, sel.Descending)
	}

	tasks, err := s.store.QueryTasks(*view.Filter, sel.Sort, sel.Descending)
	if err != nil || category == "" {
		return tasks, err
	}
	return inCategory(tasks, category), nil
}

func inCategory(tasks []db.Task, category string) []db.Task {
	var out []db.Task
	for _, t := range tasks {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Query runs a single filter given by kind and value, e.g. ("priority", "high")
func (s *Service) Query(kind, value string, sort db.SortKey, descending bool) ([]db.Task, error) {
	f, err := ParseFilter(kind, value)
	if err != nil {
		return nil, err
	}
	return s.store.QueryTasks(f, sort, descending)
}

// ParseFilter builds a store filter from a filter kind and its value
func ParseFilter(kind, value string) (db.Filter, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "priority":
		p, err := db.ParsePriority(value)
		if err != nil {
			return db.Filter{}, err
		}
		return db.ByPriority(p), nil
	case "category":
		return db.ByCategory(strings.TrimSpace(value)), nil
	case "completed":
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "yes", "1":
			return db.ByCompleted(true), nil
		case "false", "no", "0":
			return db.ByCompleted(false), nil
		}
		return db.Filter{}, fmt.Errorf("invalid completed value %q", value)
	}
	return db.Filter{}, fmt.Errorf("unknown filter kind %q", kind)
}

// Views lists the registered views followed by one view per category in use
func (s *Service) Views() ([]View, error) {
	categories, err := s.store.Categories()
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	views := s.views.List()
	for _, c := range categories {
		views = append(views, CategoryView(c))
	}
	return views, nil
}

// Get returns one task
func (s *Service) Get(id int64) (*db.Task, error) {
	return s.store.GetTask(id)
}

// Create stores a new task with a stopped timer
func (s *Service) Create(task db.NewTask) (int64, error) {
	task.Title = strings.TrimSpace(task.Title)
	task.Category = strings.TrimSpace(task.Category)
	return s.store.CreateTask(task)
}

// Update replaces the editable fields of a task
func (s *Service) Update(id int64, task db.NewTask, completed bool) error {
	task.Title = strings.TrimSpace(task.Title)
	task.Category = strings.TrimSpace(task.Category)
	return s.store.UpdateTask(id, task, completed)
}

// Delete removes a task; deleting a missing task succeeds
func (s *Service) Delete(id int64) error {
	return s.store.DeleteTask(id)
}

// SetCompleted marks a task finished or unfinished
func (s *Service) SetCompleted(id int64, completed bool) error {
	return s.store.SetCompleted(id, completed)
}

package tasks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pdxmph/tasks-tui/internal/db"
)

// categoryPrefix names the views generated for each category in use
const categoryPrefix = "category:"

// View is a named preset filter over the task list
type View struct {
	Name  string
	Label string
	// Filter is nil for a view that lists every task
	Filter *db.Filter
}

// CategoryView returns the view listing the tasks of one category
func CategoryView(category string) View {
	f := db.ByCategory(category)
	return View{
		Name:   categoryPrefix + category,
		Label:  category,
		Filter: &f,
	}
}

// Registry manages the available views
type Registry struct {
	mu    sync.RWMutex
	views map[string]View
	order []string
}

// NewRegistry creates an empty view registry
func NewRegistry() *Registry {
	return &Registry{
		views: make(map[string]View),
	}
}

// Register adds a view to the registry
func (r *Registry) Register(v View) error {
	if v.Name == "" {
		return fmt.Errorf("view name is empty")
	}
	if strings.HasPrefix(v.Name, categoryPrefix) {
		return fmt.Errorf("view name %s uses the reserved %q prefix", v.Name, categoryPrefix)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.views[v.Name]; exists {
		return fmt.Errorf("view %s already registered", v.Name)
	}

	r.views[v.Name] = v
	r.order = append(r.order, v.Name)
	return nil
}

// Lookup finds a view by name. category:<name> views always resolve.
func (r *Registry) Lookup(name string) (View, bool) {
	if category, ok := strings.CutPrefix(name, categoryPrefix); ok {
		if category == "" {
			return View{}, false
		}
		return CategoryView(category), true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	v, exists := r.views[name]
	return v, exists
}

// List returns the registered views in registration order
func (r *Registry) List() []View {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]View, 0, len(r.order))
	for _, name := range r.order {
		views = append(views, r.views[name])
	}
	return views
}

// Global registry instance
var defaultRegistry = NewRegistry()

// Register adds a view to the global registry
func Register(v View) error {
	return defaultRegistry.Register(v)
}

// ListViews returns the views of the global registry
func ListViews() []View {
	return defaultRegistry.List()
}

func filterView(name, label string, f db.Filter) View {
	return View{Name: name, Label: label, Filter: &f}
}

// Register the built-in views
func init() {
	Register(View{Name: "all", Label: "All"})
	Register(filterView("pending", "Pending", db.ByCompleted(false)))
	Register(filterView("completed", "Completed", db.ByCompleted(true)))
	Register(filterView("high", "High priority", db.ByPriority(db.PriorityHigh)))
	Register(filterView("medium", "Medium priority", db.ByPriority(db.PriorityMedium)))
	Register(filterView("low", "Low priority", db.ByPriority(db.PriorityLow)))
}

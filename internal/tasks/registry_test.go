package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdxmph/tasks-tui/internal/db"
)

func viewNames(views []View) []string {
	names := make([]string, 0, len(views))
	for _, v := range views {
		names = append(names, v.Name)
	}
	return names
}

func TestDefaultViews(t *testing.T) {
	assert.Equal(t,
		[]string{"all", "pending", "completed", "high", "medium", "low"},
		viewNames(ListViews()))

	all, ok := defaultRegistry.Lookup("all")
	require.True(t, ok)
	assert.Nil(t, all.Filter)

	high, ok := defaultRegistry.Lookup("high")
	require.True(t, ok)
	require.NotNil(t, high.Filter)
	assert.Equal(t, db.ByPriority(db.PriorityHigh), *high.Filter)
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(View{Name: "today", Label: "Today"}))
	assert.Error(t, r.Register(View{Name: "today"}), "duplicate name")
	assert.Error(t, r.Register(View{}), "empty name")
	assert.Error(t, r.Register(View{Name: "category:work"}), "reserved prefix")

	v, ok := r.Lookup("today")
	require.True(t, ok)
	assert.Equal(t, "Today", v.Label)

	_, ok = r.Lookup("tomorrow")
	assert.False(t, ok)
}

func TestRegistryLookupCategory(t *testing.T) {
	r := NewRegistry()

	v, ok := r.Lookup("category:study")
	require.True(t, ok)
	assert.Equal(t, "study", v.Label)
	require.NotNil(t, v.Filter)
	assert.Equal(t, db.ByCategory("study"), *v.Filter)

	_, ok = r.Lookup("category:")
	assert.False(t, ok)
}

func TestRegistryListKeepsOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, r.Register(View{Name: name}))
	}
	assert.Equal(t, []string{"c", "a", "b"}, viewNames(r.List()))
}

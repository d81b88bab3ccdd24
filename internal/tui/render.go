package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdxmph/tasks-tui/internal/db"
	"github.com/pdxmph/tasks-tui/internal/timer"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	switch {
	case m.confirm != nil:
		return m.renderConfirm()
	case m.estimate.active:
		return m.renderEstimate()
	case m.form.active:
		return m.renderForm()
	}

	// Calculate pane widths
	listWidth := m.width / 3
	detailWidth := m.width - listWidth - 3 // account for borders
	paneHeight := m.height - 4             // status and help lines

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		borderStyle.Width(listWidth).Height(paneHeight).Render(m.renderList(listWidth, paneHeight)),
		borderStyle.Width(detailWidth).Height(paneHeight).Render(m.renderDetail(detailWidth)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, content, m.renderStatus(), m.renderHelp())
}

// renderList renders the task list
func (m Model) renderList(width, height int) string {
	var lines []string

	if m.filterMode {
		lines = append(lines, m.filter.View())
		lines = append(lines, "")
		height -= 2
	}

	list := m.filteredTasks()

	// Calculate visible range
	visibleHeight := height - 2 // account for header
	startIdx := 0
	if m.selected >= visibleHeight {
		startIdx = m.selected - visibleHeight + 1
	}

	header := fmt.Sprintf("Tasks (%d)", len(list))
	var indicators []string
	if m.viewIdx < len(m.views) {
		indicators = append(indicators, m.views[m.viewIdx].Label)
	}
	arrow := "↑"
	if m.descending {
		arrow = "↓"
	}
	indicators = append(indicators, "by "+string(db.SortKeys[m.sortIdx])+" "+arrow)
	if !m.filterMode && m.filter.Value() != "" {
		indicators = append(indicators, "search:"+m.filter.Value())
	}
	header += " [" + strings.Join(indicators, ", ") + "]"

	lines = append(lines, header)
	lines = append(lines, strings.Repeat("─", max(width-2, 0)))

	now := m.now()
	for i := startIdx; i < len(list) && i < startIdx+visibleHeight; i++ {
		t := list[i]

		marker := "  "
		switch {
		case t.Completed:
			marker = "✓ "
		case t.IsOverdue(now):
			marker = "* "
		}

		line := marker + t.Title
		if t.Priority != db.PriorityUnknown {
			line += " " + labelStyle.Render("["+t.Priority.String()+"]")
		}
		if badge := m.timerBadge(t); badge != "" {
			line += " " + badge
		}

		switch {
		case i == m.selected:
			line = selectedStyle.Render(line)
		case t.Completed:
			line = doneStyle.Render(line)
		case t.IsOverdue(now):
			// color just the asterisk
			line = overdueStyle.Render("*") + line[1:]
		}

		lines = append(lines, line)
	}

	if len(list) == 0 {
		lines = append(lines, labelStyle.Render("  Nothing here. Press a to add a task."))
	}

	return strings.Join(lines, "\n")
}

// timerBadge shows the live elapsed time of an active timer
func (m Model) timerBadge(t db.Task) string {
	if t.TimerStatus == db.TimerStopped {
		return ""
	}

	elapsed, _ := timer.NewSnapshot(t.Timer()).Displayed(m.now())
	badge := formatDuration(elapsed)
	if _, bad := m.warnings[t.ID]; bad {
		badge += "!"
	}

	if t.TimerStatus == db.TimerRunning {
		return runningStyle.Render("▶ " + badge)
	}
	return pausedStyle.Render("⏸ " + badge)
}

// renderDetail renders the selected task
func (m Model) renderDetail(width int) string {
	t, ok := m.current()
	if !ok {
		return "No task selected"
	}

	now := m.now()
	var lines []string

	lines = append(lines, t.Title)
	lines = append(lines, strings.Repeat("─", max(width-2, 0)))
	lines = append(lines, "")

	if t.Completed {
		lines = append(lines, "Status: Completed")
	} else {
		lines = append(lines, "Status: Pending")
	}

	if t.DueDate.Valid {
		due := fmt.Sprintf("Due: %s", t.DueDate.Time.Format(db.DateLayout))
		if t.IsOverdue(now) {
			due += overdueStyle.Render(" (overdue)")
		}
		lines = append(lines, due)
	} else {
		lines = append(lines, "Due: -")
	}

	lines = append(lines, fmt.Sprintf("Priority: %s", priorityLabel(t.Priority)))
	lines = append(lines, fmt.Sprintf("Difficulty: %s", difficultyLabel(t.Difficulty)))
	lines = append(lines, fmt.Sprintf("Category: %s", categoryLabel(t.Category)))
	if !t.CreatedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Created: %s", t.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	lines = append(lines, "")

	// Timer
	snap := timer.NewSnapshot(t.Timer())
	elapsed, err := snap.Displayed(now)
	lines = append(lines, fmt.Sprintf("Timer: %s", snap.Status))
	lines = append(lines, fmt.Sprintf("Elapsed: %s", formatDuration(elapsed)))
	if remaining, ok := snap.Remaining(now); ok {
		lines = append(lines, fmt.Sprintf("Estimate: %s", formatDuration(snap.EstimatedTime)))
		lines = append(lines, fmt.Sprintf("Remaining: %s", formatDuration(remaining)))
	}
	if err == nil {
		err = m.warnings[t.ID]
	}
	if err != nil {
		lines = append(lines, errorStyle.Render("Warning: "+err.Error()))
	}
	lines = append(lines, "")

	if t.Description != "" {
		lines = append(lines, "Description:")
		for _, para := range strings.Split(t.Description, "\n") {
			lines = append(lines, wrapText(para, width-4)...)
		}
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render(" " + m.status)
	}
	return labelStyle.Render(" " + m.status)
}

// renderHelp renders the help line
func (m Model) renderHelp() string {
	if m.filterMode {
		return " Type to search • ↑/↓: navigate • Enter: confirm • Esc: cancel"
	}

	help := " j/k: navigate • a: add • e: edit • d: delete • x: done • t: start/pause • T: stop"
	help += " • v: view • s: sort • r: reverse • /: search"
	if m.filter.Value() != "" {
		help += " • Esc: clear search"
	}
	help += " • q: quit"

	return help
}

// overlay centers a bordered box on the screen
func (m Model) overlay(content string, width int) string {
	style := borderStyle.
		Padding(1).
		Background(lipgloss.Color("235"))
	if width > 0 {
		style = style.Width(width)
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(style.Render(content))
}

// renderConfirm renders the pending yes/no question
func (m Model) renderConfirm() string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(1, 2).
		Width(60).
		Align(lipgloss.Center).
		Render(m.confirm.prompt())

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(box)
}

// renderForm renders the add/edit overlay
func (m Model) renderForm() string {
	f := m.form

	var lines []string
	if f.taskID == 0 {
		lines = append(lines, "New Task")
	} else {
		lines = append(lines, fmt.Sprintf("Edit Task: %s", f.title.Value()))
	}
	lines = append(lines, strings.Repeat("─", 40))
	lines = append(lines, "")

	fieldLabels := []string{
		"Title:       ",
		"Description: ",
		"Due:         ",
		"Priority:    ",
		"Difficulty:  ",
		"Category:    ",
	}

	for i, label := range fieldLabels {
		var value string
		switch i {
		case FormFieldTitle:
			value = f.title.View()
		case FormFieldDue:
			value = f.due.View()
		case FormFieldDescription:
			if i == f.field {
				lines = append(lines, label)
				lines = append(lines, f.description.View())
				lines = append(lines, "")
				continue
			}
			value = strings.SplitN(f.description.Value(), "\n", 2)[0]
		case FormFieldPriority:
			value = selector(priorityLabel(priorityOptions[f.priority]), i == f.field)
		case FormFieldDifficulty:
			value = selector(difficultyLabel(difficultyOptions[f.difficulty]), i == f.field)
		case FormFieldCategory:
			value = selector(categoryLabel(f.categories[f.category]), i == f.field)
		}
		lines = append(lines, label+value)
		lines = append(lines, "")
	}

	if f.err != "" {
		lines = append(lines, errorStyle.Render(f.err))
		lines = append(lines, "")
	}
	lines = append(lines, "Tab: next field • ←/→: change choice • Enter/Ctrl+S: save • Esc: cancel")

	return m.overlay(strings.Join(lines, "\n"), 64)
}

func selector(label string, focused bool) string {
	if focused {
		return selectedStyle.Render(fmt.Sprintf("< %s >", label))
	}
	return fmt.Sprintf("  %s  ", label)
}

// renderEstimate renders the estimate prompt shown before a timer starts
func (m Model) renderEstimate() string {
	p := m.estimate

	var lines []string
	lines = append(lines, fmt.Sprintf("Start timer for %s", p.title))
	lines = append(lines, "")
	lines = append(lines, "Estimated time (leave empty for none):")
	lines = append(lines, "")
	lines = append(lines, "Hours:   "+p.hours.View())
	lines = append(lines, "Minutes: "+p.minutes.View())
	lines = append(lines, "")
	if p.err != "" {
		lines = append(lines, errorStyle.Render(p.err))
		lines = append(lines, "")
	}
	lines = append(lines, "Tab: switch • Enter: start • Esc: cancel")

	return m.overlay(strings.Join(lines, "\n"), 0)
}

// formatDuration renders seconds as h:mm:ss
func formatDuration(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

// wrapText wraps text to fit within the specified width
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	currentLine := words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	lines = append(lines, currentLine)

	return lines
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/hochfrequenz/ghactl/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	queuedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	// Header
	active, failed := 0, 0
	for _, r := range m.runs {
		if r.Status.Active() {
			active++
		}
		if r.Failed() {
			failed++
		}
	}
	header := fmt.Sprintf(" ghactl │ %s │ Runs: %d │ Active: %d │ Failed: %d ",
		m.workflow, len(m.runs), active, failed)
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	// Tab bar
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	var section string
	switch m.activeTab {
	case tabHistory:
		section = m.renderHistory()
	default:
		section = m.renderRuns()
	}
	b.WriteString(sectionStyle.Width(m.width - 2).Render(section))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(failureStyle.Width(m.width).Render(" Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	// Status bar
	refreshed := "never"
	if !m.lastRefresh.IsZero() {
		refreshed = humanize.RelTime(m.lastRefresh, m.now(), "ago", "from now")
	}
	statusBar := fmt.Sprintf(" Refreshed %s │ [tab]switch [j/k]select [r]efresh [q]uit ", refreshed)
	b.WriteString(statusBarStyle.Width(m.width).Render(statusBar))

	return b.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Runs", "History"}
	var parts []string

	for i, tab := range tabs {
		if i == m.activeTab {
			parts = append(parts, tabActiveStyle.Render(fmt.Sprintf(" %s ", tab)))
		} else {
			parts = append(parts, tabInactiveStyle.Render(fmt.Sprintf(" %s ", tab)))
		}
	}

	return strings.Join(parts, "│")
}

func (m Model) renderRuns() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("RECENT RUNS"))
	b.WriteString("\n")

	if len(m.runs) == 0 {
		b.WriteString(queuedStyle.Render("  No runs found."))
		return b.String()
	}

	now := m.now()
	for i, r := range m.runs {
		cursor := "  "
		if i == m.selectedRow {
			cursor = selectedStyle.Render("> ")
		}
		age := "-"
		if !r.CreatedAt.IsZero() {
			age = humanize.RelTime(r.CreatedAt, now, "ago", "from now")
		}
		line := fmt.Sprintf("%-12s %-12s %-40s %s", r.ID, stateStyle(r).Render(r.State()), truncate(r.Title, 40), age)
		b.WriteString(cursor + line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderHistory() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("LOCAL HISTORY"))
	b.WriteString("\n")

	if len(m.history) == 0 {
		b.WriteString(queuedStyle.Render("  No recorded operations."))
		return b.String()
	}

	now := m.now()
	for i, op := range m.history {
		cursor := "  "
		if i == m.selectedRow {
			cursor = selectedStyle.Render("> ")
		}
		ref := op.Tag
		if op.RunID != "" {
			ref += " (run " + op.RunID + ")"
		}
		line := fmt.Sprintf("%-6s %-12s %-36s %s", op.Kind, op.Outcome, truncate(ref, 36),
			humanize.RelTime(op.CreatedAt, now, "ago", "from now"))
		b.WriteString(cursor + line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func stateStyle(r domain.WorkflowRun) lipgloss.Style {
	switch {
	case r.Status.Active():
		return runningStyle
	case r.Failed():
		return failureStyle
	case r.Conclusion == domain.ConclusionSuccess:
		return successStyle
	default:
		return queuedStyle
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if m.refreshing {
				return m, nil
			}
			m.refreshing = true
			return m, m.refreshCmd()
		case "j", "down":
			if m.selectedRow < m.rowCount()-1 {
				m.selectedRow++
			}
		case "k", "up":
			if m.selectedRow > 0 {
				m.selectedRow--
			}
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			m.selectedRow = 0
		case "h":
			m.activeTab = tabHistory
			m.selectedRow = 0
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		if m.refreshing {
			return m, tickCmd(m.interval)
		}
		m.refreshing = true
		return m, tea.Batch(m.refreshCmd(), tickCmd(m.interval))

	case RunsMsg:
		m.refreshing = false
		m.lastRefresh = m.now()
		m.err = msg.Err
		if msg.Err == nil {
			m.runs = msg.Runs
		}
		m.clampSelection()

	case HistoryMsg:
		if msg.Err == nil {
			m.history = msg.Operations
		}
		m.clampSelection()
	}

	return m, nil
}

func (m Model) rowCount() int {
	if m.activeTab == tabHistory {
		return len(m.history)
	}
	return len(m.runs)
}

func (m *Model) clampSelection() {
	if n := m.rowCount(); m.selectedRow >= n {
		m.selectedRow = n - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == modeReject {
			return m.handleRejectKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case queueLoadedMsg:
		if msg.err != nil {
			m.setStatus("Failed to load queue: "+msg.err.Error(), true)
			return m, nil
		}
		m.tasks = msg.tasks
		m.clampCursor()
		return m, nil

	case decidedMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus("Decision failed: "+msg.err.Error(), true)
			return m, m.loadQueue()
		}
		m.setStatus(fmt.Sprintf("Task #%d %s.", msg.task.ID, msg.action), false)
		m.removeTask(msg.task.ID)
		return m, m.loadQueue()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
		return m, nil

	case "r":
		m.setStatus("Refreshing...", false)
		return m, m.loadQueue()

	case "a", "enter":
		task, ok := m.selected()
		if !ok || m.busy {
			return m, nil
		}
		m.busy = true
		m.setStatus(fmt.Sprintf("Approving #%d...", task.ID), false)
		return m, m.approve(task.ID)

	case "x":
		if _, ok := m.selected(); !ok || m.busy {
			return m, nil
		}
		m.mode = modeReject
		m.commentInput.Reset()
		return m, m.commentInput.Focus()
	}
	return m, nil
}

func (m Model) handleRejectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.commentInput.Blur()
		return m, nil

	case "enter":
		comment := strings.TrimSpace(m.commentInput.Value())
		if comment == "" {
			m.setStatus("A rejection needs a comment.", true)
			return m, nil
		}
		task, ok := m.selected()
		if !ok {
			m.mode = modeList
			return m, nil
		}
		m.mode = modeList
		m.commentInput.Blur()
		m.busy = true
		m.setStatus(fmt.Sprintf("Rejecting #%d...", task.ID), false)
		return m, m.reject(task.ID, comment)
	}

	var cmd tea.Cmd
	m.commentInput, cmd = m.commentInput.Update(msg)
	return m, cmd
}

func (m *Model) removeTask(id uint) {
	for i, t := range m.tasks {
		if t.ID == id {
			m.tasks = append(m.tasks[:i:i], m.tasks[i+1:]...)
			break
		}
	}
	m.clampCursor()
}

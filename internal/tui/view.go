package tui

import (
	"fmt"
	"strings"

	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/models"

	"github.com/charmbracelet/lipgloss"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle    = lipgloss.NewStyle().Foreground(clrDim)
	subtleStyle = lipgloss.NewStyle().Foreground(clrSubtle)

	rowStyle         = lipgloss.NewStyle().PaddingLeft(2)
	rowSelectedStyle = lipgloss.NewStyle().PaddingLeft(1).Bold(true).Foreground(clrHighlight).
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(clrHighlight)

	overdueStyle = lipgloss.NewStyle().Foreground(clrRed).Bold(true)
	dueSoonStyle = lipgloss.NewStyle().Foreground(clrYellow)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrRed).
			Padding(1, 2).
			Width(60)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(clrRed).Bold(true)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("approval queue"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d waiting on you", len(m.tasks))))
	b.WriteString("\n\n")

	if len(m.tasks) == 0 {
		b.WriteString(subtleStyle.Render("  Nothing to approve."))
		b.WriteString("\n")
	}
	for i, t := range m.tasks {
		line := taskLine(t)
		if i == m.cursor {
			b.WriteString(rowSelectedStyle.Render(line))
		} else {
			b.WriteString(rowStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if m.mode == modeReject {
		if t, ok := m.selected(); ok {
			b.WriteString("\n")
			b.WriteString(m.viewRejectPopup(t))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.statusMsg))
		} else {
			b.WriteString(statusStyle.Render(m.statusMsg))
		}
		b.WriteString("\n")
	}
	b.WriteString(m.footer())
	return b.String()
}

func taskLine(t dto.TaskResponse) string {
	step := fmt.Sprintf("step %d/%d", t.CurrentApprovalStep+1, len(t.AllApprovers))
	line := fmt.Sprintf("#%-4d %-22s %-20s %s  %s", t.ID, truncate(t.ClientName, 22), truncate(t.CategoryDisplay, 20), t.Deadline, step)
	return line + " " + deadlineBadge(t)
}

func deadlineBadge(t dto.TaskResponse) string {
	if t.DeadlineDaysRemaining == nil || t.Status == models.StatusCompleted {
		return ""
	}
	days := *t.DeadlineDaysRemaining
	switch {
	case days < 0:
		return overdueStyle.Render(fmt.Sprintf("%dd overdue", -days))
	case days <= 7:
		return dueSoonStyle.Render(fmt.Sprintf("due in %dd", days))
	}
	return ""
}

func (m Model) viewRejectPopup(t dto.TaskResponse) string {
	var b strings.Builder
	b.WriteString(errorStyle.Render(fmt.Sprintf("Reject #%d", t.ID)))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(truncate(t.Description, 56)))
	b.WriteString("\n\n")
	b.WriteString(m.commentInput.View())
	b.WriteString("\n\n")
	b.WriteString(footerKeyStyle.Render("enter") + footerDescStyle.Render(" reject  ") +
		footerKeyStyle.Render("esc") + footerDescStyle.Render(" cancel"))
	return popupStyle.Render(b.String())
}

func (m Model) footer() string {
	keys := []struct{ key, desc string }{
		{"↑/↓", "move"},
		{"a", "approve"},
		{"x", "reject"},
		{"r", "refresh"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, footerKeyStyle.Render(k.key)+footerDescStyle.Render(" "+k.desc))
	}
	return strings.Join(parts, "  ")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

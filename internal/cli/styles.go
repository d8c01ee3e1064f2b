package cli

import "github.com/charmbracelet/lipgloss"

var (
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	overdueStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(clrRed)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(clrGreen)
	dimStyle     = lipgloss.NewStyle().Foreground(clrDim)
)

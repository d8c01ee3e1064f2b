package cli

import (
	"fmt"

	"compliance-tracker-api/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Open the interactive approval queue",
	Long:  "Opens a terminal view of the tasks waiting on your approval, where you can approve or reject them with a comment.",
	RunE:  runQueue,
}

func runQueue(cmd *cobra.Command, args []string) error {
	api, err := mustClient()
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.New(api), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

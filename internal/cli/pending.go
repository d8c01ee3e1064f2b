package cli

import (
	"context"
	"fmt"
	"strconv"

	"compliance-tracker-api/internal/dto"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List tasks waiting on your approval",
	RunE:  runPending,
}

func runPending(cmd *cobra.Command, args []string) error {
	api, err := mustClient()
	if err != nil {
		return err
	}
	tasks, err := api.PendingApprovals(context.Background())
	if err != nil {
		return explain(err)
	}
	if len(tasks) == 0 {
		fmt.Println(dimStyle.Render("Nothing waiting on you."))
		return nil
	}
	fmt.Println(pendingTable(tasks))
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d task(s). Decide with: compliance-tracker approve|reject <id>", len(tasks))))
	return nil
}

func pendingTable(tasks []dto.TaskResponse) string {
	rows := make([][]string, 0, len(tasks))
	overdue := make(map[int]bool)
	for i, t := range tasks {
		due := t.Deadline
		if d := t.DeadlineDaysRemaining; d != nil && *d < 0 {
			due += fmt.Sprintf(" (%dd late)", -*d)
			overdue[i] = true
		}
		rows = append(rows, []string{
			"#" + strconv.FormatUint(uint64(t.ID), 10),
			truncate(t.ClientName, 24),
			t.CategoryDisplay,
			truncate(t.AssignedToName, 18),
			due,
			fmt.Sprintf("%d/%d", t.CurrentApprovalStep+1, len(t.AllApprovers)),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "CLIENT", "CATEGORY", "ASSIGNEE", "DEADLINE", "STEP").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 4 && overdue[row]:
				return overdueStyle
			}
			return cellStyle
		}).
		String()
}

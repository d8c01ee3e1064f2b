package cli

import (
	"context"
	"fmt"
	"strconv"

	"compliance-tracker-api/internal/dto"

	"github.com/spf13/cobra"
)

var (
	approveComment string
	rejectComment  string
)

var approveCmd = &cobra.Command{
	Use:   "approve <task-id>",
	Short: "Approve the current step of a task's approval chain",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

var rejectCmd = &cobra.Command{
	Use:   "reject <task-id>",
	Short: "Reject a task and send it back for revision",
	Args:  cobra.ExactArgs(1),
	RunE:  runReject,
}

func init() {
	approveCmd.Flags().StringVarP(&approveComment, "comment", "m", "", "Optional comment")
	rejectCmd.Flags().StringVarP(&rejectComment, "comment", "m", "", "Reason for rejection")
	_ = rejectCmd.MarkFlagRequired("comment")
}

func runApprove(cmd *cobra.Command, args []string) error {
	return decide(args[0], "approved", func(ctx context.Context, id uint) (dto.TaskResponse, error) {
		api, err := mustClient()
		if err != nil {
			return dto.TaskResponse{}, err
		}
		return api.Approve(ctx, id, approveComment)
	})
}

func runReject(cmd *cobra.Command, args []string) error {
	return decide(args[0], "rejected", func(ctx context.Context, id uint) (dto.TaskResponse, error) {
		api, err := mustClient()
		if err != nil {
			return dto.TaskResponse{}, err
		}
		return api.Reject(ctx, id, rejectComment)
	})
}

func decide(rawID, verb string, call func(ctx context.Context, id uint) (dto.TaskResponse, error)) error {
	id, err := parseTaskID(rawID)
	if err != nil {
		return err
	}
	task, err := call(context.Background(), id)
	if err != nil {
		return explain(err)
	}

	fmt.Printf("%s %s\n",
		successStyle.Render(fmt.Sprintf("✓ task #%d %s", task.ID, verb)),
		dimStyle.Render("now "+task.StatusDisplay))
	if task.RequiresApproval && task.PendingApprover != nil {
		fmt.Println(dimStyle.Render(fmt.Sprintf("  next approver: user %d (step %d/%d)",
			*task.PendingApprover, task.CurrentApprovalStep+1, len(task.AllApprovers))))
	}
	return nil
}

func parseTaskID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return uint(id), nil
}

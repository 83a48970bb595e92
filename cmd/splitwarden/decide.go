package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitwarden/splitwarden/internal/cli"
)

func decideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decide <expense-id>",
		Short: "Approve or reject pending requests for an expense",
		Long: `Batch decision for one expense. Request ids that are not pending
requests of the expense are ignored, so re-running a decision is safe.`,
		Args: cobra.ExactArgs(1),
		RunE: runDecide,
	}
	cmd.Flags().StringSlice("approve", nil, "request ids to approve")
	cmd.Flags().StringSlice("reject", nil, "request ids to reject")
	cmd.Flags().String("notes", "", "admin notes recorded on each decided request")
	return cmd
}

func runDecide(cmd *cobra.Command, args []string) error {
	ident, err := resolveIdentity(cmd)
	if err != nil {
		return err
	}
	eng, cleanup, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	approve, _ := cmd.Flags().GetStringSlice("approve")
	reject, _ := cmd.Flags().GetStringSlice("reject")
	notes, _ := cmd.Flags().GetString("notes")
	if len(approve) == 0 && len(reject) == 0 {
		return fmt.Errorf("nothing to decide: pass --approve and/or --reject")
	}

	result, err := eng.CommitDecisions(cmd.Context(), ident, args[0], approve, reject, notes)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Approved %d, rejected %d, ignored %d", result.Approved, result.Rejected, result.Ignored)))
	if result.Approved > 0 {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Run 'splitwarden preview %s' to inspect the new splits.", args[0])))
	}
	return nil
}

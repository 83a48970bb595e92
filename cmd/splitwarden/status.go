package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitwarden/splitwarden/internal/cli"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <expense-id>",
		Short: "Show where an expense sits in the review workflow",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ident, err := resolveIdentity(cmd)
	if err != nil {
		return err
	}
	eng, cleanup, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := eng.ExpenseStatus(cmd.Context(), ident, args[0])
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderStatus(report))
	return nil
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Audit the mirror for naming and split drift problems",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ident, err := resolveIdentity(cmd)
	if err != nil {
		return err
	}
	eng, cleanup, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := eng.CheckConsistency(cmd.Context(), ident)
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderConsistency(report))
	if !report.Clean() {
		return fmt.Errorf("%d consistency issues found", len(report.Issues))
	}
	return nil
}

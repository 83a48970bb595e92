package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/splitwarden/splitwarden/internal/cli"
	"github.com/splitwarden/splitwarden/internal/common"
)

func applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <expense-id>",
		Short: "Push an expense's approved requests to Splitwise",
		Long: `Applies approved requests in two phases: Splitwise is rewritten
first, then the local mirror. If Splitwise rejects the update the
requests stay approved and apply can simply be retried. If the mirror
write fails afterwards the requests are marked critical and need manual
reconciliation.`,
		Args: cobra.ExactArgs(1),
		RunE: runApply,
	}
}

func runApply(cmd *cobra.Command, args []string) error {
	ident, err := resolveIdentity(cmd)
	if err != nil {
		return err
	}
	eng, cleanup, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := eng.Apply(cmd.Context(), ident, args[0])
	if err != nil {
		if common.IsCritical(err) {
			fmt.Println(cli.FormatError("Splitwise was updated but the local mirror was not."))
			fmt.Println(cli.FormatError("Reconcile manually before touching this expense again: " + err.Error()))
		}
		return err
	}

	if result.NoChanges {
		fmt.Println(cli.FormatInfo("No approved requests; nothing to apply."))
		return nil
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Applied %d requests; new shares for %s",
		result.AppliedRequests, strings.Join(result.AffectedMembers, ", "))))
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitwarden/splitwarden/internal/cli"
	"github.com/splitwarden/splitwarden/internal/model"
)

func requestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request <split-id> <item-name> <join|leave>",
		Short: "Ask to join or leave an item of a split",
		Args:  cobra.ExactArgs(3),
		RunE:  runRequest,
	}
	return cmd
}

func runRequest(cmd *cobra.Command, args []string) error {
	ident, err := resolveIdentity(cmd)
	if err != nil {
		return err
	}
	eng, cleanup, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	req, err := eng.SubmitRequest(cmd.Context(), ident, args[0], args[1], model.ChangeAction(args[2]))
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Request %s submitted: %s %s %q (awaiting admin review)",
		req.ID, req.RequestedByName, args[2], args[1])))
	return nil
}

func requestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List your requests, or the pending queue with --grouped",
		Args:  cobra.NoArgs,
		RunE:  runRequests,
	}
	cmd.Flags().Bool("grouped", false, "admin: show all pending requests grouped by expense")
	return cmd
}

func runRequests(cmd *cobra.Command, _ []string) error {
	ident, err := resolveIdentity(cmd)
	if err != nil {
		return err
	}
	eng, cleanup, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	grouped, _ := cmd.Flags().GetBool("grouped")
	if grouped {
		queues, err := eng.GroupedPending(cmd.Context(), ident)
		if err != nil {
			return err
		}
		fmt.Println(cli.RenderQueue(queues))
		return nil
	}

	requests, err := eng.ListMyRequests(cmd.Context(), ident)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		fmt.Println(cli.FormatInfo("You have no requests."))
		return nil
	}
	for _, req := range requests {
		for _, change := range req.Changes {
			fmt.Printf("%s  expense %s  %s %q  [%s]\n",
				req.ID, req.SplitwiseID, change.Action, change.ItemName, req.Status)
		}
	}
	return nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/splitwarden/splitwarden/internal/cli"
)

func membersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage login-email to member-name mappings",
	}
	cmd.AddCommand(membersListCmd())
	cmd.AddCommand(membersAddCmd())
	return cmd
}

func membersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List member mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ident, err := resolveIdentity(cmd)
			if err != nil {
				return err
			}
			eng, cleanup, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			mappings, err := eng.ListMembers(cmd.Context(), ident)
			if err != nil {
				return err
			}
			if len(mappings) == 0 {
				fmt.Println(cli.FormatInfo("No member mappings."))
				return nil
			}
			for _, m := range mappings {
				state := "active"
				if !m.IsActive {
					state = "inactive"
				}
				fmt.Printf("%-30s %-12s %-8s groups: %s\n",
					m.Email, m.Name, state, strings.Join(m.Groups, ","))
			}
			return nil
		},
	}
}

func membersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <email> <first-name>",
		Short: "Create or update a member mapping",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ident, err := resolveIdentity(cmd)
			if err != nil {
				return err
			}
			eng, cleanup, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			groups, _ := cmd.Flags().GetStringSlice("groups")
			inactive, _ := cmd.Flags().GetBool("inactive")

			mapping, err := eng.UpsertMember(cmd.Context(), ident, args[0], args[1], groups, !inactive)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Saved mapping %s -> %s", mapping.Email, mapping.Name)))
			return nil
		},
	}
	cmd.Flags().StringSlice("groups", nil, "Splitwise group ids this member can see")
	cmd.Flags().Bool("inactive", false, "save the mapping as deactivated")
	return cmd
}

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/splitwarden/splitwarden/internal/cli"
)

func splitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "splits",
		Short: "Browse mirrored splits",
	}
	cmd.AddCommand(splitsListCmd())
	cmd.AddCommand(splitsShowCmd())
	return cmd
}

func splitsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the splits you can see",
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

			splits, err := eng.ListMySplits(cmd.Context(), ident)
			if err != nil {
				return err
			}
			if len(splits) == 0 {
				fmt.Println(cli.FormatInfo("No splits visible to you."))
				return nil
			}
			for _, s := range splits {
				fmt.Printf("%s  %-10s $%-9s %-24s %s\n",
					s.ID, s.SplitwiseID, s.TotalAmount.StringFixed(2), s.Description, s.GroupName)
			}
			return nil
		},
	}
}

func splitsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <split-id>",
		Short: "Show one split's items and member shares",
		Args:  cobra.ExactArgs(1),
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

			s, err := eng.GetSplit(cmd.Context(), ident, args[0])
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("%s ($%s, paid by %s)",
				s.Description, s.TotalAmount.StringFixed(2), s.PaidBy)))
			for _, item := range s.Items {
				fmt.Printf("  %-24s $%-9s %s\n",
					item.Name, item.Price.StringFixed(2), strings.Join(item.Members, ", "))
			}

			fmt.Println()
			members := make([]string, 0, len(s.MemberSplits))
			for name := range s.MemberSplits {
				members = append(members, name)
			}
			sort.Strings(members)
			for _, name := range members {
				fmt.Printf("  %-12s owes $%s\n", name, s.MemberSplits[name].StringFixed(2))
			}
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitwarden/splitwarden/internal/cli"
)

func previewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <expense-id>",
		Short: "Show the cost changes approved requests would cause",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}
	cmd.Flags().Bool("note", false, "also print the note that would be written to Splitwise")
	return cmd
}

func runPreview(cmd *cobra.Command, args []string) error {
	ident, err := resolveIdentity(cmd)
	if err != nil {
		return err
	}
	eng, cleanup, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	preview, err := eng.PreviewChanges(cmd.Context(), ident, args[0])
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderPreview(preview))
	if showNote, _ := cmd.Flags().GetBool("note"); showNote && preview.HasChanges {
		fmt.Println()
		fmt.Println(cli.RenderBox("Note preview", preview.NotePreview))
	}
	return nil
}

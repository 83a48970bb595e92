package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/splitwarden/splitwarden/internal/cli"
	"github.com/splitwarden/splitwarden/internal/engine"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [expense-id]",
		Short: "Mirror Splitwise expenses locally",
		Long: `Import one expense by id, or a date window of expenses with
--start-date/--end-date. Only expenses whose note carries an itemized
breakdown can be imported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("start-date", "", "bulk import: window start (YYYY-MM-DD)")
	cmd.Flags().String("end-date", "", "bulk import: window end (YYYY-MM-DD, inclusive)")
	cmd.Flags().Int64("group", 0, "bulk import: restrict to one Splitwise group id")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ident, err := resolveIdentity(cmd)
	if err != nil {
		return err
	}
	eng, cleanup, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if len(args) == 1 {
		expenseID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("expense id must be numeric, got %q", args[0])
		}
		s, status, err := eng.ImportExpense(cmd.Context(), ident, expenseID)
		if err != nil {
			return err
		}
		switch status {
		case engine.ImportStatusAlreadyExists:
			fmt.Println(cli.FormatInfo(fmt.Sprintf("Expense %d already mirrored as %s", expenseID, s.ID)))
		default:
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %q with %d items", s.Description, len(s.Items))))
		}
		return nil
	}

	opts, err := bulkOptions(cmd)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	opts.Progress = func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Importing expenses..."),
			)
		}
		_ = bar.Set(done)
	}

	result, err := eng.BulkImport(cmd.Context(), ident, opts)
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Found %d, imported %d, already existed %d, without item data %d, failed %d",
		result.Found, result.Imported, result.AlreadyExisted, result.NoItemData, result.Failed)))
	for _, o := range result.Outcomes {
		if o.Status == engine.ImportStatusFailed {
			fmt.Println(cli.FormatError(fmt.Sprintf("%d %s: %s", o.ExpenseID, o.Description, o.Reason)))
		}
	}
	return nil
}

func bulkOptions(cmd *cobra.Command) (engine.BulkImportOptions, error) {
	opts := engine.BulkImportOptions{}
	opts.GroupID, _ = cmd.Flags().GetInt64("group")

	parse := func(flag string) (time.Time, error) {
		v, _ := cmd.Flags().GetString(flag)
		if v == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD", flag, v)
		}
		return t, nil
	}

	var err error
	if opts.Start, err = parse("start-date"); err != nil {
		return opts, err
	}
	if opts.End, err = parse("end-date"); err != nil {
		return opts, err
	}
	if !opts.End.IsZero() {
		// Inclusive end of day.
		opts.End = opts.End.Add(24*time.Hour - time.Nanosecond)
	}
	return opts, nil
}

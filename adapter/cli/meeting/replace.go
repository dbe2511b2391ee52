package meeting

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/classplan/adapter/cli"
	"github.com/spf13/cobra"
)

// ErrReplaceNotConfirmed guards the destructive replace.
var ErrReplaceNotConfirmed = errors.New("replace deletes every meeting of the section; rerun with --confirm")

var (
	replaceFlags   requestFlags
	replaceConfirm bool
)

var replaceCmd = &cobra.Command{
	Use:   "replace [section-id]",
	Short: "Replace a section's whole meeting pattern",
	Long: `Delete every existing meeting of the section and schedule the new
pattern in its place. Without --all-or-nothing the deletion stands even
when some new days conflict, so the section can end up with fewer
meetings than before.

Examples:
  classplan meeting replace CS-101 --pattern monday-wednesday-friday --start 09:00 --end 09:50 --room R-204 --confirm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Scheduler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Meeting scheduling requires database connection.")
			return nil
		}
		if !replaceConfirm {
			return ErrReplaceNotConfirmed
		}

		req, err := replaceFlags.request(args[0])
		if err != nil {
			return err
		}

		result, err := app.Scheduler.ReplacePattern(cmd.Context(), req.SectionID, req)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d existing meetings.\n", result.DeletedCount)
		printBatch(cmd.OutOrStdout(), req.SectionID, result.CommittedCount+len(result.Errors), &result.BatchResult)
		if result.CommittedCount == 0 && len(result.Errors) > 0 {
			return ErrNothingScheduled
		}
		return nil
	},
}

func init() {
	replaceFlags.bind(replaceCmd)
	replaceCmd.Flags().BoolVar(&replaceConfirm, "confirm", false, "confirm deleting the section's current meetings")
}

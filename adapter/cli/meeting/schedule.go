package meeting

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/classplan/adapter/cli"
	"github.com/spf13/cobra"
)

// ErrNothingScheduled is returned when every requested day failed.
var ErrNothingScheduled = errors.New("no meetings were scheduled")

var scheduleFlags requestFlags

var scheduleCmd = &cobra.Command{
	Use:   "schedule [section-id]",
	Short: "Schedule a section's meetings from a pattern",
	Long: `Expand a pattern into one meeting per weekday and commit each day
that has no room or section conflict. Days that conflict are reported
individually; use --all-or-nothing to commit every day or none.

Examples:
  classplan meeting schedule CS-101 --pattern tuesday-thursday --start 10:00 --end 11:15 --room R-204
  classplan meeting schedule CS-101 --pattern single --day friday --start 13:00 --end 14:00 --location virtual --url https://meet.example/cs101`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Scheduler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Meeting scheduling requires database connection.")
			return nil
		}

		req, err := scheduleFlags.request(args[0])
		if err != nil {
			return err
		}

		result, err := app.Scheduler.ScheduleBatch(cmd.Context(), req)
		if err != nil {
			return err
		}

		printBatch(cmd.OutOrStdout(), req.SectionID, result.CommittedCount+len(result.Errors), result)
		if result.CommittedCount == 0 && len(result.Errors) > 0 {
			return ErrNothingScheduled
		}
		return nil
	},
}

func init() {
	scheduleFlags.bind(scheduleCmd)
}

package meeting

import (
	"fmt"

	"github.com/felixgeelhaar/classplan/adapter/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [meeting-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a single meeting",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Scheduler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Meeting deletion requires database connection.")
			return nil
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid meeting id: %w", err)
		}

		if err := app.Scheduler.DeleteMeeting(cmd.Context(), id); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted meeting %s\n", id)
		return nil
	},
}

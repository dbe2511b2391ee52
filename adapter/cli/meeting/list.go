package meeting

import (
	"fmt"

	"github.com/felixgeelhaar/classplan/adapter/cli"
	"github.com/felixgeelhaar/classplan/internal/scheduling/application/queries"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list [section-id]",
	Aliases: []string{"ls"},
	Short:   "List a section's meetings",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ListSectionMeetingsHandler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Meeting listing requires database connection.")
			return nil
		}

		result, err := app.ListSectionMeetingsHandler.Handle(cmd.Context(), queries.ListSectionMeetingsQuery{
			SectionID: args[0],
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(result.Meetings) == 0 {
			fmt.Fprintf(out, "No meetings scheduled for %s.\n", result.SectionID)
			return nil
		}

		fmt.Fprintf(out, "%s (%s)\n", result.SectionID, result.Pattern)
		for _, m := range result.Meetings {
			where := m.LocationType
			if m.RoomID != "" {
				where += " room " + m.RoomID
			}
			if m.MeetingURL != "" {
				where += " " + m.MeetingURL
			}
			fmt.Fprintf(out, "  %-9s %s-%s  %s  [%s]\n", m.Weekday, m.Start, m.End, where, m.ID)
		}
		return nil
	},
}

package meeting

import "github.com/spf13/cobra"

// Cmd is the meeting command group.
var Cmd = &cobra.Command{
	Use:   "meeting",
	Short: "Schedule and manage class meetings",
	Long: `Schedule a section's weekly meetings from a pattern, replace a
section's pattern, move or delete single meetings, and list or export
what is scheduled.`,
}

func init() {
	Cmd.AddCommand(scheduleCmd)
	Cmd.AddCommand(replaceCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(exportCmd)
}

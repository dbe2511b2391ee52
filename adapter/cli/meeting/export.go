package meeting

import (
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/classplan/adapter/cli"
	"github.com/felixgeelhaar/classplan/internal/scheduling/application/queries"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var (
	exportTermStart string
	exportTermEnd   string
	exportOutput    string
)

var exportCmd = &cobra.Command{
	Use:   "export [section-id]",
	Short: "Export a section's meetings as an iCalendar file",
	Long: `Render each meeting as a weekly recurring event between the first and
last day of the term. Times are interpreted in the configured timezone.

Examples:
  classplan meeting export CS-101 --term-start 2026-09-01 --term-end 2026-12-18
  classplan meeting export CS-101 --term-start 2026-09-01 --term-end 2026-12-18 -o cs101.ics`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ExportSectionCalendarHandler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Calendar export requires database connection.")
			return nil
		}

		loc := app.Location
		if loc == nil {
			loc = time.UTC
		}
		termStart, err := time.ParseInLocation(dateLayout, exportTermStart, loc)
		if err != nil {
			return fmt.Errorf("--term-start must be YYYY-MM-DD: %w", err)
		}
		termEnd, err := time.ParseInLocation(dateLayout, exportTermEnd, loc)
		if err != nil {
			return fmt.Errorf("--term-end must be YYYY-MM-DD: %w", err)
		}

		result, err := app.ExportSectionCalendarHandler.Handle(cmd.Context(), queries.ExportSectionCalendarQuery{
			SectionID: args[0],
			TermStart: termStart,
			TermEnd:   termEnd,
			Location:  loc,
		})
		if err != nil {
			return err
		}

		if exportOutput == "" {
			_, err := cmd.OutOrStdout().Write(result.Data)
			return err
		}

		if err := os.WriteFile(exportOutput, result.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write calendar: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d events to %s", result.EventCount, exportOutput)
		if result.Skipped > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), " (%d meetings fall outside the term)", result.Skipped)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportTermStart, "term-start", "", "first day of the term (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTermEnd, "term-end", "", "last day of the term (YYYY-MM-DD)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	_ = exportCmd.MarkFlagRequired("term-start")
	_ = exportCmd.MarkFlagRequired("term-end")
}

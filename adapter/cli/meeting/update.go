package meeting

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/classplan/adapter/cli"
	"github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// ErrLocationRequired is returned when --room or --url is given without --location.
var ErrLocationRequired = errors.New("--room and --url change the location; pass --location as well")

var (
	updateDay      string
	updateStart    string
	updateEnd      string
	updateLocation string
	updateRoom     string
	updateURL      string
	updateLabel    string
)

var updateCmd = &cobra.Command{
	Use:   "update [meeting-id]",
	Short: "Move a single meeting",
	Long: `Change the day, time or location of one meeting. Flags left empty keep
their current value. The moved meeting is checked for conflicts against
every other meeting.

Examples:
  classplan meeting update 3f2a... --day friday
  classplan meeting update 3f2a... --start 11:00 --end 12:15
  classplan meeting update 3f2a... --location virtual --url https://meet.example/cs101`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Scheduler == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Meeting updates require database connection.")
			return nil
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid meeting id: %w", err)
		}

		changes, err := updateChanges()
		if err != nil {
			return err
		}
		if changes.IsEmpty() {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to update.")
			return nil
		}

		m, err := app.Scheduler.UpdateMeeting(cmd.Context(), id, changes)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated meeting %s: %s %s-%s %s\n",
			m.ID(), m.Weekday(), m.Start(), m.End(), describeLocation(m.Location()))
		return nil
	},
}

func updateChanges() (domain.MeetingChanges, error) {
	var changes domain.MeetingChanges

	if strings.TrimSpace(updateDay) != "" {
		day, err := domain.ParseWeekday(updateDay)
		if err != nil {
			return changes, fmt.Errorf("--day: %w", err)
		}
		changes.Weekday = &day
	}
	if strings.TrimSpace(updateStart) != "" {
		start, err := domain.ParseTimeOfDay(updateStart)
		if err != nil {
			return changes, fmt.Errorf("--start: %w", err)
		}
		changes.Start = &start
	}
	if strings.TrimSpace(updateEnd) != "" {
		end, err := domain.ParseTimeOfDay(updateEnd)
		if err != nil {
			return changes, fmt.Errorf("--end: %w", err)
		}
		changes.End = &end
	}

	if strings.TrimSpace(updateLocation) != "" {
		locationType := domain.LocationType(strings.ToLower(strings.TrimSpace(updateLocation)))
		location, err := domain.NewLocation(locationType, optional(updateRoom), optional(updateURL))
		if err != nil {
			return changes, err
		}
		changes.Location = &location
	} else if strings.TrimSpace(updateRoom) != "" || strings.TrimSpace(updateURL) != "" {
		return changes, ErrLocationRequired
	}

	if updateLabel != "" {
		label := updateLabel
		changes.PatternLabel = &label
	}
	return changes, nil
}

func describeLocation(l domain.Location) string {
	parts := []string{string(l.Type)}
	if l.RoomID != nil {
		parts = append(parts, "room "+*l.RoomID)
	}
	if l.URL != nil {
		parts = append(parts, *l.URL)
	}
	return strings.Join(parts, " ")
}

func init() {
	updateCmd.Flags().StringVarP(&updateDay, "day", "d", "", "new weekday")
	updateCmd.Flags().StringVar(&updateStart, "start", "", "new start time HH:MM")
	updateCmd.Flags().StringVar(&updateEnd, "end", "", "new end time HH:MM")
	updateCmd.Flags().StringVarP(&updateLocation, "location", "l", "", "new location type: in-person, virtual or hybrid")
	updateCmd.Flags().StringVarP(&updateRoom, "room", "r", "", "room id for the new location")
	updateCmd.Flags().StringVar(&updateURL, "url", "", "meeting url for the new location")
	updateCmd.Flags().StringVar(&updateLabel, "label", "", "new free-text label")
}

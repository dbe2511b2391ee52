package meeting

import (
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/classplan/internal/scheduling/application/services"
	"github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// requestFlags are shared by schedule and replace.
type requestFlags struct {
	pattern      string
	day          string
	start        string
	end          string
	location     string
	room         string
	url          string
	label        string
	allOrNothing bool
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.pattern, "pattern", "p", string(domain.PatternSingle), "meeting pattern, e.g. tuesday-thursday")
	cmd.Flags().StringVarP(&f.day, "day", "d", "", "weekday for the single pattern")
	cmd.Flags().StringVar(&f.start, "start", "", "start time HH:MM")
	cmd.Flags().StringVar(&f.end, "end", "", "end time HH:MM")
	cmd.Flags().StringVarP(&f.location, "location", "l", string(domain.LocationInPerson), "in-person, virtual or hybrid")
	cmd.Flags().StringVarP(&f.room, "room", "r", "", "room id")
	cmd.Flags().StringVar(&f.url, "url", "", "meeting url for virtual and hybrid meetings")
	cmd.Flags().StringVar(&f.label, "label", "", "free-text label shown with each meeting")
	cmd.Flags().BoolVar(&f.allOrNothing, "all-or-nothing", false, "commit every day or none")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func (f *requestFlags) request(sectionID string) (services.ScheduleBatchRequest, error) {
	start, err := domain.ParseTimeOfDay(f.start)
	if err != nil {
		return services.ScheduleBatchRequest{}, fmt.Errorf("--start: %w", err)
	}
	end, err := domain.ParseTimeOfDay(f.end)
	if err != nil {
		return services.ScheduleBatchRequest{}, fmt.Errorf("--end: %w", err)
	}

	day := mo.None[domain.Weekday]()
	if strings.TrimSpace(f.day) != "" {
		d, err := domain.ParseWeekday(f.day)
		if err != nil {
			return services.ScheduleBatchRequest{}, fmt.Errorf("--day: %w", err)
		}
		day = mo.Some(d)
	}

	return services.ScheduleBatchRequest{
		SectionID:    sectionID,
		RoomID:       optional(f.room),
		LocationType: domain.LocationType(strings.ToLower(strings.TrimSpace(f.location))),
		MeetingURL:   optional(f.url),
		Start:        start,
		End:          end,
		Pattern:      domain.MeetingPattern(strings.ToLower(strings.TrimSpace(f.pattern))),
		Day:          day,
		PatternLabel: f.label,
		AllOrNothing: f.allOrNothing,
	}, nil
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

// printBatch reports committed days and per-day failures.
func printBatch(out io.Writer, sectionID string, requested int, result *services.BatchResult) {
	fmt.Fprintf(out, "Scheduled %d of %d meetings for %s.\n", result.CommittedCount, requested, sectionID)
	for _, id := range result.CreatedMeetingIDs {
		fmt.Fprintf(out, "  created %s\n", id)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  %s\n", e.Error())
	}
}

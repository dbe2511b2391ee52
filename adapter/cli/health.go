package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/classplan/pkg/observability"
	"github.com/spf13/cobra"
)

// ErrUnhealthy is returned when a required component fails its check.
var ErrUnhealthy = errors.New("classplan is unhealthy")

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database, lock store and publisher health",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Health == nil {
			return fmt.Errorf("app not initialized")
		}

		result := app.Health.Check(cmd.Context())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "status: %s\n", result.Status)

		names := make([]string, 0, len(result.Checks))
		for name := range result.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			check := result.Checks[name]
			line := fmt.Sprintf("  %-10s %s", name, check.Status)
			if check.Message != "" {
				line += " (" + check.Message + ")"
			}
			fmt.Fprintln(out, line)
		}

		if result.Status == observability.HealthStatusUnhealthy {
			return ErrUnhealthy
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

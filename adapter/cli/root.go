package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/felixgeelhaar/classplan/pkg/observability"
	"github.com/spf13/cobra"
)

var (
	actor   string
	verbose bool
	logger  *slog.Logger
)

type commandStartKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "classplan",
	Short: "classplan - class meeting scheduler",
	Long: `classplan places the weekly meetings of course sections into rooms
and time slots without double-booking a room or a section.

A meeting request names a pattern such as tuesday-thursday; classplan
expands it into one meeting per day and reports exactly which days were
committed and which conflicted.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		name := actor
		if name == "" && app != nil {
			name = app.Actor
		}
		ctx := observability.NewRequestContext(cmd.Context(), "")
		ctx = observability.WithActor(ctx, name)
		cmd.SetContext(context.WithValue(ctx, commandStartKey{}, time.Now()))
		logger.DebugContext(ctx, "command start", "command", cmd.CommandPath())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		started, ok := cmd.Context().Value(commandStartKey{}).(time.Time)
		if !ok {
			return
		}
		logger.DebugContext(cmd.Context(), "command end",
			"command", cmd.CommandPath(),
			observability.DurationKey, time.Since(started).Milliseconds(),
		)
	},
}

// Execute runs the root command with ctx and exits non-zero on failure.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "who is making the change (defaults to CLASSPLAN_ACTOR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Verbose reports whether --verbose was given.
func Verbose() bool {
	return verbose
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

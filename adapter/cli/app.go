package cli

import (
	"time"

	"github.com/felixgeelhaar/classplan/internal/scheduling/application/queries"
	"github.com/felixgeelhaar/classplan/internal/scheduling/application/services"
	"github.com/felixgeelhaar/classplan/pkg/observability"
)

// App holds the CLI application dependencies.
type App struct {
	Scheduler *services.BatchScheduler

	ListSectionMeetingsHandler   *queries.ListSectionMeetingsHandler
	ExportSectionCalendarHandler *queries.ExportSectionCalendarHandler

	// Location interprets meeting times for calendar exports.
	Location *time.Location
	// Actor is recorded on events unless --actor overrides it.
	Actor string

	Health *observability.HealthRegistry
}

// NewApp creates a new CLI application with the provided handlers.
func NewApp(
	scheduler *services.BatchScheduler,
	listSectionMeetingsHandler *queries.ListSectionMeetingsHandler,
	exportSectionCalendarHandler *queries.ExportSectionCalendarHandler,
) *App {
	return &App{
		Scheduler:                    scheduler,
		ListSectionMeetingsHandler:   listSectionMeetingsHandler,
		ExportSectionCalendarHandler: exportSectionCalendarHandler,
		Location:                     time.UTC,
	}
}

// SetLocation sets the timezone used for exports.
func (a *App) SetLocation(loc *time.Location) {
	if loc != nil {
		a.Location = loc
	}
}

// SetActor sets the default actor.
func (a *App) SetActor(actor string) {
	a.Actor = actor
}

// SetHealth sets the registry checked by the health command.
func (a *App) SetHealth(registry *observability.HealthRegistry) {
	a.Health = registry
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}

package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/classplan/internal/scheduling/application/services"
	"github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/classplan/internal/scheduling/infrastructure/locking"
	"github.com/felixgeelhaar/classplan/internal/scheduling/infrastructure/persistence"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/classplan/pkg/observability"
)

type fixture struct {
	conn      database.Connection
	repo      domain.MeetingRepository
	outbox    *outbox.SQLRepository
	scheduler *services.BatchScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil, nil)
}

// newFixtureWith builds a scheduler over a fresh SQLite database. wrap, when
// set, decorates the real repository the scheduler sees.
func newFixtureWith(t *testing.T, wrap func(domain.MeetingRepository) domain.MeetingRepository, locker locking.SlotLocker) *fixture {
	t.Helper()
	ctx := context.Background()

	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: filepath.Join(t.TempDir(), "classplan.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))

	repo := persistence.NewSQLiteMeetingRepository(conn)
	var schedulerRepo domain.MeetingRepository = repo
	if wrap != nil {
		schedulerRepo = wrap(repo)
	}
	outboxRepo := outbox.NewSQLRepository(conn)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		conn:      conn,
		repo:      repo,
		outbox:    outboxRepo,
		scheduler: services.NewBatchScheduler(schedulerRepo, outboxRepo, database.NewUnitOfWork(conn), locker, logger),
	}
}

func (f *fixture) sectionMeetings(t *testing.T, sectionID string) []*domain.Meeting {
	t.Helper()
	meetings, err := f.repo.FindBySection(context.Background(), sectionID)
	require.NoError(t, err)
	return meetings
}

func (f *fixture) pendingEvents(t *testing.T) []*outbox.Message {
	t.Helper()
	msgs, err := f.outbox.GetUnpublished(context.Background(), 1000)
	require.NoError(t, err)
	return msgs
}

func strPtr(s string) *string { return &s }

func inPersonRequest(section, room string, pattern domain.MeetingPattern, start, end string) services.ScheduleBatchRequest {
	return services.ScheduleBatchRequest{
		SectionID:    section,
		RoomID:       strPtr(room),
		LocationType: domain.LocationInPerson,
		Start:        domain.MustTimeOfDay(start),
		End:          domain.MustTimeOfDay(end),
		Pattern:      pattern,
	}
}

func singleRequest(section, room string, day domain.Weekday, start, end string) services.ScheduleBatchRequest {
	req := inPersonRequest(section, room, domain.PatternSingle, start, end)
	req.Day = mo.Some(day)
	return req
}

func reasons(result *services.BatchResult) map[domain.Weekday]services.DayErrorReason {
	out := make(map[domain.Weekday]services.DayErrorReason, len(result.Errors))
	for _, e := range result.Errors {
		out[e.Weekday] = e.Reason
	}
	return out
}

func TestScheduleBatch_EndToEndTuesdayThursday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.scheduler.ScheduleBatch(ctx, inPersonRequest("SEC-01", "R1", domain.PatternTuesdayThursday, "13:00", "14:15"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.CommittedCount)
	assert.Len(t, result.CreatedMeetingIDs, 2)
	assert.Empty(t, result.Errors)

	meetings := f.sectionMeetings(t, "SEC-01")
	require.Len(t, meetings, 2)
	assert.Equal(t, domain.Tuesday, meetings[0].Weekday())
	assert.Equal(t, domain.Thursday, meetings[1].Weekday())
	for _, m := range meetings {
		assert.Equal(t, "13:00:00", m.Start().String())
		assert.Equal(t, "14:15:00", m.End().String())
		assert.Equal(t, "R1", m.RoomID().OrEmpty())
		assert.Contains(t, result.CreatedMeetingIDs, m.ID())
	}
}

func TestScheduleBatch_WeeklyRoomIndependence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.scheduler.ScheduleBatch(ctx, inPersonRequest("SEC-S", "R", domain.PatternWeekly, "09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, 5, first.CommittedCount)
	assert.Empty(t, first.Errors)

	second, err := f.scheduler.ScheduleBatch(ctx, inPersonRequest("SEC-T", "R", domain.PatternWeekly, "09:00", "10:00"))
	require.NoError(t, err)
	assert.Zero(t, second.CommittedCount)
	assert.Empty(t, second.CreatedMeetingIDs)
	require.Len(t, second.Errors, 5)
	for i, e := range second.Errors {
		assert.Equal(t, domain.AllWeekdays()[i], e.Weekday, "errors follow pattern order")
		assert.Equal(t, services.ReasonRoomConflict, e.Reason)
		assert.ErrorIs(t, e.Err, domain.ErrRoomConflict)
	}
}

func TestScheduleBatch_PartialBatchReporting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-OTHER", "R", domain.Monday, "09:00", "10:00"))
	require.NoError(t, err)

	result, err := f.scheduler.ScheduleBatch(ctx, inPersonRequest("SEC-NEW", "R", domain.PatternMondayWednesdayFriday, "09:30", "10:30"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.CommittedCount)
	assert.Len(t, result.CreatedMeetingIDs, 2)
	assert.True(t, result.IsPartial())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, domain.Monday, result.Errors[0].Weekday)
	assert.Equal(t, services.ReasonRoomConflict, result.Errors[0].Reason)

	meetings := f.sectionMeetings(t, "SEC-NEW")
	require.Len(t, meetings, 2)
	assert.Equal(t, domain.Wednesday, meetings[0].Weekday())
	assert.Equal(t, domain.Friday, meetings[1].Weekday())
}

func TestScheduleBatch_TouchingIntervalsDoNotConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-A", "R", domain.Monday, "09:00", "10:00"))
	require.NoError(t, err)

	result, err := f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-B", "R", domain.Monday, "10:00", "11:00"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.CommittedCount)
}

func TestScheduleBatch_SectionConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-A", "R1", domain.Monday, "09:00", "10:00"))
	require.NoError(t, err)

	result, err := f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-A", "R2", domain.Monday, "09:30", "10:30"))
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, services.ReasonSectionConflict, result.Errors[0].Reason)
	assert.ErrorIs(t, result.Errors[0].Err, domain.ErrSectionConflict)
}

func TestScheduleBatch_RoomReportedBeforeSection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-A", "R1", domain.Monday, "09:00", "10:00"))
	require.NoError(t, err)

	result, err := f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-A", "R1", domain.Monday, "09:00", "10:00"))
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, services.ReasonRoomConflict, result.Errors[0].Reason)
	assert.ErrorIs(t, result.Errors[0].Err, domain.ErrRoomConflict)
	assert.ErrorIs(t, result.Errors[0].Err, domain.ErrSectionConflict)
}

func TestScheduleBatch_VirtualMeetingsShareNoRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	virtual := func(section string) services.ScheduleBatchRequest {
		return services.ScheduleBatchRequest{
			SectionID:    section,
			LocationType: domain.LocationVirtual,
			MeetingURL:   strPtr("https://meet.example.edu/" + section),
			Start:        domain.MustTimeOfDay("09:00"),
			End:          domain.MustTimeOfDay("10:00"),
			Pattern:      domain.PatternTuesdayThursday,
		}
	}

	for _, section := range []string{"SEC-V1", "SEC-V2"} {
		result, err := f.scheduler.ScheduleBatch(ctx, virtual(section))
		require.NoError(t, err)
		assert.Equal(t, 2, result.CommittedCount)
	}
}

func TestScheduleBatch_FailsFastOnRequestShape(t *testing.T) {
	noDay := inPersonRequest("SEC-01", "R1", domain.PatternSingle, "09:00", "10:00")

	noRoom := inPersonRequest("SEC-01", "R1", domain.PatternWeekly, "09:00", "10:00")
	noRoom.RoomID = nil

	hybridNoURL := inPersonRequest("SEC-01", "R1", domain.PatternWeekly, "09:00", "10:00")
	hybridNoURL.LocationType = domain.LocationHybrid

	virtualWithRoom := inPersonRequest("SEC-01", "R1", domain.PatternWeekly, "09:00", "10:00")
	virtualWithRoom.LocationType = domain.LocationVirtual
	virtualWithRoom.MeetingURL = strPtr("https://meet.example.edu/x")

	tests := []struct {
		name    string
		req     services.ScheduleBatchRequest
		wantErr error
	}{
		{"unknown pattern", inPersonRequest("SEC-01", "R1", "every-other-day", "09:00", "10:00"), domain.ErrInvalidPattern},
		{"single without day", noDay, domain.ErrMissingDayOfWeek},
		{"in-person without room", noRoom, domain.ErrInvalidLocation},
		{"hybrid without url", hybridNoURL, domain.ErrInvalidLocation},
		{"virtual with room", virtualWithRoom, domain.ErrInvalidLocation},
		{"end before start", inPersonRequest("SEC-01", "R1", domain.PatternWeekly, "10:00", "09:00"), domain.ErrInvalidTimeRange},
		{"empty interval", inPersonRequest("SEC-01", "R1", domain.PatternWeekly, "10:00", "10:00"), domain.ErrInvalidTimeRange},
		{"blank section", inPersonRequest("  ", "R1", domain.PatternWeekly, "09:00", "10:00"), domain.ErrMeetingEmptySection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			result, err := f.scheduler.ScheduleBatch(context.Background(), tt.req)

			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.sectionMeetings(t, "SEC-01"))
			assert.Empty(t, f.pendingEvents(t))
		})
	}
}

func TestScheduleBatch_SingleUsesExplicitDay(t *testing.T) {
	f := newFixture(t)

	result, err := f.scheduler.ScheduleBatch(context.Background(), singleRequest("SEC-01", "R1", domain.Tuesday, "09:00", "10:00"))
	require.NoError(t, err)
	require.Equal(t, 1, result.CommittedCount)

	meetings := f.sectionMeetings(t, "SEC-01")
	require.Len(t, meetings, 1)
	assert.Equal(t, domain.Tuesday, meetings[0].Weekday())
}

func TestScheduleBatch_WritesEventsWithContextMetadata(t *testing.T) {
	f := newFixture(t)
	correlationID := uuid.New()
	ctx := observability.WithCorrelationID(context.Background(), correlationID.String())
	ctx = observability.WithActor(ctx, "registrar")

	req := inPersonRequest("SEC-01", "R1", domain.PatternTuesdayThursday, "13:00", "14:15")
	req.PatternLabel = "TTh afternoon"
	_, err := f.scheduler.ScheduleBatch(ctx, req)
	require.NoError(t, err)

	msgs := f.pendingEvents(t)
	require.Len(t, msgs, 2)
	for _, msg := range msgs {
		assert.Equal(t, domain.RoutingKeyMeetingScheduled, msg.RoutingKey)
		assert.Equal(t, domain.AggregateType, msg.AggregateType)
		assert.Contains(t, string(msg.Metadata), correlationID.String())
		assert.Contains(t, string(msg.Metadata), "registrar")
		assert.Contains(t, string(msg.Payload), `"section_id":"SEC-01"`)
		assert.Contains(t, string(msg.Payload), `"pattern_label":"TTh afternoon"`)
	}
}

func TestScheduleBatch_AllOrNothingRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-OTHER", "R", domain.Monday, "09:00", "10:00"))
	require.NoError(t, err)
	eventsBefore := len(f.pendingEvents(t))

	req := inPersonRequest("SEC-NEW", "R", domain.PatternMondayWednesdayFriday, "09:30", "10:30")
	req.AllOrNothing = true
	result, err := f.scheduler.ScheduleBatch(ctx, req)
	require.NoError(t, err)

	assert.Zero(t, result.CommittedCount)
	assert.Empty(t, result.CreatedMeetingIDs)
	assert.Equal(t, map[domain.Weekday]services.DayErrorReason{
		domain.Monday:    services.ReasonRoomConflict,
		domain.Wednesday: services.ReasonRolledBack,
		domain.Friday:    services.ReasonRolledBack,
	}, reasons(result))
	assert.Equal(t, []domain.Weekday{domain.Monday, domain.Wednesday, domain.Friday}, result.FailedDays())

	assert.Empty(t, f.sectionMeetings(t, "SEC-NEW"))
	assert.Len(t, f.pendingEvents(t), eventsBefore, "rolled back meetings leave no events")
}

func TestScheduleBatch_AllOrNothingCommits(t *testing.T) {
	f := newFixture(t)

	req := inPersonRequest("SEC-NEW", "R", domain.PatternMondayWednesdayFriday, "09:30", "10:30")
	req.AllOrNothing = true
	result, err := f.scheduler.ScheduleBatch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, result.CommittedCount)
	assert.Empty(t, result.Errors)
	assert.Len(t, f.sectionMeetings(t, "SEC-NEW"), 3)
	assert.Len(t, f.pendingEvents(t), 3)
}

// failingInsertRepo fails inserts on one weekday.
type failingInsertRepo struct {
	domain.MeetingRepository
	day domain.Weekday
	err error
}

func (r *failingInsertRepo) Insert(ctx context.Context, m *domain.Meeting) error {
	if m.Weekday() == r.day {
		return r.err
	}
	return r.MeetingRepository.Insert(ctx, m)
}

func TestScheduleBatch_PersistenceErrorIsPerDay(t *testing.T) {
	diskFull := errors.New("disk full")
	f := newFixtureWith(t, func(repo domain.MeetingRepository) domain.MeetingRepository {
		return &failingInsertRepo{MeetingRepository: repo, day: domain.Wednesday, err: diskFull}
	}, nil)

	result, err := f.scheduler.ScheduleBatch(context.Background(), inPersonRequest("SEC-01", "R1", domain.PatternMondayWednesdayFriday, "09:00", "10:00"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.CommittedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, domain.Wednesday, result.Errors[0].Weekday)
	assert.Equal(t, services.ReasonPersistenceError, result.Errors[0].Reason)
	assert.ErrorIs(t, result.Errors[0].Err, diskFull)
}

// blindReadsRepo hides existing meetings from the upfront check so only the
// storage constraint can catch an overlap.
type blindReadsRepo struct {
	domain.MeetingRepository
}

func (r *blindReadsRepo) FindByRoomAndWeekday(context.Context, string, domain.Weekday) ([]*domain.Meeting, error) {
	return nil, nil
}

func (r *blindReadsRepo) FindBySectionAndWeekday(context.Context, string, domain.Weekday) ([]*domain.Meeting, error) {
	return nil, nil
}

func TestScheduleBatch_StorageConflictSurfacesAsConflict(t *testing.T) {
	f := newFixtureWith(t, func(repo domain.MeetingRepository) domain.MeetingRepository {
		return &blindReadsRepo{MeetingRepository: repo}
	}, nil)
	ctx := context.Background()

	_, err := f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-A", "R", domain.Monday, "09:00", "10:00"))
	require.NoError(t, err)

	result, err := f.scheduler.ScheduleBatch(ctx, inPersonRequest("SEC-B", "R", domain.PatternMondayWednesday, "09:30", "10:30"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.CommittedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, domain.Monday, result.Errors[0].Weekday)
	assert.Equal(t, services.ReasonRoomConflict, result.Errors[0].Reason)
}

type stubLocker struct {
	err error
}

func (l stubLocker) Acquire(context.Context, ...string) (func(), error) {
	return nil, l.err
}

func TestScheduleBatch_LockTimeoutIsPersistenceError(t *testing.T) {
	f := newFixtureWith(t, nil, stubLocker{err: locking.ErrLockTimeout})

	result, err := f.scheduler.ScheduleBatch(context.Background(), inPersonRequest("SEC-01", "R1", domain.PatternTuesdayThursday, "09:00", "10:00"))
	require.NoError(t, err)

	assert.Zero(t, result.CommittedCount)
	require.Len(t, result.Errors, 2)
	for _, e := range result.Errors {
		assert.Equal(t, services.ReasonPersistenceError, e.Reason)
		assert.ErrorIs(t, e.Err, locking.ErrLockTimeout)
	}
}

func TestScheduleBatch_ConcurrentRequestsNeverDoubleBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const callers = 4
	var wg sync.WaitGroup
	results := make([]*services.BatchResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			section := "SEC-" + string(rune('A'+i))
			result, err := f.scheduler.ScheduleBatch(ctx, inPersonRequest(section, "R-SHARED", domain.PatternWeekly, "09:00", "10:00"))
			if assert.NoError(t, err) {
				results[i] = result
			}
		}(i)
	}
	wg.Wait()

	committed := 0
	for _, r := range results {
		require.NotNil(t, r)
		committed += r.CommittedCount
	}
	assert.Equal(t, 5, committed, "each weekday is won by exactly one caller")

	for _, day := range domain.AllWeekdays()[:5] {
		booked, err := f.repo.FindByRoomAndWeekday(ctx, "R-SHARED", day)
		require.NoError(t, err)
		assert.Len(t, booked, 1, day.String())
	}
}

func TestReplacePattern_IsDestructive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scheduler.ScheduleBatch(ctx, inPersonRequest("SEC-01", "R1", domain.PatternMondayWednesdayFriday, "09:00", "10:00"))
	require.NoError(t, err)
	_, err = f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-02", "R2", domain.Tuesday, "09:00", "10:00"))
	require.NoError(t, err)
	require.Len(t, f.sectionMeetings(t, "SEC-01"), 3)

	result, err := f.scheduler.ReplacePattern(ctx, "SEC-01", singleRequest("", "R2", domain.Tuesday, "09:00", "10:00"))
	require.NoError(t, err)

	assert.Equal(t, 3, result.DeletedCount)
	assert.Zero(t, result.CommittedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, domain.Tuesday, result.Errors[0].Weekday)
	assert.Equal(t, services.ReasonRoomConflict, result.Errors[0].Reason)
	assert.Empty(t, f.sectionMeetings(t, "SEC-01"), "old meetings are gone even though the new one failed")

	var replaced *outbox.Message
	for _, msg := range f.pendingEvents(t) {
		if msg.RoutingKey == domain.RoutingKeySectionPatternReplaced {
			replaced = msg
		}
	}
	require.NotNil(t, replaced)
	assert.Equal(t, "SEC-01", replaced.AggregateID)
	assert.Contains(t, string(replaced.Payload), `"deleted_count":3`)
	assert.Contains(t, string(replaced.Payload), `"failed_days":["tuesday"]`)
}

func TestReplacePattern_AllOrNothingKeepsOldMeetings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scheduler.ScheduleBatch(ctx, inPersonRequest("SEC-01", "R1", domain.PatternMondayWednesdayFriday, "09:00", "10:00"))
	require.NoError(t, err)
	_, err = f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-02", "R2", domain.Tuesday, "09:00", "10:00"))
	require.NoError(t, err)

	req := singleRequest("SEC-01", "R2", domain.Tuesday, "09:00", "10:00")
	req.AllOrNothing = true
	result, err := f.scheduler.ReplacePattern(ctx, "SEC-01", req)
	require.NoError(t, err)

	assert.Zero(t, result.DeletedCount)
	assert.Zero(t, result.CommittedCount)
	assert.Len(t, f.sectionMeetings(t, "SEC-01"), 3)
}

func TestReplacePattern_ReexpandsNewPattern(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scheduler.ScheduleBatch(ctx, inPersonRequest("SEC-01", "R1", domain.PatternMondayWednesdayFriday, "09:00", "10:00"))
	require.NoError(t, err)

	result, err := f.scheduler.ReplacePattern(ctx, "SEC-01", inPersonRequest("ignored", "R1", domain.PatternTuesdayThursday, "09:00", "10:15"))
	require.NoError(t, err)

	assert.Equal(t, 3, result.DeletedCount)
	assert.Equal(t, 2, result.CommittedCount)
	assert.Empty(t, result.Errors)

	meetings := f.sectionMeetings(t, "SEC-01")
	require.Len(t, meetings, 2)
	assert.Equal(t, domain.PatternTuesdayThursday, domain.DerivedPatternLabel(meetings))
}

func TestReplacePattern_InvalidRequestDeletesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scheduler.ScheduleBatch(ctx, inPersonRequest("SEC-01", "R1", domain.PatternMondayWednesdayFriday, "09:00", "10:00"))
	require.NoError(t, err)

	_, err = f.scheduler.ReplacePattern(ctx, "SEC-01", inPersonRequest("", "R1", domain.PatternSingle, "09:00", "10:00"))
	assert.ErrorIs(t, err, domain.ErrMissingDayOfWeek)
	assert.Len(t, f.sectionMeetings(t, "SEC-01"), 3)
}

func scheduleOne(t *testing.T, f *fixture, req services.ScheduleBatchRequest) uuid.UUID {
	t.Helper()
	result, err := f.scheduler.ScheduleBatch(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.CreatedMeetingIDs, 1)
	return result.CreatedMeetingIDs[0]
}

func TestUpdateMeeting_SelfExclusion(t *testing.T) {
	f := newFixture(t)
	id := scheduleOne(t, f, singleRequest("SEC-01", "R1", domain.Monday, "09:00", "10:00"))

	day := domain.Monday
	start := domain.MustTimeOfDay("09:00")
	label := "renamed"
	updated, err := f.scheduler.UpdateMeeting(context.Background(), id, domain.MeetingChanges{
		Weekday:      &day,
		Start:        &start,
		PatternLabel: &label,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.PatternLabel())
}

func TestUpdateMeeting_MovesAndEmitsEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := scheduleOne(t, f, singleRequest("SEC-01", "R1", domain.Monday, "09:00", "10:00"))

	day := domain.Thursday
	end := domain.MustTimeOfDay("10:30")
	updated, err := f.scheduler.UpdateMeeting(ctx, id, domain.MeetingChanges{Weekday: &day, End: &end})
	require.NoError(t, err)
	assert.Equal(t, domain.Thursday, updated.Weekday())

	stored, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Thursday, stored.Weekday())
	assert.Equal(t, "10:30:00", stored.End().String())

	var routingKeys []string
	for _, msg := range f.pendingEvents(t) {
		routingKeys = append(routingKeys, msg.RoutingKey)
	}
	assert.Contains(t, routingKeys, domain.RoutingKeyMeetingRescheduled)
}

func TestUpdateMeeting_ConflictLeavesMeetingUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scheduleOne(t, f, singleRequest("SEC-A", "R1", domain.Monday, "09:00", "10:00"))
	id := scheduleOne(t, f, singleRequest("SEC-B", "R1", domain.Monday, "10:00", "11:00"))

	start := domain.MustTimeOfDay("09:30")
	_, err := f.scheduler.UpdateMeeting(ctx, id, domain.MeetingChanges{Start: &start})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRoomConflict)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.Monday, conflict.Weekday)

	stored, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "10:00:00", stored.Start().String())
}

func TestUpdateMeeting_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := scheduleOne(t, f, singleRequest("SEC-01", "R1", domain.Monday, "09:00", "10:00"))

	_, err := f.scheduler.UpdateMeeting(ctx, uuid.New(), domain.MeetingChanges{})
	assert.ErrorIs(t, err, domain.ErrMeetingNotFound)

	end := domain.MustTimeOfDay("08:00")
	_, err = f.scheduler.UpdateMeeting(ctx, id, domain.MeetingChanges{End: &end})
	assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)

	virtual := domain.Location{Type: domain.LocationVirtual, RoomID: strPtr("R1"), URL: strPtr("https://x")}
	_, err = f.scheduler.UpdateMeeting(ctx, id, domain.MeetingChanges{Location: &virtual})
	assert.ErrorIs(t, err, domain.ErrInvalidLocation)
}

func TestDeleteMeeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := scheduleOne(t, f, singleRequest("SEC-01", "R1", domain.Monday, "09:00", "10:00"))

	require.NoError(t, f.scheduler.DeleteMeeting(ctx, id))
	assert.Empty(t, f.sectionMeetings(t, "SEC-01"))
	assert.ErrorIs(t, f.scheduler.DeleteMeeting(ctx, id), domain.ErrMeetingNotFound)

	msgs := f.pendingEvents(t)
	require.NotEmpty(t, msgs)
	assert.Equal(t, domain.RoutingKeyMeetingRemoved, msgs[len(msgs)-1].RoutingKey)

	// The freed slot can be booked again.
	result, err := f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-02", "R1", domain.Monday, "09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.CommittedCount)
}

func TestDayError_Error(t *testing.T) {
	e := services.DayError{Weekday: domain.Monday, Reason: services.ReasonRoomConflict, Err: domain.ErrRoomConflict}
	assert.Contains(t, e.Error(), "monday: RoomConflict")

	bare := services.DayError{Weekday: domain.Friday, Reason: services.ReasonRolledBack}
	assert.Equal(t, "friday: RolledBack", bare.Error())
}

func TestScheduleBatch_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	metrics := observability.NewInMemoryMetrics()
	f.scheduler.WithMetrics(metrics)
	ctx := context.Background()

	_, err := f.scheduler.ScheduleBatch(ctx, singleRequest("SEC-OTHER", "R", domain.Monday, "09:00", "10:00"))
	require.NoError(t, err)
	_, err = f.scheduler.ScheduleBatch(ctx, inPersonRequest("SEC-NEW", "R", domain.PatternMondayWednesdayFriday, "09:30", "10:30"))
	require.NoError(t, err)

	assert.Equal(t, int64(3), metrics.GetCounter(observability.MetricMeetingsCommitted))
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricDaysRejected, observability.T("reason", string(services.ReasonRoomConflict))))
	assert.Equal(t, int64(2), metrics.GetCounter(observability.MetricOperationTotal, observability.T(observability.OperationKey, "schedule_batch")))
	assert.Len(t, metrics.GetTimings(observability.MetricOperationDuration, observability.T(observability.OperationKey, "schedule_batch")), 2)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/felixgeelhaar/classplan/internal/scheduling/infrastructure/locking"
	sharedApplication "github.com/felixgeelhaar/classplan/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/classplan/internal/shared/domain"
	"github.com/felixgeelhaar/classplan/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/classplan/pkg/observability"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

// DayErrorReason classifies why a requested weekday was not committed.
type DayErrorReason string

const (
	ReasonRoomConflict     DayErrorReason = "RoomConflict"
	ReasonSectionConflict  DayErrorReason = "SectionConflict"
	ReasonPersistenceError DayErrorReason = "PersistenceError"

	// ReasonRolledBack marks a day that passed its own checks but was undone
	// because another day of an all-or-nothing batch failed.
	ReasonRolledBack DayErrorReason = "RolledBack"
)

// errBatchAborted rolls back an all-or-nothing batch; it never reaches callers.
var errBatchAborted = errors.New("batch aborted")

// DayError is the per-weekday failure of a batch.
type DayError struct {
	Weekday domain.Weekday
	Reason  DayErrorReason
	Err     error
}

func (e DayError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Weekday, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Weekday, e.Reason, e.Err)
}

// ScheduleBatchRequest is one user submission that expands to one meeting per weekday.
type ScheduleBatchRequest struct {
	SectionID    string
	RoomID       *string
	LocationType domain.LocationType
	MeetingURL   *string
	Start        domain.TimeOfDay
	End          domain.TimeOfDay
	Pattern      domain.MeetingPattern
	// Day is consulted only for the single pattern.
	Day          mo.Option[domain.Weekday]
	PatternLabel string
	// AllOrNothing commits every day or none. The default keeps whatever succeeded.
	AllOrNothing bool
}

// BatchResult reports exactly which days were committed and which failed.
// Every requested weekday appears in exactly one of the two lists.
type BatchResult struct {
	CommittedCount    int
	CreatedMeetingIDs []uuid.UUID
	Errors            []DayError
}

// IsPartial reports whether some but not all days were committed.
func (r *BatchResult) IsPartial() bool {
	return r.CommittedCount > 0 && len(r.Errors) > 0
}

// FailedDays lists the weekdays that were not committed, in request order.
func (r *BatchResult) FailedDays() []domain.Weekday {
	days := make([]domain.Weekday, 0, len(r.Errors))
	for _, e := range r.Errors {
		days = append(days, e.Weekday)
	}
	return days
}

// ReplacePatternResult is a BatchResult plus the number of meetings removed first.
type ReplacePatternResult struct {
	BatchResult
	DeletedCount int
}

// BatchScheduler expands meeting requests and commits them day by day,
// checking room and section conflicts under slot locks.
type BatchScheduler struct {
	repo       domain.MeetingRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	locker     locking.SlotLocker
	logger     *slog.Logger
	metrics    observability.Metrics
}

// NewBatchScheduler creates a BatchScheduler. A nil locker falls back to an
// in-process locker.
func NewBatchScheduler(
	repo domain.MeetingRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	locker locking.SlotLocker,
	logger *slog.Logger,
) *BatchScheduler {
	if locker == nil {
		locker = locking.NewLocalSlotLocker(locking.DefaultConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchScheduler{
		repo:       repo,
		outboxRepo: outboxRepo,
		uow:        uow,
		locker:     locker,
		logger:     logger,
		metrics:    observability.NoopMetrics{},
	}
}

// WithMetrics records committed and rejected days on m.
func (s *BatchScheduler) WithMetrics(m observability.Metrics) *BatchScheduler {
	if m != nil {
		s.metrics = m
	}
	return s
}

// preparedBatch is a request that passed the fail-fast validation.
type preparedBatch struct {
	request  ScheduleBatchRequest
	days     []domain.Weekday
	slot     domain.TimeSlot
	location domain.Location
}

func (s *BatchScheduler) prepare(req ScheduleBatchRequest) (*preparedBatch, error) {
	req.SectionID = strings.TrimSpace(req.SectionID)
	if req.SectionID == "" {
		return nil, domain.ErrMeetingEmptySection
	}
	location, err := domain.NewLocation(req.LocationType, req.RoomID, req.MeetingURL)
	if err != nil {
		return nil, err
	}
	slot, err := domain.NewTimeSlot(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	days, err := domain.ExpandPattern(req.Pattern, req.Day)
	if err != nil {
		return nil, err
	}
	return &preparedBatch{request: req, days: days, slot: slot, location: location}, nil
}

// newMeeting builds the candidate for one day.
func (b *preparedBatch) newMeeting(day domain.Weekday) (*domain.Meeting, error) {
	return domain.NewMeeting(b.request.SectionID, day, b.slot, b.location, b.request.PatternLabel)
}

// keys returns every slot key the batch can touch.
func (b *preparedBatch) keys() []string {
	roomID := mo.None[string]()
	if b.location.RoomID != nil {
		roomID = mo.Some(*b.location.RoomID)
	}
	var keys []string
	for _, day := range b.days {
		keys = append(keys, locking.SlotKeys(b.request.SectionID, roomID, day)...)
	}
	return keys
}

// ScheduleBatch validates the request, expands its pattern and commits one
// meeting per weekday. Request-shape errors are returned before storage is
// touched; per-day conflicts and storage failures are collected in the result.
func (s *BatchScheduler) ScheduleBatch(ctx context.Context, req ScheduleBatchRequest) (*BatchResult, error) {
	return observability.TimeOperationResult(ctx, s.logger, s.metrics, "schedule_batch", func(ctx context.Context) (*BatchResult, error) {
		batch, err := s.prepare(req)
		if err != nil {
			return nil, err
		}

		meta := eventMetadata(ctx)
		if req.AllOrNothing {
			return s.runAtomic(ctx, batch, meta, nil)
		}
		return s.runPartial(ctx, batch, meta), nil
	})
}

// runPartial commits each day in its own unit of work and keeps the successes.
func (s *BatchScheduler) runPartial(ctx context.Context, batch *preparedBatch, meta sharedDomain.EventMetadata) *BatchResult {
	result := &BatchResult{}
	for _, day := range batch.days {
		id, err := s.scheduleDay(ctx, batch, day, meta)
		if err != nil {
			dayErr := classify(day, err)
			result.Errors = append(result.Errors, dayErr)
			s.logDay(ctx, batch, day, string(dayErr.Reason), err)
			continue
		}
		result.CommittedCount++
		result.CreatedMeetingIDs = append(result.CreatedMeetingIDs, id)
		s.logDay(ctx, batch, day, "committed", nil)
	}
	return result
}

func (s *BatchScheduler) scheduleDay(ctx context.Context, batch *preparedBatch, day domain.Weekday, meta sharedDomain.EventMetadata) (uuid.UUID, error) {
	m, err := batch.newMeeting(day)
	if err != nil {
		return uuid.Nil, err
	}

	release, err := s.locker.Acquire(ctx, locking.MeetingKeys(m)...)
	if err != nil {
		return uuid.Nil, err
	}
	defer release()

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		conflict, err := s.check(txCtx, m, mo.None[uuid.UUID]())
		if err != nil {
			return err
		}
		if conflict != nil {
			return conflict
		}
		return s.insert(txCtx, m, meta)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return m.ID(), nil
}

// runAtomic commits the whole batch in one unit of work. before, when set,
// runs first inside the same unit of work.
func (s *BatchScheduler) runAtomic(
	ctx context.Context,
	batch *preparedBatch,
	meta sharedDomain.EventMetadata,
	before func(txCtx context.Context) error,
) (*BatchResult, error) {
	release, err := s.locker.Acquire(ctx, batch.keys()...)
	if err != nil {
		return failAll(batch.days, err), nil
	}
	defer release()

	var created []*domain.Meeting
	var beforeErr error
	failures := make(map[domain.Weekday]DayError)

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if before != nil {
			if err := before(txCtx); err != nil {
				beforeErr = err
				return err
			}
		}

		for _, day := range batch.days {
			m, err := batch.newMeeting(day)
			if err != nil {
				failures[day] = classify(day, err)
				break
			}
			conflict, err := s.check(txCtx, m, mo.None[uuid.UUID]())
			if err != nil {
				failures[day] = classify(day, err)
				break
			}
			if conflict != nil {
				// Nothing was written for this day, so later days can still be checked.
				failures[day] = classify(day, conflict)
				continue
			}
			if err := s.insert(txCtx, m, meta); err != nil {
				failures[day] = classify(day, err)
				break
			}
			created = append(created, m)
		}

		if len(failures) > 0 {
			return errBatchAborted
		}
		return nil
	})

	if beforeErr != nil {
		return nil, beforeErr
	}
	if err != nil && !errors.Is(err, errBatchAborted) {
		s.logger.ErrorContext(ctx, "all-or-nothing batch failed to commit",
			"section_id", batch.request.SectionID,
			"error", err,
		)
		return failAll(batch.days, err), nil
	}

	result := &BatchResult{}
	if len(failures) == 0 {
		for _, m := range created {
			result.CommittedCount++
			result.CreatedMeetingIDs = append(result.CreatedMeetingIDs, m.ID())
			s.logDay(ctx, batch, m.Weekday(), "committed", nil)
		}
		return result, nil
	}

	for _, day := range batch.days {
		dayErr, failed := failures[day]
		if !failed {
			dayErr = DayError{Weekday: day, Reason: ReasonRolledBack, Err: errBatchAborted}
		}
		result.Errors = append(result.Errors, dayErr)
		s.logDay(ctx, batch, day, string(dayErr.Reason), dayErr.Err)
	}
	return result, nil
}

// ReplacePattern deletes every meeting of the section and schedules the new
// request in its place. In the default mode the deletion is kept even when
// days of the new pattern fail, so the section may end up with fewer
// meetings than before. With AllOrNothing the deletion is undone as well.
func (s *BatchScheduler) ReplacePattern(ctx context.Context, sectionID string, req ScheduleBatchRequest) (*ReplacePatternResult, error) {
	return observability.TimeOperationResult(ctx, s.logger, s.metrics, "replace_pattern", func(ctx context.Context) (*ReplacePatternResult, error) {
		return s.replacePattern(ctx, sectionID, req)
	})
}

func (s *BatchScheduler) replacePattern(ctx context.Context, sectionID string, req ScheduleBatchRequest) (*ReplacePatternResult, error) {
	req.SectionID = sectionID
	batch, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	meta := eventMetadata(ctx)
	result := &ReplacePatternResult{}
	deleteAll := func(txCtx context.Context) error {
		n, err := s.repo.DeleteAllForSection(txCtx, batch.request.SectionID)
		if err != nil {
			return fmt.Errorf("delete meetings of section %s: %w", batch.request.SectionID, err)
		}
		result.DeletedCount = n
		return nil
	}

	if req.AllOrNothing {
		batchResult, err := s.runAtomic(ctx, batch, meta, deleteAll)
		if err != nil {
			return nil, err
		}
		result.BatchResult = *batchResult
		if batchResult.CommittedCount == 0 {
			result.DeletedCount = 0
			return result, nil
		}
	} else {
		if err := sharedApplication.WithUnitOfWork(ctx, s.uow, deleteAll); err != nil {
			return nil, err
		}
		result.BatchResult = *s.runPartial(ctx, batch, meta)
	}

	event := domain.NewSectionPatternReplaced(
		batch.request.SectionID,
		batch.request.Pattern,
		result.DeletedCount,
		result.CommittedCount,
		result.FailedDays(),
	)
	if err := sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		return s.saveEvents(txCtx, []sharedDomain.DomainEvent{event}, meta)
	}); err != nil {
		// The meetings are already committed; losing the summary event is logged, not fatal.
		s.logger.ErrorContext(ctx, "failed to record pattern replacement",
			"section_id", batch.request.SectionID,
			"error", err,
		)
	}

	s.metrics.Counter(observability.MetricMeetingsDeleted, int64(result.DeletedCount))
	s.logger.InfoContext(ctx, "section pattern replaced",
		"section_id", batch.request.SectionID,
		"pattern", string(batch.request.Pattern),
		"deleted", result.DeletedCount,
		"created", result.CommittedCount,
		"failed", len(result.Errors),
	)
	return result, nil
}

// UpdateMeeting applies a direct field change and re-runs conflict detection
// against everything except the meeting's own prior record.
func (s *BatchScheduler) UpdateMeeting(ctx context.Context, id uuid.UUID, changes domain.MeetingChanges) (*domain.Meeting, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if changes.IsEmpty() {
		return current, nil
	}

	keys := locking.MeetingKeys(current)
	if err := current.Apply(changes); err != nil {
		return nil, err
	}
	keys = append(keys, locking.MeetingKeys(current)...)

	release, err := s.locker.Acquire(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	meta := eventMetadata(ctx)
	updated, err := sharedApplication.WithUnitOfWorkResult(ctx, s.uow, func(txCtx context.Context) (*domain.Meeting, error) {
		m, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return nil, err
		}
		if err := m.Apply(changes); err != nil {
			return nil, err
		}

		conflict, err := s.check(txCtx, m, mo.Some(m.ID()))
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			return nil, conflict
		}

		if err := s.repo.Update(txCtx, m); err != nil {
			return nil, err
		}
		if err := s.saveEvents(txCtx, m.PullDomainEvents(), meta); err != nil {
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		s.logger.InfoContext(ctx, "meeting update rejected", "meeting_id", id, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "meeting updated",
		"meeting_id", id,
		"section_id", updated.SectionID(),
		"weekday", updated.Weekday().String(),
	)
	return updated, nil
}

// DeleteMeeting removes a single meeting.
func (s *BatchScheduler) DeleteMeeting(ctx context.Context, id uuid.UUID) error {
	meta := eventMetadata(ctx)
	err := sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		m, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		m.MarkRemoved()
		if err := s.repo.Delete(txCtx, id); err != nil {
			return err
		}
		return s.saveEvents(txCtx, m.PullDomainEvents(), meta)
	})
	if err != nil {
		return err
	}

	s.metrics.Counter(observability.MetricMeetingsDeleted, 1)
	s.logger.InfoContext(ctx, "meeting deleted", "meeting_id", id)
	return nil
}

// check loads the meetings sharing the candidate's room or section on its
// weekday and runs the conflict detector. A nil error and nil conflict means
// the candidate may be committed.
func (s *BatchScheduler) check(ctx context.Context, m *domain.Meeting, exclude mo.Option[uuid.UUID]) (*domain.ConflictError, error) {
	existing, err := s.repo.FindBySectionAndWeekday(ctx, m.SectionID(), m.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load section meetings: %w", err)
	}
	if roomID, ok := m.RoomID().Get(); ok {
		inRoom, err := s.repo.FindByRoomAndWeekday(ctx, roomID, m.Weekday())
		if err != nil {
			return nil, fmt.Errorf("load room meetings: %w", err)
		}
		existing = mergeMeetings(existing, inRoom)
	}

	result := domain.CheckConflict(m, existing, exclude)
	if !result.HasConflict() {
		return nil, nil
	}
	return &domain.ConflictError{Weekday: m.Weekday(), Result: result}, nil
}

func (s *BatchScheduler) insert(ctx context.Context, m *domain.Meeting, meta sharedDomain.EventMetadata) error {
	if err := s.repo.Insert(ctx, m); err != nil {
		return err
	}
	return s.saveEvents(ctx, m.PullDomainEvents(), meta)
}

func (s *BatchScheduler) saveEvents(ctx context.Context, events []sharedDomain.DomainEvent, meta sharedDomain.EventMetadata) error {
	if len(events) == 0 {
		return nil
	}
	sharedApplication.ApplyEventMetadata(events, meta)
	msgs, err := outbox.NewMessages(events)
	if err != nil {
		return err
	}
	return s.outboxRepo.SaveBatch(ctx, msgs)
}

func (s *BatchScheduler) logDay(ctx context.Context, batch *preparedBatch, day domain.Weekday, outcome string, err error) {
	attrs := []any{
		"section_id", batch.request.SectionID,
		"pattern", string(batch.request.Pattern),
		"weekday", day.String(),
		"outcome", outcome,
	}
	if err != nil {
		attrs = append(attrs, "error", err)
		s.logger.WarnContext(ctx, "meeting day rejected", attrs...)
		s.metrics.Counter(observability.MetricDaysRejected, 1, observability.T("reason", outcome))
		return
	}
	s.logger.InfoContext(ctx, "meeting day committed", attrs...)
	s.metrics.Counter(observability.MetricMeetingsCommitted, 1)
}

// classify maps a day's failure onto its reported reason.
func classify(day domain.Weekday, err error) DayError {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		reason := ReasonSectionConflict
		if conflict.Reason() == domain.ConflictRoom {
			reason = ReasonRoomConflict
		}
		return DayError{Weekday: day, Reason: reason, Err: err}
	}
	return DayError{Weekday: day, Reason: ReasonPersistenceError, Err: err}
}

func failAll(days []domain.Weekday, err error) *BatchResult {
	result := &BatchResult{}
	for _, day := range days {
		result.Errors = append(result.Errors, DayError{Weekday: day, Reason: ReasonPersistenceError, Err: err})
	}
	return result
}

func mergeMeetings(a, b []*domain.Meeting) []*domain.Meeting {
	seen := make(map[uuid.UUID]struct{}, len(a))
	out := make([]*domain.Meeting, 0, len(a)+len(b))
	for _, list := range [][]*domain.Meeting{a, b} {
		for _, m := range list {
			if _, ok := seen[m.ID()]; ok {
				continue
			}
			seen[m.ID()] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

func eventMetadata(ctx context.Context) sharedDomain.EventMetadata {
	return sharedApplication.NewEventMetadata(
		observability.CorrelationIDFromContext(ctx),
		observability.ActorFromContext(ctx),
	)
}

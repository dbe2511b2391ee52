package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

var (
	ErrRoomConflict    = errors.New("room is already booked at an overlapping time")
	ErrSectionConflict = errors.New("section already meets at an overlapping time")
)

// ConflictAxis names the resource that is double-booked.
type ConflictAxis string

const (
	ConflictRoom    ConflictAxis = "room"
	ConflictSection ConflictAxis = "section"
)

// Err returns the sentinel error for the axis.
func (a ConflictAxis) Err() error {
	switch a {
	case ConflictRoom:
		return ErrRoomConflict
	case ConflictSection:
		return ErrSectionConflict
	default:
		return nil
	}
}

// ConflictResult is the outcome of a conflict check. Axes are ordered room first.
type ConflictResult struct {
	Axes        []ConflictAxis
	RoomHits    []uuid.UUID
	SectionHits []uuid.UUID
}

// HasConflict reports whether any axis fired.
func (r ConflictResult) HasConflict() bool {
	return len(r.Axes) > 0
}

// Reason returns the first fired axis, or "" when there is no conflict.
func (r ConflictResult) Reason() ConflictAxis {
	if len(r.Axes) == 0 {
		return ""
	}
	return r.Axes[0]
}

// Has reports whether the given axis fired.
func (r ConflictResult) Has(axis ConflictAxis) bool {
	for _, a := range r.Axes {
		if a == axis {
			return true
		}
	}
	return false
}

// CheckConflict tests the candidate against existing meetings.
// Only meetings on the candidate's weekday sharing its room or section are
// considered. The meeting with excludeID is skipped so an edited meeting
// never conflicts with its own prior record.
func CheckConflict(candidate *Meeting, existing []*Meeting, excludeID mo.Option[uuid.UUID]) ConflictResult {
	var result ConflictResult
	skip, hasSkip := excludeID.Get()
	roomID, hasRoom := candidate.RoomID().Get()

	for _, e := range existing {
		if e == nil || (hasSkip && e.ID() == skip) {
			continue
		}
		if e.Weekday() != candidate.Weekday() || !candidate.Slot().Overlaps(e.Slot()) {
			continue
		}
		if hasRoom {
			if other, ok := e.RoomID().Get(); ok && other == roomID {
				result.RoomHits = append(result.RoomHits, e.ID())
			}
		}
		if e.SectionID() == candidate.SectionID() {
			result.SectionHits = append(result.SectionHits, e.ID())
		}
	}

	if len(result.RoomHits) > 0 {
		result.Axes = append(result.Axes, ConflictRoom)
	}
	if len(result.SectionHits) > 0 {
		result.Axes = append(result.Axes, ConflictSection)
	}
	return result
}

// ConflictError reports a rejected placement. It matches ErrRoomConflict
// and/or ErrSectionConflict with errors.Is.
type ConflictError struct {
	Weekday Weekday
	Result  ConflictResult
}

// NewConflictError builds a conflict error for a single axis with no known hits.
// Used for overlaps detected by the storage layer.
func NewConflictError(weekday Weekday, axis ConflictAxis) *ConflictError {
	return &ConflictError{Weekday: weekday, Result: ConflictResult{Axes: []ConflictAxis{axis}}}
}

func (e *ConflictError) Error() string {
	axes := make([]string, 0, len(e.Result.Axes))
	for _, a := range e.Result.Axes {
		axes = append(axes, string(a))
	}
	return fmt.Sprintf("%s conflict on %s", strings.Join(axes, " and "), e.Weekday)
}

func (e *ConflictError) Unwrap() []error {
	errs := make([]error, 0, len(e.Result.Axes))
	for _, a := range e.Result.Axes {
		if err := a.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Reason returns the first fired axis.
func (e *ConflictError) Reason() ConflictAxis {
	return e.Result.Reason()
}

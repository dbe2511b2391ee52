// Package locking serialises check-then-insert sequences that touch the same
// room or section on the same weekday.
package locking

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/felixgeelhaar/classplan/internal/scheduling/domain"
	"github.com/samber/mo"
)

// ErrLockTimeout is returned when a slot lock could not be taken in time.
var ErrLockTimeout = errors.New("timed out waiting for slot lock")

// SlotLocker grants exclusive access to a set of slot keys.
// Keys are taken in sorted order so that two callers never deadlock.
type SlotLocker interface {
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

// Config tunes lock acquisition.
type Config struct {
	// TTL bounds how long a crashed holder can block others. Redis only.
	TTL time.Duration

	// Wait is the longest Acquire blocks before giving up.
	Wait time.Duration

	// RetryInterval is the polling period while a key is held. Redis only.
	RetryInterval time.Duration
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		TTL:           10 * time.Second,
		Wait:          5 * time.Second,
		RetryInterval: 25 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.Wait <= 0 {
		c.Wait = d.Wait
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = d.RetryInterval
	}
	return c
}

// RoomKey names the lock for a room on a weekday.
func RoomKey(roomID string, day domain.Weekday) string {
	return "room:" + roomID + ":" + day.String()
}

// SectionKey names the lock for a section on a weekday.
func SectionKey(sectionID string, day domain.Weekday) string {
	return "section:" + sectionID + ":" + day.String()
}

// SlotKeys returns the sorted keys guarding a placement.
func SlotKeys(sectionID string, roomID mo.Option[string], day domain.Weekday) []string {
	keys := []string{SectionKey(sectionID, day)}
	if room, ok := roomID.Get(); ok {
		keys = append(keys, RoomKey(room, day))
	}
	return normalizeKeys(keys)
}

// MeetingKeys returns the keys guarding the current placement of m.
func MeetingKeys(m *domain.Meeting) []string {
	return SlotKeys(m.SectionID(), m.RoomID(), m.Weekday())
}

func normalizeKeys(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidLocation = errors.New("invalid meeting location")

// LocationType says where a meeting takes place.
type LocationType string

const (
	LocationInPerson LocationType = "in-person"
	LocationVirtual  LocationType = "virtual"
	LocationHybrid   LocationType = "hybrid"
)

// IsValid checks if the location type is supported.
func (l LocationType) IsValid() bool {
	switch l {
	case LocationInPerson, LocationVirtual, LocationHybrid:
		return true
	default:
		return false
	}
}

// RequiresRoom reports whether a room reference is mandatory.
func (l LocationType) RequiresRoom() bool {
	return l == LocationInPerson || l == LocationHybrid
}

// RequiresURL reports whether a meeting URL is mandatory.
func (l LocationType) RequiresURL() bool {
	return l == LocationVirtual || l == LocationHybrid
}

// Location is the validated room/url combination of a meeting.
type Location struct {
	Type   LocationType
	RoomID *string
	URL    *string
}

// NewLocation enforces the room and url rules of each location type.
// Blank strings are treated as absent.
func NewLocation(locationType LocationType, roomID, url *string) (Location, error) {
	roomID = normalizeOptional(roomID)
	url = normalizeOptional(url)

	if !locationType.IsValid() {
		return Location{}, fmt.Errorf("%w: unknown location type %q", ErrInvalidLocation, string(locationType))
	}
	if locationType.RequiresRoom() && roomID == nil {
		return Location{}, fmt.Errorf("%w: %s meetings require a room", ErrInvalidLocation, locationType)
	}
	if locationType == LocationVirtual && roomID != nil {
		return Location{}, fmt.Errorf("%w: virtual meetings cannot have a room", ErrInvalidLocation)
	}
	if locationType.RequiresURL() && url == nil {
		return Location{}, fmt.Errorf("%w: %s meetings require a meeting url", ErrInvalidLocation, locationType)
	}

	return Location{Type: locationType, RoomID: roomID, URL: url}, nil
}

// HasRoom reports whether the meeting occupies a room.
func (l Location) HasRoom() bool {
	return l.RoomID != nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

package queries

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

const localDateTimeLayout = "20060102T150405"

// timezoneComponent describes loc between from and to as a VTIMEZONE: one
// observance for the offset in effect at from, then one per transition.
func timezoneComponent(loc *time.Location, from, to time.Time) *ical.Component {
	tz := ical.NewComponent(ical.CompTimezone)
	tz.Props.SetText(ical.PropTimezoneID, loc.String())

	t := from.In(loc)
	_, offset := t.Zone()
	tz.Children = append(tz.Children, observance(t, offset))
	for {
		_, end := t.ZoneBounds()
		if end.IsZero() || end.After(to) {
			break
		}
		tz.Children = append(tz.Children, observance(end, offset))
		_, offset = end.Zone()
		t = end
	}
	return tz
}

// observance starts at the wall-clock time of the offset being left.
func observance(at time.Time, offsetFrom int) *ical.Component {
	name, offsetTo := at.Zone()

	kind := ical.CompTimezoneStandard
	if at.IsDST() {
		kind = ical.CompTimezoneDaylight
	}
	c := ical.NewComponent(kind)
	setRaw(c, ical.PropDateTimeStart, at.In(time.FixedZone("", offsetFrom)).Format(localDateTimeLayout))
	setRaw(c, ical.PropTimezoneOffsetFrom, formatOffset(offsetFrom))
	setRaw(c, ical.PropTimezoneOffsetTo, formatOffset(offsetTo))
	if name != "" {
		c.Props.SetText(ical.PropTimezoneName, name)
	}
	return c
}

func setRaw(c *ical.Component, name, value string) {
	prop := ical.NewProp(name)
	prop.Value = value
	c.Props.Set(prop)
}

// formatOffset renders a UTC offset as +HHMM, adding seconds only when present.
func formatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	s := fmt.Sprintf("%c%02d%02d", sign, seconds/3600, seconds%3600/60)
	if rest := seconds % 60; rest != 0 {
		s += fmt.Sprintf("%02d", rest)
	}
	return s
}

package memory

import (
	"fmt"
	"time"
)

// isoDate is the wire format for all calendar dates.
const isoDate = "2006-01-02"

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD) into a civil date.
// The result is anchored at UTC midnight so date comparisons are exact.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(isoDate, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// FormatDate renders a civil date as an ISO-8601 date string.
func FormatDate(d time.Time) string {
	return d.Format(isoDate)
}

// Truncate normalizes an arbitrary instant to its civil date at UTC midnight.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextSunday returns the coming Sunday on or after d.
// A date that is already Sunday maps to itself.
func NextSunday(d time.Time) time.Time {
	d = Truncate(d)
	ahead := (7 - int(d.Weekday())) % 7
	return d.AddDate(0, 0, ahead)
}

// EventDate is the occurrence date of a memory: either a fixed calendar date
// or the ongoing marker for records with no specific event date. All
// ongoing-ness lives here so nothing else needs to compare sentinel strings.
type EventDate struct {
	date    time.Time
	ongoing bool
}

// OnDate returns an EventDate fixed to the given calendar date.
func OnDate(d time.Time) EventDate {
	return EventDate{date: Truncate(d)}
}

// OngoingDate returns the ongoing marker.
func OngoingDate() EventDate {
	return EventDate{ongoing: true}
}

// IsOngoing reports whether the event has no fixed occurrence date.
func (e EventDate) IsOngoing() bool {
	return e.ongoing
}

// Date returns the fixed calendar date and true, or a zero time and false
// when the event is ongoing.
func (e EventDate) Date() (time.Time, bool) {
	if e.ongoing {
		return time.Time{}, false
	}
	return e.date, true
}

// String renders the ISO date, or the literal "ongoing" marker.
func (e EventDate) String() string {
	if e.ongoing {
		return "ongoing"
	}
	return FormatDate(e.date)
}

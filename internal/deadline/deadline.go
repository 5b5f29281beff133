// Package deadline computes due dates for reviews and tasks.
package deadline

import (
	"fmt"
	"strings"
	"time"
)

// Policy describes how default and date-only deadlines are resolved.
type Policy struct {
	Days     int            // days added to "now" when no deadline is given
	Hour     int            // end of workday, local hour
	Location *time.Location // zone "local" refers to
}

// Standard is now + 3 days at 17:00 in the process's local zone.
var Standard = Policy{Days: 3, Hour: 17, Location: time.Local}

func (p Policy) loc() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// Default returns the deadline for an item created at now.
func (p Policy) Default(now time.Time) time.Time {
	return p.EndOfDay(now.In(p.loc()).AddDate(0, 0, p.Days))
}

// EndOfDay moves t to the end-of-workday hour on its calendar day in the
// policy's zone.
func (p Policy) EndOfDay(t time.Time) time.Time {
	t = t.In(p.loc())
	return time.Date(t.Year(), t.Month(), t.Day(), p.Hour, 0, 0, 0, p.loc())
}

var dateOnlyLayouts = []string{"2006-01-02", "01/02/2006", "Jan 2 2006", "Jan 2, 2006"}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Parse reads a user-entered deadline. Date-only values land at the
// end-of-workday hour; values with a time component are used as-is.
func (p Policy) Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, p.loc()); err == nil {
			return t, nil
		}
	}
	for _, layout := range dateOnlyLayouts {
		if t, err := time.ParseInLocation(layout, raw, p.loc()); err == nil {
			return p.EndOfDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized deadline %q (use YYYY-MM-DD or YYYY-MM-DD HH:MM)", raw)
}

// Resolve picks the deadline for an item created at now. A nil explicit value
// yields the default; a date-only explicit value is moved to end of day.
func (p Policy) Resolve(now time.Time, explicit *time.Time, dateOnly bool) time.Time {
	switch {
	case explicit == nil || explicit.IsZero():
		return p.Default(now)
	case dateOnly:
		return p.EndOfDay(*explicit)
	default:
		return *explicit
	}
}

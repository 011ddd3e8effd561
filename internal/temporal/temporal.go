// Package temporal implements the day-bucket filter semantics shared by every
// record source. All comparisons are on the date portion only; time of day is
// truncated to midnight before comparing.
package temporal

import (
	"fmt"
	"strings"
	"time"
)

// Mode is one of the fixed temporal query semantics.
type Mode string

const (
	ModeToday     Mode = "today"
	ModeTomorrow  Mode = "tomorrow"
	ModeYesterday Mode = "yesterday"
	ModePast      Mode = "past"
	ModeUpcoming  Mode = "upcoming"
	ModeAll       Mode = "all"

	// specificPrefix tags a mode carrying a raw date phrase, e.g.
	// "specific:November 9". Resolved by ResolveSpecific before filtering.
	specificPrefix = "specific:"
)

// Specific builds a specific-date mode from a raw phrase.
func Specific(raw string) Mode {
	return Mode(specificPrefix + raw)
}

// IsSpecific reports whether the mode carries a raw date phrase.
func (m Mode) IsSpecific() bool {
	return strings.HasPrefix(string(m), specificPrefix)
}

// SpecificPhrase returns the raw phrase of a specific mode.
func (m Mode) SpecificPhrase() string {
	return strings.TrimPrefix(string(m), specificPrefix)
}

// Valid reports whether the mode is one of the known semantics.
func (m Mode) Valid() bool {
	switch m {
	case ModeToday, ModeTomorrow, ModeYesterday, ModePast, ModeUpcoming, ModeAll:
		return true
	}
	return m.IsSpecific()
}

// dateLayouts are the formats record date fields are stored in, tried in
// order. The store holds bare dates for most collections and full ISO
// timestamps for reminders.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// ParseDay parses a stored date field and truncates it to local midnight.
func ParseDay(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Midnight(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

// Midnight truncates t to the start of its day in local time.
func Midnight(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// Matches reports whether a record dated on day belongs to the mode's bucket
// relative to now. The caller is responsible for excluding records whose date
// failed to parse (they belong only to ModeAll).
func Matches(day time.Time, mode Mode, now time.Time) bool {
	today := Midnight(now)
	day = Midnight(day)

	switch mode {
	case ModeToday:
		return day.Equal(today)
	case ModeTomorrow:
		return day.Equal(today.AddDate(0, 0, 1))
	case ModeYesterday:
		return day.Equal(today.AddDate(0, 0, -1))
	case ModePast:
		return day.Before(today)
	case ModeAll:
		return true
	case ModeUpcoming:
		return !day.Before(today)
	}

	if mode.IsSpecific() {
		if target, ok := ResolveSpecific(mode.SpecificPhrase(), now); ok {
			return day.Equal(target)
		}
		// Unresolvable specific degrades to the default bucket.
		return !day.Before(today)
	}

	// Unknown modes behave like the default.
	return !day.Before(today)
}

// FilterDates applies the mode to a list of raw date strings and returns the
// indexes that survive. Unparseable dates are excluded from every mode except
// ModeAll; a parse failure never fails the batch.
func FilterDates(dates []string, mode Mode, now time.Time) []int {
	keep := make([]int, 0, len(dates))
	for i, raw := range dates {
		if mode == ModeAll {
			keep = append(keep, i)
			continue
		}
		day, err := ParseDay(raw)
		if err != nil {
			continue
		}
		if Matches(day, mode, now) {
			keep = append(keep, i)
		}
	}
	return keep
}

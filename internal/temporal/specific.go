package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Specific-date resolution. The classifier tags "November 9", "11/09" or
// "2025-11-09" style phrases as specific modes; this file turns them into a
// concrete day so the filter can compare against it. Phrases without a year
// resolve to the next occurrence on or after today.

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	isoDatePattern     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	numericDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	monthDayPattern    = regexp.MustCompile(`\b([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dayMonthPattern    = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]+)\b`)
)

// ContainsDatePhrase reports whether the text carries something that looks
// like a concrete date. Used by the intent classifier's date-phrase
// detection.
func ContainsDatePhrase(text string) bool {
	lower := strings.ToLower(text)
	if isoDatePattern.MatchString(lower) || numericDatePattern.MatchString(lower) {
		return true
	}
	for _, m := range monthDayPattern.FindAllStringSubmatch(lower, -1) {
		if _, ok := monthNames[m[1]]; ok {
			return true
		}
	}
	for _, m := range dayMonthPattern.FindAllStringSubmatch(lower, -1) {
		if _, ok := monthNames[m[2]]; ok {
			return true
		}
	}
	return false
}

// ExtractDatePhrase pulls the first concrete date phrase out of free text,
// so the classifier can tag the raw phrase onto a specific mode.
func ExtractDatePhrase(text string) (string, bool) {
	lower := strings.ToLower(text)
	if m := isoDatePattern.FindString(lower); m != "" {
		return m, true
	}
	if m := numericDatePattern.FindString(lower); m != "" {
		return m, true
	}
	for _, m := range monthDayPattern.FindAllStringSubmatch(lower, -1) {
		if _, ok := monthNames[m[1]]; ok {
			return m[0], true
		}
	}
	for _, m := range dayMonthPattern.FindAllStringSubmatch(lower, -1) {
		if _, ok := monthNames[m[2]]; ok {
			return m[0], true
		}
	}
	return "", false
}

// ResolveSpecific parses a raw date phrase into a concrete local day.
// Returns false when the phrase cannot be resolved.
func ResolveSpecific(phrase string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(strings.TrimSpace(phrase))
	if lower == "" {
		return time.Time{}, false
	}
	today := Midnight(now)

	if m := isoDatePattern.FindStringSubmatch(lower); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return buildDay(year, time.Month(month), day)
	}

	if m := numericDatePattern.FindStringSubmatch(lower); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if m[3] != "" {
			year, _ := strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
			return buildDay(year, time.Month(month), day)
		}
		return nextOccurrence(time.Month(month), day, today)
	}

	if m := monthDayPattern.FindStringSubmatch(lower); m != nil {
		if month, ok := monthNames[m[1]]; ok {
			day, _ := strconv.Atoi(m[2])
			return nextOccurrence(month, day, today)
		}
	}

	if m := dayMonthPattern.FindStringSubmatch(lower); m != nil {
		if month, ok := monthNames[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			return nextOccurrence(month, day, today)
		}
	}

	return time.Time{}, false
}

func buildDay(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	// Reject normalized overflow such as February 30.
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// nextOccurrence resolves a yearless month/day to the next matching day on or
// after today.
func nextOccurrence(month time.Month, day int, today time.Time) (time.Time, bool) {
	t, ok := buildDay(today.Year(), month, day)
	if !ok {
		return time.Time{}, false
	}
	if t.Before(today) {
		t, ok = buildDay(today.Year()+1, month, day)
		if !ok {
			return time.Time{}, false
		}
	}
	return t, true
}

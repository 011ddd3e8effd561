package schedule

import (
	"sort"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/temporal"
)

// unsortableKey pushes entries whose date cannot be parsed to the end of the
// timeline instead of dropping them or crashing the sort.
const unsortableKey = "9999-12-31T00:00"

// sortKey derives the chronological key of an event: normalized date plus
// display time. Dates come from the store in several layouts; ParseDay
// normalizes them so string comparison is chronological.
func sortKey(e care.Event) string {
	base := e.Base()
	day, err := temporal.ParseDay(base.Date)
	if err != nil {
		return unsortableKey
	}
	return day.Format("2006-01-02") + "T" + base.Time
}

// sortEntries orders a merged timeline ascending by date and time. The sort
// is stable so within-source ordering (pending medications first) survives
// the merge.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return sortKey(entries[i].Event) < sortKey(entries[j].Event)
	})
}

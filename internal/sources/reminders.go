package sources

import (
	"context"
	"strings"
	"time"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/store"
	"carelink-backend/internal/temporal"
)

// ReminderAdapter reads the reminders collection. Reminders carry a full ISO
// datetime rather than a bare date; day-bucket comparisons strip the time
// portion.
type ReminderAdapter struct {
	docs store.DocumentStore
	opts options
}

// NewReminderAdapter creates the reminders source.
func NewReminderAdapter(docs store.DocumentStore, opts ...Option) *ReminderAdapter {
	return &ReminderAdapter{docs: docs, opts: buildOptions(opts)}
}

func (a *ReminderAdapter) Source() care.SourceType { return care.SourceReminder }

// Fetch returns the owner's reminders filtered by mode.
func (a *ReminderAdapter) Fetch(ctx context.Context, owner Owner, mode temporal.Mode, now time.Time) ([]care.Event, error) {
	raw, err := fetchOwnerDocs(ctx, a.docs, store.CollectionReminders, owner)
	if err != nil {
		return nil, err
	}

	events := make([]care.Event, 0, len(raw))
	for id, doc := range raw {
		dt := doc.GetString("datetime", "dateTime", "scheduledAt")
		base := newBase(id, care.SourceReminder, owner, doc,
			[]string{"title", "message", "text"}, "Reminder")

		// Derive the day-bucket date and display time from the timestamp
		// when the record has no bare fields of its own.
		if base.Date == "" && dt != "" {
			if day, err := temporal.ParseDay(dt); err == nil {
				base.Date = day.Format("2006-01-02")
			}
		}
		if base.Time == care.DefaultTime && dt != "" {
			if at, err := time.Parse(time.RFC3339, dt); err == nil {
				base.Time = at.Local().Format("15:04")
			} else if idx := strings.Index(dt, "T"); idx > 0 && len(dt) >= idx+6 {
				base.Time = dt[idx+1 : idx+6]
			}
		}

		events = append(events, care.ReminderEvent{
			EventBase: base,
			DateTime:  dt,
			Repeat:    doc.GetString("repeat", "recurrence"),
		})
	}

	// Filter on the ISO timestamp field, falling back to the derived date.
	events = filterEvents(events, mode, now, func(e care.Event) string {
		if r, ok := e.(care.ReminderEvent); ok && r.DateTime != "" {
			return r.DateTime
		}
		return e.Base().Date
	})
	sortWithinSource(events, false)
	return capHistory(events, mode, a.opts.historyLimit), nil
}

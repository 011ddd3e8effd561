package sources

import (
	"context"
	"time"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/store"
	"carelink-backend/internal/temporal"
)

// AppointmentAdapter reads the appointments collection.
type AppointmentAdapter struct {
	docs store.DocumentStore
	opts options
}

// NewAppointmentAdapter creates the appointments source.
func NewAppointmentAdapter(docs store.DocumentStore, opts ...Option) *AppointmentAdapter {
	return &AppointmentAdapter{docs: docs, opts: buildOptions(opts)}
}

func (a *AppointmentAdapter) Source() care.SourceType { return care.SourceAppointment }

// Fetch returns the owner's appointments filtered by mode.
func (a *AppointmentAdapter) Fetch(ctx context.Context, owner Owner, mode temporal.Mode, now time.Time) ([]care.Event, error) {
	raw, err := fetchOwnerDocs(ctx, a.docs, store.CollectionAppointments, owner)
	if err != nil {
		return nil, err
	}

	events := make([]care.Event, 0, len(raw))
	for id, doc := range raw {
		events = append(events, care.AppointmentEvent{
			EventBase: newBase(id, care.SourceAppointment, owner, doc,
				[]string{"title", "name", "purpose"}, "Appointment"),
			Location: doc.GetString("location", "venue"),
			Doctor:   doc.GetString("doctor", "doctorName"),
			Notes:    doc.GetString("notes", "description"),
		})
	}

	events = filterEvents(events, mode, now, baseDate)
	sortWithinSource(events, false)
	return capHistory(events, mode, a.opts.historyLimit), nil
}

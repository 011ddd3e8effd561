package sources

import (
	"context"
	"time"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/store"
	"carelink-backend/internal/temporal"
)

// ConsultationAdapter reads the consultations collection. Consultations
// store a date and a start time; filtering buckets on the date part.
type ConsultationAdapter struct {
	docs store.DocumentStore
	opts options
}

// NewConsultationAdapter creates the consultations source.
func NewConsultationAdapter(docs store.DocumentStore, opts ...Option) *ConsultationAdapter {
	return &ConsultationAdapter{docs: docs, opts: buildOptions(opts)}
}

func (a *ConsultationAdapter) Source() care.SourceType { return care.SourceConsultation }

// Fetch returns the owner's consultations filtered by mode.
func (a *ConsultationAdapter) Fetch(ctx context.Context, owner Owner, mode temporal.Mode, now time.Time) ([]care.Event, error) {
	raw, err := fetchOwnerDocs(ctx, a.docs, store.CollectionConsultations, owner)
	if err != nil {
		return nil, err
	}

	events := make([]care.Event, 0, len(raw))
	for id, doc := range raw {
		events = append(events, care.ConsultationEvent{
			EventBase: newBase(id, care.SourceConsultation, owner, doc,
				[]string{"title", "reason", "purpose"}, "Consultation"),
			Doctor:      doc.GetString("doctor", "doctorName"),
			Specialty:   doc.GetString("specialty", "specialisation"),
			MeetingLink: doc.GetString("meetingLink", "link"),
		})
	}

	events = filterEvents(events, mode, now, baseDate)
	sortWithinSource(events, false)
	return capHistory(events, mode, a.opts.historyLimit), nil
}

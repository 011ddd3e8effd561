package sources

import (
	"context"
	"time"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/store"
	"carelink-backend/internal/temporal"
)

// MedicationAdapter reads the medications collection. Medication records
// were keyed under two different separator schemes over time (underscore and
// comma encodings of the same email); the owner probe tries both before
// declaring no data. Pending intakes sort before completed ones.
type MedicationAdapter struct {
	docs store.DocumentStore
	opts options
}

// NewMedicationAdapter creates the medications source.
func NewMedicationAdapter(docs store.DocumentStore, opts ...Option) *MedicationAdapter {
	return &MedicationAdapter{docs: docs, opts: buildOptions(opts)}
}

func (a *MedicationAdapter) Source() care.SourceType { return care.SourceMedication }

// Fetch returns the owner's medication intakes filtered by mode.
func (a *MedicationAdapter) Fetch(ctx context.Context, owner Owner, mode temporal.Mode, now time.Time) ([]care.Event, error) {
	raw, err := fetchOwnerDocs(ctx, a.docs, store.CollectionMedications, owner)
	if err != nil {
		return nil, err
	}

	events := make([]care.Event, 0, len(raw))
	for id, doc := range raw {
		events = append(events, care.MedicationEvent{
			EventBase: newBase(id, care.SourceMedication, owner, doc,
				[]string{"name", "title", "medicationName"}, "Medication"),
			Dosage:       doc.GetString("dosage", "dose"),
			Frequency:    doc.GetString("frequency"),
			Instructions: doc.GetString("instructions", "notes"),
		})
	}

	events = filterEvents(events, mode, now, baseDate)
	sortWithinSource(events, true)
	return capHistory(events, mode, a.opts.historyLimit), nil
}

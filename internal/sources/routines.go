package sources

import (
	"context"
	"time"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/store"
	"carelink-backend/internal/temporal"
)

// RoutineAdapter reads the routines collection.
type RoutineAdapter struct {
	docs store.DocumentStore
	opts options
}

// NewRoutineAdapter creates the routines source.
func NewRoutineAdapter(docs store.DocumentStore, opts ...Option) *RoutineAdapter {
	return &RoutineAdapter{docs: docs, opts: buildOptions(opts)}
}

func (a *RoutineAdapter) Source() care.SourceType { return care.SourceRoutine }

// Fetch returns the owner's routines filtered by mode.
func (a *RoutineAdapter) Fetch(ctx context.Context, owner Owner, mode temporal.Mode, now time.Time) ([]care.Event, error) {
	raw, err := fetchOwnerDocs(ctx, a.docs, store.CollectionRoutines, owner)
	if err != nil {
		return nil, err
	}

	events := make([]care.Event, 0, len(raw))
	for id, doc := range raw {
		events = append(events, care.RoutineEvent{
			EventBase: newBase(id, care.SourceRoutine, owner, doc,
				[]string{"title", "name", "task"}, "Routine"),
			Frequency: doc.GetString("frequency"),
			Days:      doc.GetStringSlice("days"),
		})
	}

	events = filterEvents(events, mode, now, baseDate)
	sortWithinSource(events, false)
	return capHistory(events, mode, a.opts.historyLimit), nil
}

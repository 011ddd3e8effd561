package sources

import (
	"context"
	"time"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/identity"
	"carelink-backend/internal/store"
	"carelink-backend/internal/temporal"
)

// ActivityAdapter reads the activities collection. Activities are not keyed
// per user: each activity document carries a nested registrations map, so the
// adapter scans every activity and matches the registrant email against the
// querying identity.
type ActivityAdapter struct {
	docs       store.DocumentStore
	normalizer *identity.Normalizer
	opts       options
}

// NewActivityAdapter creates the activities source.
func NewActivityAdapter(docs store.DocumentStore, normalizer *identity.Normalizer, opts ...Option) *ActivityAdapter {
	return &ActivityAdapter{docs: docs, normalizer: normalizer, opts: buildOptions(opts)}
}

func (a *ActivityAdapter) Source() care.SourceType { return care.SourceActivity }

// Fetch returns the activities the owner is registered for, filtered by mode.
func (a *ActivityAdapter) Fetch(ctx context.Context, owner Owner, mode temporal.Mode, now time.Time) ([]care.Event, error) {
	all, err := a.docs.List(ctx, store.CollectionActivities)
	if err != nil {
		return nil, err
	}

	events := make([]care.Event, 0)
	for id, doc := range all {
		registeredAt, ok := a.registration(doc, owner)
		if !ok {
			continue
		}
		events = append(events, care.ActivityEvent{
			EventBase: newBase(id, care.SourceActivity, owner, doc,
				[]string{"title", "name"}, "Activity"),
			Location:     doc.GetString("location", "venue"),
			RegisteredAt: registeredAt,
		})
	}

	events = filterEvents(events, mode, now, baseDate)
	sortWithinSource(events, false)
	return capHistory(events, mode, a.opts.historyLimit), nil
}

// registration looks for the owner inside an activity's registrations map.
// Map keys are registrant storage keys; values are either a bare email
// string or a registration document.
func (a *ActivityAdapter) registration(doc store.Document, owner Owner) (string, bool) {
	regs := doc.GetMap("registrations")
	if regs == nil {
		regs = doc.GetMap("participants")
	}
	if regs == nil {
		return "", false
	}

	for key, value := range regs {
		if a.normalizer.MatchesIdentity(owner.Identity, key) {
			if reg, ok := value.(map[string]any); ok {
				return store.Document(reg).GetString("registeredAt", "timestamp"), true
			}
			return "", true
		}

		switch reg := value.(type) {
		case string:
			if a.normalizer.MatchesIdentity(owner.Identity, reg) {
				return "", true
			}
		case map[string]any:
			email := store.Document(reg).GetString("email", "registrantEmail", "userEmail")
			if email != "" && a.normalizer.MatchesIdentity(owner.Identity, email) {
				return store.Document(reg).GetString("registeredAt", "timestamp"), true
			}
		}
	}
	return "", false
}

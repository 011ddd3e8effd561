// Package sources implements the record-source adapters: one per stored
// collection, each fetching raw documents and normalizing them into the
// common event shape. Adapters resolve the owner's storage key through the
// identity normalizer, probing every historical key encoding before
// declaring "no data".
package sources

import (
	"context"
	"errors"
	"sort"
	"time"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/identity"
	"carelink-backend/internal/store"
	"carelink-backend/internal/temporal"
)

// DefaultHistoryLimit caps past/all queries to the most recent records so a
// years-old account does not flood one source's section.
const DefaultHistoryLimit = 50

// options holds cross-source tuning shared by every adapter.
type options struct {
	historyLimit int
}

// Option tunes an adapter at construction time.
type Option func(*options)

// WithHistoryLimit overrides the past/all history cap. Non-positive values
// keep the default.
func WithHistoryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.historyLimit = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{historyLimit: DefaultHistoryLimit}
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// Owner is the resolved identity whose records an adapter fetches.
type Owner struct {
	Account  care.Account
	Identity identity.CanonicalIdentity
}

// ResolveOwner bundles an account with its canonical identity.
func ResolveOwner(account care.Account, normalizer *identity.Normalizer) Owner {
	email := account.Email
	if email == "" {
		email = account.NormalizedEmail
	}
	if email == "" {
		email = account.UID
	}
	return Owner{
		Account:  account,
		Identity: normalizer.Canonicalize(email),
	}
}

// probeKeys returns the storage keys to try for the owner's per-user
// subtree, most likely first: the store's own normalized key, then each
// historical encoding, then the UID.
func (o Owner) probeKeys() []string {
	keys := make([]string, 0, 6)
	seen := make(map[string]bool)
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	add(o.Account.NormalizedEmail)
	for _, k := range o.Identity.StoreKeys() {
		add(k)
	}
	add(o.Identity.Canonical())
	add(o.Account.UID)
	return keys
}

// Adapter is the common contract of every record source.
type Adapter interface {
	Source() care.SourceType
	Fetch(ctx context.Context, owner Owner, mode temporal.Mode, now time.Time) ([]care.Event, error)
}

// fetchOwnerDocs lists the owner's subtree of a collection, probing each key
// encoding until one yields records. A store failure propagates; an empty
// subtree under every key is just "no data".
func fetchOwnerDocs(ctx context.Context, docs store.DocumentStore, collection string, owner Owner) (map[string]store.Document, error) {
	for _, key := range owner.probeKeys() {
		found, err := docs.List(ctx, collection, key)
		if err != nil {
			if errors.Is(err, store.ErrDocumentNotFound) {
				continue
			}
			return nil, err
		}
		if len(found) > 0 {
			return found, nil
		}
	}
	return map[string]store.Document{}, nil
}

// filterEvents applies the temporal filter over the given date field of each
// event. Events with unparseable dates survive only ModeAll.
func filterEvents(events []care.Event, mode temporal.Mode, now time.Time, dateOf func(care.Event) string) []care.Event {
	dates := make([]string, len(events))
	for i, e := range events {
		dates[i] = dateOf(e)
	}
	keep := temporal.FilterDates(dates, mode, now)

	out := make([]care.Event, 0, len(keep))
	for _, i := range keep {
		out = append(out, events[i])
	}
	return out
}

// baseDate returns the event's plain date field.
func baseDate(e care.Event) string { return e.Base().Date }

// chronoKey normalizes an event's date for comparison. Dates arrive in
// several layouts (ISO, slash-separated); ParseDay folds them into one form
// so string comparison is chronological. Unparseable dates sort last.
func chronoKey(b care.EventBase) string {
	day, err := temporal.ParseDay(b.Date)
	if err != nil {
		return "9999-12-31T" + b.Time
	}
	return day.Format("2006-01-02") + "T" + b.Time
}

// sortWithinSource orders a single source's results chronologically. When
// pendingFirst is set, incomplete records sort before completed ones.
func sortWithinSource(events []care.Event, pendingFirst bool) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Base(), events[j].Base()
		if pendingFirst && a.Completed != b.Completed {
			return !a.Completed
		}
		return chronoKey(a) < chronoKey(b)
	})
}

// capHistory truncates past/all results to the most recent limit entries.
// Events must already be sorted ascending by chronoKey.
func capHistory(events []care.Event, mode temporal.Mode, limit int) []care.Event {
	if mode != temporal.ModePast && mode != temporal.ModeAll {
		return events
	}
	if len(events) <= limit {
		return events
	}
	return events[len(events)-limit:]
}

// newBase builds the common event fields from a raw document.
func newBase(id string, source care.SourceType, owner Owner, doc store.Document, titleKeys []string, placeholder string) care.EventBase {
	title := doc.GetString(titleKeys...)
	if title == "" {
		title = placeholder
	}

	t := doc.GetString("time", "startTime")
	if t == "" {
		t = care.DefaultTime
	}

	status := doc.GetString("status")
	completed := doc.GetBool("isCompleted", "completed", "status")

	return care.EventBase{
		ID:        id,
		Source:    source,
		OwnerID:   owner.Identity.Canonical(),
		Title:     title,
		Date:      doc.GetString("date"),
		Time:      t,
		Status:    status,
		Completed: completed,
	}
}

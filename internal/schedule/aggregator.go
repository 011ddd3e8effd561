// Package schedule merges the per-source event streams into one
// chronologically sorted timeline. Aggregation is read-only and
// failure-tolerant: a source that errors contributes nothing instead of
// failing the whole timeline.
package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/sources"
	"carelink-backend/internal/temporal"
)

// Ownership tags whose record a timeline entry is, in caregiver views that
// mix the caregiver's own consultations with recipient schedules.
type Ownership string

const (
	OwnershipSelf      Ownership = "self"
	OwnershipCaregiver Ownership = "caregiver"
	OwnershipRecipient Ownership = "recipient"
)

// Entry is one timeline row.
type Entry struct {
	Event     care.Event `json:"event"`
	Ownership Ownership  `json:"ownership"`
	// OwnerName is the display name of the person the record belongs to.
	OwnerName string `json:"ownerName,omitempty"`
}

// Timeline is the merged, sorted aggregation result.
type Timeline struct {
	Entries []Entry                 `json:"entries"`
	Counts  map[care.SourceType]int `json:"counts"`
	// Degraded lists the sources whose fetch failed and was folded to empty.
	Degraded []care.SourceType `json:"degraded,omitempty"`
}

// sourceResult is one adapter's contribution, successful or not. Failures
// are folded at the collection point, never bubbled.
type sourceResult struct {
	source care.SourceType
	events []care.Event
	err    error
}

// Metrics receives aggregation instrumentation. Implementations must
// tolerate concurrent calls.
type Metrics interface {
	SourceFetched(source string, err error)
	AggregationObserved(d time.Duration)
}

// Aggregator fans queries out to every record source.
type Aggregator struct {
	adapters []sources.Adapter
	logger   *zap.Logger
	metrics  Metrics
}

// Option tunes the aggregator at construction time.
type Option func(*Aggregator)

// WithMetrics attaches an instrumentation sink.
func WithMetrics(m Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// NewAggregator creates the aggregator over the given sources.
func NewAggregator(adapters []sources.Adapter, logger *zap.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{adapters: adapters, logger: logger}
	for _, apply := range opts {
		apply(a)
	}
	return a
}

// Adapter returns the registered adapter for a source, or nil.
func (a *Aggregator) Adapter(source care.SourceType) sources.Adapter {
	for _, ad := range a.adapters {
		if ad.Source() == source {
			return ad
		}
	}
	return nil
}

// Collect fetches every source for one owner concurrently and merges the
// results. Per-source failures are logged, recorded in Degraded and folded
// into an empty contribution.
func (a *Aggregator) Collect(ctx context.Context, owner sources.Owner, mode temporal.Mode, now time.Time) Timeline {
	start := time.Now()
	results := a.fanOut(ctx, a.adapters, owner, mode, now)
	t := a.fold(results, OwnershipSelf, owner.Account.FullName())
	if a.metrics != nil {
		a.metrics.AggregationObserved(time.Since(start))
	}
	return t
}

// CollectSources is Collect restricted to a subset of sources.
func (a *Aggregator) CollectSources(ctx context.Context, owner sources.Owner, only []care.SourceType, mode temporal.Mode, now time.Time) Timeline {
	picked := make([]sources.Adapter, 0, len(only))
	for _, s := range only {
		if ad := a.Adapter(s); ad != nil {
			picked = append(picked, ad)
		}
	}
	start := time.Now()
	results := a.fanOut(ctx, picked, owner, mode, now)
	t := a.fold(results, OwnershipSelf, owner.Account.FullName())
	if a.metrics != nil {
		a.metrics.AggregationObserved(time.Since(start))
	}
	return t
}

// Participant is one person contributing to a combined caregiver timeline.
type Participant struct {
	Owner     sources.Owner
	Ownership Ownership
	// Sources restricts which collections are fetched for this person.
	// Empty means all.
	Sources []care.SourceType
}

// CollectCombined merges the timelines of several participants: the
// caregiver's own consultations interleaved with every recipient's full
// schedule. Each entry keeps its ownership tag and owner name.
func (a *Aggregator) CollectCombined(ctx context.Context, participants []Participant, mode temporal.Mode, now time.Time) Timeline {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		timelines = make([]Timeline, len(participants))
	)

	for i, p := range participants {
		wg.Add(1)
		go func(i int, p Participant) {
			defer wg.Done()
			var t Timeline
			if len(p.Sources) == 0 {
				t = a.Collect(ctx, p.Owner, mode, now)
			} else {
				t = a.CollectSources(ctx, p.Owner, p.Sources, mode, now)
			}
			for j := range t.Entries {
				t.Entries[j].Ownership = p.Ownership
			}
			mu.Lock()
			timelines[i] = t
			mu.Unlock()
		}(i, p)
	}
	wg.Wait()

	merged := Timeline{Counts: make(map[care.SourceType]int)}
	for _, t := range timelines {
		merged.Entries = append(merged.Entries, t.Entries...)
		for s, n := range t.Counts {
			merged.Counts[s] += n
		}
		merged.Degraded = append(merged.Degraded, t.Degraded...)
	}
	sortEntries(merged.Entries)
	return merged
}

// fanOut runs one goroutine per adapter and gathers every result.
func (a *Aggregator) fanOut(ctx context.Context, adapters []sources.Adapter, owner sources.Owner, mode temporal.Mode, now time.Time) []sourceResult {
	var wg sync.WaitGroup
	out := make(chan sourceResult, len(adapters))

	for _, adapter := range adapters {
		wg.Add(1)
		go func(adapter sources.Adapter) {
			defer wg.Done()
			events, err := adapter.Fetch(ctx, owner, mode, now)
			out <- sourceResult{source: adapter.Source(), events: events, err: err}
		}(adapter)
	}
	wg.Wait()
	close(out)

	results := make([]sourceResult, 0, len(adapters))
	for r := range out {
		results = append(results, r)
	}
	return results
}

// fold turns raw source results into a sorted timeline, replacing each
// failed source with an empty contribution.
func (a *Aggregator) fold(results []sourceResult, ownership Ownership, ownerName string) Timeline {
	t := Timeline{Counts: make(map[care.SourceType]int)}

	for _, r := range results {
		if a.metrics != nil {
			a.metrics.SourceFetched(string(r.source), r.err)
		}
		if r.err != nil {
			a.logger.Warn("source fetch failed, contributing empty",
				zap.String("source", string(r.source)), zap.Error(r.err))
			t.Counts[r.source] = 0
			t.Degraded = append(t.Degraded, r.source)
			continue
		}
		t.Counts[r.source] = len(r.events)
		for _, e := range r.events {
			t.Entries = append(t.Entries, Entry{
				Event:     e,
				Ownership: ownership,
				OwnerName: ownerName,
			})
		}
	}

	sortEntries(t.Entries)
	return t
}

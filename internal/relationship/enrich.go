package relationship

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/identity"
	"carelink-backend/internal/sources"
	"carelink-backend/internal/store"
	"carelink-backend/internal/temporal"
)

// Enrichment is the dashboard block computed per resolved recipient. Every
// field degrades to its zero value when the underlying fetch fails; a
// partial dashboard beats a failed one.
type Enrichment struct {
	// AdherenceRate is the share of today's medications marked completed,
	// in [0,1]. Zero when the recipient has no medications today.
	AdherenceRate float64 `json:"adherenceRate"`
	// UpcomingCount counts upcoming appointments plus consultations.
	UpcomingCount int `json:"upcomingCount"`
	// LastCheckup is the most recent past consultation date (YYYY-MM-DD).
	LastCheckup string `json:"lastCheckup,omitempty"`
	// LastActive is the account's last-activity timestamp, when recorded.
	LastActive string `json:"lastActive,omitempty"`
}

// Enricher computes enrichment blocks by querying the medication,
// appointment and consultation sources on the recipient's behalf.
type Enricher struct {
	medications   sources.Adapter
	appointments  sources.Adapter
	consultations sources.Adapter
	normalizer    *identity.Normalizer
	clock         func() time.Time
	logger        *zap.Logger
}

// NewEnricher creates the enricher. clock may be nil (wall clock).
func NewEnricher(medications, appointments, consultations sources.Adapter, normalizer *identity.Normalizer, clock func() time.Time, logger *zap.Logger) *Enricher {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		medications:   medications,
		appointments:  appointments,
		consultations: consultations,
		normalizer:    normalizer,
		clock:         clock,
		logger:        logger,
	}
}

// EnrichAll fills the enrichment block of every recipient, one goroutine
// per recipient. Individual failures are logged and leave the zero block.
func (e *Enricher) EnrichAll(ctx context.Context, recipients []Recipient) {
	var wg sync.WaitGroup
	for i := range recipients {
		wg.Add(1)
		go func(r *Recipient) {
			defer wg.Done()
			r.Enrichment = e.enrich(ctx, *r)
		}(&recipients[i])
	}
	wg.Wait()
}

func (e *Enricher) enrich(ctx context.Context, recipient Recipient) Enrichment {
	owner := sources.ResolveOwner(recipient.Account, e.normalizer)
	now := e.clock()

	var out Enrichment
	out.LastActive = store.Document(recipient.Account.Raw).
		GetString("lastActive", "lastActiveAt", "lastLogin")

	if meds, err := e.medications.Fetch(ctx, owner, temporal.ModeToday, now); err == nil {
		out.AdherenceRate = adherence(meds)
	} else {
		e.logger.Warn("enrichment: medications fetch failed",
			zap.String("recipient", recipient.Account.UID), zap.Error(err))
	}

	if appts, err := e.appointments.Fetch(ctx, owner, temporal.ModeUpcoming, now); err == nil {
		out.UpcomingCount += len(appts)
	} else {
		e.logger.Warn("enrichment: appointments fetch failed",
			zap.String("recipient", recipient.Account.UID), zap.Error(err))
	}

	if consults, err := e.consultations.Fetch(ctx, owner, temporal.ModeUpcoming, now); err == nil {
		out.UpcomingCount += len(consults)
	} else {
		e.logger.Warn("enrichment: upcoming consultations fetch failed",
			zap.String("recipient", recipient.Account.UID), zap.Error(err))
	}

	if past, err := e.consultations.Fetch(ctx, owner, temporal.ModePast, now); err == nil {
		out.LastCheckup = lastDate(past)
	} else {
		e.logger.Warn("enrichment: past consultations fetch failed",
			zap.String("recipient", recipient.Account.UID), zap.Error(err))
	}

	return out
}

// adherence is the completed share of today's medication intakes.
func adherence(meds []care.Event) float64 {
	if len(meds) == 0 {
		return 0
	}
	done := 0
	for _, m := range meds {
		if m.Base().Completed {
			done++
		}
	}
	return float64(done) / float64(len(meds))
}

// lastDate returns the latest date among the events. Dates compare
// lexicographically in the store's YYYY-MM-DD form.
func lastDate(events []care.Event) string {
	last := ""
	for _, e := range events {
		if d := e.Base().Date; d > last {
			last = d
		}
	}
	return last
}

package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/identity"
	"carelink-backend/internal/observability"
	"carelink-backend/internal/sources"
	"carelink-backend/internal/store"
	"carelink-backend/internal/temporal"
)

var testNow = time.Date(2025, 11, 9, 10, 0, 0, 0, time.Local)

func allAdapters(mem *store.MemoryStore) []sources.Adapter {
	n := identity.NewNormalizer(nil)
	return []sources.Adapter{
		sources.NewAppointmentAdapter(mem),
		sources.NewConsultationAdapter(mem),
		sources.NewMedicationAdapter(mem),
		sources.NewReminderAdapter(mem),
		sources.NewRoutineAdapter(mem),
		sources.NewActivityAdapter(mem, n),
	}
}

func owner(email string) sources.Owner {
	n := identity.NewNormalizer(nil)
	return sources.ResolveOwner(care.Account{Email: email, FirstName: "May", LastName: "Tan"}, n)
}

func TestAggregator_MergesChronologically(t *testing.T) {
	// Arrange: records across three collections, deliberately out of order.
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"title": "Dental", "date": "2025-11-20", "time": "14:00",
	}, "appointments", "user_example_com", "a1")
	mem.Put(store.Document{
		"name": "Metformin", "date": "2025-11-10", "time": "08:00",
	}, "medications", "user_example_com", "m1")
	mem.Put(store.Document{
		"title": "Follow-up", "date": "2025-11-10", "time": "16:00",
	}, "consultations", "user_example_com", "c1")

	agg := NewAggregator(allAdapters(mem), zap.NewNop())

	// Act
	timeline := agg.Collect(context.Background(), owner("user@example.com"), temporal.ModeUpcoming, testNow)

	// Assert
	require.Len(t, timeline.Entries, 3)
	assert.Equal(t, "Metformin", timeline.Entries[0].Event.Base().Title)
	assert.Equal(t, "Follow-up", timeline.Entries[1].Event.Base().Title)
	assert.Equal(t, "Dental", timeline.Entries[2].Event.Base().Title)

	assert.Equal(t, 1, timeline.Counts[care.SourceAppointment])
	assert.Equal(t, 1, timeline.Counts[care.SourceConsultation])
	assert.Equal(t, 1, timeline.Counts[care.SourceMedication])
	assert.Equal(t, 0, timeline.Counts[care.SourceReminder])
	assert.Empty(t, timeline.Degraded)

	for _, e := range timeline.Entries {
		assert.Equal(t, OwnershipSelf, e.Ownership)
		assert.Equal(t, "May Tan", e.OwnerName)
	}
}

func TestAggregator_FailedSourceFoldsToEmpty(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"title": "Dental", "date": "2025-11-20",
	}, "appointments", "user_example_com", "a1")
	mem.FailOn(errors.New("table throttled"), "medications")

	agg := NewAggregator(allAdapters(mem), zap.NewNop())

	timeline := agg.Collect(context.Background(), owner("user@example.com"), temporal.ModeUpcoming, testNow)

	// The medications failure degrades that source only.
	require.Len(t, timeline.Entries, 1)
	assert.Equal(t, "Dental", timeline.Entries[0].Event.Base().Title)
	assert.Equal(t, 0, timeline.Counts[care.SourceMedication])
	assert.Equal(t, []care.SourceType{care.SourceMedication}, timeline.Degraded)
}

func TestAggregator_UnparseableDateSortsLast(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"title": "No date", "date": "soon",
	}, "appointments", "user_example_com", "a1")
	mem.Put(store.Document{
		"title": "Dated", "date": "2025-12-01",
	}, "appointments", "user_example_com", "a2")

	agg := NewAggregator(allAdapters(mem), zap.NewNop())

	timeline := agg.Collect(context.Background(), owner("user@example.com"), temporal.ModeAll, testNow)

	require.Len(t, timeline.Entries, 2)
	assert.Equal(t, "Dated", timeline.Entries[0].Event.Base().Title)
	assert.Equal(t, "No date", timeline.Entries[1].Event.Base().Title)
}

func TestAggregator_CollectSources(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"title": "Dental", "date": "2025-11-20",
	}, "appointments", "user_example_com", "a1")
	mem.Put(store.Document{
		"name": "Metformin", "date": "2025-11-10",
	}, "medications", "user_example_com", "m1")

	agg := NewAggregator(allAdapters(mem), zap.NewNop())

	timeline := agg.CollectSources(context.Background(), owner("user@example.com"),
		[]care.SourceType{care.SourceAppointment}, temporal.ModeUpcoming, testNow)

	require.Len(t, timeline.Entries, 1)
	assert.Equal(t, "Dental", timeline.Entries[0].Event.Base().Title)
	_, medsQueried := timeline.Counts[care.SourceMedication]
	assert.False(t, medsQueried)
}

func TestAggregator_CollectCombined(t *testing.T) {
	// Arrange: the caregiver's own consultation plus a recipient's full
	// schedule, interleaved by time.
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"title": "Team sync", "date": "2025-11-12", "time": "09:00",
	}, "consultations", "caregiver_example_com", "c1")
	mem.Put(store.Document{
		"title": "Eye check", "date": "2025-11-11", "time": "10:00",
	}, "appointments", "elderly_example_com", "a1")
	mem.Put(store.Document{
		"name": "Aspirin", "date": "2025-11-13", "time": "08:00",
	}, "medications", "elderly_example_com", "m1")

	agg := NewAggregator(allAdapters(mem), zap.NewNop())

	caregiver := owner("caregiver@example.com")
	recipient := owner("elderly@example.com")

	// Act
	timeline := agg.CollectCombined(context.Background(), []Participant{
		{Owner: caregiver, Ownership: OwnershipCaregiver, Sources: []care.SourceType{care.SourceConsultation}},
		{Owner: recipient, Ownership: OwnershipRecipient},
	}, temporal.ModeUpcoming, testNow)

	// Assert: chronological across owners, ownership tags preserved.
	require.Len(t, timeline.Entries, 3)
	assert.Equal(t, "Eye check", timeline.Entries[0].Event.Base().Title)
	assert.Equal(t, OwnershipRecipient, timeline.Entries[0].Ownership)
	assert.Equal(t, "Team sync", timeline.Entries[1].Event.Base().Title)
	assert.Equal(t, OwnershipCaregiver, timeline.Entries[1].Ownership)
	assert.Equal(t, "Aspirin", timeline.Entries[2].Event.Base().Title)

	assert.Equal(t, 2, timeline.Counts[care.SourceConsultation]+timeline.Counts[care.SourceAppointment])
	assert.Equal(t, 1, timeline.Counts[care.SourceMedication])
}

func TestAggregator_RecordsSourceOutcomes(t *testing.T) {
	// Arrange: one healthy source, one failing source.
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"title": "Dental", "date": "2025-11-20",
	}, "appointments", "user_example_com", "a1")
	mem.FailOn(errors.New("table throttled"), "medications")

	collector := observability.NewCollector("test")
	agg := NewAggregator(allAdapters(mem), zap.NewNop(), WithMetrics(collector))

	// Act
	agg.Collect(context.Background(), owner("user@example.com"), temporal.ModeUpcoming, testNow)

	// Assert: every adapter outcome is counted, split by status.
	fetches := collector.SourceFetches
	assert.Equal(t, 1.0, testutil.ToFloat64(fetches.WithLabelValues(string(care.SourceMedication), "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(fetches.WithLabelValues(string(care.SourceAppointment), "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(fetches.WithLabelValues(string(care.SourceAppointment), "error")))
}

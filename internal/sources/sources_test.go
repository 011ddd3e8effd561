package sources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/identity"
	"carelink-backend/internal/store"
	"carelink-backend/internal/temporal"
	apperrors "carelink-backend/pkg/errors"
)

var testNow = time.Date(2025, 11, 9, 10, 0, 0, 0, time.Local)

func testOwner(email string) Owner {
	n := identity.NewNormalizer(nil)
	return ResolveOwner(care.Account{UID: "uid-1", Email: email}, n)
}

func TestMedicationAdapter_ReconcilesSeparatorSchemes(t *testing.T) {
	// Arrange: the account is keyed with the underscore scheme but the
	// medication subtree was written under the legacy comma scheme.
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"name":   "Metformin",
		"date":   "2025-11-09",
		"time":   "08:00",
		"dosage": "500mg",
	}, "medications", "user_example,com", "med-1")

	adapter := NewMedicationAdapter(mem)
	owner := testOwner("user@example.com")

	// Act
	events, err := adapter.Fetch(context.Background(), owner, temporal.ModeToday, testNow)

	// Assert
	require.NoError(t, err)
	require.Len(t, events, 1)
	med, ok := events[0].(care.MedicationEvent)
	require.True(t, ok)
	assert.Equal(t, "Metformin", med.Title)
	assert.Equal(t, "500mg", med.Dosage)
	assert.Equal(t, "user@example.com", med.OwnerID)
}

func TestAppointmentAdapter_SlashDatesSortChronologically(t *testing.T) {
	// Arrange: "02/01/2025" compares before "2025-01-15" as a raw string but
	// is the later day.
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"title": "Early", "date": "2025-01-15",
	}, "appointments", "user_example_com", "a1")
	mem.Put(store.Document{
		"title": "Late", "date": "02/01/2025",
	}, "appointments", "user_example_com", "a2")

	adapter := NewAppointmentAdapter(mem)

	// Act
	events, err := adapter.Fetch(context.Background(), testOwner("user@example.com"), temporal.ModeAll, testNow)

	// Assert
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Early", events[0].Base().Title)
	assert.Equal(t, "Late", events[1].Base().Title)
}

func TestAppointmentAdapter_HistoryLimitOption(t *testing.T) {
	// Arrange: three past appointments across mixed date layouts.
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"title": "January", "date": "2025-01-10",
	}, "appointments", "user_example_com", "a1")
	mem.Put(store.Document{
		"title": "February", "date": "02/01/2025",
	}, "appointments", "user_example_com", "a2")
	mem.Put(store.Document{
		"title": "March", "date": "2025-03-05",
	}, "appointments", "user_example_com", "a3")

	adapter := NewAppointmentAdapter(mem, WithHistoryLimit(2))

	// Act
	events, err := adapter.Fetch(context.Background(), testOwner("user@example.com"), temporal.ModePast, testNow)

	// Assert: capped to the two chronologically most recent records.
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "February", events[0].Base().Title)
	assert.Equal(t, "March", events[1].Base().Title)
}

func TestMedicationAdapter_PendingSortsBeforeCompleted(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"name": "Aspirin", "date": "2025-11-09", "time": "08:00", "isCompleted": true,
	}, "medications", "user_example_com", "med-a")
	mem.Put(store.Document{
		"name": "Lisinopril", "date": "2025-11-09", "time": "20:00", "isCompleted": false,
	}, "medications", "user_example_com", "med-b")

	adapter := NewMedicationAdapter(mem)

	events, err := adapter.Fetch(context.Background(), testOwner("user@example.com"), temporal.ModeToday, testNow)

	require.NoError(t, err)
	require.Len(t, events, 2)
	// The pending intake sorts first even though its time is later.
	assert.Equal(t, "Lisinopril", events[0].Base().Title)
	assert.False(t, events[0].Base().Completed)
	assert.Equal(t, "Aspirin", events[1].Base().Title)
}

func TestAppointmentAdapter_DefaultsAndFilter(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"date": "2025-11-09", "location": "Clinic A",
	}, "appointments", "user_example_com", "appt-1")
	mem.Put(store.Document{
		"title": "Dental", "date": "2025-11-20", "time": "14:30",
	}, "appointments", "user_example_com", "appt-2")
	mem.Put(store.Document{
		"title": "Old visit", "date": "2025-01-05",
	}, "appointments", "user_example_com", "appt-3")

	adapter := NewAppointmentAdapter(mem)
	owner := testOwner("user@example.com")

	upcoming, err := adapter.Fetch(context.Background(), owner, temporal.ModeUpcoming, testNow)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)

	// Missing title and time get their defaults.
	first := upcoming[0].Base()
	assert.Equal(t, "Appointment", first.Title)
	assert.Equal(t, care.DefaultTime, first.Time)

	past, err := adapter.Fetch(context.Background(), owner, temporal.ModePast, testNow)
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.Equal(t, "Old visit", past[0].Base().Title)
}

func TestAppointmentAdapter_MalformedDateExcludedExceptAll(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"title": "Broken", "date": "not-a-date",
	}, "appointments", "user_example_com", "appt-x")

	adapter := NewAppointmentAdapter(mem)
	owner := testOwner("user@example.com")

	for _, mode := range []temporal.Mode{temporal.ModeToday, temporal.ModePast, temporal.ModeUpcoming} {
		events, err := adapter.Fetch(context.Background(), owner, mode, testNow)
		require.NoError(t, err)
		assert.Empty(t, events, "mode %s", mode)
	}

	all, err := adapter.Fetch(context.Background(), owner, temporal.ModeAll, testNow)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestReminderAdapter_ISODatetime(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"title": "Take a walk", "datetime": "2025-11-09T16:30:00Z",
	}, "reminders", "user_example_com", "rem-1")
	mem.Put(store.Document{
		"title": "Call family", "datetime": "2025-11-12T09:00:00Z",
	}, "reminders", "user_example_com", "rem-2")

	adapter := NewReminderAdapter(mem)
	owner := testOwner("user@example.com")

	today, err := adapter.Fetch(context.Background(), owner, temporal.ModeToday, testNow)
	require.NoError(t, err)
	require.Len(t, today, 1)

	rem, ok := today[0].(care.ReminderEvent)
	require.True(t, ok)
	assert.Equal(t, "Take a walk", rem.Title)
	assert.Equal(t, "2025-11-09", rem.Date)
	assert.NotEqual(t, care.DefaultTime, rem.Time)
}

func TestActivityAdapter_NestedRegistrations(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"title": "Tai Chi", "date": "2025-11-15", "location": "Community Hall",
		"registrations": map[string]any{
			"user_example_com": map[string]any{
				"email":        "user@example.com",
				"registeredAt": "2025-11-01T08:00:00Z",
			},
		},
	}, "activities", "act-1")
	mem.Put(store.Document{
		"title": "Bingo", "date": "2025-11-16",
		"registrations": map[string]any{
			"someone_else_org": map[string]any{"email": "someone@else.org"},
		},
	}, "activities", "act-2")

	n := identity.NewNormalizer(nil)
	adapter := NewActivityAdapter(mem, n)
	owner := testOwner("user@example.com")

	events, err := adapter.Fetch(context.Background(), owner, temporal.ModeUpcoming, testNow)

	require.NoError(t, err)
	require.Len(t, events, 1)
	act, ok := events[0].(care.ActivityEvent)
	require.True(t, ok)
	assert.Equal(t, "Tai Chi", act.Title)
	assert.Equal(t, "2025-11-01T08:00:00Z", act.RegisteredAt)
}

func TestRoutineAdapter_Fetch(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"name": "Morning stretch", "date": "2025-11-09", "time": "07:00",
		"days": []any{"mon", "wed", "fri"},
	}, "routines", "user_example_com", "rt-1")

	adapter := NewRoutineAdapter(mem)

	events, err := adapter.Fetch(context.Background(), testOwner("user@example.com"), temporal.ModeToday, testNow)

	require.NoError(t, err)
	require.Len(t, events, 1)
	rt, ok := events[0].(care.RoutineEvent)
	require.True(t, ok)
	assert.Equal(t, []string{"mon", "wed", "fri"}, rt.Days)
}

func TestFetch_NoDataIsEmptyNotError(t *testing.T) {
	adapter := NewAppointmentAdapter(store.NewMemoryStore())

	events, err := adapter.Fetch(context.Background(), testOwner("user@example.com"), temporal.ModeUpcoming, testNow)

	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAccountsRepository_FindByIdentifier(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Put(store.Document{
		"uid": "uid-9", "email": "user@example.com", "userType": "elderly",
		"firstName": "May", "lastName": "Tan",
	}, "accounts", "user_example_com")

	repo := NewAccountsRepository(mem, identity.NewNormalizer(nil))

	// Direct probe via the encoded key.
	account, err := repo.FindByIdentifier(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "uid-9", account.UID)
	assert.Equal(t, "May Tan", account.FullName())

	// Scan fallback: a UID is not a store key but matches the uid field.
	account, err = repo.FindByIdentifier(context.Background(), "uid-9")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", account.Email)

	// Unknown identifier surfaces the typed not-found error.
	_, err = repo.FindByIdentifier(context.Background(), "nobody@nowhere.org")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestOwner_ProbeKeys(t *testing.T) {
	n := identity.NewNormalizer(nil)
	owner := ResolveOwner(care.Account{
		UID:             "uid-1",
		Email:           "user@example.com",
		NormalizedEmail: "user_example_com",
	}, n)

	keys := owner.probeKeys()

	// Normalized store key first, UID last, no duplicates.
	assert.Equal(t, "user_example_com", keys[0])
	assert.Contains(t, keys, "user_example,com")
	assert.Contains(t, keys, "uid-1")
	seen := map[string]bool{}
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate probe key %s", k)
		seen[k] = true
	}
}

package assistant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/identity"
	"carelink-backend/internal/intent"
	"carelink-backend/internal/notifications"
	"carelink-backend/internal/relationship"
	"carelink-backend/internal/schedule"
	"carelink-backend/internal/sources"
	"carelink-backend/internal/store"
	apperrors "carelink-backend/pkg/errors"
)

var testNow = time.Date(2025, 11, 9, 10, 0, 0, 0, time.Local)

// recordingAudit captures published audit records for assertion.
type recordingAudit struct {
	mu      sync.Mutex
	records []notifications.AuditRecord
}

func (r *recordingAudit) QueryHandled(_ context.Context, record notifications.AuditRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

func (r *recordingAudit) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func seed(mem *store.MemoryStore) {
	mem.Put(store.Document{
		"uid": "uid-e1", "email": "elderly@example.com", "userType": "elderly",
		"firstName": "May", "lastName": "Tan",
		"medicalConditions": []any{"hypertension", "diabetes"},
	}, "accounts", "elderly_example_com")
	mem.Put(store.Document{
		"uid": "cg-1", "email": "caregiver@example.com", "userType": "caregiver",
		"firstName": "Rita", "lastName": "Lim",
		"assignedElderly": "elderly@example.com",
	}, "accounts", "caregiver_example_com")

	mem.Put(store.Document{
		"name": "Metformin", "date": "2025-11-09", "time": "08:00",
	}, "medications", "elderly_example_com", "m1")
	mem.Put(store.Document{
		"name": "Aspirin", "date": "2025-11-09", "time": "20:00",
	}, "medications", "elderly_example_com", "m2")
	mem.Put(store.Document{
		"title": "Eye check", "date": "2025-11-12", "time": "10:00",
	}, "appointments", "elderly_example_com", "a1")
	mem.Put(store.Document{
		"title": "Team sync", "date": "2025-11-11", "time": "09:00",
	}, "consultations", "caregiver_example_com", "c1")
}

// recordingMetrics captures query observations for assertion.
type recordingMetrics struct {
	mu    sync.Mutex
	calls []metricsCall
}

type metricsCall struct {
	intentType string
	err        error
}

func (m *recordingMetrics) QueryHandled(intentType string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, metricsCall{intentType: intentType, err: err})
}

func newService(mem *store.MemoryStore, audit notifications.AuditPublisher, opts ...Option) *Service {
	n := identity.NewNormalizer(nil)
	accounts := sources.NewAccountsRepository(mem, n)
	adapters := []sources.Adapter{
		sources.NewAppointmentAdapter(mem),
		sources.NewConsultationAdapter(mem),
		sources.NewMedicationAdapter(mem),
		sources.NewReminderAdapter(mem),
		sources.NewRoutineAdapter(mem),
		sources.NewActivityAdapter(mem, n),
	}
	agg := schedule.NewAggregator(adapters, zap.NewNop())
	resolver := relationship.NewResolver(accounts, n, nil, zap.NewNop())
	clock := func() time.Time { return testNow }
	return NewService(intent.NewClassifier(), accounts, n, agg, resolver, audit, 0, clock, zap.NewNop(), opts...)
}

func TestRespond_RecordsQueryMetrics(t *testing.T) {
	// Arrange
	mem := store.NewMemoryStore()
	seed(mem)
	metrics := &recordingMetrics{}
	svc := newService(mem, nil, WithMetrics(metrics))

	// Act: one answered query, one rejected before classification.
	_, err := svc.Respond(context.Background(), "elderly@example.com", "what are my medications today")
	require.NoError(t, err)
	_, err = svc.Respond(context.Background(), "elderly@example.com", "   ")
	require.Error(t, err)

	// Assert
	require.Len(t, metrics.calls, 2)
	assert.Equal(t, string(intent.TypeMedications), metrics.calls[0].intentType)
	assert.NoError(t, metrics.calls[0].err)
	assert.Equal(t, "unknown", metrics.calls[1].intentType)
	assert.Error(t, metrics.calls[1].err)
}

func TestRespond_MedicationsToday(t *testing.T) {
	// Arrange
	mem := store.NewMemoryStore()
	seed(mem)
	svc := newService(mem, nil)

	// Act
	resp, err := svc.Respond(context.Background(), "elderly@example.com", "what are my medications today")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, intent.TypeMedications, resp.Intent.Type)
	require.Len(t, resp.Timeline, 2)
	assert.Equal(t, "Metformin", resp.Timeline[0].Event.Base().Title)
	assert.Equal(t, 2, resp.Counts[care.SourceMedication])
}

func TestRespond_MedicationsMorningSubType(t *testing.T) {
	mem := store.NewMemoryStore()
	seed(mem)
	svc := newService(mem, nil)

	resp, err := svc.Respond(context.Background(), "elderly@example.com", "my morning medications today")

	require.NoError(t, err)
	require.Len(t, resp.Timeline, 1)
	assert.Equal(t, "Metformin", resp.Timeline[0].Event.Base().Title)
	assert.Equal(t, 1, resp.Counts[care.SourceMedication])
}

func TestRespond_ProfileName(t *testing.T) {
	mem := store.NewMemoryStore()
	seed(mem)
	svc := newService(mem, nil)

	resp, err := svc.Respond(context.Background(), "elderly@example.com", "what is my name")

	require.NoError(t, err)
	assert.Equal(t, intent.TypeProfileName, resp.Intent.Type)
	assert.Equal(t, "May Tan", resp.Sections["name"])
	assert.Empty(t, resp.Timeline)
}

func TestRespond_MyCaregiver(t *testing.T) {
	mem := store.NewMemoryStore()
	seed(mem)
	svc := newService(mem, nil)

	resp, err := svc.Respond(context.Background(), "elderly@example.com", "who is my caregiver")

	require.NoError(t, err)
	assert.Equal(t, intent.TypeMyCaregiver, resp.Intent.Type)
	assert.Equal(t, "Rita Lim", resp.Sections["caregiver"])
}

func TestRespond_HealthSummary(t *testing.T) {
	mem := store.NewMemoryStore()
	seed(mem)
	svc := newService(mem, nil)

	resp, err := svc.Respond(context.Background(), "elderly@example.com", "how is my health")

	require.NoError(t, err)
	assert.Equal(t, intent.TypeHealthSummary, resp.Intent.Type)
	assert.Equal(t, "hypertension, diabetes", resp.Sections["conditions"])
	assert.Len(t, resp.Timeline, 2)
}

func TestRespond_CaregiverElderlyAppointments(t *testing.T) {
	mem := store.NewMemoryStore()
	seed(mem)
	svc := newService(mem, nil)

	resp, err := svc.Respond(context.Background(), "caregiver@example.com", "show my elderly appointments")

	require.NoError(t, err)
	assert.Equal(t, intent.TypeElderlyAppointments, resp.Intent.Type)
	require.Len(t, resp.Timeline, 1)
	assert.Equal(t, "Eye check", resp.Timeline[0].Event.Base().Title)
	assert.Equal(t, schedule.OwnershipRecipient, resp.Timeline[0].Ownership)
	require.Len(t, resp.Recipients, 1)
	assert.Equal(t, "uid-e1", resp.Recipients[0].Account.UID)
}

func TestRespond_CaregiverSchedule_Interleaves(t *testing.T) {
	mem := store.NewMemoryStore()
	seed(mem)
	svc := newService(mem, nil)

	resp, err := svc.Respond(context.Background(), "caregiver@example.com", "show the full schedule for my elderly and me")

	require.NoError(t, err)
	assert.Equal(t, intent.TypeCaregiverSchedule, resp.Intent.Type)

	var ownerships []schedule.Ownership
	for _, e := range resp.Timeline {
		ownerships = append(ownerships, e.Ownership)
	}
	assert.Contains(t, ownerships, schedule.OwnershipCaregiver)
	assert.Contains(t, ownerships, schedule.OwnershipRecipient)
}

func TestRespond_EmptyMessageRejected(t *testing.T) {
	svc := newService(store.NewMemoryStore(), nil)

	_, err := svc.Respond(context.Background(), "elderly@example.com", "   ")

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestRespond_UnknownCaller(t *testing.T) {
	mem := store.NewMemoryStore()
	seed(mem)
	svc := newService(mem, nil)

	_, err := svc.Respond(context.Background(), "ghost@example.com", "what are my medications")

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRespond_PublishesAudit(t *testing.T) {
	mem := store.NewMemoryStore()
	seed(mem)
	audit := &recordingAudit{}
	svc := newService(mem, audit)

	_, err := svc.Respond(context.Background(), "elderly@example.com", "what are my medications today")
	require.NoError(t, err)

	// Publication is asynchronous.
	require.Eventually(t, func() bool { return audit.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	audit.mu.Lock()
	record := audit.records[0]
	audit.mu.Unlock()
	assert.Equal(t, string(intent.TypeMedications), record.Intent)
	assert.Equal(t, "elderly@example.com", record.CallerID)
	assert.Equal(t, 2, record.EntryCount)
	assert.NotEmpty(t, record.ID)
}

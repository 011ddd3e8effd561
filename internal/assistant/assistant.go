// Package assistant orchestrates a query end to end: classify the message,
// resolve the caller, fan out to the record sources the intent asks for and
// assemble the response. All reads; the only writes are fire-and-forget
// audit records.
package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/identity"
	"carelink-backend/internal/intent"
	"carelink-backend/internal/notifications"
	"carelink-backend/internal/relationship"
	"carelink-backend/internal/schedule"
	"carelink-backend/internal/sources"
	"carelink-backend/internal/temporal"
	apperrors "carelink-backend/pkg/errors"
)

// DefaultBudget bounds the wall clock spent answering one query. There are
// no per-source timeouts and no retries; the whole fan-out shares this one
// deadline.
const DefaultBudget = 10 * time.Second

// Response is the assembled answer to one query.
type Response struct {
	Intent   intent.Intent           `json:"intent"`
	Timeline []schedule.Entry        `json:"timeline"`
	Counts   map[care.SourceType]int `json:"counts"`
	Degraded []care.SourceType       `json:"degraded,omitempty"`
	// Sections carries the non-timeline parts of an answer: profile facts,
	// health summary lines, recipient listings.
	Sections map[string]string `json:"sections,omitempty"`
	// Recipients is populated for caregiver listing intents.
	Recipients []relationship.Recipient `json:"recipients,omitempty"`
}

// Metrics receives one observation per handled query.
type Metrics interface {
	QueryHandled(intentType string, err error)
}

// Service wires the classifier, identity resolution, relationship resolver
// and aggregator behind one entry point.
type Service struct {
	classifier *intent.Classifier
	accounts   *sources.AccountsRepository
	normalizer *identity.Normalizer
	aggregator *schedule.Aggregator
	resolver   *relationship.Resolver
	audit      notifications.AuditPublisher
	budget     time.Duration
	clock      func() time.Time
	logger     *zap.Logger
	metrics    Metrics
}

// Option tunes the service at construction time.
type Option func(*Service)

// WithMetrics attaches an instrumentation sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates the orchestrator. A zero budget takes DefaultBudget;
// nil audit drops audit records; nil clock uses the wall clock.
func NewService(
	classifier *intent.Classifier,
	accounts *sources.AccountsRepository,
	normalizer *identity.Normalizer,
	aggregator *schedule.Aggregator,
	resolver *relationship.Resolver,
	audit notifications.AuditPublisher,
	budget time.Duration,
	clock func() time.Time,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if clock == nil {
		clock = time.Now
	}
	if audit == nil {
		audit = notifications.NopAuditPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		classifier: classifier,
		accounts:   accounts,
		normalizer: normalizer,
		aggregator: aggregator,
		resolver:   resolver,
		audit:      audit,
		budget:     budget,
		clock:      clock,
		logger:     logger,
	}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

// Respond answers a free-text query for the given caller. The only errors
// are an unresolvable caller and validation failures; per-source trouble is
// folded into a degraded timeline instead.
func (s *Service) Respond(ctx context.Context, callerID, message string) (Response, error) {
	resp, intentType, err := s.respond(ctx, callerID, message)
	if s.metrics != nil {
		s.metrics.QueryHandled(intentType, err)
	}
	return resp, err
}

func (s *Service) respond(ctx context.Context, callerID, message string) (Response, string, error) {
	// Queries rejected before classification count under "unknown".
	intentType := "unknown"

	if strings.TrimSpace(message) == "" {
		return Response{}, intentType, apperrors.NewValidation("empty message")
	}
	if strings.TrimSpace(callerID) == "" {
		return Response{}, intentType, apperrors.NewValidation("empty caller identifier")
	}

	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	in := s.classifier.Classify(message)
	intentType = string(in.Type)

	account, err := s.accounts.FindByIdentifier(ctx, callerID)
	if err != nil {
		return Response{}, intentType, err
	}
	owner := sources.ResolveOwner(account, s.normalizer)
	now := s.clock()

	resp, err := s.route(ctx, in, account, owner, now)
	if err != nil {
		return Response{}, intentType, err
	}
	resp.Intent = in

	s.publishAudit(ctx, callerID, in, resp)
	return resp, intentType, nil
}

func (s *Service) route(ctx context.Context, in intent.Intent, account care.Account, owner sources.Owner, now time.Time) (Response, error) {
	switch in.Type {
	case intent.TypeAppointments, intent.TypeConsultations, intent.TypeReminders,
		intent.TypeRoutines, intent.TypeActivities:
		t := s.aggregator.CollectSources(ctx, owner, []care.SourceType{sourceForIntent(in.Type)}, in.DateQuery, now)
		return fromTimeline(t), nil

	case intent.TypeMedications:
		t := s.aggregator.CollectSources(ctx, owner, []care.SourceType{care.SourceMedication}, in.DateQuery, now)
		resp := fromTimeline(t)
		if in.SubType != "" {
			resp.Timeline = filterTimeOfDay(resp.Timeline, in.SubType)
			resp.Counts[care.SourceMedication] = len(resp.Timeline)
		}
		return resp, nil

	case intent.TypeSchedule:
		return fromTimeline(s.aggregator.Collect(ctx, owner, in.DateQuery, now)), nil

	case intent.TypeHealthSummary:
		return s.healthSummary(ctx, account, owner, now), nil

	case intent.TypeProfileName:
		return Response{Sections: map[string]string{"name": account.FullName()}}, nil

	case intent.TypeMyCaregiver:
		return s.myCaregiver(ctx, account)

	case intent.TypeElderlyList:
		recipients, err := s.resolver.Recipients(ctx, callerKey(account))
		if err != nil {
			return Response{}, err
		}
		return Response{
			Recipients: recipients,
			Sections:   map[string]string{"recipients": recipientNames(recipients)},
		}, nil

	case intent.TypeElderlyAppointments, intent.TypeElderlyConsultations, intent.TypeElderlyMedications:
		return s.recipientSource(ctx, account, in, now)

	case intent.TypeCaregiverSchedule:
		return s.caregiverSchedule(ctx, account, owner, in, now)
	}

	// Unknown types behave like the classifier's fallback.
	t := s.aggregator.CollectSources(ctx, owner, []care.SourceType{care.SourceAppointment}, in.DateQuery, now)
	return fromTimeline(t), nil
}

// healthSummary answers "how is my health": recorded conditions plus
// today's medication snapshot.
func (s *Service) healthSummary(ctx context.Context, account care.Account, owner sources.Owner, now time.Time) Response {
	t := s.aggregator.CollectSources(ctx, owner, []care.SourceType{care.SourceMedication}, temporal.ModeToday, now)
	resp := fromTimeline(t)

	conditions := "none recorded"
	if len(account.MedicalConditions) > 0 {
		conditions = strings.Join(account.MedicalConditions, ", ")
	}
	resp.Sections = map[string]string{"conditions": conditions}
	return resp
}

// myCaregiver scans caregiver accounts for one whose assignment edges point
// back at the caller.
func (s *Service) myCaregiver(ctx context.Context, account care.Account) (Response, error) {
	accounts, err := s.accounts.All(ctx)
	if err != nil {
		return Response{}, err
	}

	names := make([]string, 0, 1)
	for _, candidate := range accounts {
		if !candidate.IsCaregiver() {
			continue
		}
		for _, edge := range s.resolver.Edges(candidate) {
			id := s.normalizer.Canonicalize(edge.RecipientID)
			matched := false
			for _, known := range account.Identifiers() {
				if s.normalizer.MatchesIdentity(id, known) {
					matched = true
					break
				}
			}
			if matched {
				names = append(names, candidate.FullName())
				break
			}
		}
	}

	answer := "no caregiver assigned"
	if len(names) > 0 {
		answer = strings.Join(names, ", ")
	}
	return Response{Sections: map[string]string{"caregiver": answer}}, nil
}

// recipientSource serves "show my elderly's appointments" style intents:
// one source across every assigned recipient, or just the named one.
func (s *Service) recipientSource(ctx context.Context, account care.Account, in intent.Intent, now time.Time) (Response, error) {
	recipients, err := s.resolver.Recipients(ctx, callerKey(account))
	if err != nil {
		return Response{}, err
	}
	recipients = filterByTarget(recipients, in.SpecificTarget)

	source := care.SourceAppointment
	switch in.Type {
	case intent.TypeElderlyConsultations:
		source = care.SourceConsultation
	case intent.TypeElderlyMedications:
		source = care.SourceMedication
	}

	participants := make([]schedule.Participant, 0, len(recipients))
	for _, r := range recipients {
		participants = append(participants, schedule.Participant{
			Owner:     sources.ResolveOwner(r.Account, s.normalizer),
			Ownership: schedule.OwnershipRecipient,
			Sources:   []care.SourceType{source},
		})
	}

	resp := fromTimeline(s.aggregator.CollectCombined(ctx, participants, in.DateQuery, now))
	resp.Recipients = recipients
	return resp, nil
}

// caregiverSchedule interleaves the caregiver's own consultations with every
// assigned recipient's full schedule.
func (s *Service) caregiverSchedule(ctx context.Context, account care.Account, owner sources.Owner, in intent.Intent, now time.Time) (Response, error) {
	recipients, err := s.resolver.Recipients(ctx, callerKey(account))
	if err != nil {
		return Response{}, err
	}

	participants := make([]schedule.Participant, 0, len(recipients)+1)
	participants = append(participants, schedule.Participant{
		Owner:     owner,
		Ownership: schedule.OwnershipCaregiver,
		Sources:   []care.SourceType{care.SourceConsultation},
	})
	for _, r := range recipients {
		participants = append(participants, schedule.Participant{
			Owner:     sources.ResolveOwner(r.Account, s.normalizer),
			Ownership: schedule.OwnershipRecipient,
		})
	}

	return fromTimeline(s.aggregator.CollectCombined(ctx, participants, in.DateQuery, now)), nil
}

// Recipients exposes the enriched recipient set for the dashboard endpoint.
func (s *Service) Recipients(ctx context.Context, callerID string) ([]relationship.Recipient, error) {
	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()
	return s.resolver.Recipients(ctx, callerID)
}

// publishAudit emits the audit record without blocking the response.
func (s *Service) publishAudit(ctx context.Context, callerID string, in intent.Intent, resp Response) {
	record := notifications.AuditRecord{
		ID:         uuid.NewString(),
		CallerID:   callerID,
		Intent:     string(in.Type),
		DateQuery:  string(in.DateQuery),
		EntryCount: len(resp.Timeline),
		HandledAt:  s.clock(),
	}
	for _, src := range resp.Degraded {
		record.Degraded = append(record.Degraded, string(src))
	}

	audit := s.audit
	bg := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(bg, 5*time.Second)
		defer cancel()
		audit.QueryHandled(ctx, record)
	}()
}

// callerKey prefers the UID for re-resolving the caller; very old accounts
// predate stored UIDs.
func callerKey(account care.Account) string {
	if account.UID != "" {
		return account.UID
	}
	return account.Email
}

func fromTimeline(t schedule.Timeline) Response {
	return Response{
		Timeline: t.Entries,
		Counts:   t.Counts,
		Degraded: t.Degraded,
	}
}

func sourceForIntent(t intent.Type) care.SourceType {
	switch t {
	case intent.TypeConsultations:
		return care.SourceConsultation
	case intent.TypeReminders:
		return care.SourceReminder
	case intent.TypeRoutines:
		return care.SourceRoutine
	case intent.TypeActivities:
		return care.SourceActivity
	default:
		return care.SourceAppointment
	}
}

// filterTimeOfDay keeps entries whose display time falls in the named
// bucket: morning before 12:00, afternoon 12:00-16:59, evening from 17:00.
func filterTimeOfDay(entries []schedule.Entry, bucket string) []schedule.Entry {
	out := make([]schedule.Entry, 0, len(entries))
	for _, e := range entries {
		hhmm := e.Event.Base().Time
		switch bucket {
		case "morning":
			if hhmm < "12:00" {
				out = append(out, e)
			}
		case "afternoon":
			if hhmm >= "12:00" && hhmm < "17:00" {
				out = append(out, e)
			}
		case "evening":
			if hhmm >= "17:00" {
				out = append(out, e)
			}
		default:
			out = append(out, e)
		}
	}
	return out
}

// filterByTarget narrows recipients to the one named in the message, when a
// name was extracted. No match keeps the full set rather than answering
// about nobody.
func filterByTarget(recipients []relationship.Recipient, target string) []relationship.Recipient {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return recipients
	}

	matched := make([]relationship.Recipient, 0, 1)
	for _, r := range recipients {
		name := strings.ToLower(r.Account.FullName())
		email := strings.ToLower(r.Account.Email)
		if strings.Contains(name, target) || strings.Contains(email, target) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return recipients
	}
	return matched
}

func recipientNames(recipients []relationship.Recipient) string {
	if len(recipients) == 0 {
		return "no assigned care recipients"
	}
	names := make([]string, 0, len(recipients))
	for _, r := range recipients {
		names = append(names, r.Account.FullName())
	}
	return strings.Join(names, ", ")
}

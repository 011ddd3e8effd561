// Package intent maps a free-text message to a structured query descriptor.
//
// Classification is an ordered chain of keyword predicates over the
// lower-cased, trimmed message; the first matching rule wins, so rule order
// encodes domain precedence ("who is my caregiver" must not be captured by
// the generic name rule, caregiver-view rules must fire before the per-source
// rules they overlap with). Classification never fails: a message no rule
// claims falls back to an appointments query with the date parsed from the
// message.
package intent

import (
	"strings"

	"carelink-backend/internal/temporal"
)

// Type enumerates the structured query kinds.
type Type string

const (
	TypeAppointments  Type = "appointments"
	TypeConsultations Type = "consultations"
	TypeMedications   Type = "medications"
	TypeReminders     Type = "reminders"
	TypeRoutines      Type = "routines"
	TypeActivities    Type = "activities"
	TypeSchedule      Type = "schedule"
	TypeHealthSummary Type = "health_summary"
	TypeProfileName   Type = "profile_name"
	TypeMyCaregiver   Type = "my_caregiver"

	// Caregiver views over assigned recipients.
	TypeElderlyList          Type = "caregiver_elderly_list"
	TypeElderlyAppointments  Type = "caregiver_elderly_appointments"
	TypeElderlyConsultations Type = "caregiver_elderly_consultations"
	TypeElderlyMedications   Type = "caregiver_elderly_medications"
	TypeCaregiverSchedule    Type = "caregiver_schedule"
)

// Intent is the structured interpretation of one message. Transient; derived
// purely from the text and never persisted.
type Intent struct {
	Type           Type          `json:"type"`
	DateQuery      temporal.Mode `json:"dateQuery"`
	SubType        string        `json:"subType,omitempty"`
	SpecificTarget string        `json:"specificTarget,omitempty"`
}

// rule is one predicate in the classification chain.
type rule struct {
	name  string
	match func(msg string) bool
	build func(msg string) Intent
}

// Classifier classifies messages. Zero-value construction via NewClassifier.
type Classifier struct {
	rules []rule
}

// NewClassifier builds the ordered rule chain.
func NewClassifier() *Classifier {
	return &Classifier{rules: buildRules()}
}

// Classify returns exactly one intent for the message. It cannot fail, only
// be imprecise.
func (c *Classifier) Classify(message string) Intent {
	msg := strings.ToLower(strings.TrimSpace(message))

	for _, r := range c.rules {
		if r.match(msg) {
			return r.build(msg)
		}
	}

	// Default: treat as an appointments query.
	return Intent{Type: TypeAppointments, DateQuery: DetectDateQuery(msg)}
}

func buildRules() []rule {
	return []rule{
		{
			// Must outrank the recipient-view rules and the name rule:
			// "who is my caregiver" mentions neither elderly nor schedule.
			name: "my caregiver",
			match: func(m string) bool {
				if containsAny(m, "elderly", "recipient") {
					return false
				}
				return strings.Contains(m, "my caregiver") ||
					(strings.Contains(m, "caregiver") && containsAny(m, "who", "name", "contact"))
			},
			build: func(m string) Intent {
				return Intent{Type: TypeMyCaregiver, DateQuery: temporal.ModeAll}
			},
		},
		{
			name: "elderly appointments",
			match: func(m string) bool {
				return mentionsRecipients(m) && containsAny(m, "appointment", "appt")
			},
			build: func(m string) Intent {
				return Intent{
					Type:           TypeElderlyAppointments,
					DateQuery:      DetectDateQuery(m),
					SpecificTarget: extractTarget(m),
				}
			},
		},
		{
			name: "elderly consultations",
			match: func(m string) bool {
				return mentionsRecipients(m) && containsAny(m, "consultation", "consult")
			},
			build: func(m string) Intent {
				return Intent{
					Type:           TypeElderlyConsultations,
					DateQuery:      DetectDateQuery(m),
					SpecificTarget: extractTarget(m),
				}
			},
		},
		{
			name: "elderly medications",
			match: func(m string) bool {
				return mentionsRecipients(m) && containsAny(m, "medication", "medicine", "pill", "prescription")
			},
			build: func(m string) Intent {
				return Intent{
					Type:           TypeElderlyMedications,
					DateQuery:      DetectDateQuery(m),
					SpecificTarget: extractTarget(m),
				}
			},
		},
		{
			name: "caregiver schedule",
			match: func(m string) bool {
				return mentionsRecipients(m) && containsAny(m, "schedule", "agenda", "calendar", "timeline")
			},
			build: func(m string) Intent {
				return Intent{Type: TypeCaregiverSchedule, DateQuery: DetectDateQuery(m)}
			},
		},
		{
			name: "elderly list",
			match: func(m string) bool {
				return mentionsRecipients(m)
			},
			build: func(m string) Intent {
				return Intent{Type: TypeElderlyList, DateQuery: temporal.ModeAll}
			},
		},
		{
			// Generic name question; the caregiver rule above already claimed
			// "what is my caregiver's name".
			name: "profile name",
			match: func(m string) bool {
				return strings.Contains(m, "my name") ||
					(strings.Contains(m, "who am i") && !strings.Contains(m, "caregiver"))
			},
			build: func(m string) Intent {
				return Intent{Type: TypeProfileName, DateQuery: temporal.ModeAll}
			},
		},
		{
			// "health" must not hijack "health appointment".
			name: "health summary",
			match: func(m string) bool {
				return containsAny(m, "health", "medical condition", "conditions") &&
					!containsAny(m, "appointment", "appt")
			},
			build: func(m string) Intent {
				return Intent{Type: TypeHealthSummary, DateQuery: temporal.ModeToday}
			},
		},
		{
			// Medication outranks reminder: "remind me about my medications"
			// is a medications query.
			name: "medications",
			match: func(m string) bool {
				return containsAny(m, "medication", "medicine", "pill", "prescription", "dose", "dosage")
			},
			build: func(m string) Intent {
				return Intent{
					Type:      TypeMedications,
					DateQuery: DetectDateQuery(m),
					SubType:   timeOfDay(m),
				}
			},
		},
		{
			name: "appointments",
			match: func(m string) bool {
				return containsAny(m, "appointment", "appt")
			},
			build: func(m string) Intent {
				return Intent{Type: TypeAppointments, DateQuery: DetectDateQuery(m)}
			},
		},
		{
			name: "consultations",
			match: func(m string) bool {
				return containsAny(m, "consultation", "consult", "checkup", "check-up", "doctor visit")
			},
			build: func(m string) Intent {
				return Intent{Type: TypeConsultations, DateQuery: DetectDateQuery(m)}
			},
		},
		{
			name: "reminders",
			match: func(m string) bool {
				return containsAny(m, "remind", "reminder") &&
					!containsAny(m, "medication", "medicine", "pill")
			},
			build: func(m string) Intent {
				return Intent{Type: TypeReminders, DateQuery: DetectDateQuery(m)}
			},
		},
		{
			name: "routines",
			match: func(m string) bool {
				return containsAny(m, "routine", "daily task", "daily activities")
			},
			build: func(m string) Intent {
				return Intent{Type: TypeRoutines, DateQuery: DetectDateQuery(m)}
			},
		},
		{
			name: "activities",
			match: func(m string) bool {
				return containsAny(m, "activity", "activities", "signed up", "registered")
			},
			build: func(m string) Intent {
				return Intent{Type: TypeActivities, DateQuery: DetectDateQuery(m)}
			},
		},
		{
			name: "full schedule",
			match: func(m string) bool {
				return containsAny(m, "schedule", "agenda", "calendar", "timeline", "my day", "what do i have")
			},
			build: func(m string) Intent {
				return Intent{Type: TypeSchedule, DateQuery: DetectDateQuery(m)}
			},
		},
	}
}

// DetectDateQuery classifies the date expression of a message. Literal day
// words win over concrete date patterns; absent both, the default bucket is
// upcoming.
func DetectDateQuery(message string) temporal.Mode {
	m := strings.ToLower(message)

	switch {
	case strings.Contains(m, "today") || strings.Contains(m, "tonight"):
		return temporal.ModeToday
	case strings.Contains(m, "tomorrow"):
		return temporal.ModeTomorrow
	case strings.Contains(m, "yesterday"):
		return temporal.ModeYesterday
	case containsAny(m, "past", "history", "previous", "completed", "earlier"):
		return temporal.ModePast
	case containsAny(m, "all", "every", "everything", "entire"):
		return temporal.ModeAll
	case containsAny(m, "upcoming", "future", "next", "later"):
		return temporal.ModeUpcoming
	}

	if phrase, ok := temporal.ExtractDatePhrase(m); ok {
		return temporal.Specific(phrase)
	}

	return temporal.ModeUpcoming
}

// mentionsRecipients reports whether the message is about the caller's
// assigned care recipients rather than the caller themselves.
func mentionsRecipients(m string) bool {
	return containsAny(m, "elderly", "elderlies", "care recipient", "my seniors", "patients")
}

func containsAny(m string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(m, k) {
			return true
		}
	}
	return false
}

// timeOfDay extracts a medication sub-type when the message names one.
func timeOfDay(m string) string {
	for _, slot := range []string{"morning", "afternoon", "evening", "night"} {
		if strings.Contains(m, slot) {
			return slot
		}
	}
	return ""
}

// targetStopWords are words that follow "for" without naming a person.
var targetStopWords = map[string]bool{
	"today": true, "tomorrow": true, "yesterday": true, "me": true,
	"them": true, "all": true, "everyone": true, "the": true,
}

// extractTarget pulls a named care recipient out of phrases like
// "appointments for mary".
func extractTarget(m string) string {
	idx := strings.Index(m, " for ")
	if idx < 0 {
		return ""
	}
	rest := strings.Fields(m[idx+len(" for "):])
	if len(rest) == 0 {
		return ""
	}
	candidate := strings.Trim(rest[0], ".,!?")
	if targetStopWords[candidate] || candidate == "" {
		return ""
	}
	return candidate
}

// Package care defines the domain types of the care-coordination core:
// accounts, caregiver-recipient relationship edges, and the normalized event
// union produced by the record-source adapters.
package care

import "strings"

// UserType distinguishes the two kinds of accounts.
type UserType string

const (
	UserTypeElderly   UserType = "elderly"
	UserTypeCaregiver UserType = "caregiver"
)

// EmergencyContact is the contact block on an account record.
type EmergencyContact struct {
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Relation string `json:"relation,omitempty"`
}

// Account is a stored identity. Accounts are created by the surrounding
// application on registration and are read-only to this core.
type Account struct {
	UID               string           `json:"uid"`
	Email             string           `json:"email"`
	NormalizedEmail   string           `json:"normalizedEmail,omitempty"`
	UserType          UserType         `json:"userType"`
	FirstName         string           `json:"firstName,omitempty"`
	LastName          string           `json:"lastName,omitempty"`
	BirthDate         string           `json:"birthDate,omitempty"`
	MedicalConditions []string         `json:"medicalConditions,omitempty"`
	Phone             string           `json:"phone,omitempty"`
	Address           string           `json:"address,omitempty"`
	EmergencyContact  EmergencyContact `json:"emergencyContact,omitempty"`

	// Raw keeps the record's remaining fields; the relationship resolver
	// probes it for the redundantly encoded assignment fields.
	Raw map[string]any `json:"-"`
}

// FullName returns the display name, falling back to the email local part.
func (a Account) FullName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name != "" {
		return name
	}
	if at := strings.Index(a.Email, "@"); at > 0 {
		return a.Email[:at]
	}
	return a.Email
}

// Identifiers returns every identifier the account is known by, for
// normalized matching. Order matters: uid first, then raw email, then the
// store's normalized email.
func (a Account) Identifiers() []string {
	ids := make([]string, 0, 3)
	for _, id := range []string{a.UID, a.Email, a.NormalizedEmail} {
		if strings.TrimSpace(id) != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsCaregiver reports whether the account is a caregiver account.
func (a Account) IsCaregiver() bool { return a.UserType == UserTypeCaregiver }

// RelationshipEdge is a confirmed caregiver-to-recipient assignment. The
// store encodes these redundantly across several account fields; edges are
// normalized to this type before any matching logic runs.
type RelationshipEdge struct {
	CaregiverID string `json:"caregiverId"`
	RecipientID string `json:"recipientId"`
	// SourceField records which legacy field yielded the edge.
	SourceField string `json:"sourceField"`
}

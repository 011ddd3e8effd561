package sources

import (
	"context"
	"errors"
	"strings"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/identity"
	"carelink-backend/internal/store"
	apperrors "carelink-backend/pkg/errors"
)

// AccountsRepository reads the accounts collection. Account records are keyed
// by UID or normalized email depending on when they were registered, so
// lookups probe direct keys first and fall back to a normalized scan.
type AccountsRepository struct {
	docs       store.DocumentStore
	normalizer *identity.Normalizer
}

// NewAccountsRepository creates the accounts reader.
func NewAccountsRepository(docs store.DocumentStore, normalizer *identity.Normalizer) *AccountsRepository {
	return &AccountsRepository{docs: docs, normalizer: normalizer}
}

// All returns every account record.
func (r *AccountsRepository) All(ctx context.Context) ([]care.Account, error) {
	raw, err := r.docs.List(ctx, store.CollectionAccounts)
	if err != nil {
		return nil, err
	}

	accounts := make([]care.Account, 0, len(raw))
	for key, doc := range raw {
		accounts = append(accounts, parseAccount(key, doc))
	}
	return accounts, nil
}

// FindByIdentifier resolves a caller identifier (email or UID, in any
// historical encoding) to its account. Returns a NOT_FOUND application error
// when nothing matches.
func (r *AccountsRepository) FindByIdentifier(ctx context.Context, rawID string) (care.Account, error) {
	id := r.normalizer.Canonicalize(rawID)
	if id.IsZero() {
		return care.Account{}, apperrors.NewValidation("empty caller identifier")
	}

	// Direct key probes before the full scan.
	probes := append([]string{id.Canonical()}, id.StoreKeys()...)
	for _, key := range probes {
		doc, err := r.docs.Get(ctx, store.CollectionAccounts, key)
		if err != nil {
			if errors.Is(err, store.ErrDocumentNotFound) {
				continue
			}
			return care.Account{}, err
		}
		return parseAccount(key, doc), nil
	}

	// Fall back to matching any stored identifier under the normalizer.
	accounts, err := r.All(ctx)
	if err != nil {
		return care.Account{}, err
	}
	for _, account := range accounts {
		for _, known := range account.Identifiers() {
			if r.normalizer.MatchesIdentity(id, known) {
				return account, nil
			}
		}
	}

	return care.Account{}, apperrors.NewNotFound("no account matches identifier")
}

// parseAccount maps a raw account document into the domain type. The record
// key doubles as the UID for accounts stored before UIDs were written as a
// field.
func parseAccount(key string, doc store.Document) care.Account {
	uid := doc.GetString("uid", "userId", "id")
	if uid == "" {
		uid = key
	}

	userType := care.UserType(strings.ToLower(doc.GetString("userType", "role", "type")))
	if userType != care.UserTypeCaregiver {
		userType = care.UserTypeElderly
	}

	contact := care.EmergencyContact{}
	if ec := doc.GetMap("emergencyContact"); ec != nil {
		contact = care.EmergencyContact{
			Name:     ec.GetString("name"),
			Phone:    ec.GetString("phone", "phoneNumber"),
			Relation: ec.GetString("relation", "relationship"),
		}
	}

	return care.Account{
		UID:               uid,
		Email:             doc.GetString("email"),
		NormalizedEmail:   doc.GetString("normalizedEmail", "emailKey"),
		UserType:          userType,
		FirstName:         doc.GetString("firstName", "firstname"),
		LastName:          doc.GetString("lastName", "lastname"),
		BirthDate:         doc.GetString("birthDate", "dateOfBirth"),
		MedicalConditions: doc.GetStringSlice("medicalConditions"),
		Phone:             doc.GetString("phone", "phoneNumber"),
		Address:           doc.GetString("address"),
		EmergencyContact:  contact,
		Raw:               doc,
	}
}

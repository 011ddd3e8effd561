// Package relationship resolves caregiver-to-recipient assignments. The
// store never gained a dedicated relationship collection: assignments were
// written onto caregiver account records under six different field names over
// the product's lifetime, as single values or arrays, holding UIDs, raw
// emails or store-encoded emails. The resolver normalizes all of that into
// explicit edges and matches them against account identifiers.
package relationship

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"carelink-backend/internal/domain/care"
	"carelink-backend/internal/identity"
	"carelink-backend/internal/sources"
	"carelink-backend/internal/store"
	apperrors "carelink-backend/pkg/errors"
)

// ErrCaregiverNotFound is returned when the caller identifier resolves to no
// account at all. A resolvable caregiver with no assignments is not an
// error; it yields an empty recipient set.
var ErrCaregiverNotFound = errors.New("caregiver account not found")

// relationshipFields is the ordered list of legacy assignment fields probed
// on a caregiver record. "assignedElderly" historically held a single value;
// the rest were arrays, but records exist with either shape under every
// name, so all six accept both.
var relationshipFields = []string{
	"assignedElderly",
	"assignedElderlies",
	"elderlyIds",
	"elderlyEmails",
	"careRecipients",
	"elderly",
}

// Recipient is one resolved care recipient: the matched account, the edge
// that produced it, and the dashboard enrichment block.
type Recipient struct {
	Account    care.Account
	Edge       care.RelationshipEdge
	Enrichment Enrichment
}

// Resolver turns a caller identifier into the set of accounts that caller
// is assigned to care for.
type Resolver struct {
	accounts   *sources.AccountsRepository
	normalizer *identity.Normalizer
	enricher   *Enricher
	logger     *zap.Logger
}

// NewResolver creates the resolver. A nil enricher disables enrichment;
// recipients then carry a zero Enrichment block.
func NewResolver(accounts *sources.AccountsRepository, normalizer *identity.Normalizer, enricher *Enricher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		accounts:   accounts,
		normalizer: normalizer,
		enricher:   enricher,
		logger:     logger,
	}
}

// Caregiver resolves the caller to their account, or ErrCaregiverNotFound.
func (r *Resolver) Caregiver(ctx context.Context, callerID string) (care.Account, error) {
	account, err := r.accounts.FindByIdentifier(ctx, callerID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return care.Account{}, ErrCaregiverNotFound
		}
		return care.Account{}, err
	}
	return account, nil
}

// Edges extracts the raw assignment edges from a caregiver record, one per
// value per populated field. No matching happens here: an edge may point at
// an identifier no account carries anymore.
func (r *Resolver) Edges(caregiver care.Account) []care.RelationshipEdge {
	caregiverID := caregiver.UID
	if caregiverID == "" {
		caregiverID = r.normalizer.Canonicalize(caregiver.Email).Canonical()
	}

	doc := store.Document(caregiver.Raw)
	edges := make([]care.RelationshipEdge, 0, 4)
	for _, field := range relationshipFields {
		for _, value := range doc.GetStringSlice(field) {
			edges = append(edges, care.RelationshipEdge{
				CaregiverID: caregiverID,
				RecipientID: value,
				SourceField: field,
			})
		}
	}
	return edges
}

// Recipients resolves the caller's assigned recipients: edges are matched
// against every account's identifiers, duplicates across fields collapse by
// canonical identity, and each surviving recipient is enriched.
func (r *Resolver) Recipients(ctx context.Context, callerID string) ([]Recipient, error) {
	caregiver, err := r.Caregiver(ctx, callerID)
	if err != nil {
		return nil, err
	}

	edges := r.Edges(caregiver)
	if len(edges) == 0 {
		return []Recipient{}, nil
	}

	accounts, err := r.accounts.All(ctx)
	if err != nil {
		return nil, err
	}

	// The same person shows up under multiple fields (a UID in elderlyIds
	// and the email in elderlyEmails); collapse by the matched account.
	seen := make(map[string]bool)
	recipients := make([]Recipient, 0, len(edges))
	for _, edge := range edges {
		account, ok := r.matchEdge(edge, accounts, caregiver)
		if !ok {
			r.logger.Debug("relationship edge matched no account",
				zap.String("field", edge.SourceField),
				zap.String("recipient", edge.RecipientID))
			continue
		}

		key := r.normalizer.Canonicalize(account.Email).Canonical()
		if key == "" {
			key = account.UID
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		recipients = append(recipients, Recipient{Account: account, Edge: edge})
	}

	if r.enricher != nil {
		r.enricher.EnrichAll(ctx, recipients)
	}
	return recipients, nil
}

// matchEdge finds the account an edge points at. The caregiver's own record
// never matches; self-edges exist in old data.
func (r *Resolver) matchEdge(edge care.RelationshipEdge, accounts []care.Account, caregiver care.Account) (care.Account, bool) {
	id := r.normalizer.Canonicalize(edge.RecipientID)
	if id.IsZero() {
		return care.Account{}, false
	}

	for _, account := range accounts {
		if account.UID != "" && account.UID == caregiver.UID {
			continue
		}
		for _, known := range account.Identifiers() {
			if r.normalizer.MatchesIdentity(id, known) {
				return account, true
			}
		}
	}
	return care.Account{}, false
}

// Package identity canonicalizes user identifiers (emails and UIDs) and
// provides the layered equality rules used to reconcile the divergent key
// encodings found in the document store.
//
// Account and schedule records were written over time with inconsistent
// normalization schemes (separators replaced by underscores in some
// collections, commas in others, "@" spelled out as "_at_" in the oldest
// ones). No migration was ever run, so every lookup has to tolerate all
// historical encodings. This package concentrates those rules in one place:
// a CanonicalIdentity is computed once per request and carries every
// comparable form of the identifier.
package identity

import (
	"strings"
)

// MatchLevel reports which rule matched a pair of identifiers, ordered from
// strictest to loosest. Callers that cannot tolerate false positives should
// reject MatchLoose results.
type MatchLevel int

const (
	MatchNone MatchLevel = iota
	// MatchExact is a case-insensitive comparison after trimming.
	MatchExact
	// MatchEncoded means both sides became equal after applying one of the
	// historical store encodings to each.
	MatchEncoded
	// MatchCompact means both sides became equal after stripping every
	// separator character.
	MatchCompact
	// MatchLoose is substring containment in either direction. Last-resort
	// alias recovery only.
	MatchLoose
)

func (l MatchLevel) String() string {
	switch l {
	case MatchExact:
		return "exact"
	case MatchEncoded:
		return "encoded"
	case MatchCompact:
		return "compact"
	case MatchLoose:
		return "loose"
	default:
		return "none"
	}
}

// looseMinLength guards substring containment against trivial chains: a two
// character fragment would link unrelated identifiers.
const looseMinLength = 5

// CanonicalIdentity is the normalized value of a single identifier, computed
// once and reused for every comparison and storage-key probe in a request.
type CanonicalIdentity struct {
	raw       string
	canonical string
	compact   string
	storeKeys []string
}

// Raw returns the identifier exactly as supplied by the caller.
func (c CanonicalIdentity) Raw() string { return c.raw }

// Canonical returns the trimmed, lower-cased form.
func (c CanonicalIdentity) Canonical() string { return c.canonical }

// Compact returns the canonical form with every separator stripped.
func (c CanonicalIdentity) Compact() string { return c.compact }

// StoreKeys returns the historical store encodings of the identifier, in the
// order adapters should probe them. The current scheme comes first.
func (c CanonicalIdentity) StoreKeys() []string {
	keys := make([]string, len(c.storeKeys))
	copy(keys, c.storeKeys)
	return keys
}

// Forms returns every comparable form: canonical, store encodings, compact.
func (c CanonicalIdentity) Forms() []string {
	forms := make([]string, 0, len(c.storeKeys)+2)
	forms = append(forms, c.canonical)
	forms = append(forms, c.storeKeys...)
	forms = append(forms, c.compact)
	return forms
}

// IsZero reports whether the identity was built from an empty identifier.
func (c CanonicalIdentity) IsZero() bool { return c.canonical == "" }

// Normalizer applies an encoding rule table to identifiers. The table is
// injectable so the historical alias rules can be extended through
// configuration without touching matching logic.
type Normalizer struct {
	table *AliasTable
}

// NewNormalizer creates a normalizer backed by the given rule table.
// A nil table falls back to the compiled-in defaults.
func NewNormalizer(table *AliasTable) *Normalizer {
	if table == nil {
		table = DefaultAliasTable()
	}
	return &Normalizer{table: table}
}

// Canonicalize computes the CanonicalIdentity of a raw identifier.
func (n *Normalizer) Canonicalize(raw string) CanonicalIdentity {
	canonical := strings.ToLower(strings.TrimSpace(raw))
	encoded := n.table.Encode(canonical)

	// De-duplicate encodings that collapse to the same string (a UID with no
	// separators encodes identically under every rule).
	seen := map[string]bool{canonical: true}
	keys := make([]string, 0, len(encoded))
	for _, k := range encoded {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	return CanonicalIdentity{
		raw:       raw,
		canonical: canonical,
		compact:   stripSeparators(canonical),
		storeKeys: keys,
	}
}

// Match compares two identifier strings and reports the strictest rule under
// which they are equal. Rules are tried strictest first; the first success
// wins.
func (n *Normalizer) Match(a, b string) MatchLevel {
	ca := strings.ToLower(strings.TrimSpace(a))
	cb := strings.ToLower(strings.TrimSpace(b))
	if ca == "" || cb == "" {
		return MatchNone
	}

	if ca == cb {
		return MatchExact
	}

	// Both sides are encoded under each historical rule. A record keyed with
	// the comma scheme still has to match a caller supplying the raw email.
	for _, rule := range n.table.Rules() {
		if rule.Apply(ca) == rule.Apply(cb) {
			return MatchEncoded
		}
	}

	if stripSeparators(ca) == stripSeparators(cb) {
		return MatchCompact
	}

	if len(ca) >= looseMinLength && len(cb) >= looseMinLength {
		if strings.Contains(ca, cb) || strings.Contains(cb, ca) {
			return MatchLoose
		}
	}

	return MatchNone
}

// Equal reports whether two identifiers co-refer under any rule, including
// loose containment.
func (n *Normalizer) Equal(a, b string) bool {
	return n.Match(a, b) != MatchNone
}

// EqualStrict reports whether two identifiers co-refer without resorting to
// loose containment.
func (n *Normalizer) EqualStrict(a, b string) bool {
	l := n.Match(a, b)
	return l != MatchNone && l != MatchLoose
}

// MatchesIdentity reports whether candidate matches any comparable form of
// the identity.
func (n *Normalizer) MatchesIdentity(id CanonicalIdentity, candidate string) bool {
	if id.IsZero() {
		return false
	}
	for _, form := range id.Forms() {
		if n.Equal(form, candidate) {
			return true
		}
	}
	return false
}

func stripSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '.', '@', ',', '-', '_', ' ', '\t':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

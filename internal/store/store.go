// Package store exposes the external document store as a read-only
// hierarchical key-value interface. Documents live under a top-level
// collection name and are keyed beneath it by a per-user normalized key or an
// opaque record id. The core never writes through this interface.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Collection names in the external store.
const (
	CollectionAccounts      = "accounts"
	CollectionAppointments  = "appointments"
	CollectionConsultations = "consultations"
	CollectionMedications   = "medications"
	CollectionReminders     = "reminders"
	CollectionRoutines      = "routines"
	CollectionActivities    = "activities"
)

// Document is a JSON-shaped record as stored.
type Document map[string]any

// ErrDocumentNotFound reports a missing path. Adapters treat it as "probe the
// next key encoding", not as a failure.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore is the read interface over the external store.
//
// Get returns the single document at a path; List returns every child
// document one level beneath a path, keyed by its final path segment.
type DocumentStore interface {
	Get(ctx context.Context, path ...string) (Document, error)
	List(ctx context.Context, path ...string) (map[string]Document, error)
}

// JoinPath renders a path for logging and error messages.
func JoinPath(path []string) string {
	return strings.Join(path, "/")
}

// String helpers shared by adapters parsing loosely-shaped documents.

// GetString returns the first non-empty string value among keys.
func (d Document) GetString(keys ...string) string {
	for _, k := range keys {
		if v, ok := d[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// GetBool returns the value of the first present boolean among keys.
// String encodings of truth ("true", "completed") count.
func (d Document) GetBool(keys ...string) bool {
	for _, k := range keys {
		v, ok := d[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t
		case string:
			s := strings.ToLower(strings.TrimSpace(t))
			return s == "true" || s == "completed" || s == "done" || s == "yes"
		}
	}
	return false
}

// GetStringSlice returns the value under key coerced to a string slice.
// Scalars become a one-element slice; this is what makes the redundant
// relationship encodings (single value or array) uniform to probe.
func (d Document) GetStringSlice(key string) []string {
	v, ok := d[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{strings.TrimSpace(t)}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case map[string]any:
		// Firebase-style "array" stored as an id-keyed map.
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	default:
		return nil
	}
}

// GetMap returns the nested document under key, if present.
func (d Document) GetMap(key string) Document {
	if v, ok := d[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return Document(m)
		}
	}
	return nil
}

// validatePath rejects empty paths before they reach the backend.
func validatePath(path []string) error {
	if len(path) == 0 {
		return fmt.Errorf("empty document path")
	}
	for _, segment := range path {
		if strings.TrimSpace(segment) == "" {
			return fmt.Errorf("empty segment in document path %q", JoinPath(path))
		}
	}
	return nil
}

package store

import (
	"context"
	"strings"
	"sync"

	apperrors "carelink-backend/pkg/errors"
)

// MemoryStore is an in-memory DocumentStore used by tests and local
// development. Writes exist only to seed fixtures; the production interface
// stays read-only.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document // full path -> document
	fail map[string]error    // path prefix -> injected error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]Document),
		fail: make(map[string]error),
	}
}

// Put seeds a document at path.
func (s *MemoryStore) Put(doc Document, path ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[JoinPath(path)] = doc
}

// FailOn injects an error for any read whose path starts with prefix.
func (s *MemoryStore) FailOn(err error, prefix ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[JoinPath(prefix)] = err
}

// Get retrieves the document at path.
func (s *MemoryStore) Get(ctx context.Context, path ...string) (Document, error) {
	if err := validatePath(path); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.injected(path); err != nil {
		return nil, err
	}
	doc, ok := s.docs[JoinPath(path)]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// List retrieves every document exactly one level beneath path.
func (s *MemoryStore) List(ctx context.Context, path ...string) (map[string]Document, error) {
	if err := validatePath(path); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.injected(path); err != nil {
		return nil, err
	}

	prefix := JoinPath(path) + "/"
	out := make(map[string]Document)
	for full, doc := range s.docs {
		if !strings.HasPrefix(full, prefix) {
			continue
		}
		rest := strings.TrimPrefix(full, prefix)
		if strings.Contains(rest, "/") {
			continue // deeper than one level
		}
		out[rest] = doc
	}
	return out, nil
}

func (s *MemoryStore) injected(path []string) error {
	full := JoinPath(path)
	for prefix, err := range s.fail {
		if strings.HasPrefix(full, prefix) {
			return err
		}
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "carelink-backend/pkg/errors"
)

func TestDocument_GetString(t *testing.T) {
	doc := Document{"name": "Metformin", "title": "  ", "count": 3}

	// First non-empty string wins; blank and non-string values are skipped.
	assert.Equal(t, "Metformin", doc.GetString("title", "name"))
	assert.Equal(t, "", doc.GetString("missing"))
	assert.Equal(t, "", doc.GetString("count"))
}

func TestDocument_GetBool(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want bool
	}{
		{"bool true", Document{"isCompleted": true}, true},
		{"bool false", Document{"isCompleted": false}, false},
		{"string completed", Document{"status": "completed"}, true},
		{"string done", Document{"status": "done"}, true},
		{"string pending", Document{"status": "pending"}, false},
		{"absent", Document{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.doc.GetBool("isCompleted", "status"))
		})
	}
}

func TestDocument_GetStringSlice(t *testing.T) {
	// Scalar promotes to a single-element slice.
	assert.Equal(t, []string{"a@b.co"}, Document{"assignedElderly": "a@b.co"}.GetStringSlice("assignedElderly"))
	// Arrays convert element-wise.
	assert.Equal(t, []string{"x", "y"}, Document{"ids": []any{"x", "y"}}.GetStringSlice("ids"))
	// Maps contribute their values.
	got := Document{"m": map[string]any{"k": "v"}}.GetStringSlice("m")
	assert.Equal(t, []string{"v"}, got)
	assert.Empty(t, Document{}.GetStringSlice("missing"))
}

func TestMemoryStore_GetAndList(t *testing.T) {
	mem := NewMemoryStore()
	mem.Put(Document{"email": "a@b.co"}, "accounts", "a_b_co")
	mem.Put(Document{"name": "Metformin"}, "medications", "a_b_co", "m1")
	mem.Put(Document{"name": "Aspirin"}, "medications", "a_b_co", "m2")

	doc, err := mem.Get(context.Background(), "accounts", "a_b_co")
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", doc.GetString("email"))

	_, err = mem.Get(context.Background(), "accounts", "nobody")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	docs, err := mem.List(context.Background(), "medications", "a_b_co")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	// List is one level deep: the collection root holds no documents of its
	// own, only the per-user records two levels down.
	docs, err = mem.List(context.Background(), "medications")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryStore_RejectsEmptyPath(t *testing.T) {
	mem := NewMemoryStore()

	_, err := mem.Get(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
}

func TestBreakerStore_OpensAfterFailures(t *testing.T) {
	// Arrange: every read fails.
	mem := NewMemoryStore()
	mem.FailOn(errors.New("connection reset"), "accounts")
	breaker := NewBreakerStore(mem, testBreakerConfig(), zap.NewNop())

	// Act: trip the breaker.
	for i := 0; i < 3; i++ {
		_, _ = breaker.Get(context.Background(), "accounts", "a_b_co")
	}
	_, err := breaker.Get(context.Background(), "accounts", "a_b_co")

	// Assert: the open circuit surfaces as source-unavailable.
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestBreakerStore_NotFoundIsNotAFailure(t *testing.T) {
	mem := NewMemoryStore()
	breaker := NewBreakerStore(mem, testBreakerConfig(), zap.NewNop())

	// Many misses in a row must not trip the breaker.
	for i := 0; i < 10; i++ {
		_, err := breaker.Get(context.Background(), "accounts", "nobody")
		assert.ErrorIs(t, err, ErrDocumentNotFound)
	}

	mem.Put(Document{"email": "a@b.co"}, "accounts", "a_b_co")
	doc, err := breaker.Get(context.Background(), "accounts", "a_b_co")
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", doc.GetString("email"))
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "medications/a_b_co/m1", JoinPath([]string{"medications", "a_b_co", "m1"}))
}

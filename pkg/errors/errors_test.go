package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicates_SurviveWrapping(t *testing.T) {
	// Arrange: an AppError wrapped by a plain fmt chain.
	base := NewNotFound("account missing")
	wrapped := fmt.Errorf("resolve caller: %w", base)

	// Assert: classification holds through the wrapper.
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))

	app, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeNotFound, app.Type)
}

func TestPredicates_PlainError(t *testing.T) {
	err := fmt.Errorf("connection reset")

	assert.False(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.False(t, IsUnavailable(err))
	assert.False(t, IsInternal(err))

	_, ok := AsAppError(err)
	assert.False(t, ok)
}

func TestWrap_PreservesTypeThroughWrappedAppError(t *testing.T) {
	inner := fmt.Errorf("fetch: %w", NewUnavailable("store circuit open", nil))

	err := Wrap(inner, "aggregate schedule")

	assert.True(t, IsUnavailable(err))
}

func TestWrap_PlainErrorBecomesInternal(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), "load accounts")

	assert.True(t, IsInternal(err))
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "anything"))
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "carelink", cfg.DynamoDBTable)
	assert.Equal(t, 10*time.Second, cfg.QueryBudget)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.True(t, cfg.EnableBreaker)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TABLE_NAME", "carelink-prod")
	t.Setenv("QUERY_BUDGET", "3s")
	t.Setenv("ENABLE_BREAKER", "false")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "carelink-prod", cfg.DynamoDBTable)
	assert.Equal(t, 3*time.Second, cfg.QueryBudget)
	assert.False(t, cfg.EnableBreaker)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("QUERY_BUDGET", "not-a-duration")
	t.Setenv("HISTORY_LIMIT", "abc")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.QueryBudget)
	assert.Equal(t, 50, cfg.HistoryLimit)
}

func TestValidate_ProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

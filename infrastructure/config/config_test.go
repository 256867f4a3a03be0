package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "peerbridge", cfg.DynamoDBTable)
	assert.Equal(t, "GSI1", cfg.IndexName)
	assert.Equal(t, "GSI2", cfg.GSI2IndexName)
	assert.Equal(t, "peerbridge-events", cfg.EventBusName)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.True(t, cfg.EnableMetrics)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("TABLE_NAME", "peerbridge-test")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")
	t.Setenv("ENABLE_METRICS", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, "peerbridge-test", cfg.DynamoDBTable)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.False(t, cfg.EnableMetrics)
}

func TestConfig_Validate_Production(t *testing.T) {
	cfg := &Config{Environment: "production", DynamoDBTable: "t", EventBusName: "b"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate())
}

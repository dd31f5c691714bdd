package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yourorg/gaschecker/internal/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Zero(t, cfg.GlobalRPS)
	assert.Empty(t, cfg.EndpointOverrides)
	assert.False(t, cfg.SigningEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RPC_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "3")
	t.Setenv("ETHEREUM_RPC_ENDPOINT", "https://eth.internal.example.com")
	t.Setenv("SIGNING_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 3, cfg.RateLimitPerMinute)
	assert.Equal(t, "https://eth.internal.example.com", cfg.EndpointOverrides[types.ChainEthereum])
	assert.True(t, cfg.SigningEnabled)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("RPC_TIMEOUT", "not-a-duration")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "many")

	cfg := Load()
	assert.Equal(t, 15*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
}

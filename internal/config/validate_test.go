package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Host:          "mail.example.com",
		Port:          587,
		From:          "sender@example.com",
		RetryAttempts: 3,
		TimeoutMs:     5000,
		PoolSize:      5,
		RateLimiting: RateLimitingConfig{
			BurstLimit:             5,
			MaxConsecutiveFailures: 3,
			MaxRapidAttempts:       10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MissingHost(t *testing.T) {
	cfg := validConfig()
	cfg.Host = ""
	require.Error(t, cfg.Validate())
}

func TestValidate_MissingFrom(t *testing.T) {
	cfg := validConfig()
	cfg.From = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "From")
}

func TestValidate_InvalidFromFormat(t *testing.T) {
	cfg := validConfig()
	cfg.From = "not-an-email"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "From")
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 0
	require.Error(t, cfg.Validate())
}

func TestValidate_InvalidLoggingLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Logging.Level")
}

func TestValidate_InvalidLoggingFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	require.Error(t, cfg.Validate())
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.True(t, strings.Count(msg, "\n  - ") >= 1)
}

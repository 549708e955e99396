package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/blasko/pkg/engine"
)

func TestMarshalWizardConfig_LoadsAsEngineConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("HIRO_API_KEY", "h-key")

	data, err := marshalWizardConfig(wizardConfig{
		Provider: wizardProvider{
			Kind:       "gemini",
			Name:       "fast",
			APIKey:     "${GEMINI_API_KEY}",
			Model:      "gemini-2.5-flash",
			RPM:        "30",
			MaxRetries: "3",
			BaseDelay:  "500ms",
		},
		HiroKey: "${HIRO_API_KEY}",
		Addr:    ":9090",
	})
	require.NoError(t, err)

	cfg, err := engine.ParseConfig(data)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "fast", cfg.Model)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "gemini", cfg.Providers[0].Kind)
	assert.Equal(t, "g-key", cfg.Providers[0].APIKey)
	assert.Equal(t, 30, cfg.Providers[0].RateLimit.RPM)
	assert.Equal(t, 500*time.Millisecond, cfg.Providers[0].RateLimit.BaseDelay)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "h-key", cfg.Upstreams.Hiro.APIKey)
}

func TestMarshalWizardConfig_NoRateLimitNoHiro(t *testing.T) {
	data, err := marshalWizardConfig(wizardConfig{
		Provider: wizardProvider{Kind: "grok", Name: "grok", APIKey: "${XAI_API_KEY}", Model: "grok-4"},
		Addr:     ":8080",
	})
	require.NoError(t, err)

	s := string(data)
	assert.NotContains(t, s, "rate_limit")
	assert.NotContains(t, s, "upstreams")
	assert.Contains(t, s, "api_key: ${XAI_API_KEY}")
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateNonNegativeInt("0"))
	assert.Error(t, validateNonNegativeInt("-1"))
	assert.Error(t, validateNonNegativeInt("abc"))

	assert.NoError(t, validateDuration(""))
	assert.NoError(t, validateDuration("500ms"))
	assert.Error(t, validateDuration("soon"))
}

func TestWriteConfigFile_DoesNotOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blasko.yaml")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o600))

	err := writeConfigFile(path, []byte("new"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestWriteConfigFile_Force(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blasko.yaml")
	require.NoError(t, os.WriteFile(path, []byte("original content"), 0o600))

	require.NoError(t, writeConfigFile(path, []byte("new"), true))

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug", true)
	require.NoError(t, err)

	_, err = newLogger("loud", false)
	assert.Error(t, err)
}

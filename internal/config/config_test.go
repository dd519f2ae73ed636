package config

import (
	"os"
	"testing"

	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	original, had := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, original)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func TestDefaultConfigFailOnSeverityIsHigh(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, models.SeverityHigh, cfg.FailOnSeverityLevel())
}

func TestFailOnSeverityLevelParsesOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailOnSeverity = "CRITICAL"
	assert.Equal(t, models.SeverityCritical, cfg.FailOnSeverityLevel())
}

func TestHFTokenFromEnvOverridesDefault(t *testing.T) {
	withEnv(t, "AEGIS_HF_TOKEN", "hf_test123")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hf_test123", cfg.HFToken)
}

func TestHFTokenFallsBackToBareVar(t *testing.T) {
	_ = os.Unsetenv("AEGIS_HF_TOKEN")
	withEnv(t, "HF_TOKEN", "hf_bare123")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hf_bare123", cfg.HFToken)
}

func TestFailOnEnvOverridesDefault(t *testing.T) {
	withEnv(t, "AEGIS_FAIL_ON", "CRITICAL")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, models.SeverityCritical, cfg.FailOnSeverityLevel())
}

func TestIsModuleAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedModules = []string{"mypkg.safe"}
	assert.True(t, cfg.IsModuleAllowed("mypkg.safe"))
	assert.False(t, cfg.IsModuleAllowed("os"))
}

func TestIsRuleIgnored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IgnoredRules = []string{"pii"}
	assert.True(t, cfg.IsRuleIgnored("pii", ""))
	assert.False(t, cfg.IsRuleIgnored("injection", ""))
}

// Package config handles application configuration management.
package config

import (
	"os"
	"strings"

	"github.com/asteroid-belt/aegis/internal/models"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration (spec.md §3 "Configuration").
type Config struct {
	// BaseDir is the root for cache, signature, and key files (~/.aegis).
	BaseDir string `yaml:"-"`

	// AllowedModules extends the unsafe-reference whitelist: module
	// names in this list are never flagged by the pickle/notebook
	// engines regardless of signature severity.
	AllowedModules []string `yaml:"allowed_modules"`

	// IgnoredRules is a post-filter applied to emitted threats,
	// matched against Threat.Kind or the signature/pattern name
	// embedded in Threat.Message.
	IgnoredRules []string `yaml:"ignored_rules"`

	// FailOnSeverity is the minimum severity that blocks a file.
	FailOnSeverity string `yaml:"fail_on_severity"`

	// HFToken authenticates registry identity lookups.
	HFToken string `yaml:"hf_token"`

	// PrivateKeyPath is the cosign signing key used by the external
	// signing collaborator.
	PrivateKeyPath string `yaml:"private_key_path"`

	// OutputFormat selects the report renderer: table, json, or sarif.
	OutputFormat string `yaml:"output_format"`

	// SignatureUpdateURL is the upstream source for `aegis update`.
	SignatureUpdateURL string `yaml:"signature_update_url"`
}

// FailOnSeverityLevel parses FailOnSeverity into a models.Severity,
// defaulting to HIGH when unset or unrecognized.
func (c *Config) FailOnSeverityLevel() models.Severity {
	if c.FailOnSeverity == "" {
		return models.SeverityHigh
	}
	return models.ParseSeverity(strings.ToUpper(c.FailOnSeverity))
}

// IsModuleAllowed reports whether module is on the configured
// allowlist (case-sensitive, matching the signature store's own
// module-name matching).
func (c *Config) IsModuleAllowed(module string) bool {
	for _, m := range c.AllowedModules {
		if m == module {
			return true
		}
	}
	return false
}

// IsRuleIgnored reports whether kind or name is on the ignored-rules
// list.
func (c *Config) IsRuleIgnored(kind, name string) bool {
	for _, r := range c.IgnoredRules {
		if r == kind || r == name {
			return true
		}
	}
	return false
}

// Load builds a Config following environment > file > defaults
// precedence (spec.md §3). The file is the YAML config at
// GetPaths(...).Config, if present.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(GetPaths(cfg).Config); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overlays environment variables per spec.md §6, taking
// precedence over both the file and the compiled-in defaults.
func applyEnv(cfg *Config) {
	if tok := os.Getenv("AEGIS_HF_TOKEN"); tok != "" {
		cfg.HFToken = tok
	} else if tok := os.Getenv("HF_TOKEN"); tok != "" {
		cfg.HFToken = tok
	}
	if path := os.Getenv("AEGIS_PRIVATE_KEY_PATH"); path != "" {
		cfg.PrivateKeyPath = path
	}
	if sev := os.Getenv("AEGIS_FAIL_ON"); sev != "" {
		cfg.FailOnSeverity = sev
	}
}

// ensureDirectories creates the base directory if it doesn't exist.
func ensureDirectories(cfg *Config) error {
	return os.MkdirAll(cfg.BaseDir, 0755)
}

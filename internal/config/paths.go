package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Paths contains commonly used file paths.
type Paths struct {
	HashCache  string // Hash cache SQLite database
	Config     string // Config file
	Signatures string // Signature override file
	Keys       string // Cosign key directory
}

// GetPaths returns all commonly used paths based on config.
func GetPaths(cfg *Config) Paths {
	return Paths{
		HashCache:  filepath.Join(cfg.BaseDir, "hashcache.db"),
		Config:     filepath.Join(cfg.BaseDir, "config.yaml"),
		Signatures: filepath.Join(cfg.BaseDir, "signatures.yaml"),
		Keys:       filepath.Join(cfg.BaseDir, "keys"),
	}
}

// DefaultBaseDir returns the default base directory, honoring
// XDG_CONFIG_HOME before falling back to ~/.config (spec.md §3: the
// base directory holds the hash cache, signature file, and keys).
func DefaultBaseDir() string {
	return filepath.Join(xdg.ConfigHome, "aegis")
}

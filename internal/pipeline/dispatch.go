package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/asteroid-belt/aegis/internal/config"
	"github.com/asteroid-belt/aegis/internal/engines/dataset"
	"github.com/asteroid-belt/aegis/internal/engines/dependency"
	"github.com/asteroid-belt/aegis/internal/engines/document"
	"github.com/asteroid-belt/aegis/internal/engines/keras"
	"github.com/asteroid-belt/aegis/internal/engines/notebook"
	"github.com/asteroid-belt/aegis/internal/engines/pickle"
	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/asteroid-belt/aegis/internal/signatures"
)

var pickleExtensions = map[string]bool{
	".pt": true, ".pth": true, ".bin": true, ".pkl": true, ".ckpt": true,
}

var kerasExtensions = map[string]bool{
	".h5": true, ".keras": true,
}

var identityOnlyExtensions = map[string]bool{
	".safetensors": true, ".gguf": true,
}

var datasetExtensions = map[string]bool{
	".parquet": true, ".csv": true, ".jsonl": true, ".ndjson": true,
}

var dependencyManifests = map[string]bool{
	"requirements.txt": true, "pyproject.toml": true,
}

// selectEngine dispatches path to the engine named by the extension
// table in spec.md §6, running with the given signature set and
// cancellation hook. cancelled may be nil.
func selectEngine(path string, sigs *signatures.Set, cfg *config.Config, oracle *dependency.Oracle, cancelled func() bool) []models.Threat {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case dependencyManifests[base]:
		return dependency.Scan(path, sigs, oracle)
	case pickleExtensions[ext]:
		allowed := make(map[string]bool, len(cfg.AllowedModules))
		for _, m := range cfg.AllowedModules {
			allowed[m] = true
		}
		safe := make(map[string]bool, len(signatures.DefaultSafeModules()))
		for _, m := range signatures.DefaultSafeModules() {
			safe[m] = true
		}
		return pickle.Scan(path, pickle.Options{
			Strict:         true,
			AllowedModules: allowed,
			SafeModules:    safe,
			Signatures:     sigs,
			Cancelled:      cancelled,
		})
	case kerasExtensions[ext]:
		return keras.Scan(path)
	case identityOnlyExtensions[ext]:
		return nil
	case ext == ".ipynb":
		return notebook.Scan(path, sigs)
	case datasetExtensions[ext]:
		return dataset.Scan(path, false, sigs)
	default:
		return document.Scan(path, sigs)
	}
}

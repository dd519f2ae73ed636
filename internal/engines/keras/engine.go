// Package keras flags Keras model artifacts that carry a code-bearing
// Lambda layer in their model configuration (spec.md §4.2).
package keras

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/asteroid-belt/aegis/internal/models"
)

// hdf5Signature is the eight-byte magic every HDF5 file starts with.
var hdf5Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// maxNestingDepth bounds the recursive layer walk against pathologically
// deep or cyclic nested-model configs.
const maxNestingDepth = 64

// Scan inspects path, dispatching by content probe (HDF5 magic bytes,
// else zip container) rather than by extension alone.
func Scan(path string) []models.Threat {
	data, err := os.ReadFile(path)
	if err != nil {
		return []models.Threat{{
			Severity: models.SeverityCritical,
			Kind:     models.KindScanError,
			File:     path,
			Message:  fmt.Sprintf("read file: %v", err),
		}}
	}

	if len(data) >= 8 && bytes.Equal(data[:8], hdf5Signature) {
		return scanHDF5(path, data)
	}

	if zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
		return scanZip(path, zr)
	}

	return nil
}

func scanZip(path string, zr *zip.Reader) []models.Threat {
	var member *zip.File
	for _, f := range zr.File {
		if f.Name == "config.json" {
			member = f
			break
		}
	}
	if member == nil {
		return nil
	}

	rc, err := member.Open()
	if err != nil {
		return []models.Threat{{
			Severity: models.SeverityCritical,
			Kind:     models.KindScanError,
			File:     path,
			Locator:  "config.json",
			Message:  fmt.Sprintf("open config.json: %v", err),
		}}
	}
	defer rc.Close()

	var config map[string]any
	if err := json.NewDecoder(rc).Decode(&config); err != nil {
		return []models.Threat{{
			Severity: models.SeverityCritical,
			Kind:     models.KindScanError,
			File:     path,
			Locator:  "config.json",
			Message:  fmt.Sprintf("parse config.json: %v", err),
		}}
	}

	return analyzeModelConfig(path, "config.json", config, 0)
}

// scanHDF5 locates the model_config attribute by heuristically
// scanning for its marker string, since no HDF5 library is available;
// see DESIGN.md for why this replaces a proper HDF5 reader.
func scanHDF5(path string, data []byte) []models.Threat {
	const marker = "model_config"
	idx := bytes.Index(data, []byte(marker))
	if idx < 0 {
		// No occurrence of the attribute name anywhere in the file:
		// treat as genuinely absent, per spec.md §4.2.
		return nil
	}

	jsonText, ok := extractJSONObject(data[idx+len(marker):])
	if !ok {
		return []models.Threat{{
			Severity: models.SeverityWarning,
			Kind:     models.KindScanError,
			File:     path,
			Message:  "model_config attribute located but could not be parsed from this HDF5 file",
		}}
	}

	var config map[string]any
	if err := json.Unmarshal(jsonText, &config); err != nil {
		return []models.Threat{{
			Severity: models.SeverityWarning,
			Kind:     models.KindScanError,
			File:     path,
			Message:  fmt.Sprintf("model_config attribute is not valid JSON: %v", err),
		}}
	}

	return analyzeModelConfig(path, "model_config", config, 0)
}

// extractJSONObject scans forward from the start of buf for the first
// '{' and returns the shortest balanced-brace JSON object starting
// there, accounting for braces embedded in quoted strings.
func extractJSONObject(buf []byte) ([]byte, bool) {
	start := bytes.IndexByte(buf, '{')
	if start < 0 {
		return nil, false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(buf); i++ {
		c := buf[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return buf[start : i+1], true
			}
		}
		if depth < 0 {
			return nil, false
		}
	}
	return nil, false
}

// analyzeModelConfig recursively walks config.layers[*], emitting a
// CRITICAL threat for every Lambda layer and recursing into any nested
// Model/Functional/Sequential wrapper layer.
func analyzeModelConfig(path, locator string, config map[string]any, depth int) []models.Threat {
	if depth > maxNestingDepth {
		return []models.Threat{{
			Severity: models.SeverityWarning,
			Kind:     models.KindScanError,
			File:     path,
			Locator:  locator,
			Message:  "model configuration nesting exceeds the supported depth; stopped recursing",
		}}
	}

	modelConfig, ok := config["config"].(map[string]any)
	if !ok {
		modelConfig = config
	}

	rawLayers, ok := modelConfig["layers"]
	if !ok {
		return nil
	}
	layers, ok := rawLayers.([]any)
	if !ok {
		return nil
	}

	var threats []models.Threat
	for _, raw := range layers {
		layer, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		className, _ := layer["class_name"].(string)

		if className == "Lambda" {
			threats = append(threats, models.Threat{
				Severity: models.SeverityCritical,
				Kind:     models.KindCodeLayer,
				File:     path,
				Locator:  locator,
				Message:  "Keras Lambda layer carries an arbitrary code payload",
			})
		}

		if className == "Model" || className == "Functional" || className == "Sequential" {
			nested, _ := layer["config"].(map[string]any)
			if nested != nil {
				threats = append(threats, analyzeModelConfig(path, locator, nested, depth+1)...)
			}
		}
	}
	return threats
}

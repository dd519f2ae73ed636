// Package dataset samples string content from tabular and
// row-structured datasets for injection, secret, URL, and PII hazards
// (spec.md §4.5).
package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/asteroid-belt/aegis/internal/signatures"
)

// DefaultRowLimit is the sampling cap applied unless full_scan is set
// (spec.md §4.5).
const DefaultRowLimit = 10_000

// BatchSize mirrors the original batch-read granularity; Go's stdlib
// readers are already buffered per-row, so this only bounds how often
// the row counter is checked against the limit.
const BatchSize = 1000

const maxCellChars = 4096

// Scan samples path and returns every threat found, honoring
// fullScan to disable the row cap.
func Scan(path string, fullScan bool, sigs *signatures.Set) []models.Threat {
	ext := strings.ToLower(filepath.Ext(path))
	limit := DefaultRowLimit
	if fullScan {
		limit = 0
	}

	switch ext {
	case ".csv":
		return scanCSV(path, limit, sigs)
	case ".jsonl", ".ndjson":
		return scanJSONL(path, limit, sigs)
	case ".parquet":
		return []models.Threat{{
			Severity: models.SeverityWarning,
			Kind:     models.KindScanError,
			File:     path,
			Message:  "parquet scanning unavailable: no parquet reader in this build",
		}}
	default:
		return nil
	}
}

func scanCSV(path string, limit int, sigs *signatures.Set) []models.Threat {
	f, err := os.Open(path)
	if err != nil {
		return []models.Threat{{
			Severity: models.SeverityCritical,
			Kind:     models.KindScanError,
			File:     path,
			Message:  fmt.Sprintf("open file: %v", err),
		}}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var accumulated []models.Threat
	rows := 0
	for {
		if limit > 0 && rows >= limit {
			break
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		for _, cell := range record {
			injection, secrets := evaluateCell(path, cell, sigs)
			if injection != nil {
				return []models.Threat{*injection}
			}
			accumulated = append(accumulated, secrets...)
		}
		rows++
	}
	return accumulated
}

func scanJSONL(path string, limit int, sigs *signatures.Set) []models.Threat {
	f, err := os.Open(path)
	if err != nil {
		return []models.Threat{{
			Severity: models.SeverityCritical,
			Kind:     models.KindScanError,
			File:     path,
			Message:  fmt.Sprintf("open file: %v", err),
		}}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	var accumulated []models.Threat
	rows := 0
	for scanner.Scan() {
		if limit > 0 && rows >= limit {
			break
		}
		line := scanner.Bytes()
		var value any
		if err := json.Unmarshal(line, &value); err != nil {
			rows++
			continue
		}
		for _, s := range extractStrings(value, 0) {
			injection, secrets := evaluateCell(path, s, sigs)
			if injection != nil {
				return []models.Threat{*injection}
			}
			accumulated = append(accumulated, secrets...)
		}
		rows++
	}
	return accumulated
}

// maxJSONDepth guards against pathologically nested documents.
const maxJSONDepth = 64

func extractStrings(v any, depth int) []string {
	if depth > maxJSONDepth {
		return nil
	}
	switch val := v.(type) {
	case string:
		return []string{val}
	case map[string]any:
		var out []string
		for _, child := range val {
			out = append(out, extractStrings(child, depth+1)...)
		}
		return out
	case []any:
		var out []string
		for _, child := range val {
			out = append(out, extractStrings(child, depth+1)...)
		}
		return out
	default:
		return nil
	}
}

// evaluateCell returns a non-nil injection threat when the cell trips
// a prompt-injection pattern (the caller must fail-fast on this), and
// any number of secret/PII threats to accumulate and keep scanning.
func evaluateCell(path, cell string, sigs *signatures.Set) (*models.Threat, []models.Threat) {
	if sigs == nil || len(cell) < 5 {
		return nil, nil
	}
	if len(cell) > maxCellChars {
		cell = cell[:maxCellChars]
	}

	for _, p := range sigs.PromptInjections {
		if p.Regex.MatchString(cell) {
			return &models.Threat{
				Severity: models.SeverityHigh,
				Kind:     models.KindInjection,
				File:     path,
				Message:  fmt.Sprintf("data poisoning pattern %s", p.Name),
			}, nil
		}
	}

	var threats []models.Threat
	for _, p := range sigs.SuspiciousStrings {
		if p.Regex.MatchString(cell) {
			kind := models.KindSecret
			if strings.HasPrefix(p.ID, "PII") {
				kind = models.KindPII
			}
			threats = append(threats, models.Threat{
				Severity: models.SeverityMedium,
				Kind:     kind,
				File:     path,
				Message:  fmt.Sprintf("matched %s", p.Name),
			})
		}
	}
	return nil, threats
}

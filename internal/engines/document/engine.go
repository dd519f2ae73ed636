// Package document detects prompt-injection phrases and PII in
// human-readable documents streamed from RAG corpora (spec.md §4.4).
package document

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/asteroid-belt/aegis/internal/signatures"
)

// textExtensions is the broad plain-text family swept with the
// sliding-window reader.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".rst": true, ".adoc": true,
	".asciidoc": true, ".tex": true, ".org": true, ".wiki": true,
	".json": true, ".csv": true, ".xml": true, ".yaml": true, ".yml": true,
	".toml": true, ".ini": true, ".cfg": true, ".conf": true, ".env": true,
	".properties": true, ".tsv": true, ".ndjson": true, ".jsonl": true, ".ldjson": true,
	".py": true, ".js": true, ".ts": true, ".java": true, ".c": true, ".cpp": true,
	".h": true, ".hpp": true, ".rs": true, ".go": true, ".rb": true, ".php": true,
	".pl": true, ".lua": true, ".sh": true, ".bash": true, ".zsh": true,
	".ps1": true, ".bat": true, ".sql": true, ".tf": true, ".tfvars": true,
	".log": true, ".out": true, ".err": true,
}

const (
	windowSize    = 1 << 20 // 1 MiB
	windowOverlap = 4 << 10 // 4 KiB
	maxChunkChars = 4096
)

// Scan dispatches on extension and returns the first injection or PII
// hit (fail-fast), or nil if none is found.
func Scan(path string, sigs *signatures.Set) []models.Threat {
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case textExtensions[ext]:
		return scanChunks(path, sigs, slidingWindowChunks(path))
	case ext == ".pdf":
		return scanWholeDocument(path, sigs, func(data []byte) (string, error) {
			return extractPDFText(path, data)
		})
	case ext == ".docx":
		return scanWholeDocument(path, sigs, func(data []byte) (string, error) {
			return extractDOCXText(data)
		})
	case ext == ".pptx":
		return scanWholeDocument(path, sigs, func(data []byte) (string, error) {
			return extractPPTXText(data)
		})
	default:
		return nil
	}
}

func scanWholeDocument(path string, sigs *signatures.Set, extract func([]byte) (string, error)) []models.Threat {
	data, err := os.ReadFile(path)
	if err != nil {
		return []models.Threat{{
			Severity: models.SeverityCritical,
			Kind:     models.KindScanError,
			File:     path,
			Message:  fmt.Sprintf("read file: %v", err),
		}}
	}
	text, err := extract(data)
	if err != nil {
		return []models.Threat{{
			Severity: models.SeverityWarning,
			Kind:     models.KindScanError,
			File:     path,
			Message:  fmt.Sprintf("extract text: %v", err),
		}}
	}
	if text == "" {
		return nil
	}
	return scanLines(path, sigs, strings.NewReader(text))
}

// slidingWindowChunks yields 1 MiB windows with 4 KiB overlap from
// path, so a pattern straddling a chunk boundary is never missed.
func slidingWindowChunks(path string) func(yield func([]byte) bool) {
	return func(yield func([]byte) bool) {
		f, err := os.Open(path)
		if err != nil {
			return
		}
		defer f.Close()

		var carry []byte
		buf := make([]byte, windowSize)
		for {
			n, err := f.Read(buf)
			if n > 0 {
				chunk := append(append([]byte{}, carry...), buf[:n]...)
				if !yield(chunk) {
					return
				}
				if len(chunk) > windowOverlap {
					carry = append([]byte{}, chunk[len(chunk)-windowOverlap:]...)
				} else {
					carry = append([]byte{}, chunk...)
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

func scanChunks(path string, sigs *signatures.Set, chunks func(yield func([]byte) bool)) []models.Threat {
	var result []models.Threat
	chunks(func(chunk []byte) bool {
		hits := scanLines(path, sigs, strings.NewReader(string(chunk)))
		if len(hits) > 0 {
			result = hits
			return false
		}
		return true
	})
	return result
}

// scanLines splits r into lines, truncates each to maxChunkChars, and
// matches prompt-injection patterns first (fail-fast HIGH), falling
// back to PII/suspicious-string matching only when no injection fires.
func scanLines(path string, sigs *signatures.Set, r io.Reader) []models.Threat {
	if sigs == nil {
		return nil
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if len(line) > maxChunkChars {
			line = line[:maxChunkChars]
		}

		for _, p := range sigs.PromptInjections {
			if p.Regex.MatchString(line) {
				return []models.Threat{{
					Severity: models.SeverityHigh,
					Kind:     models.KindInjection,
					File:     path,
					Locator:  fmt.Sprintf("line %d", lineNum),
					Message:  fmt.Sprintf("prompt injection pattern %s", p.Name),
				}}
			}
		}
		for _, p := range sigs.SuspiciousStrings {
			if p.Regex.MatchString(line) {
				kind := models.KindSecret
				if strings.HasPrefix(p.ID, "PII") {
					kind = models.KindPII
				}
				return []models.Threat{{
					Severity: p.Severity,
					Kind:     kind,
					File:     path,
					Locator:  fmt.Sprintf("line %d", lineNum),
					Message:  fmt.Sprintf("matched %s", p.Name),
				}}
			}
		}
	}
	return nil
}

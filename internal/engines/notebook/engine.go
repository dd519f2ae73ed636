// Package notebook finds executable hazards and leaked secrets in
// Jupyter notebook JSON documents (spec.md §4.3). There is no Go
// equivalent of Python's ast module in the dependency corpus, so the
// "syntax-tree scan" is implemented as a line-oriented regex pass over
// magic-stripped source, in the same heuristic, regex-driven idiom the
// rest of this codebase's signature matching already uses.
package notebook

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/asteroid-belt/aegis/internal/signatures"
)

// dangerousMagics are shell/subshell directive prefixes that execute
// code outside the Python interpreter when a notebook cell runs.
var dangerousMagics = []string{"!", "%%bash", "%%sh", "%%script", "%%perl", "%%ruby", "%system"}

var (
	importRe        = regexp.MustCompile(`(?m)^\s*import\s+([A-Za-z_][\w.]*)`)
	fromImportRe    = regexp.MustCompile(`(?m)^\s*from\s+([A-Za-z_][\w.]*)\s+import\b`)
	qualifiedCall   = regexp.MustCompile(`\b([A-Za-z_]\w*)\.([A-Za-z_]\w*)\s*\(`)
	unqualifiedCall = regexp.MustCompile(`(?:^|[^.\w])([A-Za-z_]\w*)\s*\(`)
)

type rawNotebook struct {
	Cells []rawCell `json:"cells"`
}

type rawCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
	Outputs  []rawOutput     `json:"outputs"`
}

type rawOutput struct {
	Text json.RawMessage            `json:"text"`
	Data map[string]json.RawMessage `json:"data"`
}

// Scan parses path as a notebook and returns every threat its cells
// and outputs carry.
func Scan(path string, sigs *signatures.Set) []models.Threat {
	data, err := os.ReadFile(path)
	if err != nil {
		return []models.Threat{{
			Severity: models.SeverityCritical,
			Kind:     models.KindScanError,
			File:     path,
			Message:  fmt.Sprintf("read file: %v", err),
		}}
	}

	var nb rawNotebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return []models.Threat{{
			Severity: models.SeverityWarning,
			Kind:     models.KindScanError,
			File:     path,
			Message:  "invalid JSON in .ipynb file",
		}}
	}

	var threats []models.Threat
	for i, cell := range nb.Cells {
		index := i + 1
		source := normalizeSource(cell.Source)

		if cell.CellType == "code" {
			threats = append(threats, scanDirectives(path, index, source)...)
			threats = append(threats, scanSyntax(path, index, source, sigs)...)
		}

		if sigs != nil {
			threats = append(threats, matchSecrets(path, source, models.KindSecret,
				fmt.Sprintf("cell %d source", index), sigs)...)
		}

		if cell.CellType == "code" {
			for _, out := range cell.Outputs {
				text := extractOutputText(out)
				if text == "" {
					continue
				}
				threats = append(threats, matchSecrets(path, text, models.KindSecret,
					fmt.Sprintf("cell %d output", index), sigs)...)
			}
		}
	}
	return threats
}

// normalizeSource accepts either a JSON array of lines or a single
// string, matching nbformat's permissive "source" field.
func normalizeSource(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, "")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func extractOutputText(out rawOutput) string {
	if len(out.Text) > 0 {
		return joinTextField(out.Text)
	}
	if plain, ok := out.Data["text/plain"]; ok {
		return joinTextField(plain)
	}
	return ""
}

func joinTextField(raw json.RawMessage) string {
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, "")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func scanDirectives(path string, cellIndex int, source string) []models.Threat {
	var threats []models.Threat
	for _, line := range strings.Split(source, "\n") {
		stripped := strings.TrimSpace(line)
		for _, magic := range dangerousMagics {
			if strings.HasPrefix(stripped, magic) {
				snippet := stripped
				if len(snippet) > 50 {
					snippet = snippet[:50]
				}
				threats = append(threats, models.Threat{
					Severity: models.SeverityHigh,
					Kind:     models.KindUnsafeReference,
					File:     path,
					Locator:  fmt.Sprintf("cell %d", cellIndex),
					Message:  fmt.Sprintf("shell magic execution: %q", snippet),
				})
				break
			}
		}
	}
	return threats
}

// cleanMagics comments out magic/shell lines, preserving line count,
// so the regex pass below does not mistake directive syntax for code.
func cleanMagics(source string) string {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "!") || strings.HasPrefix(stripped, "%") {
			lines[i] = "# " + line
		}
	}
	return strings.Join(lines, "\n")
}

func scanSyntax(path string, cellIndex int, source string, sigs *signatures.Set) []models.Threat {
	if sigs == nil {
		return nil
	}
	cleaned := cleanMagics(source)
	var threats []models.Threat

	for _, m := range importRe.FindAllStringSubmatch(cleaned, -1) {
		threats = append(threats, evaluateImport(path, cellIndex, m[1], sigs)...)
	}
	for _, m := range fromImportRe.FindAllStringSubmatch(cleaned, -1) {
		threats = append(threats, evaluateImport(path, cellIndex, m[1], sigs)...)
	}

	claimed := make(map[int]bool)
	for _, m := range qualifiedCall.FindAllStringSubmatchIndex(cleaned, -1) {
		module := cleaned[m[2]:m[3]]
		method := cleaned[m[4]:m[5]]
		claimed[m[4]] = true
		if sev, ok := sigs.Severity(module, method); ok {
			threats = append(threats, models.Threat{
				Severity: sev,
				Kind:     models.KindUnsafeReference,
				File:     path,
				Locator:  fmt.Sprintf("cell %d", cellIndex),
				Message:  fmt.Sprintf("dangerous call %s.%s()", module, method),
			})
		}
	}
	for _, m := range unqualifiedCall.FindAllStringSubmatchIndex(cleaned, -1) {
		if claimed[m[2]] {
			continue
		}
		name := cleaned[m[2]:m[3]]
		if sev, ok := sigs.Severity("builtins", name); ok {
			threats = append(threats, models.Threat{
				Severity: sev,
				Kind:     models.KindUnsafeReference,
				File:     path,
				Locator:  fmt.Sprintf("cell %d", cellIndex),
				Message:  fmt.Sprintf("dangerous call %s()", name),
			})
		}
	}
	return threats
}

func evaluateImport(path string, cellIndex int, module string, sigs *signatures.Set) []models.Threat {
	if _, ok := sigs.Severity(module, "*"); ok {
		return []models.Threat{{
			Severity: models.SeverityCritical,
			Kind:     models.KindUnsafeReference,
			File:     path,
			Locator:  fmt.Sprintf("cell %d", cellIndex),
			Message:  fmt.Sprintf("unsafe import %s", module),
		}}
	}
	return nil
}

func matchSecrets(path, text string, kind models.ThreatKind, locator string, sigs *signatures.Set) []models.Threat {
	if sigs == nil || text == "" {
		return nil
	}
	var threats []models.Threat
	for _, p := range sigs.SuspiciousStrings {
		if p.Regex.MatchString(text) {
			threats = append(threats, models.Threat{
				Severity: models.SeverityCritical,
				Kind:     kind,
				File:     path,
				Locator:  locator,
				Message:  fmt.Sprintf("matched %s", p.Name),
			})
		}
	}
	return threats
}

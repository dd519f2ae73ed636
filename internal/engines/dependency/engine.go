// Package dependency flags known-malicious, typosquatted, and
// vulnerable entries in dependency manifests (spec.md §4.6).
package dependency

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/asteroid-belt/aegis/internal/signatures"
)

// Scan parses manifestPath and returns every threat found. oracle may
// be nil, in which case the OSV step is skipped entirely (treated the
// same as an oracle that failed to respond).
func Scan(manifestPath string, sigs *signatures.Set, oracle *Oracle) []models.Threat {
	f, err := os.Open(manifestPath)
	if err != nil {
		return []models.Threat{{
			Severity: models.SeverityCritical,
			Kind:     models.KindScanError,
			File:     manifestPath,
			Message:  fmt.Sprintf("open file: %v", err),
		}}
	}
	defer f.Close()

	var deps []Dependency
	switch filepath.Base(manifestPath) {
	case "pyproject.toml":
		deps = parsePyprojectDependencies(f)
	default:
		deps = parseRequirements(f)
	}

	if sigs == nil {
		sigs = signatures.Default()
	}

	var threats []models.Threat
	var queryable []Dependency
	for _, d := range deps {
		if sigs.IsKnownMalicious(d.Name) {
			threats = append(threats, models.Threat{
				Severity: models.SeverityCritical,
				Kind:     models.KindMalicious,
				File:     manifestPath,
				Locator:  d.Name,
				Message:  fmt.Sprintf("Known malicious package: %s", d.Name),
			})
			continue
		}

		if p, ok := typosquatMatch(d.Name, sigs); ok {
			threats = append(threats, models.Threat{
				Severity: models.SeverityHigh,
				Kind:     models.KindTyposquat,
				File:     manifestPath,
				Locator:  d.Name,
				Message:  fmt.Sprintf("Potential Typosquatting: %s resembles popular package %s", d.Name, p),
			})
			continue
		}

		queryable = append(queryable, d)
	}

	threats = append(threats, queryVulnerabilities(manifestPath, queryable, oracle)...)
	return threats
}

func typosquatMatch(name string, sigs *signatures.Set) (string, bool) {
	lower := strings.ToLower(name)
	for _, p := range sigs.PopularPackages {
		if lower == strings.ToLower(p) {
			return "", false
		}
	}
	for _, p := range sigs.PopularPackages {
		if isTypo(lower, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}

// queryVulnerabilities batches deps against the oracle. Any failure —
// nil oracle, transport error, non-200 status — degrades to no
// advisories rather than raising, per spec.md §4.6.
func queryVulnerabilities(manifestPath string, deps []Dependency, oracle *Oracle) []models.Threat {
	if oracle == nil || len(deps) == 0 {
		return nil
	}
	advisories, err := oracle.Query(deps)
	if err != nil || advisories == nil {
		return nil
	}

	var threats []models.Threat
	for i, advs := range advisories {
		if i >= len(deps) {
			break
		}
		for _, a := range advs {
			threats = append(threats, models.Threat{
				Severity: models.SeverityHigh,
				Kind:     models.KindVulnerability,
				File:     manifestPath,
				Locator:  a.ID,
				Message: fmt.Sprintf("CVE Detected in %s: %s (%s)",
					formatDependency(deps[i].Name, deps[i].VersionSpec), a.Summary, a.ID),
			})
		}
	}
	return threats
}

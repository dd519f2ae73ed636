package dependency

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// Dependency is a single (name, version_spec) pair pulled from a
// manifest file.
type Dependency struct {
	Name        string
	VersionSpec string
}

var requirementRe = regexp.MustCompile(`^([A-Za-z0-9_.-]+)\s*(==|>=|<=|~=|!=|>|<)?\s*([A-Za-z0-9.*+!-]*)`)

// parseRequirements reads a line-oriented requirements.txt style
// manifest: one package per line, optional comparator and version,
// blank lines and `#` comments ignored, `-r`/`-e`/option lines skipped.
func parseRequirements(r io.Reader) []Dependency {
	var deps []Dependency
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		m := requirementRe.FindStringSubmatch(line)
		if m == nil || m[1] == "" {
			continue
		}
		deps = append(deps, Dependency{Name: m[1], VersionSpec: m[2] + m[3]})
	}
	return deps
}

var pyprojectKVRe = regexp.MustCompile(`^([A-Za-z0-9_.-]+)\s*=\s*"([^"]*)"`)

// parsePyprojectDependencies extracts the `[project.dependencies]`
// table of a pyproject.toml. No TOML library is wired into this
// module (none of the example repos import one), and the table this
// engine needs is a flat `name = "version"` mapping, so a minimal
// section-scoped line scanner covers it without pulling in a general
// TOML parser for a single use site.
func parsePyprojectDependencies(r io.Reader) []Dependency {
	var deps []Dependency
	inSection := false
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inSection = line == "[project.dependencies]"
			continue
		}
		if !inSection {
			continue
		}
		m := pyprojectKVRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		deps = append(deps, Dependency{Name: m[1], VersionSpec: m[2]})
	}
	return deps
}

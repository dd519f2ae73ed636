// Package signatures holds the rule sets the scan engines consult:
// unsafe module/attribute severities, prompt-injection and
// suspicious-string regexes, and the popular/known-malicious package
// lists used by the dependency engine. A Set is built once at startup
// and treated as immutable; Update swaps it for a freshly loaded one.
package signatures

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"github.com/asteroid-belt/aegis/internal/models"
)

// UnsafeRef is a single (module, attribute) -> severity rule. Attribute
// "*" matches any attribute of the module (spec.md §4.1, §4.3).
type UnsafeRef struct {
	Module      string
	Attribute   string
	Severity    models.Severity
	Description string
}

// Pattern is a compiled regex rule shared by the prompt-injection and
// suspicious-string sets.
type Pattern struct {
	ID       string
	Name     string
	Severity models.Severity
	Regex    *regexp.Regexp
}

// Set is the immutable collection of signature data an engine consults.
type Set struct {
	Version           string
	UnsafeGlobals     []UnsafeRef
	PromptInjections  []Pattern
	SuspiciousStrings []Pattern
	PopularPackages   []string
	KnownMalicious    []string
}

// severityIndex speeds up (module, attribute) lookups; built lazily.
type severityIndex struct {
	exact    map[string]models.Severity
	wildcard map[string]models.Severity
}

func (s *Set) index() severityIndex {
	idx := severityIndex{
		exact:    make(map[string]models.Severity, len(s.UnsafeGlobals)),
		wildcard: make(map[string]models.Severity),
	}
	for _, r := range s.UnsafeGlobals {
		if r.Attribute == "*" {
			if existing, ok := idx.wildcard[r.Module]; !ok || r.Severity > existing {
				idx.wildcard[r.Module] = r.Severity
			}
			continue
		}
		key := r.Module + "." + r.Attribute
		if existing, ok := idx.exact[key]; !ok || r.Severity > existing {
			idx.exact[key] = r.Severity
		}
	}
	return idx
}

// Severity returns the configured severity for (module, attribute), and
// whether any rule matched. A wildcard module entry ("*" attribute)
// matches any attribute of that module, per spec.md §4.1.
func (s *Set) Severity(module, attribute string) (models.Severity, bool) {
	idx := s.index()
	if sev, ok := idx.exact[module+"."+attribute]; ok {
		return sev, true
	}
	if sev, ok := idx.wildcard[module]; ok {
		return sev, true
	}
	return 0, false
}

// IsPopularPackage reports whether name is on the popular-package
// baseline used for typosquat detection.
func (s *Set) IsPopularPackage(name string) bool {
	for _, p := range s.PopularPackages {
		if p == name {
			return true
		}
	}
	return false
}

// IsKnownMalicious reports whether name is on the known-malicious list.
func (s *Set) IsKnownMalicious(name string) bool {
	for _, p := range s.KnownMalicious {
		if p == name {
			return true
		}
	}
	return false
}

// Store holds the process-wide, hot-reloadable signature set. A single
// writer swaps the pointer; readers never block (spec.md §5).
type Store struct {
	current atomic.Pointer[Set]
}

// NewStore creates a Store seeded with the given set.
func NewStore(s *Set) *Store {
	store := &Store{}
	store.current.Store(s)
	return store
}

// Load returns the currently active signature set.
func (st *Store) Load() *Set {
	return st.current.Load()
}

// Swap atomically replaces the active signature set, used by the
// `update` command after fetching a fresh signature file.
func (st *Store) Swap(s *Set) {
	st.current.Store(s)
}

// ErrEmptySet is returned by validation when a loaded set has no rules
// at all, which almost certainly indicates a malformed signature file.
var ErrEmptySet = fmt.Errorf("signature set has no rules")

// Validate performs a minimal sanity check on a freshly parsed Set.
func Validate(s *Set) error {
	if len(s.UnsafeGlobals) == 0 && len(s.PromptInjections) == 0 && len(s.SuspiciousStrings) == 0 {
		return ErrEmptySet
	}
	return nil
}

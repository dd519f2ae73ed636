package signatures

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/asteroid-belt/aegis/internal/models"
	"gopkg.in/yaml.v3"
)

// FileName is the signature file's name inside the aegis home directory.
const FileName = "signatures.yaml"

// yamlDoc mirrors the on-disk YAML shape: top-level version, a severity
// bucket keyed by module name mapping to an attribute ("*" for any), and
// flat lists for the regex and package signatures.
type yamlDoc struct {
	Version           string                         `yaml:"version"`
	UnsafeGlobals     map[string]map[string][]string `yaml:"unsafe_globals"`
	PromptInjections  []string                       `yaml:"prompt_injections"`
	SuspiciousStrings []string                       `yaml:"suspicious_strings"`
	KnownMalicious    []string                       `yaml:"known_malicious"`
	PopularPackages   []string                       `yaml:"popular_packages"`
}

// severityBuckets is the fixed set of severity keys a signature file may
// nest unsafe_globals under.
var severityBuckets = []string{"CRITICAL", "HIGH", "MEDIUM", "LOW"}

// ParseYAML decodes a signature file body into a Set.
func ParseYAML(data []byte) (*Set, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse signature file: %w", err)
	}

	set := &Set{Version: doc.Version}

	for _, bucket := range severityBuckets {
		modules, ok := doc.UnsafeGlobals[bucket]
		if !ok {
			continue
		}
		sev := models.ParseSeverity(bucket)
		for module, attrs := range modules {
			for _, attr := range attrs {
				set.UnsafeGlobals = append(set.UnsafeGlobals, UnsafeRef{
					Module:    module,
					Attribute: attr,
					Severity:  sev,
				})
			}
		}
	}

	for i, raw := range doc.PromptInjections {
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("prompt_injections[%d]: %w", i, err)
		}
		set.PromptInjections = append(set.PromptInjections, Pattern{
			ID:       fmt.Sprintf("INJ-CUSTOM-%03d", i+1),
			Name:     raw,
			Severity: models.SeverityHigh,
			Regex:    re,
		})
	}

	for i, raw := range doc.SuspiciousStrings {
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("suspicious_strings[%d]: %w", i, err)
		}
		set.SuspiciousStrings = append(set.SuspiciousStrings, Pattern{
			ID:       fmt.Sprintf("SEC-CUSTOM-%03d", i+1),
			Name:     raw,
			Severity: models.SeverityHigh,
			Regex:    re,
		})
	}

	set.KnownMalicious = doc.KnownMalicious
	set.PopularPackages = doc.PopularPackages

	if err := Validate(set); err != nil {
		return nil, err
	}
	return set, nil
}

// LoadFile reads and parses a signature file from disk. A missing file
// is not an error; callers fall back to Default().
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read signature file: %w", err)
	}
	return ParseYAML(data)
}

// WriteFile atomically writes a signature file, mirroring the
// temp-file-then-rename pattern used for the skill manifest.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create signature directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp signature file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename signature file: %w", err)
	}
	return nil
}

// Fetcher retrieves a fresh signature file body from an upstream URL.
type Fetcher struct {
	URL    string
	Client *http.Client
}

// NewFetcher builds a Fetcher with a bounded-timeout HTTP client.
func NewFetcher(url string) *Fetcher {
	return &Fetcher{
		URL:    url,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch downloads the signature file body from the upstream URL.
func (f *Fetcher) Fetch() ([]byte, error) {
	resp, err := f.Client.Get(f.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch signature file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch signature file: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read signature file body: %w", err)
	}
	return body, nil
}

// Update fetches a fresh signature file from url, validates it, writes
// it atomically to path, and returns the parsed Set so the caller can
// hot-swap it into a Store.
func Update(url, path string) (*Set, error) {
	f := NewFetcher(url)
	body, err := f.Fetch()
	if err != nil {
		return nil, err
	}
	set, err := ParseYAML(body)
	if err != nil {
		return nil, fmt.Errorf("downloaded signature file is invalid: %w", err)
	}
	if err := WriteFile(path, body); err != nil {
		return nil, err
	}
	return set, nil
}

package dependency

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const osvBatchURL = "https://api.osv.dev/v1/querybatch"

// Advisory is a single vulnerability record returned by the oracle.
type Advisory struct {
	ID      string
	Summary string
}

// Oracle queries a batched vulnerability database (OSV.dev's query
// shape) for a set of (name, version) pairs.
type Oracle struct {
	URL    string
	Client *http.Client
}

// NewOracle returns an Oracle pointed at the public OSV.dev batch
// endpoint with a conservative timeout, so a slow or unreachable
// oracle never stalls a scan for long before degrading gracefully.
func NewOracle() *Oracle {
	return &Oracle{
		URL:    osvBatchURL,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type osvQuery struct {
	Package osvPackage `json:"package"`
	Version string     `json:"version,omitempty"`
}

type osvPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

type osvBatchRequest struct {
	Queries []osvQuery `json:"queries"`
}

type osvVuln struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}

type osvResult struct {
	Vulns []osvVuln `json:"vulns"`
}

type osvBatchResponse struct {
	Results []osvResult `json:"results"`
}

// Query batches deps into a single request and returns the advisories
// found for each, indexed positionally to deps. A connection error or
// non-200 status degrades to a nil map and nil error: the caller falls
// back to the static results only, per spec.md §4.6.
func (o *Oracle) Query(deps []Dependency) ([][]Advisory, error) {
	if len(deps) == 0 {
		return nil, nil
	}

	req := osvBatchRequest{Queries: make([]osvQuery, len(deps))}
	for i, d := range deps {
		req.Queries[i] = osvQuery{
			Package: osvPackage{Name: d.Name, Ecosystem: "PyPI"},
			Version: stripComparator(d.VersionSpec),
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil
	}

	resp, err := o.Client.Post(o.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var out osvBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil
	}

	result := make([][]Advisory, len(deps))
	for i, r := range out.Results {
		if i >= len(result) {
			break
		}
		for _, v := range r.Vulns {
			result[i] = append(result[i], Advisory{ID: v.ID, Summary: v.Summary})
		}
	}
	return result, nil
}

func stripComparator(spec string) string {
	for _, prefix := range []string{"==", ">=", "<=", "~=", "!=", ">", "<"} {
		if len(spec) > len(prefix) && spec[:len(prefix)] == prefix {
			return spec[len(prefix):]
		}
	}
	return spec
}

func formatDependency(name, versionSpec string) string {
	return fmt.Sprintf("%s%s", name, versionSpec)
}

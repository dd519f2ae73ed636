// Package identity cross-checks a local file's digest against the
// canonical copy recorded by an upstream model registry (spec.md
// §4.7).
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/asteroid-belt/aegis/internal/models"
)

const registryBase = "https://huggingface.co/api/models"

// Client looks up canonical file digests from the registry API,
// optionally authenticated with a bearer token (spec.md §6,
// AEGIS_HF_TOKEN / HF_TOKEN).
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New returns a Client with a conservative default timeout so a slow
// registry never stalls a scan for long before degrading (spec.md
// §5: 10s default on outbound registry/oracle calls).
func New(token string) *Client {
	return &Client{
		BaseURL: registryBase,
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type sibling struct {
	RFilename string `json:"rfilename"`
	LFS       *struct {
		SHA256 string `json:"sha256"`
	} `json:"lfs"`
}

type modelInfo struct {
	Siblings []sibling `json:"siblings"`
}

// canonicalDigest fetches the registry's record for repo and returns
// the canonical SHA-256 of relativeName, or ok=false if the registry
// has no record of that file.
func (c *Client) canonicalDigest(ctx context.Context, repo, relativeName string) (string, bool, error) {
	url := fmt.Sprintf("%s/%s", c.BaseURL, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var info modelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", false, err
	}

	for _, s := range info.Siblings {
		if s.RFilename != relativeName {
			continue
		}
		if s.LFS == nil || s.LFS.SHA256 == "" {
			return "", false, nil
		}
		return s.LFS.SHA256, true, nil
	}
	return "", false, nil
}

// Verify compares localDigest against the registry's canonical digest
// for (repo, relativeName). Transport errors are returned to the
// caller rather than folded into Mismatch, so the pipeline can emit a
// scan-error threat and fail open on the identity check itself.
func Verify(ctx context.Context, client *Client, repo, relativeName, localDigest string) (models.IdentityState, error) {
	canonical, ok, err := client.canonicalDigest(ctx, repo, relativeName)
	if err != nil {
		return models.IdentityError, err
	}
	if !ok {
		return models.IdentityUnknownInRepo, nil
	}
	if strings.EqualFold(canonical, localDigest) {
		return models.IdentityVerified, nil
	}
	return models.IdentityMismatch, nil
}

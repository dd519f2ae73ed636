package dependency

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/asteroid-belt/aegis/internal/signatures"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestIsTypoSubstitution(t *testing.T) {
	require.True(t, isTypo("turch", "torch"))
}

func TestIsTypoDeletion(t *testing.T) {
	require.True(t, isTypo("toch", "torch"))
}

func TestIsTypoInsertion(t *testing.T) {
	require.True(t, isTypo("ttorch", "torch"))
}

func TestIsTypoTooManyDifferences(t *testing.T) {
	require.False(t, isTypo("tor", "torch"))
}

func TestIsTypoIdentical(t *testing.T) {
	require.False(t, isTypo("torch", "torch"))
}

func TestScanRequirementsKnownMalicious(t *testing.T) {
	path := writeManifest(t, "requirements.txt", "tourch==1.0\nnumpy\n")
	threats := Scan(path, signatures.Default(), nil)
	require.True(t, containsMessage(threats, "Known malicious", "tourch"))
}

func TestScanRequirementsTyposquat(t *testing.T) {
	path := writeManifest(t, "requirements.txt", "pndas>=1.0\n")
	threats := Scan(path, signatures.Default(), nil)
	require.True(t, containsMessage(threats, "Potential Typosquatting", "pandas"))
}

func TestScanPyprojectDependencies(t *testing.T) {
	body := "\n[project.dependencies]\ntorch = \">=2.0\"\nreqests = \"0.1\"\n"
	path := writeManifest(t, "pyproject.toml", body)
	threats := Scan(path, signatures.Default(), nil)
	require.True(t, containsMessage(threats, "Potential Typosquatting", "requests"))
}

func TestScanOSVVulnerability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"vulns":[{"id":"GHSA-m8th-934p-w6h3","summary":"Vulnerability in requests"}]}]}`))
	}))
	defer srv.Close()

	path := writeManifest(t, "requirements.txt", "requests==2.19.0\n")
	oracle := &Oracle{URL: srv.URL, Client: srv.Client()}
	threats := Scan(path, signatures.Default(), oracle)

	require.True(t, containsMessage(threats, "CVE Detected in requests==2.19.0"))
	require.True(t, containsMessage(threats, "GHSA-m8th-934p-w6h3"))
}

func TestScanOSVOfflineGraceful(t *testing.T) {
	path := writeManifest(t, "requirements.txt", "requests==2.19.0\n")
	oracle := &Oracle{URL: "http://127.0.0.1:1", Client: &http.Client{}}
	threats := Scan(path, signatures.Default(), oracle)
	require.Empty(t, threats)
}

func containsMessage(threats []models.Threat, substrs ...string) bool {
	for _, th := range threats {
		ok := true
		for _, s := range substrs {
			if !strings.Contains(th.Message, s) && !strings.Contains(th.Locator, s) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

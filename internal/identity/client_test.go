package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, body string, status int) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return &Client{BaseURL: srv.URL, HTTP: srv.Client()}
}

func TestVerifyMatchingDigestIsVerified(t *testing.T) {
	client := testClient(t, `{"siblings":[{"rfilename":"model.safetensors","lfs":{"sha256":"ABCDEF"}}]}`, http.StatusOK)
	state, err := Verify(context.Background(), client, "org/repo", "model.safetensors", "abcdef")
	require.NoError(t, err)
	require.Equal(t, models.IdentityVerified, state)
}

func TestVerifyDifferingDigestIsMismatch(t *testing.T) {
	client := testClient(t, `{"siblings":[{"rfilename":"model.safetensors","lfs":{"sha256":"ABCDEF"}}]}`, http.StatusOK)
	state, err := Verify(context.Background(), client, "org/repo", "model.safetensors", "000000")
	require.NoError(t, err)
	require.Equal(t, models.IdentityMismatch, state)
}

func TestVerifyMissingRecordIsUnknown(t *testing.T) {
	client := testClient(t, `{"siblings":[]}`, http.StatusOK)
	state, err := Verify(context.Background(), client, "org/repo", "model.safetensors", "abcdef")
	require.NoError(t, err)
	require.Equal(t, models.IdentityUnknownInRepo, state)
}

func TestVerifyTransportErrorReturnsError(t *testing.T) {
	client := &Client{BaseURL: "http://127.0.0.1:1", HTTP: http.DefaultClient}
	state, err := Verify(context.Background(), client, "org/repo", "model.safetensors", "abcdef")
	require.Error(t, err)
	require.Equal(t, models.IdentityError, state)
}

func TestVerifyNonOKStatusReturnsError(t *testing.T) {
	client := testClient(t, `not found`, http.StatusNotFound)
	state, err := Verify(context.Background(), client, "org/repo", "model.safetensors", "abcdef")
	require.Error(t, err)
	require.Equal(t, models.IdentityError, state)
}

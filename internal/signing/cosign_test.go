package signing

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeLookPath(found bool) func(string) (string, error) {
	return func(string) (string, error) {
		if found {
			return "/usr/bin/cosign", nil
		}
		return "", errors.New("not found")
	}
}

func TestSignFailsWhenCosignNotInstalled(t *testing.T) {
	s := NewSigner("/tmp/cosign.key")
	s.LookPathFn = fakeLookPath(false)

	err := s.Sign(context.Background(), "repo/image:v1", nil)
	require.ErrorIs(t, err, ErrCosignNotInstalled)
}

func TestSignFailsWithoutKeyPath(t *testing.T) {
	s := NewSigner("")
	s.LookPathFn = fakeLookPath(true)

	err := s.Sign(context.Background(), "repo/image:v1", nil)
	require.Error(t, err)
}

func TestSignBuildsExpectedArgs(t *testing.T) {
	var captured []string
	s := NewSigner("/tmp/cosign.key")
	s.LookPathFn = fakeLookPath(true)
	s.CommandCtxF = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = args
		return exec.CommandContext(ctx, "true")
	}

	err := s.Sign(context.Background(), "repo/image:v1", map[string]string{"status": "clean"})
	require.NoError(t, err)
	require.Contains(t, captured, "--key")
	require.Contains(t, captured, "/tmp/cosign.key")
	require.Contains(t, captured, "repo/image:v1")
	require.Contains(t, captured, "-a")
	require.Contains(t, captured, "status=clean")
}

func TestInstalledReflectsLookPath(t *testing.T) {
	s := NewSigner("/tmp/cosign.key")
	s.LookPathFn = fakeLookPath(false)
	require.False(t, s.Installed())
	s.LookPathFn = fakeLookPath(true)
	require.True(t, s.Installed())
}

// Package signing shells out to cosign to sign OCI artifacts once a
// scan's verdict permits deployment (spec.md: "an opaque sign(image,
// annotations) capability" exposed by the core, out-of-scope for the
// core's own logic beyond that one call).
package signing

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrCosignNotInstalled is returned when the cosign binary is not on PATH.
var ErrCosignNotInstalled = fmt.Errorf("cosign binary not found in PATH")

// Signer signs container images with a cosign private key.
type Signer struct {
	KeyPath     string
	TlogUpload  bool
	LookPathFn  func(string) (string, error)
	CommandCtxF func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewSigner returns a Signer configured with keyPath (a cosign.key file).
func NewSigner(keyPath string) *Signer {
	return &Signer{
		KeyPath:     keyPath,
		LookPathFn:  exec.LookPath,
		CommandCtxF: exec.CommandContext,
	}
}

// Installed reports whether the cosign binary is reachable.
func (s *Signer) Installed() bool {
	lookup := s.LookPathFn
	if lookup == nil {
		lookup = exec.LookPath
	}
	_, err := lookup("cosign")
	return err == nil
}

// Sign signs image with the configured key, attaching annotations as
// `-a key=value` flags. Errors from cosign have the key path redacted,
// since the error message echoes argv on failure.
func (s *Signer) Sign(ctx context.Context, image string, annotations map[string]string) error {
	if !s.Installed() {
		return ErrCosignNotInstalled
	}
	if s.KeyPath == "" {
		return fmt.Errorf("no private key configured")
	}

	args := []string{
		"sign",
		"--key", s.KeyPath,
		fmt.Sprintf("--tlog-upload=%t", s.TlogUpload),
		"--yes",
	}
	for k, v := range annotations {
		args = append(args, "-a", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args, image)

	commandCtx := s.CommandCtxF
	if commandCtx == nil {
		commandCtx = exec.CommandContext
	}
	cmd := commandCtx(ctx, "cosign", args...)
	cmd.Env = os.Environ()

	out, err := cmd.CombinedOutput()
	if err != nil {
		redacted := strings.ReplaceAll(string(out), s.KeyPath, "[KEY_PATH]")
		return fmt.Errorf("cosign sign failed: %w: %s", err, redacted)
	}
	return nil
}

// GenerateKeyPair invokes `cosign generate-key-pair` in outputDir,
// used by the `keygen` command surface.
func GenerateKeyPair(ctx context.Context, outputDir string) error {
	if _, err := exec.LookPath("cosign"); err != nil {
		return ErrCosignNotInstalled
	}
	cmd := exec.CommandContext(ctx, "cosign", "generate-key-pair")
	cmd.Dir = outputDir
	cmd.Env = os.Environ()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("generate key pair: %w: %s", err, string(out))
	}
	return nil
}

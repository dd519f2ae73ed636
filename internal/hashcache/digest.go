// Package hashcache computes content digests for scanned files and
// caches them keyed on (path, size, mtime) so a re-scan of an unchanged
// file skips the hashing pass entirely (spec.md §3, §4.8).
package hashcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Digest streams a file's contents through SHA-256 and returns the full
// hex-encoded digest. Unlike internal/hash's truncated IDs, the hash
// cache needs the untruncated digest for identity cross-checks against
// an upstream registry.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

package hashcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(DefaultConfig(filepath.Join(dir, "cache.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestDigestDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello aegis"), 0644))

	d1, err := Digest(path)
	require.NoError(t, err)
	d2, err := Digest(path)
	require.NoError(t, err)

	require.Equal(t, d1, d2)
	require.Len(t, d1, 64)
}

func TestCacheLookupMiss(t *testing.T) {
	c := testCache(t)
	_, hit, err := c.Lookup("/nowhere", 0, 0)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCacheStoreAndLookup(t *testing.T) {
	c := testCache(t)
	require.NoError(t, c.Store("/a/b", 10, 123, "deadbeef"))

	digest, hit, err := c.Lookup("/a/b", 10, 123)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "deadbeef", digest)
}

func TestCacheLookupStaleOnMtimeChange(t *testing.T) {
	c := testCache(t)
	require.NoError(t, c.Store("/a/b", 10, 123, "deadbeef"))

	_, hit, err := c.Lookup("/a/b", 10, 999)
	require.NoError(t, err)
	require.False(t, hit, "changed mtime must invalidate the cached digest")
}

func TestDigestFileCachesAcrossCalls(t *testing.T) {
	c := testCache(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")
	require.NoError(t, os.WriteFile(path, []byte("weights"), 0644))

	first, err := c.DigestFile(path)
	require.NoError(t, err)

	second, err := c.DigestFile(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDigestFileDetectsContentChange(t *testing.T) {
	c := testCache(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	first, err := c.DigestFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("v2-longer-content"), 0644))

	second, err := c.DigestFile(path)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

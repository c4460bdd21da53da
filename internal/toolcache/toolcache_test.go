package toolcache

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTree(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "cmake-3.20.2", "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "cmake-3.20.2", "bin", "cmake"), []byte("cmake"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "ninja-linux"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "ninja-linux", "ninja"), []byte("ninja"), 0o755))
	return src
}

func TestStoreThenFind(t *testing.T) {
	cache := New(t.TempDir())
	src := seedTree(t)

	assert.Equal(t, "", cache.Find("cmake-and-ninja", "1454440670.0.1", "linux-x64"))

	stored, err := cache.Store(src, "cmake-and-ninja", "1454440670.0.1", "linux-x64")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache.Root, "cmake-and-ninja", "1454440670.0.1", "linux-x64"), stored)

	found := cache.Find("cmake-and-ninja", "1454440670.0.1", "linux-x64")
	assert.Equal(t, stored, found)

	data, err := os.ReadFile(filepath.Join(found, "ninja-linux", "ninja"))
	require.NoError(t, err)
	assert.Equal(t, "ninja", string(data))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(found, "cmake-3.20.2", "bin", "cmake"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	}

	assert.Equal(t, "", cache.Find("cmake-and-ninja", "1454440670.0.1", "windows-x64"))
	assert.Equal(t, []string{"1454440670.0.1"}, cache.Versions("cmake-and-ninja", "linux-x64"))
}

func TestFindIgnoresIncompleteEntries(t *testing.T) {
	cache := New(t.TempDir())
	dir := filepath.Join(cache.Root, "tool", "1.0.0", "linux-x64")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	assert.Equal(t, "", cache.Find("tool", "1.0.0", "linux-x64"))
}

func TestFindRequiresExplicitVersion(t *testing.T) {
	cache := New(t.TempDir())
	_, err := cache.Store(seedTree(t), "tool", "1.0.0", "linux-x64")
	require.NoError(t, err)

	assert.Equal(t, "", cache.Find("tool", "1.x", "linux-x64"))
	assert.Equal(t, "", cache.Find("tool", "latest", "linux-x64"))

	_, err = cache.Store(seedTree(t), "tool", "~1.0", "linux-x64")
	assert.Error(t, err)
}

func TestStoreReplacesExistingEntry(t *testing.T) {
	cache := New(t.TempDir())
	first := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(first, "old"), []byte("old"), 0o644))
	_, err := cache.Store(first, "tool", "2.0.0", "macos-universal")
	require.NoError(t, err)

	second := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(second, "new"), []byte("new"), 0o644))
	stored, err := cache.Store(second, "tool", "2.0.0", "macos-universal")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(stored, "old"))
	assert.FileExists(t, filepath.Join(stored, "new"))

	leftovers, err := filepath.Glob(filepath.Join(cache.Root, "tool", "2.0.0", ".*-tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestStoreRejectsMissingSource(t *testing.T) {
	cache := New(t.TempDir())
	_, err := cache.Store(filepath.Join(t.TempDir(), "missing"), "tool", "1.0.0", "linux-x64")
	assert.Error(t, err)
	assert.Equal(t, "", cache.Find("tool", "1.0.0", "linux-x64"))
}

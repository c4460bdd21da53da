// Package toolcache is the per-worker tool cache: installed trees addressed by
// tool name, explicit version and platform, laid out the way hosted runners
// lay out RUNNER_TOOL_CACHE.
package toolcache

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const completeSuffix = ".complete"

// Cache stores trees under <Root>/<name>/<version>/<platform>.
type Cache struct {
	Root string
}

// New returns a cache rooted at root.
func New(root string) *Cache {
	return &Cache{Root: root}
}

// Find returns the cached directory, or "" when the entry is absent or was
// never completed. version must be an explicit X.Y.Z version.
func (c *Cache) Find(name, version, platform string) string {
	dir, err := c.entryDir(name, version, platform)
	if err != nil {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	if _, err := os.Stat(dir + completeSuffix); err != nil {
		return ""
	}
	return dir
}

// Versions lists the completed versions cached for name on platform.
func (c *Cache) Versions(name, platform string) []string {
	entries, err := os.ReadDir(filepath.Join(c.Root, name))
	if err != nil {
		return nil
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() && c.Find(name, e.Name(), platform) != "" {
			versions = append(versions, e.Name())
		}
	}
	return versions
}

// Store copies the tree at src into the cache and returns the cached path.
// The copy is staged next to its destination and committed by rename, then
// marked complete.
func (c *Cache) Store(src, name, version, platform string) (string, error) {
	dest, err := c.entryDir(name, version, platform)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", src)
	}

	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("prepare cache dir: %w", err)
	}
	marker := dest + completeSuffix
	_ = os.Remove(marker)

	tmpDir, err := os.MkdirTemp(parent, "."+platform+"-tmp-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(tmpDir)
		}
	}()

	if err := copyTree(src, tmpDir); err != nil {
		return "", fmt.Errorf("copy %s: %w", src, err)
	}

	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("replace cache dir: %w", err)
	}
	if err := os.Rename(tmpDir, dest); err != nil {
		return "", fmt.Errorf("commit cache dir: %w", err)
	}
	committed = true

	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return "", fmt.Errorf("mark complete: %w", err)
	}
	return dest, nil
}

func (c *Cache) entryDir(name, version, platform string) (string, error) {
	if c.Root == "" {
		return "", fmt.Errorf("tool cache root is not set")
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid tool name %q", name)
	}
	if platform == "" || strings.ContainsAny(platform, `/\`) {
		return "", fmt.Errorf("invalid platform %q", platform)
	}
	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return "", fmt.Errorf("tool cache needs an explicit version, got %q: %w", version, err)
	}
	return filepath.Join(c.Root, name, v.String(), platform), nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	dest, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		return err
	}
	return dest.Close()
}

// Package archive unpacks the release archives CMake and Ninja ship in, and
// packs install trees into the bundles stored by the remote cache.
package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Kind identifies an archive format.
type Kind string

const (
	KindTarGz Kind = "tar.gz"
	KindZip   Kind = "zip"
)

// ErrUnknownFormat is returned when an archive name carries no recognised suffix.
var ErrUnknownFormat = errors.New("unrecognised archive format")

// KindFromSuffix maps a file name or suffix such as ".tar.gz" onto a Kind.
func KindFromSuffix(name string) (Kind, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindTarGz, nil
	case strings.HasSuffix(lower, ".zip"):
		return KindZip, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(name))
	}
}

// Extractor unpacks archives of a declared kind. The archive's own file name
// plays no part, so downloads saved under temporary names extract directly.
type Extractor struct{}

// Extract unpacks archivePath as kind into dest, creating dest when needed.
func (Extractor) Extract(ctx context.Context, kind Kind, archivePath, dest string) error {
	if kind != KindTarGz && kind != KindZip {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, kind)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("prepare extract dir: %w", err)
	}
	if kind == KindTarGz {
		return ExtractTarGz(archivePath, dest)
	}
	return ExtractZip(archivePath, dest)
}

// ExtractZip unpacks a zip archive. Entries escaping dest are rejected.
func ExtractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target, err := safeJoin(dest, file.Name)
		if err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s: %w", file.Name, err)
		}
		err = writeFile(target, rc, fileMode(file.Mode()))
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// ExtractTarGz unpacks a gzip-compressed tarball.
func ExtractTarGz(archivePath, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close()

	return untar(tar.NewReader(gz), func(name string) (string, string, bool, error) {
		return dest, name, false, nil
	})
}

// route maps a tar entry name onto the directory it must stay within and its
// path relative to that directory. skip drops the entry.
type route func(name string) (root, rel string, skip bool, err error)

func untar(tr *tar.Reader, to route) error {
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		root, rel, skip, err := to(header.Name)
		if err != nil {
			return err
		}
		if skip {
			continue
		}
		target, err := safeJoin(root, rel)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, fileMode(os.FileMode(header.Mode))); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(root, target, header.Linkname); err != nil {
				return err
			}
		default:
			// Devices, fifos and hard links never appear in tool releases.
		}
	}
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare file %s: %w", target, err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return nil
}

func writeSymlink(dest, target, linkname string) error {
	resolved := linkname
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), linkname)
	}
	if !within(dest, resolved) {
		return fmt.Errorf("symlink %s points outside archive root", target)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare symlink %s: %w", target, err)
	}
	_ = os.Remove(target)
	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("create symlink %s: %w", target, err)
	}
	return nil
}

// safeJoin joins an archive entry name onto dest, refusing names that escape it.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if !within(dest, target) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func fileMode(mode os.FileMode) os.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0o644
	}
	return perm | 0o600
}

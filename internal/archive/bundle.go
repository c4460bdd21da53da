package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// WriteBundle packs the trees rooted at paths into a zstd-compressed tarball.
// Entries are named "<index>/<relative path>" so ReadBundle can restore each
// tree onto the path at the same index.
func WriteBundle(w io.Writer, paths []string) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	tw := tar.NewWriter(enc)

	for i, root := range paths {
		if err := addTree(tw, strconv.Itoa(i), root); err != nil {
			tw.Close()
			enc.Close()
			return err
		}
	}

	if err := tw.Close(); err != nil {
		enc.Close()
		return fmt.Errorf("finish tar: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish zstd: %w", err)
	}
	return nil
}

func addTree(tw *tar.Writer, prefix, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := prefix
		if rel != "." {
			name = prefix + "/" + filepath.ToSlash(rel)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		link := ""
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return fmt.Errorf("tar header %s: %w", path, err)
		}
		header.Name = name
		if d.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("write header %s: %w", name, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	})
}

// ReadBundle unpacks a bundle produced by WriteBundle, restoring entry
// "<index>/<rel>" to paths[index]/<rel>. Every destination must stay within
// its own path.
func ReadBundle(r io.Reader, paths []string) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("prepare %s: %w", p, err)
		}
	}

	return untar(tar.NewReader(dec), func(name string) (string, string, bool, error) {
		idx, rel, _ := strings.Cut(strings.TrimSuffix(name, "/"), "/")
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(paths) {
			return "", "", false, fmt.Errorf("bundle entry %q has no destination", name)
		}
		if rel == "" {
			return "", "", true, nil
		}
		return paths[i], rel, false, nil
	})
}

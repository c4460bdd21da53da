package remotecache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"getcmake/internal/archive"
)

const bundleSuffix = ".tar.zst"

// DefaultStaleLock is how old a reservation may get before a save takes it
// over. Writers killed mid-save never remove their lock.
const DefaultStaleLock = 30 * time.Minute

// Dir stores bundles as files in a directory shared between workers, such as
// a network mount.
type Dir struct {
	Root   string
	Logger log.FieldLogger
	// StaleLock overrides DefaultStaleLock when positive.
	StaleLock time.Duration
}

// NewDir returns a directory-backed cache.
func NewDir(root string, logger log.FieldLogger) *Dir {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Dir{Root: root, Logger: logger}
}

func (d *Dir) checkKey(paths []string, key string) error {
	if err := validate(paths, key); err != nil {
		return err
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: key %q is not a file name", ErrInvalidRequest, key)
	}
	return nil
}

func (d *Dir) bundlePath(key string) string {
	return filepath.Join(d.Root, key+bundleSuffix)
}

// Restore implements Cache.
func (d *Dir) Restore(ctx context.Context, paths []string, key string) (string, bool, error) {
	if err := d.checkKey(paths, key); err != nil {
		return "", false, err
	}
	f, err := os.Open(d.bundlePath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			d.Logger.Debugf("no bundle for key %s in %s", key, d.Root)
			return "", false, nil
		}
		return "", false, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if err := archive.ReadBundle(f, paths); err != nil {
		return "", false, fmt.Errorf("restore %s: %w", key, err)
	}
	return key, true, nil
}

// Save implements Cache. A key is reserved with an exclusive lock file for the
// duration of the write; a held lock or an existing bundle is a reservation
// conflict.
func (d *Dir) Save(ctx context.Context, paths []string, key string) (int64, error) {
	if err := d.checkKey(paths, key); err != nil {
		return 0, validationError(key, err)
	}
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return 0, &SaveError{Kind: KindOther, Key: key, Err: fmt.Errorf("prepare cache dir: %w", err)}
	}

	lockPath := filepath.Join(d.Root, key+".lock")
	if err := d.reserve(lockPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, &SaveError{Kind: KindReserveConflict, Key: key, Err: errors.New("another job is saving this key")}
		}
		return 0, &SaveError{Kind: KindOther, Key: key, Err: fmt.Errorf("reserve: %w", err)}
	}
	defer func() { _ = os.Remove(lockPath) }()

	dest := d.bundlePath(key)
	if _, err := os.Stat(dest); err == nil {
		return 0, &SaveError{Kind: KindReserveConflict, Key: key, Err: errors.New("entry already exists")}
	}

	tmp, err := os.CreateTemp(d.Root, key+"-*.tmp")
	if err != nil {
		return 0, &SaveError{Kind: KindOther, Key: key, Err: fmt.Errorf("create temp bundle: %w", err)}
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := ctx.Err(); err != nil {
		tmp.Close()
		return 0, &SaveError{Kind: KindOther, Key: key, Err: err}
	}
	if err := archive.WriteBundle(tmp, paths); err != nil {
		tmp.Close()
		return 0, &SaveError{Kind: KindOther, Key: key, Err: err}
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return 0, &SaveError{Kind: KindOther, Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return 0, &SaveError{Kind: KindOther, Key: key, Err: fmt.Errorf("close temp bundle: %w", err)}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, &SaveError{Kind: KindOther, Key: key, Err: fmt.Errorf("commit bundle: %w", err)}
	}

	d.Logger.Debugf("saved %d bytes under key %s", info.Size(), key)
	return info.Size(), nil
}

// reserve creates lockPath exclusively. A lock older than the stale limit is
// removed and the reservation tried once more.
func (d *Dir) reserve(lockPath string) error {
	err := createLock(lockPath)
	if !errors.Is(err, os.ErrExist) {
		return err
	}
	info, statErr := os.Stat(lockPath)
	if statErr != nil {
		return err
	}
	stale := d.StaleLock
	if stale <= 0 {
		stale = DefaultStaleLock
	}
	age := time.Since(info.ModTime())
	if age < stale {
		return err
	}
	d.Logger.Warnf("removing stale lock %s (%s old)", lockPath, age.Round(time.Second))
	if rmErr := os.Remove(lockPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return rmErr
	}
	return createLock(lockPath)
}

func createLock(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	return f.Close()
}

// Package remotecache is the cache shared between workers. Entries are
// bundles of one or more directory trees addressed by an opaque key.
package remotecache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Cache restores and saves bundles by key.
type Cache interface {
	// Restore unpacks the entry stored under key onto paths. A miss is
	// reported as hit == false with a nil error; any error means the
	// lookup itself failed.
	Restore(ctx context.Context, paths []string, key string) (matchedKey string, hit bool, err error)
	// Save stores the trees at paths under key and returns the stored size.
	// Failures are *SaveError values.
	Save(ctx context.Context, paths []string, key string) (int64, error)
}

// Kind classifies save failures.
type Kind int

const (
	// KindOther covers transport and storage failures.
	KindOther Kind = iota
	// KindValidation means the key or paths were rejected before any I/O.
	KindValidation
	// KindReserveConflict means another writer owns or already filled the key.
	KindReserveConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindReserveConflict:
		return "reserve-conflict"
	default:
		return "other"
	}
}

// SaveError reports why a save did not store anything.
type SaveError struct {
	Kind Kind
	Key  string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s (%s): %v", e.Key, e.Kind, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a save failure; errors that are not
// *SaveError count as KindOther.
func KindOf(err error) Kind {
	var se *SaveError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindOther
}

const maxKeyLength = 512

// ErrInvalidRequest marks keys and path lists no backend accepts.
var ErrInvalidRequest = errors.New("invalid cache request")

func validate(paths []string, key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty key", ErrInvalidRequest)
	case len(key) > maxKeyLength:
		return fmt.Errorf("%w: key longer than %d characters", ErrInvalidRequest, maxKeyLength)
	case strings.Contains(key, ","):
		return fmt.Errorf("%w: key must not contain commas", ErrInvalidRequest)
	case len(paths) == 0:
		return fmt.Errorf("%w: no paths", ErrInvalidRequest)
	}
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("%w: path %q is not absolute", ErrInvalidRequest, p)
		}
	}
	return nil
}

func validationError(key string, err error) *SaveError {
	return &SaveError{Kind: KindValidation, Key: key, Err: err}
}

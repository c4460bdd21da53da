package catalog

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrNoMatchingVersion means no catalog release satisfies the request.
	ErrNoMatchingVersion = errors.New("no matching version")
	// ErrPlatformUnsupported means the selected release has no asset for the platform.
	ErrPlatformUnsupported = errors.New("platform not supported by release")
)

// ResolutionError describes a request that could not be mapped onto the catalog.
type ResolutionError struct {
	Tool      string
	Requested string
	Version   string
	Platform  Platform
	Err       error
}

func (e *ResolutionError) Error() string {
	switch {
	case errors.Is(e.Err, ErrPlatformUnsupported):
		return fmt.Sprintf("%s %s is not available for %s", e.Tool, e.Version, e.Platform)
	default:
		return fmt.Sprintf("cannot resolve %s version %q: %v", e.Tool, e.Requested, e.Err)
	}
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Resolve maps a requested version (exact version, reserved token or semantic
// range) onto exactly one catalog key available for platform.
//
// Literal keys win over range matching, so a pinned version never resolves to
// something else.
func Resolve(c *Catalog, requested string, p Platform) (string, error) {
	if c.Has(requested) {
		if _, ok := c.Lookup(requested, p); ok {
			return requested, nil
		}
		if IsReserved(requested) {
			return "", &ResolutionError{Tool: c.tool, Requested: requested, Version: requested, Platform: p, Err: ErrPlatformUnsupported}
		}
	}

	constraint, err := semver.NewConstraint(requested)
	if err != nil {
		return "", &ResolutionError{Tool: c.tool, Requested: requested, Platform: p, Err: fmt.Errorf("%w: %v", ErrNoMatchingVersion, err)}
	}

	var (
		best    *semver.Version
		bestKey string
	)
	for key := range c.releases {
		v, err := semver.NewVersion(key)
		if err != nil {
			continue
		}
		if !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) || (v.Equal(best) && preferKey(key, bestKey, v)) {
			best = v
			bestKey = key
		}
	}
	if best == nil {
		return "", &ResolutionError{Tool: c.tool, Requested: requested, Platform: p, Err: ErrNoMatchingVersion}
	}

	if _, ok := c.Lookup(bestKey, p); !ok {
		return "", &ResolutionError{Tool: c.tool, Requested: requested, Version: bestKey, Platform: p, Err: ErrPlatformUnsupported}
	}
	return bestKey, nil
}

// ResolveDescriptor resolves requested and returns the matching descriptor.
func ResolveDescriptor(c *Catalog, requested string, p Platform) (string, PackageDescriptor, error) {
	version, err := Resolve(c, requested, p)
	if err != nil {
		return "", PackageDescriptor{}, err
	}
	desc, _ := c.Lookup(version, p)
	return version, desc, nil
}

// preferKey breaks ties between keys that parse to the same version, such as
// "3.20", "3.20.0" and "v3.20.0". The canonical spelling wins, then the
// lexically smallest key.
func preferKey(key, current string, v *semver.Version) bool {
	canonical := v.String()
	if key == canonical || current == canonical {
		return key == canonical
	}
	return key < current
}

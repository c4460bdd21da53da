package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate runs all checks against the config and returns structured results.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateVersions()...)
	results = append(results, c.validateRemote()...)
	results = append(results, c.validateCatalogFiles()...)
	return results
}

// Err joins the error-level results; nil when there are none.
func Err(results []ValidationResult) error {
	var errs []error
	for _, r := range results {
		if r.Level == "error" {
			errs = append(errs, errors.New(r.Message))
		}
	}
	return errors.Join(errs...)
}

func (c Config) validateVersions() []ValidationResult {
	var results []ValidationResult
	for _, v := range []struct{ tool, value string }{
		{"cmake", c.CMakeVersion},
		{"ninja", c.NinjaVersion},
	} {
		if v.value == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("%s version is empty", v.tool),
			})
			continue
		}
		if v.value == "latest" || v.value == "latestrc" {
			continue
		}
		if _, err := semver.NewConstraint(v.value); err != nil {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("%s version %q is neither a version nor a range; only an exact catalog key can match it", v.tool, v.value),
			})
		}
	}
	return results
}

func (c Config) validateRemote() []ValidationResult {
	var results []ValidationResult
	rc := c.RemoteCache
	switch rc.Backend {
	case BackendDir:
		if rc.Reference != "" {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: "remote_cache.reference is ignored by the dir backend",
			})
		}
	case BackendOCI:
		if c.RemoteCacheEnabled() && strings.TrimSpace(rc.Reference) == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: "remote_cache.reference is required by the oci backend",
			})
		}
		if rc.Username != "" && rc.Token == "" {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: "remote_cache.username is set without a token",
			})
		}
	default:
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("unknown remote_cache.backend %q (use %s or %s)", rc.Backend, BackendDir, BackendOCI),
		})
	}
	return results
}

func (c Config) validateCatalogFiles() []ValidationResult {
	var results []ValidationResult
	for _, path := range []string{c.Catalogs.CMakeFile, c.Catalogs.NinjaFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("catalog file %q not found", path),
			})
		}
	}
	return results
}

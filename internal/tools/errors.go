package tools

import (
	"fmt"

	"getcmake/internal/remotecache"
)

// EnvironmentError means the host does not provide something the run needs.
type EnvironmentError struct {
	Variable string
	Reason   string
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("environment: %s %s", e.Variable, e.Reason)
}

// AcquisitionError means an archive could not be downloaded or unpacked.
type AcquisitionError struct {
	Tool  string
	Stage string
	URL   string
	Err   error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("%s %s failed for %s: %v", e.Tool, e.Stage, e.URL, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// IntegrationError means a provisioned tool could not be exposed on PATH.
type IntegrationError struct {
	Tool string
	Err  error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// CacheReadError means a cache lookup failed, as opposed to missing.
type CacheReadError struct {
	Tier string
	Key  string
	Err  error
}

func (e *CacheReadError) Error() string {
	return fmt.Sprintf("restore %s from %s cache: %v", e.Key, e.Tier, e.Err)
}

func (e *CacheReadError) Unwrap() error { return e.Err }

// CacheWriteError means a cache save failed in a way that stops the run.
// Kind classifies remote-tier failures and is unused for the local tier.
type CacheWriteError struct {
	Tier string
	Key  string
	Kind remotecache.Kind
	Err  error
}

func (e *CacheWriteError) Error() string {
	if e.Tier != TierRemote {
		return fmt.Sprintf("save %s to %s cache: %v", e.Key, e.Tier, e.Err)
	}
	return fmt.Sprintf("save %s to %s cache (%s): %v", e.Key, e.Tier, e.Kind, e.Err)
}

func (e *CacheWriteError) Unwrap() error { return e.Err }

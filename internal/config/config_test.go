package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"

	"getcmake/internal/actions"
)

func TestLocalCacheDisabledByDefault(t *testing.T) {
	cfg := Config{}
	if cfg.LocalCacheEnabled() {
		t.Fatal("expected LocalCacheEnabled() = false when unset")
	}
	cfg.LocalCache.Enabled = boolPtr(true)
	if !cfg.LocalCacheEnabled() {
		t.Fatal("expected LocalCacheEnabled() = true")
	}
}

func TestRemoteCacheEnabledByDefault(t *testing.T) {
	cfg := Config{}
	if !cfg.RemoteCacheEnabled() {
		t.Fatal("expected RemoteCacheEnabled() = true when unset")
	}
	cfg.RemoteCache.Enabled = boolPtr(false)
	if cfg.RemoteCacheEnabled() {
		t.Fatal("expected RemoteCacheEnabled() = false")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CMakeVersion != "latest" || cfg.NinjaVersion != "latest" {
		t.Fatalf("expected latest defaults, got %q/%q", cfg.CMakeVersion, cfg.NinjaVersion)
	}
	if cfg.RemoteCache.Backend != BackendDir {
		t.Fatalf("expected dir backend, got %q", cfg.RemoteCache.Backend)
	}
}

func TestLoadFileAndExpandHome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "getcmake.yaml")
	data := `
cmake_version: "~3.25"
local_cache:
  enabled: true
  dir: ~/tools
remote_cache:
  backend: OCI
  reference: ghcr.io/acme/toolcache
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CMakeVersion != "~3.25" {
		t.Fatalf("expected ~3.25, got %q", cfg.CMakeVersion)
	}
	if cfg.NinjaVersion != "latest" {
		t.Fatalf("expected ninja default, got %q", cfg.NinjaVersion)
	}
	if cfg.RemoteCache.Backend != BackendOCI {
		t.Fatalf("expected backend normalised to oci, got %q", cfg.RemoteCache.Backend)
	}
	home, err := homedir.Dir()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LocalCache.Dir != filepath.Join(home, "tools") {
		t.Fatalf("expected expanded dir, got %q", cfg.LocalCache.Dir)
	}
	if !cfg.LocalCacheEnabled() {
		t.Fatal("expected local cache enabled")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "getcmake.yaml")
	if err := os.WriteFile(path, []byte("cmake_version: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestApplyInputsOverridesFile(t *testing.T) {
	cfg := Default()
	cfg.CMakeVersion = "3.20.2"
	cfg.LocalCache.Enabled = boolPtr(false)

	in := actions.NewInputs(func(key string) (string, bool) {
		switch key {
		case "INPUT_NINJAVERSION":
			return "1.11.1", true
		case "INPUT_USELOCALCACHE":
			return "true", true
		case "INPUT_USECLOUDCACHE":
			return "", true
		}
		return "", false
	})
	if err := cfg.ApplyInputs(in); err != nil {
		t.Fatalf("ApplyInputs: %v", err)
	}
	if cfg.CMakeVersion != "3.20.2" {
		t.Fatalf("expected file value kept, got %q", cfg.CMakeVersion)
	}
	if cfg.NinjaVersion != "1.11.1" {
		t.Fatalf("expected input value, got %q", cfg.NinjaVersion)
	}
	if !cfg.LocalCacheEnabled() {
		t.Fatal("expected local cache enabled by input")
	}
	if !cfg.RemoteCacheEnabled() {
		t.Fatal("expected remote cache default kept for empty input")
	}
}

func TestApplyInputsRejectsBadBoolean(t *testing.T) {
	cfg := Default()
	in := actions.NewInputs(func(key string) (string, bool) {
		if key == "INPUT_USECLOUDCACHE" {
			return "yes", true
		}
		return "", false
	})
	err := cfg.ApplyInputs(in)
	if err == nil || !strings.Contains(err.Error(), "useCloudCache") {
		t.Fatalf("expected useCloudCache error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := Err(cfg.Validate()); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}

	cfg.RemoteCache.Backend = BackendOCI
	if err := Err(cfg.Validate()); err == nil || !strings.Contains(err.Error(), "reference") {
		t.Fatalf("expected missing reference error, got %v", err)
	}

	cfg.RemoteCache.Enabled = boolPtr(false)
	if err := Err(cfg.Validate()); err != nil {
		t.Fatalf("expected disabled oci backend to validate: %v", err)
	}

	cfg.RemoteCache.Backend = "s3"
	if err := Err(cfg.Validate()); err == nil {
		t.Fatal("expected unknown backend error")
	}
}

func TestValidateVersionWarnings(t *testing.T) {
	cfg := Default()
	cfg.CMakeVersion = "not-a-range!"
	results := cfg.validateVersions()
	if len(results) != 1 || results[0].Level != "warning" {
		t.Fatalf("expected one warning, got %v", results)
	}
	if err := Err(results); err != nil {
		t.Fatalf("warnings must not fail validation: %v", err)
	}
}

func TestValidateCatalogFiles(t *testing.T) {
	cfg := Default()
	cfg.Catalogs.CMakeFile = filepath.Join(t.TempDir(), "nope.json")
	if err := Err(cfg.validateCatalogFiles()); err == nil {
		t.Fatal("expected missing catalog file error")
	}
}

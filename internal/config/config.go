package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Remote cache backends.
const (
	BackendDir = "dir"
	BackendOCI = "oci"
)

// Config captures how getcmake provisions the tools on a worker.
type Config struct {
	Version      int               `yaml:"version"`
	CMakeVersion string            `yaml:"cmake_version"`
	NinjaVersion string            `yaml:"ninja_version"`
	ScratchDir   string            `yaml:"scratch_dir,omitempty"`
	LocalCache   LocalCacheConfig  `yaml:"local_cache"`
	RemoteCache  RemoteCacheConfig `yaml:"remote_cache"`
	Catalogs     CatalogsConfig    `yaml:"catalogs,omitempty"`
}

// LocalCacheConfig controls the per-worker tool cache.
type LocalCacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// RemoteCacheConfig controls the cache shared between workers.
type RemoteCacheConfig struct {
	Enabled   *bool  `yaml:"enabled,omitempty"`
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir,omitempty"`
	Reference string `yaml:"reference,omitempty"`
	PlainHTTP bool   `yaml:"plain_http,omitempty"`
	Username  string `yaml:"username,omitempty"`
	Token     string `yaml:"token,omitempty"`
}

// CatalogsConfig points at catalog files that replace the embedded ones.
type CatalogsConfig struct {
	CMakeFile string `yaml:"cmake_file,omitempty"`
	NinjaFile string `yaml:"ninja_file,omitempty"`
}

// LocalCacheEnabled reports whether the local tier is consulted. Off unless
// explicitly enabled.
func (c Config) LocalCacheEnabled() bool {
	if c.LocalCache.Enabled == nil {
		return false
	}
	return *c.LocalCache.Enabled
}

// RemoteCacheEnabled reports whether the remote tier is consulted. On unless
// explicitly disabled.
func (c Config) RemoteCacheEnabled() bool {
	if c.RemoteCache.Enabled == nil {
		return true
	}
	return *c.RemoteCache.Enabled
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version:      1,
		CMakeVersion: "latest",
		NinjaVersion: "latest",
		RemoteCache: RemoteCacheConfig{
			Backend: BackendDir,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			if err := cfg.ApplyDefaults(); err != nil {
				return Config{}, err
			}
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills fields the YAML or inputs left empty and expands "~" in
// directory settings.
func (c *Config) ApplyDefaults() error {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	c.CMakeVersion = strings.TrimSpace(c.CMakeVersion)
	if c.CMakeVersion == "" {
		c.CMakeVersion = defaults.CMakeVersion
	}
	c.NinjaVersion = strings.TrimSpace(c.NinjaVersion)
	if c.NinjaVersion == "" {
		c.NinjaVersion = defaults.NinjaVersion
	}
	c.RemoteCache.Backend = strings.ToLower(strings.TrimSpace(c.RemoteCache.Backend))
	if c.RemoteCache.Backend == "" {
		c.RemoteCache.Backend = defaults.RemoteCache.Backend
	}

	for _, dir := range []*string{&c.ScratchDir, &c.LocalCache.Dir, &c.RemoteCache.Dir, &c.Catalogs.CMakeFile, &c.Catalogs.NinjaFile} {
		if *dir == "" {
			continue
		}
		expanded, err := homedir.Expand(*dir)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *dir, err)
		}
		*dir = expanded
	}
	return nil
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func boolPtr(v bool) *bool {
	return &v
}

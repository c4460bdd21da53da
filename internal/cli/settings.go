package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"getcmake/internal/actions"
	"getcmake/internal/catalog"
	"getcmake/internal/config"
	"getcmake/internal/paths"
	"getcmake/internal/remotecache"
	"getcmake/internal/tools"
)

// settings is the effective configuration of one invocation.
type settings struct {
	Config config.Config
	Paths  paths.RunnerPaths
}

// configFlags are the flags that override the config file and action inputs.
type configFlags struct {
	cmakeVersion  string
	ninjaVersion  string
	scratchDir    string
	localCache    bool
	localDir      string
	remoteCache   bool
	remoteBackend string
	remoteDir     string
	remoteRef     string
	plainHTTP     bool
}

func (f *configFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.cmakeVersion, "cmake-version", "", "CMake version, range, latest or latestrc")
	fs.StringVar(&f.ninjaVersion, "ninja-version", "", "Ninja version, range, latest or latestrc")
	fs.StringVar(&f.scratchDir, "scratch-dir", "", "Scratch root for the install (default $RUNNER_TEMP)")
	fs.BoolVar(&f.localCache, "local-cache", false, "Use the per-worker tool cache")
	fs.StringVar(&f.localDir, "local-cache-dir", "", "Tool cache root (default $RUNNER_TOOL_CACHE)")
	fs.BoolVar(&f.remoteCache, "remote-cache", true, "Use the cache shared between workers")
	fs.StringVar(&f.remoteBackend, "remote-backend", "", "Remote cache backend: dir or oci")
	fs.StringVar(&f.remoteDir, "remote-dir", "", "Directory of the dir backend")
	fs.StringVar(&f.remoteRef, "remote-ref", "", "Repository of the oci backend, e.g. ghcr.io/acme/toolcache")
	fs.BoolVar(&f.plainHTTP, "plain-http", false, "Talk to the registry over plain HTTP")
}

// apply overlays the flags the user actually set.
func (f *configFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("cmake-version") {
		cfg.CMakeVersion = f.cmakeVersion
	}
	if changed("ninja-version") {
		cfg.NinjaVersion = f.ninjaVersion
	}
	if changed("scratch-dir") {
		cfg.ScratchDir = f.scratchDir
	}
	if changed("local-cache") {
		v := f.localCache
		cfg.LocalCache.Enabled = &v
	}
	if changed("local-cache-dir") {
		cfg.LocalCache.Dir = f.localDir
	}
	if changed("remote-cache") {
		v := f.remoteCache
		cfg.RemoteCache.Enabled = &v
	}
	if changed("remote-backend") {
		cfg.RemoteCache.Backend = f.remoteBackend
	}
	if changed("remote-dir") {
		cfg.RemoteCache.Dir = f.remoteDir
	}
	if changed("remote-ref") {
		cfg.RemoteCache.Reference = f.remoteRef
	}
	if changed("plain-http") {
		cfg.RemoteCache.PlainHTTP = f.plainHTTP
	}
}

// loadSettings layers the config file, action inputs and flags, in that
// order, and validates the result.
func loadSettings(cmd *cobra.Command, flags *configFlags) (settings, []config.ValidationResult, error) {
	rp, err := paths.Resolve(lookupEnv)
	if err != nil {
		return settings{}, nil, err
	}

	path := configPath
	if path == "" {
		path = rp.ConfigFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		return settings{}, nil, err
	}
	if err := cfg.ApplyInputs(actions.NewInputs(lookupEnv)); err != nil {
		return settings{}, nil, fmt.Errorf("action inputs: %w", err)
	}
	if flags != nil {
		flags.apply(cmd, &cfg)
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return settings{}, nil, err
	}

	results := cfg.Validate()
	if err := config.Err(results); err != nil {
		return settings{}, results, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings{Config: cfg, Paths: paths.ApplyConfig(rp, cfg)}, results, nil
}

// loadCatalog returns the catalog file named in the config, or the embedded
// catalog when none is set.
func loadCatalog(tool, file string) (*catalog.Catalog, error) {
	if file == "" {
		return catalog.Embedded(tool)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s catalog: %w", tool, err)
	}
	return catalog.Parse(tool, data)
}

func loadCatalogs(cfg config.Config) (*catalog.Catalog, *catalog.Catalog, error) {
	cmake, err := loadCatalog(tools.CMake, cfg.Catalogs.CMakeFile)
	if err != nil {
		return nil, nil, err
	}
	ninja, err := loadCatalog(tools.Ninja, cfg.Catalogs.NinjaFile)
	if err != nil {
		return nil, nil, err
	}
	return cmake, ninja, nil
}

// EnvRegistryToken supplies the registry token when the config has none.
const EnvRegistryToken = "GETCMAKE_REGISTRY_TOKEN"

// newRemoteCache opens the configured remote backend.
func newRemoteCache(s settings) (tools.RemoteCache, error) {
	rc := s.Config.RemoteCache
	if rc.Token == "" {
		rc.Token, _ = lookupEnv(EnvRegistryToken)
	}
	switch rc.Backend {
	case config.BackendOCI:
		oci, err := remotecache.NewRegistry(rc.Reference, remotecache.RegistryOptions{
			PlainHTTP: rc.PlainHTTP,
			Username:  rc.Username,
			Token:     rc.Token,
			UserAgent: "getcmake/" + Version,
		}, logger)
		if err != nil {
			return nil, err
		}
		oci.TempDir = s.Paths.Temp
		return oci, nil
	default:
		dir := rc.Dir
		if dir == "" {
			global, err := paths.GlobalDir()
			if err != nil {
				return nil, err
			}
			dir = filepath.Join(global, "remote-cache")
		}
		return remotecache.NewDir(dir, logger), nil
	}
}

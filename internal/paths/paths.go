package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"

	"getcmake/internal/config"
)

// Environment variables published by the CI runner.
const (
	EnvRunnerTemp      = "RUNNER_TEMP"
	EnvRunnerToolCache = "RUNNER_TOOL_CACHE"
	EnvGitHubPath      = "GITHUB_PATH"
	EnvToolsDir        = "GETCMAKE_TOOLS_DIR"
)

// RunnerPaths captures canonical locations on the worker.
type RunnerPaths struct {
	// Temp is the per-job scratch root. Empty when the runner did not set it.
	Temp string
	// ToolCache is the root of the local per-worker tool cache.
	ToolCache string
	// PathFile is the file the runner reads PATH additions from; may be empty.
	PathFile string
	// ConfigFile is the optional getcmake.yaml.
	ConfigFile string
}

// Resolve determines runner locations from the environment. A missing scratch
// root is not an error here; the acquisition engine reports it when needed.
func Resolve(lookup func(string) (string, bool)) (RunnerPaths, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	rp := RunnerPaths{}
	if temp, ok := lookup(EnvRunnerTemp); ok && strings.TrimSpace(temp) != "" {
		rp.Temp = filepath.Clean(temp)
	}
	if pathFile, ok := lookup(EnvGitHubPath); ok {
		rp.PathFile = strings.TrimSpace(pathFile)
	}

	toolCache, err := toolCacheRoot(lookup)
	if err != nil {
		return RunnerPaths{}, err
	}
	rp.ToolCache = toolCache

	global, err := GlobalDir()
	if err == nil {
		rp.ConfigFile = filepath.Join(global, "getcmake.yaml")
	}
	return rp, nil
}

// ApplyConfig lets the config file override runner locations.
func ApplyConfig(rp RunnerPaths, cfg config.Config) RunnerPaths {
	if dir := strings.TrimSpace(cfg.LocalCache.Dir); dir != "" {
		rp.ToolCache = filepath.Clean(dir)
	}
	if scratch := strings.TrimSpace(cfg.ScratchDir); scratch != "" {
		rp.Temp = filepath.Clean(scratch)
	}
	return rp
}

// DownloadsDir is where archives are fetched before extraction.
func (p RunnerPaths) DownloadsDir() string {
	if p.Temp == "" {
		return ""
	}
	return filepath.Join(p.Temp, "getcmake-downloads")
}

// toolCacheRoot mirrors the runner's tool cache location, falling back to a
// per-user directory when running outside a runner.
func toolCacheRoot(lookup func(string) (string, bool)) (string, error) {
	for _, key := range []string{EnvRunnerToolCache, EnvToolsDir} {
		if override, ok := lookup(key); ok && strings.TrimSpace(override) != "" {
			abs, err := filepath.Abs(override)
			if err != nil {
				return "", fmt.Errorf("resolve %s: %w", key, err)
			}
			return abs, nil
		}
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "getcmake", "toolcache"), nil
	case "windows":
		if localAppData, ok := lookup("LOCALAPPDATA"); ok && localAppData != "" {
			return filepath.Join(localAppData, "getcmake", "toolcache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "getcmake", "toolcache"), nil
	default:
		return filepath.Join(home, ".cache", "getcmake", "toolcache"), nil
	}
}

// GlobalDir returns the user-level getcmake directory (~/.getcmake).
func GlobalDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}
	return filepath.Join(home, ".getcmake"), nil
}

// GlobalLogsDir returns the global logs directory (~/.getcmake/logs).
// It creates the directory if it does not exist.
func GlobalLogsDir() (string, error) {
	global, err := GlobalDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(global, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create global logs dir: %w", err)
	}
	return dir, nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

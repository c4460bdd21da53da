package actions

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// PathEnv registers directories on the search path of this process and of the
// job steps that follow.
type PathEnv struct {
	// PathFile is the runner's GITHUB_PATH file; empty outside a runner.
	PathFile string
	Getenv   func(string) string
	Setenv   func(string, string) error
}

// NewPathEnv binds a PathEnv to the process environment.
func NewPathEnv(pathFile string) *PathEnv {
	return &PathEnv{PathFile: pathFile, Getenv: os.Getenv, Setenv: os.Setenv}
}

// AddPath prepends dir to PATH and records it for later steps.
func (p *PathEnv) AddPath(dir string) error {
	if p.PathFile != "" {
		f, err := os.OpenFile(p.PathFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open %s: %w", p.PathFile, err)
		}
		if _, err := fmt.Fprintln(f, dir); err != nil {
			f.Close()
			return fmt.Errorf("append %s: %w", p.PathFile, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", p.PathFile, err)
		}
	}

	current := p.Getenv("PATH")
	updated := dir
	if current != "" {
		updated = dir + string(os.PathListSeparator) + current
	}
	if err := p.Setenv("PATH", updated); err != nil {
		return fmt.Errorf("update PATH: %w", err)
	}
	return nil
}

// Which locates tool on the current PATH.
func (p *PathEnv) Which(tool string) (string, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", tool, err)
	}
	return path, nil
}

// PathEntries splits a PATH value.
func PathEntries(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, string(os.PathListSeparator))
}

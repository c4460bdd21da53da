package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"getcmake/internal/catalog"
)

// toolDir is the directory holding the executables of one provisioned tool.
func toolDir(installRoot string, desc catalog.PackageDescriptor) string {
	return filepath.Join(installRoot, desc.DirName(), filepath.FromSlash(desc.BinPath))
}

// integrate puts every planned tool on PATH and checks that each resolves.
func (g *Getter) integrate(ctx context.Context, installRoot string, p catalog.Platform, plans []*plan) error {
	for _, pl := range plans {
		pl.result.Dir = toolDir(installRoot, pl.desc)
		if err := g.Path.AddPath(pl.result.Dir); err != nil {
			return &IntegrationError{Tool: pl.def.Name, Err: fmt.Errorf("add %s to PATH: %w", pl.result.Dir, err)}
		}
		g.Logger.WithField("tool", pl.def.Name).Debugf("added %s to PATH", pl.result.Dir)
	}

	for _, pl := range plans {
		if pl.def.FixExecutable {
			fixExecutable(pl.result.Dir, pl.def, p, g.Logger)
		}
	}

	for _, pl := range plans {
		logger := g.Logger.WithField("tool", pl.def.Name)
		found, err := g.Path.Which(pl.def.Executable)
		if err != nil {
			return &IntegrationError{Tool: pl.def.Name, Err: err}
		}
		pl.result.Executable = found
		if filepath.Dir(found) != filepath.Clean(pl.result.Dir) {
			logger.Warnf("%s resolves to %s, not the provisioned %s", pl.def.Executable, found, pl.result.Dir)
		}

		if g.Probe == nil {
			g.Reporter.Update(pl.def.Name, "ready", found)
			continue
		}
		line, err := g.Probe(ctx, found, pl.def.VersionSwitch)
		if err != nil {
			logger.Warnf("version check failed: %v", err)
			g.Reporter.Update(pl.def.Name, "unverified", err.Error())
			continue
		}
		pl.result.ReportedVersion = line
		logger.Info(line)
		g.Reporter.Update(pl.def.Name, "ready", line)
	}
	return nil
}

// fixExecutable renames a differently spelled executable in dir, such as
// ninja-linux, to the name the tool is invoked by. Problems are logged and
// left for PATH verification to report.
func fixExecutable(dir string, def ToolDefinition, p catalog.Platform, logger log.FieldLogger) {
	want := def.ExecutableName(p)
	target := filepath.Join(dir, want)
	if _, err := os.Stat(target); err == nil {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warnf("scan %s for %s: %v", dir, want, err)
		return
	}
	prefix := strings.ToLower(def.Executable)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(strings.ToLower(entry.Name()), prefix) {
			continue
		}
		src := filepath.Join(dir, entry.Name())
		if err := os.Rename(src, target); err != nil {
			logger.Warnf("rename %s to %s: %v", src, want, err)
			return
		}
		if !p.IsWindows() {
			if err := os.Chmod(target, 0o755); err != nil {
				logger.Warnf("chmod %s: %v", target, err)
			}
		}
		logger.Infof("renamed %s to %s", entry.Name(), want)
		return
	}
	logger.Warnf("no executable named like %s in %s", want, dir)
}

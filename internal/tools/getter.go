package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"getcmake/internal/archive"
	"getcmake/internal/catalog"
	"getcmake/internal/remotecache"
)

// Cache tier names used in errors and logs.
const (
	TierLocal  = "local"
	TierRemote = "remote"
)

// Getter provisions CMake and Ninja, preferring the local tool cache, then the
// remote cache, then a fresh download.
type Getter struct {
	CMake      *catalog.Catalog
	Ninja      *catalog.Catalog
	Local      LocalCache
	Remote     RemoteCache
	Downloader Downloader
	Extractor  Extractor
	Path       PathRegistrar
	Reporter   Reporter
	Probe      VersionProbe
	Logger     log.FieldLogger
}

type plan struct {
	def    ToolDefinition
	desc   catalog.PackageDescriptor
	result ToolResult
}

// Run executes one provisioning run.
func (g *Getter) Run(ctx context.Context, req Request) (Outcome, error) {
	g.defaults()

	if req.ScratchRoot == "" {
		return Outcome{}, &EnvironmentError{Variable: "RUNNER_TEMP", Reason: "is not set"}
	}
	if req.UseLocalCache && g.Local == nil {
		return Outcome{}, &EnvironmentError{Variable: "RUNNER_TOOL_CACHE", Reason: "does not name a tool cache"}
	}
	if req.UseRemoteCache && g.Remote == nil {
		return Outcome{}, &EnvironmentError{Variable: "remote cache", Reason: "is enabled but not configured"}
	}

	plans, err := g.resolve(req)
	if err != nil {
		return Outcome{}, err
	}
	cmakePlan, ninjaPlan := plans[0], plans[1]

	key := DeriveKey(cmakePlan.desc.URL, ninjaPlan.desc.URL)
	keyStr := KeyString(key)
	installRoot := filepath.Join(req.ScratchRoot, keyStr)
	logger := g.Logger.WithField("key", keyStr)
	logger.Debugf("install root %s", installRoot)

	out := Outcome{Key: key, InstallRoot: installRoot}
	platform := string(req.Platform)
	fake := FakeVersion(key)

	if req.UseLocalCache {
		g.Reporter.StartGroup("Restore from local cache")
		if dir := g.Local.Find(ToolsetName, fake, platform); dir != "" {
			out.LocalCacheHit = true
			out.InstallRoot = dir
			logger.Infof("local cache hit: %s", dir)
		} else {
			logger.Infof("local cache miss for %s %s", ToolsetName, fake)
		}
		g.Reporter.EndGroup()
	}

	if req.UseRemoteCache && !out.LocalCacheHit {
		g.Reporter.StartGroup("Restore from remote cache")
		_, hit, err := g.Remote.Restore(ctx, []string{installRoot}, keyStr)
		g.Reporter.EndGroup()
		if err != nil {
			return out, &CacheReadError{Tier: TierRemote, Key: keyStr, Err: err}
		}
		if hit {
			if _, err := os.Stat(installRoot); err != nil {
				logger.Warnf("remote cache reported a hit but %s is missing: %v", installRoot, err)
				hit = false
			}
		}
		out.RemoteCacheHit = hit
		if hit {
			logger.Infof("remote cache hit, restored to %s", installRoot)
		} else {
			logger.Info("remote cache miss")
		}
	}

	if !out.LocalCacheHit && !out.RemoteCacheHit {
		g.Reporter.StartGroup("Download and extract")
		err := g.acquire(ctx, req, installRoot, plans)
		g.Reporter.EndGroup()
		if err != nil {
			return out, err
		}
	} else {
		for _, pl := range plans {
			g.Reporter.Update(pl.def.Name, "cached", pl.result.Version)
		}
	}

	g.Reporter.StartGroup("Add to PATH")
	err = g.integrate(ctx, out.InstallRoot, req.Platform, plans)
	g.Reporter.EndGroup()
	if err != nil {
		return out, err
	}
	out.CMake = cmakePlan.result
	out.Ninja = ninjaPlan.result

	if req.UseRemoteCache && !out.LocalCacheHit && !out.RemoteCacheHit {
		g.Reporter.StartGroup("Save to remote cache")
		err := g.saveRemote(ctx, logger, installRoot, keyStr)
		g.Reporter.EndGroup()
		if err != nil {
			return out, err
		}
	}

	if req.UseLocalCache && !out.LocalCacheHit {
		g.Reporter.StartGroup("Save to local cache")
		stored, err := g.Local.Store(out.InstallRoot, ToolsetName, fake, platform)
		g.Reporter.EndGroup()
		if err != nil {
			return out, &CacheWriteError{Tier: TierLocal, Key: fake, Err: err}
		}
		logger.Infof("saved to local cache: %s", stored)
	}

	return out, nil
}

func (g *Getter) defaults() {
	if g.Logger == nil {
		g.Logger = log.StandardLogger()
	}
	if g.Reporter == nil {
		g.Reporter = NopReporter{}
	}
}

func (g *Getter) resolve(req Request) ([]*plan, error) {
	g.Reporter.StartGroup("Resolve versions")
	defer g.Reporter.EndGroup()

	requests := []struct {
		cat       *catalog.Catalog
		name      string
		requested string
	}{
		{g.CMake, CMake, req.CMakeVersion},
		{g.Ninja, Ninja, req.NinjaVersion},
	}

	plans := make([]*plan, 0, len(requests))
	for _, r := range requests {
		if r.cat == nil {
			return nil, fmt.Errorf("no %s catalog loaded", r.name)
		}
		def, _ := Definition(r.name)
		requested := r.requested
		if requested == "" {
			requested = catalog.Latest
		}
		version, desc, err := catalog.ResolveDescriptor(r.cat, requested, req.Platform)
		if err != nil {
			return nil, err
		}
		if desc.URL == "" || desc.FileName == "" {
			return nil, &IntegrationError{Tool: r.name, Err: fmt.Errorf("catalog entry %s for %s lacks a download url or file name", version, req.Platform)}
		}
		g.Logger.WithField("tool", r.name).Infof("%s resolved to %s (%s)", requested, version, desc.URL)
		g.Reporter.Update(r.name, "resolved", version)
		plans = append(plans, &plan{
			def:    def,
			desc:   desc,
			result: ToolResult{Name: r.name, Version: version, Descriptor: desc},
		})
	}
	return plans, nil
}

// acquire downloads every archive concurrently, then unpacks them one by one
// into installRoot.
func (g *Getter) acquire(ctx context.Context, req Request, installRoot string, plans []*plan) error {
	downloadDir := req.DownloadDir
	if downloadDir == "" {
		downloadDir = filepath.Join(req.ScratchRoot, "getcmake-downloads")
	}
	if err := os.RemoveAll(installRoot); err != nil {
		return fmt.Errorf("clear install root: %w", err)
	}

	archives := make([]string, len(plans))
	eg, egctx := errgroup.WithContext(ctx)
	for i, pl := range plans {
		eg.Go(func() error {
			g.Reporter.Update(pl.def.Name, "downloading", pl.desc.URL)
			path, err := g.Downloader.Download(egctx, pl.desc.URL, downloadDir)
			if err != nil {
				return &AcquisitionError{Tool: pl.def.Name, Stage: "download", URL: pl.desc.URL, Err: err}
			}
			archives[i] = path
			g.Reporter.Update(pl.def.Name, "downloaded", filepath.Base(path))
			return nil
		})
	}
	err := eg.Wait()
	defer func() {
		for i, a := range archives {
			if a != "" {
				_ = os.Remove(a)
				_ = os.Remove(a + plans[i].desc.DropSuffix)
			}
		}
	}()
	if err != nil {
		return err
	}

	for i, pl := range plans {
		g.Reporter.Update(pl.def.Name, "extracting", pl.desc.FileName)
		if err := g.extract(ctx, pl, archives[i], installRoot); err != nil {
			return err
		}
	}
	return nil
}

// extract unpacks one archive as the kind its descriptor declares. Some
// extractors also insist on the archive suffix, so when the first attempt
// fails on a file saved without it, the file is renamed with the suffix and
// extracted once more.
func (g *Getter) extract(ctx context.Context, pl *plan, archivePath, installRoot string) error {
	dest := installRoot
	if pl.def.OwnDir {
		dest = filepath.Join(installRoot, pl.desc.DirName())
	}
	logger := g.Logger.WithField("tool", pl.def.Name)
	fail := func(err error) error {
		return &AcquisitionError{Tool: pl.def.Name, Stage: "extract", URL: pl.desc.URL, Err: err}
	}

	suffix := pl.desc.DropSuffix
	kind, err := archive.KindFromSuffix(suffix)
	if err != nil {
		return fail(err)
	}

	err = g.Extractor.Extract(ctx, kind, archivePath, dest)
	if err == nil {
		return nil
	}
	if strings.HasSuffix(archivePath, suffix) {
		return fail(err)
	}

	renamed := archivePath + suffix
	logger.Debugf("extract %s failed (%v), retrying as %s", archivePath, err, filepath.Base(renamed))
	if rerr := os.Rename(archivePath, renamed); rerr != nil {
		return fail(errors.Join(err, rerr))
	}
	if err := g.Extractor.Extract(ctx, kind, renamed, dest); err != nil {
		return fail(err)
	}
	return nil
}

// saveRemote stores installRoot in the remote cache. Only a rejected request
// stops the run; conflicts and transport failures are logged.
func (g *Getter) saveRemote(ctx context.Context, logger log.FieldLogger, installRoot, key string) error {
	size, err := g.Remote.Save(ctx, []string{installRoot}, key)
	if err == nil {
		logger.Infof("saved %d bytes to remote cache", size)
		return nil
	}
	switch kind := remotecache.KindOf(err); kind {
	case remotecache.KindValidation:
		return &CacheWriteError{Tier: TierRemote, Key: key, Kind: kind, Err: err}
	case remotecache.KindReserveConflict:
		logger.Infof("remote cache entry not saved: %v", err)
	default:
		logger.Warnf("remote cache entry not saved: %v", err)
	}
	return nil
}

package tools

import (
	"context"

	"getcmake/internal/archive"
	"getcmake/internal/catalog"
)

// Request is one provisioning run.
type Request struct {
	CMakeVersion string
	NinjaVersion string
	Platform     catalog.Platform
	// ScratchRoot is the per-job temp directory; the install root is created
	// beneath it.
	ScratchRoot string
	// DownloadDir receives raw archives. Defaults to ScratchRoot/getcmake-downloads.
	DownloadDir    string
	UseLocalCache  bool
	UseRemoteCache bool
}

// ToolResult describes one tool after provisioning.
type ToolResult struct {
	Name            string                    `json:"name"`
	Version         string                    `json:"version"`
	Descriptor      catalog.PackageDescriptor `json:"descriptor"`
	Dir             string                    `json:"dir"`
	Executable      string                    `json:"executable,omitempty"`
	ReportedVersion string                    `json:"reported_version,omitempty"`
}

// Outcome summarises a provisioning run.
type Outcome struct {
	Key            int32      `json:"key"`
	InstallRoot    string     `json:"install_root"`
	LocalCacheHit  bool       `json:"local_cache_hit"`
	RemoteCacheHit bool       `json:"remote_cache_hit"`
	CMake          ToolResult `json:"cmake"`
	Ninja          ToolResult `json:"ninja"`
}

// LocalCache is the per-machine tool cache.
type LocalCache interface {
	Find(name, version, platform string) string
	Store(src, name, version, platform string) (string, error)
}

// RemoteCache is the cache shared between workers.
type RemoteCache interface {
	Restore(ctx context.Context, paths []string, key string) (string, bool, error)
	Save(ctx context.Context, paths []string, key string) (int64, error)
}

// Downloader fetches url into dir and returns the path of the saved file.
type Downloader interface {
	Download(ctx context.Context, url, dir string) (string, error)
}

// Extractor unpacks an archive of the given kind into dest.
type Extractor interface {
	Extract(ctx context.Context, kind archive.Kind, archivePath, dest string) error
}

// PathRegistrar exposes directories to the current process and later steps.
type PathRegistrar interface {
	AddPath(dir string) error
	Which(tool string) (string, error)
}

// Reporter receives progress for each stage of a run.
type Reporter interface {
	StartGroup(name string)
	EndGroup()
	Update(tool, status, detail string)
}

// NopReporter discards progress.
type NopReporter struct{}

func (NopReporter) StartGroup(string)             {}
func (NopReporter) EndGroup()                     {}
func (NopReporter) Update(string, string, string) {}

// VersionProbe runs a tool's version switch and returns the first line of output.
type VersionProbe func(ctx context.Context, executable, versionSwitch string) (string, error)

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Filter maps release assets whose name ends with Suffix onto a platform.
type Filter struct {
	Suffix     string
	BinPath    string
	DropSuffix string
	Platform   Platform
}

// Source describes where a tool's releases are published.
type Source struct {
	Repo    string
	Filters []Filter
}

// Sources lists the release feeds the catalogs are generated from.
var Sources = map[string]Source{
	"cmake": {
		Repo: "Kitware/CMake",
		Filters: []Filter{
			{Suffix: "linux-x86_64.tar.gz", BinPath: "bin/", DropSuffix: ".tar.gz", Platform: LinuxX64},
			{Suffix: "linux-aarch64.tar.gz", BinPath: "bin/", DropSuffix: ".tar.gz", Platform: LinuxArm64},
			{Suffix: "windows-x86_64.zip", BinPath: "bin/", DropSuffix: ".zip", Platform: WindowsX64},
			{Suffix: "win64-x64.zip", BinPath: "bin/", DropSuffix: ".zip", Platform: WindowsX64},
			{Suffix: "windows-arm64.zip", BinPath: "bin/", DropSuffix: ".zip", Platform: WindowsArm64},
			{Suffix: "macos-universal.tar.gz", BinPath: "CMake.app/Contents/bin/", DropSuffix: ".tar.gz", Platform: MacOSUniversal},
			{Suffix: "Darwin-x86_64.tar.gz", BinPath: "CMake.app/Contents/bin/", DropSuffix: ".tar.gz", Platform: MacOSUniversal},
		},
	},
	"ninja": {
		Repo: "ninja-build/ninja",
		Filters: []Filter{
			{Suffix: "linux.zip", DropSuffix: ".zip", Platform: LinuxX64},
			{Suffix: "linux-aarch64.zip", DropSuffix: ".zip", Platform: LinuxArm64},
			{Suffix: "win.zip", DropSuffix: ".zip", Platform: WindowsX64},
			{Suffix: "winarm64.zip", DropSuffix: ".zip", Platform: WindowsArm64},
			{Suffix: "mac.zip", DropSuffix: ".zip", Platform: MacOSUniversal},
		},
	},
}

// GitHubAsset is the subset of a release asset the collector reads.
type GitHubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// GitHubRelease is the subset of a release the collector reads.
type GitHubRelease struct {
	TagName    string        `json:"tag_name"`
	Prerelease bool          `json:"prerelease"`
	Assets     []GitHubAsset `json:"assets"`
}

type aliasSelector struct {
	key        string
	prerelease bool
}

var aliasSelectors = []aliasSelector{
	{key: Latest, prerelease: false},
	{key: LatestRC, prerelease: true},
}

// Collector accumulates release assets into a catalog table.
type Collector struct {
	filters  []Filter
	releases map[string]map[Platform]PackageDescriptor
	newest   map[string]map[Platform]*semver.Version
	logger   logrus.FieldLogger
}

// NewCollector creates a collector matching assets against filters.
func NewCollector(filters []Filter, logger logrus.FieldLogger) *Collector {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Collector{
		filters:  filters,
		releases: map[string]map[Platform]PackageDescriptor{},
		newest:   map[string]map[Platform]*semver.Version{},
		logger:   logger,
	}
}

// Track records every asset of rel that matches a filter, and moves the
// latest/latestrc aliases forward when rel is newer.
func (c *Collector) Track(rel GitHubRelease) {
	version, err := semver.NewVersion(rel.TagName)
	if err != nil {
		c.logger.Debugf("skipping release %q: %v", rel.TagName, err)
		return
	}
	key := version.String()
	prerelease := rel.Prerelease || version.Prerelease() != ""

	for _, asset := range rel.Assets {
		name := strings.ToLower(strings.TrimSpace(asset.Name))
		hit := false
		for _, filter := range c.filters {
			if !strings.HasSuffix(name, strings.ToLower(filter.Suffix)) {
				continue
			}
			desc := PackageDescriptor{
				URL:        asset.BrowserDownloadURL,
				FileName:   asset.Name,
				BinPath:    filter.BinPath,
				DropSuffix: filter.DropSuffix,
			}
			if c.releases[key] == nil {
				c.releases[key] = map[Platform]PackageDescriptor{}
			}
			c.releases[key][filter.Platform] = desc
			c.trackAlias(version, prerelease, filter.Platform, desc)
			hit = true
		}
		if !hit {
			c.logger.Debugf("skipping asset %s", asset.Name)
		}
	}
}

// trackAlias moves latest or latestrc to version. A release counts as a
// prerelease when GitHub flags it or its tag carries a prerelease part.
func (c *Collector) trackAlias(version *semver.Version, prerelease bool, p Platform, desc PackageDescriptor) {
	for _, sel := range aliasSelectors {
		if sel.prerelease != prerelease {
			continue
		}
		if c.newest[sel.key] == nil {
			c.newest[sel.key] = map[Platform]*semver.Version{}
		}
		current := c.newest[sel.key][p]
		if current != nil && version.LessThan(current) {
			continue
		}
		c.newest[sel.key][p] = version
		if c.releases[sel.key] == nil {
			c.releases[sel.key] = map[Platform]PackageDescriptor{}
		}
		c.releases[sel.key][p] = desc
	}
}

// Catalog returns the accumulated table as an immutable catalog.
func (c *Collector) Catalog(tool string) *Catalog {
	return New(tool, c.releases)
}

// Fetcher pages through a repository's GitHub releases.
type Fetcher struct {
	BaseURL string
	Token   string
	Client  *http.Client
	PerPage int
	Logger  logrus.FieldLogger
}

// NewFetcher returns a fetcher for the public GitHub API.
func NewFetcher(token string, logger logrus.FieldLogger) *Fetcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Fetcher{
		BaseURL: "https://api.github.com",
		Token:   token,
		Client:  &http.Client{Timeout: 30 * time.Second},
		PerPage: 100,
		Logger:  logger,
	}
}

// Releases returns every release of repo, following pagination until an empty page.
func (f *Fetcher) Releases(ctx context.Context, repo string) ([]GitHubRelease, error) {
	var all []GitHubRelease
	for page := 1; ; page++ {
		endpoint := fmt.Sprintf("%s/repos/%s/releases?per_page=%d&page=%d", strings.TrimRight(f.BaseURL, "/"), repo, f.PerPage, page)
		var batch []GitHubRelease
		op := func() error {
			var err error
			batch, err = f.fetchPage(ctx, endpoint)
			return err
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
		if err := backoff.Retry(op, policy); err != nil {
			return nil, err
		}
		f.Logger.Debugf("fetched %d releases from %s", len(batch), endpoint)
		if len(batch) == 0 {
			return all, nil
		}
		all = append(all, batch...)
	}
}

func (f *Fetcher) fetchPage(ctx context.Context, endpoint string) ([]GitHubRelease, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "getcmake/1.0")
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("query %s: %s", endpoint, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, backoff.Permanent(fmt.Errorf("query %s: %s", endpoint, resp.Status))
	}

	var releases []GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode releases: %w", err))
	}
	return releases, nil
}

// Generate builds a fresh catalog for tool from its published releases.
func Generate(ctx context.Context, tool string, fetcher *Fetcher) (*Catalog, error) {
	source, ok := Sources[tool]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", tool)
	}
	releases, err := fetcher.Releases(ctx, source.Repo)
	if err != nil {
		return nil, fmt.Errorf("list %s releases: %w", tool, err)
	}
	collector := NewCollector(source.Filters, fetcher.Logger)
	for _, rel := range releases {
		collector.Track(rel)
	}
	cat := collector.Catalog(tool)
	if len(cat.releases) == 0 {
		return nil, errors.New("no releases matched any platform filter")
	}
	return cat, nil
}

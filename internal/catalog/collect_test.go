package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asset(name string) GitHubAsset {
	return GitHubAsset{Name: name, BrowserDownloadURL: "https://github.com/dl/" + name}
}

func TestCollectorTracksAssetsAndAliases(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := NewCollector(Sources["cmake"].Filters, logger)

	c.Track(GitHubRelease{TagName: "v3.20.2", Assets: []GitHubAsset{
		asset("cmake-3.20.2-linux-x86_64.tar.gz"),
		asset("cmake-3.20.2-windows-x86_64.zip"),
		asset("cmake-3.20.2-SHA-256.txt"),
	}})
	c.Track(GitHubRelease{TagName: "v3.19.8", Assets: []GitHubAsset{
		asset("cmake-3.19.8-Linux-x86_64.tar.gz"),
		asset("cmake-3.19.8-win64-x64.zip"),
	}})
	c.Track(GitHubRelease{TagName: "v3.21.0-rc1", Prerelease: true, Assets: []GitHubAsset{
		asset("cmake-3.21.0-rc1-linux-x86_64.tar.gz"),
	}})
	c.Track(GitHubRelease{TagName: "nightly"})

	cat := c.Catalog("cmake")
	assert.Equal(t, []string{"3.19.8", "3.20.2", "3.21.0-rc1", "latest", "latestrc"}, cat.Versions())

	d, ok := cat.Lookup("3.19.8", WindowsX64)
	require.True(t, ok)
	assert.Equal(t, "cmake-3.19.8-win64-x64", d.DirName())

	d, ok = cat.Lookup(Latest, LinuxX64)
	require.True(t, ok)
	assert.Equal(t, "cmake-3.20.2-linux-x86_64.tar.gz", d.FileName)
	assert.Equal(t, "bin/", d.BinPath)

	d, ok = cat.Lookup(LatestRC, LinuxX64)
	require.True(t, ok)
	assert.Equal(t, "cmake-3.21.0-rc1-linux-x86_64.tar.gz", d.FileName)

	_, ok = cat.Lookup(LatestRC, WindowsX64)
	assert.False(t, ok)
}

func TestCollectorHonoursPrereleaseFlag(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := NewCollector(Sources["cmake"].Filters, logger)

	c.Track(GitHubRelease{TagName: "v3.20.2", Assets: []GitHubAsset{
		asset("cmake-3.20.2-linux-x86_64.tar.gz"),
	}})
	c.Track(GitHubRelease{TagName: "v3.21.0", Prerelease: true, Assets: []GitHubAsset{
		asset("cmake-3.21.0-linux-x86_64.tar.gz"),
	}})

	cat := c.Catalog("cmake")
	d, ok := cat.Lookup(Latest, LinuxX64)
	require.True(t, ok)
	assert.Equal(t, "cmake-3.20.2-linux-x86_64.tar.gz", d.FileName)

	d, ok = cat.Lookup(LatestRC, LinuxX64)
	require.True(t, ok)
	assert.Equal(t, "cmake-3.21.0-linux-x86_64.tar.gz", d.FileName)
}

func TestCollectorNinjaSuffixesDoNotOverlap(t *testing.T) {
	c := NewCollector(Sources["ninja"].Filters, nil)
	c.Track(GitHubRelease{TagName: "v1.12.1", Assets: []GitHubAsset{
		asset("ninja-linux.zip"),
		asset("ninja-linux-aarch64.zip"),
		asset("ninja-win.zip"),
		asset("ninja-winarm64.zip"),
		asset("ninja-mac.zip"),
	}})

	cat := c.Catalog("ninja")
	assert.Len(t, cat.Platforms("1.12.1"), len(Platforms))
	d, _ := cat.Lookup("1.12.1", LinuxArm64)
	assert.Equal(t, "ninja-linux-aarch64.zip", d.FileName)
	d, _ = cat.Lookup("1.12.1", WindowsArm64)
	assert.Equal(t, "ninja-winarm64.zip", d.FileName)
	assert.Equal(t, "", d.BinPath)
}

func TestFetcherPaginatesAndRetries(t *testing.T) {
	pages := map[int][]GitHubRelease{
		1: {{TagName: "v1.11.1", Assets: []GitHubAsset{asset("ninja-linux.zip")}}},
		2: {{TagName: "v1.10.2", Assets: []GitHubAsset{asset("ninja-win.zip")}}},
	}
	var failures int32 = 1
	var sawToken atomic.Bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/ninja-build/ninja/releases", r.URL.Path)
		if r.Header.Get("Authorization") == "Bearer tok" {
			sawToken.Store(true)
		}
		if atomic.AddInt32(&failures, -1) >= 0 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		_ = json.NewEncoder(w).Encode(pages[page])
	}))
	defer srv.Close()

	fetcher := NewFetcher("tok", logrus.New())
	fetcher.BaseURL = srv.URL

	cat, err := Generate(context.Background(), "ninja", fetcher)
	require.NoError(t, err)
	assert.True(t, sawToken.Load())
	assert.True(t, cat.Has("1.11.1"))
	assert.True(t, cat.Has("1.10.2"))

	d, ok := cat.Lookup(Latest, LinuxX64)
	require.True(t, ok)
	assert.Equal(t, "ninja-linux.zip", d.FileName)
}

func TestFetcherClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := NewFetcher("", nil)
	fetcher.BaseURL = srv.URL

	_, err := fetcher.Releases(context.Background(), "Kitware/CMake")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGenerateUnknownTool(t *testing.T) {
	_, err := Generate(context.Background(), "meson", NewFetcher("", nil))
	assert.Error(t, err)
}

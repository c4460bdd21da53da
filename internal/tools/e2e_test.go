package tools

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"getcmake/internal/actions"
	"getcmake/internal/archive"
	"getcmake/internal/catalog"
	"getcmake/internal/remotecache"
	"getcmake/internal/toolcache"
)

func cmakeTarball(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	script := []byte("#!/bin/sh\necho cmake version 9.9.9\necho\necho CMake suite maintained by Kitware\n")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "cmake-9.9.9-linux-x86_64/bin/", Typeflag: tar.TypeDir, Mode: 0o755}))
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "cmake-9.9.9-linux-x86_64/bin/cmake", Typeflag: tar.TypeReg, Mode: 0o755, Size: int64(len(script))}))
	_, err := tw.Write(script)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func ninjaZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	hdr := &zip.FileHeader{Name: "ninja", Method: zip.Deflate}
	hdr.SetMode(0o755)
	w, err := zw.CreateHeader(hdr)
	require.NoError(t, err)
	_, err = w.Write([]byte("#!/bin/sh\necho 9.9.9\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestProvisionEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("archives carry shell scripts")
	}

	var downloads int32
	tarball, zipped := cmakeTarball(t), ninjaZip(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&downloads, 1)
		switch {
		case strings.HasSuffix(r.URL.Path, ".tar.gz"):
			_, _ = w.Write(tarball)
		case strings.HasSuffix(r.URL.Path, ".zip"):
			_, _ = w.Write(zipped)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cmake := catalog.New(CMake, map[string]map[catalog.Platform]catalog.PackageDescriptor{
		"9.9.9": {catalog.LinuxX64: {URL: srv.URL + "/cmake-9.9.9-linux-x86_64.tar.gz", FileName: "cmake-9.9.9-linux-x86_64.tar.gz", BinPath: "bin/", DropSuffix: ".tar.gz"}},
	})
	ninja := catalog.New(Ninja, map[string]map[catalog.Platform]catalog.PackageDescriptor{
		"9.9.9": {catalog.LinuxX64: {URL: srv.URL + "/ninja-linux.zip", FileName: "ninja-linux.zip", DropSuffix: ".zip"}},
	})

	logger, _ := test.NewNullLogger()
	local := toolcache.New(t.TempDir())
	remote := remotecache.NewDir(t.TempDir(), logger)
	t.Setenv("PATH", os.Getenv("PATH"))

	run := func(useLocal bool) (Outcome, string) {
		pathFile := filepath.Join(t.TempDir(), "github_path")
		g := &Getter{
			CMake:      cmake,
			Ninja:      ninja,
			Local:      local,
			Remote:     remote,
			Downloader: NewHTTPDownloader(logger),
			Extractor:  archive.Extractor{},
			Path:       actions.NewPathEnv(pathFile),
			Probe:      ProbeVersion,
			Logger:     logger,
		}
		out, err := g.Run(context.Background(), Request{
			CMakeVersion:   "~9.9",
			NinjaVersion:   "9.9.9",
			Platform:       catalog.LinuxX64,
			ScratchRoot:    t.TempDir(),
			UseLocalCache:  useLocal,
			UseRemoteCache: true,
		})
		require.NoError(t, err)
		return out, pathFile
	}

	first, pathFile := run(false)
	assert.False(t, first.RemoteCacheHit)
	assert.Equal(t, int32(2), atomic.LoadInt32(&downloads))
	assert.Equal(t, "cmake version 9.9.9", first.CMake.ReportedVersion)
	assert.Equal(t, "9.9.9", first.Ninja.ReportedVersion)
	assert.Equal(t, filepath.Join(first.InstallRoot, "ninja-linux", "ninja"), first.Ninja.Executable)

	recorded, err := os.ReadFile(pathFile)
	require.NoError(t, err)
	assert.Equal(t, first.CMake.Dir+"\n"+first.Ninja.Dir+"\n", string(recorded))

	second, _ := run(true)
	assert.True(t, second.RemoteCacheHit)
	assert.Equal(t, int32(2), atomic.LoadInt32(&downloads))
	assert.NotEmpty(t, local.Find(ToolsetName, FakeVersion(second.Key), "linux-x64"))

	third, _ := run(true)
	assert.True(t, third.LocalCacheHit)
	assert.Equal(t, local.Find(ToolsetName, FakeVersion(third.Key), "linux-x64"), third.InstallRoot)
	assert.Equal(t, int32(2), atomic.LoadInt32(&downloads))
}

package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalogsAreWellFormed(t *testing.T) {
	for _, tool := range []string{"cmake", "ninja"} {
		t.Run(tool, func(t *testing.T) {
			cat, err := Embedded(tool)
			require.NoError(t, err)
			assert.Equal(t, tool, cat.Tool())
			assert.True(t, cat.Has(Latest))

			for _, version := range cat.Versions() {
				for _, p := range cat.Platforms(version) {
					d, ok := cat.Lookup(version, p)
					require.True(t, ok)
					assert.NotEmpty(t, d.URL, "%s %s", version, p)
					assert.NotEmpty(t, d.FileName, "%s %s", version, p)
					assert.NotEqual(t, d.FileName, d.DirName(), "%s %s keeps its suffix", version, p)
				}
			}
		})
	}
}

func TestEmbeddedUnknownTool(t *testing.T) {
	_, err := Embedded("meson")
	assert.Error(t, err)
}

func TestParseRejectsUnknownPlatform(t *testing.T) {
	_, err := Parse("cmake", []byte(`{"3.20.2": {"solaris-sparc": {"url": "https://x", "fileName": "x.tar.gz"}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solaris-sparc")
}

func TestParseRejectsMissingURL(t *testing.T) {
	_, err := Parse("cmake", []byte(`{"3.20.2": {"linux-x64": {"fileName": "x.tar.gz"}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing url")
}

func TestMarshalRoundTrip(t *testing.T) {
	cat := smallCatalog()
	data, err := json.Marshal(cat)
	require.NoError(t, err)

	back, err := Parse("cmake", data)
	require.NoError(t, err)
	assert.Equal(t, cat.Versions(), back.Versions())
	d, ok := back.Lookup("3.20.1", LinuxArm64)
	require.True(t, ok)
	assert.Equal(t, "cmake-3.20.1-arm.tar.gz", d.FileName)
}

func TestNewCopiesTable(t *testing.T) {
	table := map[string]map[Platform]PackageDescriptor{
		"1.0.0": {LinuxX64: desc("a")},
	}
	cat := New("ninja", table)
	table["1.0.0"][LinuxX64] = desc("b")
	table["2.0.0"] = map[Platform]PackageDescriptor{LinuxX64: desc("c")}

	d, _ := cat.Lookup("1.0.0", LinuxX64)
	assert.Equal(t, "a.tar.gz", d.FileName)
	assert.False(t, cat.Has("2.0.0"))
}

func TestURLsSkipReservedAndDedupe(t *testing.T) {
	urls := smallCatalog().URLs()
	assert.Len(t, urls, 5)
	assert.IsIncreasing(t, urls)
}

func TestPlatformFor(t *testing.T) {
	cases := []struct {
		goos, goarch string
		want         Platform
		ok           bool
	}{
		{"linux", "amd64", LinuxX64, true},
		{"linux", "arm64", LinuxArm64, true},
		{"windows", "amd64", WindowsX64, true},
		{"windows", "arm64", WindowsArm64, true},
		{"darwin", "arm64", MacOSUniversal, true},
		{"darwin", "amd64", MacOSUniversal, true},
		{"linux", "386", "", false},
		{"plan9", "amd64", "", false},
	}
	for _, tc := range cases {
		got, err := PlatformFor(tc.goos, tc.goarch)
		if !tc.ok {
			assert.Error(t, err, "%s/%s", tc.goos, tc.goarch)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
	assert.True(t, WindowsArm64.IsWindows())
	assert.False(t, MacOSUniversal.IsWindows())
}

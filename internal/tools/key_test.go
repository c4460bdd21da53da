package tools

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"getcmake/internal/catalog"
)

func TestDeriveKeyKnownValues(t *testing.T) {
	assert.Equal(t, int32(-1454440670), DeriveKey(cmakeURL, ninjaURL))
	assert.Equal(t, int32(1227789108), hashCode("https://example.com/a"))
	assert.Equal(t, int32(0), hashCode(""))
	assert.Equal(t, DeriveKey(cmakeURL, ninjaURL), hashCode(cmakeURL+ninjaURL))
}

func TestDeriveKeyIsOrderSensitive(t *testing.T) {
	assert.NotEqual(t, DeriveKey(cmakeURL, ninjaURL), DeriveKey(ninjaURL, cmakeURL))
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "-1454440670", KeyString(-1454440670))
	assert.Equal(t, "0", KeyString(0))
}

func TestFakeVersion(t *testing.T) {
	cases := map[int32]string{
		0:             "0.0.0",
		42:            "42.0.0",
		-42:           "42.0.1",
		-1454440670:   "1454440670.0.1",
		math.MaxInt32: "2147483647.0.0",
		math.MinInt32: "2147483648.0.1",
	}
	for key, want := range cases {
		assert.Equal(t, want, FakeVersion(key), "key %d", key)
	}
	assert.NotEqual(t, FakeVersion(7), FakeVersion(-7))
}

// Every archive URL in the embedded catalogs hashes to a distinct value.
func TestEmbeddedCatalogURLsDoNotCollide(t *testing.T) {
	seen := map[int32]string{}
	for _, tool := range KnownTools() {
		c, err := catalog.Embedded(tool)
		require.NoError(t, err)
		urls := c.URLs()
		require.NotEmpty(t, urls)
		for _, u := range urls {
			h := hashCode(u)
			if prev, ok := seen[h]; ok && prev != u {
				t.Fatalf("%s and %s share hash %d", prev, u, h)
			}
			seen[h] = u
		}
	}
}

func TestDeriveKeyStableAcrossEmbeddedPairs(t *testing.T) {
	cmake, err := catalog.Embedded(CMake)
	require.NoError(t, err)
	ninja, err := catalog.Embedded(Ninja)
	require.NoError(t, err)

	_, c, err := catalog.ResolveDescriptor(cmake, "3.20.2", catalog.LinuxX64)
	require.NoError(t, err)
	_, n, err := catalog.ResolveDescriptor(ninja, "1.11.1", catalog.LinuxX64)
	require.NoError(t, err)

	assert.Equal(t, int32(-1454440670), DeriveKey(c.URL, n.URL))
}

package tools

import (
	"fmt"
	"strconv"
	"unicode/utf16"
)

// DeriveKey returns the cache key for a pair of resolved archives. It is a
// 32-bit rolling hash of cmakeURL followed by ninjaURL, so it is stable
// across runs and machines for the same pair of URLs.
func DeriveKey(cmakeURL, ninjaURL string) int32 {
	return hashCode(cmakeURL + ninjaURL)
}

// hashCode computes h = h*33 + c over the UTF-16 code units of text with
// 32-bit wraparound.
func hashCode(text string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(text)) {
		h = (h << 5) + h + int32(c)
	}
	return h
}

// KeyString is the textual form of key used for remote cache entries and the
// install root directory name.
func KeyString(key int32) string {
	return strconv.FormatInt(int64(key), 10)
}

// FakeVersion encodes key as a version string the local tool cache accepts.
// The patch component keeps the sign, so k and -k never collide.
func FakeVersion(key int32) string {
	k := int64(key)
	if k < 0 {
		return fmt.Sprintf("%d.0.1", -k)
	}
	return fmt.Sprintf("%d.0.0", k)
}

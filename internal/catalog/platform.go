package catalog

import (
	"fmt"
	"runtime"
)

// Platform identifies a release asset flavour.
type Platform string

const (
	LinuxX64       Platform = "linux-x64"
	LinuxArm64     Platform = "linux-arm64"
	WindowsX64     Platform = "windows-x64"
	WindowsArm64   Platform = "windows-arm64"
	MacOSUniversal Platform = "macos-universal"
)

// Platforms lists every supported platform.
var Platforms = []Platform{LinuxX64, LinuxArm64, WindowsX64, WindowsArm64, MacOSUniversal}

// ParsePlatform validates a platform identifier.
func ParsePlatform(s string) (Platform, error) {
	for _, p := range Platforms {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// DetectPlatform maps the running host onto a catalog platform.
func DetectPlatform() (Platform, error) {
	return PlatformFor(runtime.GOOS, runtime.GOARCH)
}

// PlatformFor maps a GOOS/GOARCH pair onto a catalog platform.
func PlatformFor(goos, goarch string) (Platform, error) {
	switch goos {
	case "darwin":
		return MacOSUniversal, nil
	case "linux":
		switch goarch {
		case "amd64":
			return LinuxX64, nil
		case "arm64":
			return LinuxArm64, nil
		}
	case "windows":
		switch goarch {
		case "amd64":
			return WindowsX64, nil
		case "arm64":
			return WindowsArm64, nil
		}
	}
	return "", fmt.Errorf("unsupported platform %s/%s", goos, goarch)
}

// IsWindows reports whether the platform runs Windows executables.
func (p Platform) IsWindows() bool {
	return p == WindowsX64 || p == WindowsArm64
}

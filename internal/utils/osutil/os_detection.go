package osutil

import (
	"os"
	"runtime"
)

// OS type constants
const (
	Windows = "windows"
	MacOS   = "darwin"
	Linux   = "linux"
)

// Platform keys as they appear in workflow definitions
const (
	PlatformMacOS   = "macos"
	PlatformLinux   = "linux"
	PlatformWindows = "windows"
)

// GetOSType returns the current operating system type
func GetOSType() string {
	return runtime.GOOS
}

// PlatformKey returns the workflow platform key for the running OS
func PlatformKey() string {
	return PlatformKeyFor(GetOSType())
}

// PlatformKeyFor maps a GOOS value to a workflow platform key. Unknown values
// are returned unchanged.
func PlatformKeyFor(goos string) string {
	switch goos {
	case MacOS:
		return PlatformMacOS
	case Linux:
		return PlatformLinux
	case Windows:
		return PlatformWindows
	default:
		return goos
	}
}

// IsDevEnvironment checks if the application is running in a development environment
// based on environment variables
func IsDevEnvironment() bool {
	return os.Getenv("APP_WALKTHROUGH_ENV") == "development" ||
		os.Getenv("APP_WALKTHROUGH_DEV") == "true" ||
		os.Getenv("DEV") == "true"
}

package models

import (
	"runtime"
	"time"
)

// Domain identifies one of the independently updated subsystems
type Domain string

const (
	DomainLauncher Domain = "launcher"
	DomainRuntime  Domain = "runtime"
	DomainClient   Domain = "client"
)

// Platform identifies a host platform in release asset maps
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformMac     Platform = "darwin"
	PlatformLinux   Platform = "linux"

	// PlatformAny keys assets that run everywhere (the client jar)
	PlatformAny Platform = "any"
)

// HostPlatform returns the platform the launcher is running on
func HostPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMac
	default:
		return PlatformLinux
	}
}

// Label returns the human readable platform name used in status messages
func (p Platform) Label() string {
	switch p {
	case PlatformWindows:
		return "Windows"
	case PlatformMac:
		return "macOS"
	case PlatformLinux:
		return "Linux"
	default:
		return string(p)
	}
}

// ReleaseDescriptor is the result of resolving a domain's latest remote release.
// It is built per resolution attempt and never persisted.
type ReleaseDescriptor struct {
	Domain  Domain              `json:"domain"`
	Tag     string              `json:"tag"`
	Version string              `json:"version"`
	Assets  map[Platform]string `json:"assets"`
}

// AssetFor returns the download URL for the given platform, falling back to
// a platform independent asset
func (r *ReleaseDescriptor) AssetFor(p Platform) (string, bool) {
	if r == nil {
		return "", false
	}
	if url, ok := r.Assets[p]; ok {
		return url, true
	}
	url, ok := r.Assets[PlatformAny]
	return url, ok
}

// Artifact is a versioned installable file or directory tree on disk
type Artifact struct {
	Domain  Domain `json:"domain"`
	Version string `json:"version,omitempty"`
	Path    string `json:"path"`
}

// RetryNotify is called before each rate-limit retry with the 1-based attempt
// that failed and the wait before the next one
type RetryNotify func(attempt int, wait time.Duration)
